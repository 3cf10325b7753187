package resend

import (
	"testing"

	"github.com/resend/resend-go/v3"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/mailvault/pkg/mailer"
)

func TestSender_Request(t *testing.T) {
	t.Parallel()

	s := New(Config{APIKey: "re_test", SenderEmail: "team@example.com", SenderName: "Team"})

	t.Run("default sender and tags", func(t *testing.T) {
		t.Parallel()

		req := s.request(&mailer.Email{
			To:      []string{"ann@example.com"},
			Subject: "Hi",
			HTML:    "<p>Hi</p>",
			Tags:    mailer.Tags{"welcome": "true", "campaign": "spring"},
			Attachments: []mailer.Attachment{
				{Filename: "a.txt", ContentType: "text/plain", Content: []byte("a")},
			},
		})

		assert.Equal(t, "Team <team@example.com>", req.From)
		assert.Equal(t, []string{"ann@example.com"}, req.To)
		assert.Equal(t, []resend.Tag{
			{Name: "campaign", Value: "spring"},
			{Name: "welcome", Value: "true"},
		}, req.Tags)
		assert.Len(t, req.Attachments, 1)
		assert.Equal(t, "a.txt", req.Attachments[0].Filename)
	})

	t.Run("explicit from wins", func(t *testing.T) {
		t.Parallel()

		req := s.request(&mailer.Email{From: "news@example.com", To: []string{"x@example.com"}})
		assert.Equal(t, "news@example.com", req.From)
		assert.Nil(t, req.Tags)
	})
}
