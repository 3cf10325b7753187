package smtp

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/dmitrymomot/mailvault/pkg/mailer"
)

type dialerFunc func(m ...*gomail.Message) error

func (f dialerFunc) DialAndSend(m ...*gomail.Message) error { return f(m...) }

func TestSender_Send(t *testing.T) {
	t.Parallel()

	var sent []*gomail.Message
	s := NewWithDialer(dialerFunc(func(m ...*gomail.Message) error {
		sent = append(sent, m...)
		return nil
	}), Config{SenderEmail: "team@example.com", SenderName: "Team"})

	err := s.Send(context.Background(), &mailer.Email{
		To:      []string{"ann@example.com"},
		CC:      []string{"cc@example.com"},
		ReplyTo: "support@example.com",
		Subject: "Welcome",
		HTML:    "<p>Hello</p>",
		Text:    "Hello",
		Headers: map[string]string{"X-Campaign": "spring"},
		Attachments: []mailer.Attachment{
			{Filename: "note.txt", ContentType: "text/plain", Content: []byte("attached")},
		},
	})
	require.NoError(t, err)
	require.Len(t, sent, 1)

	m := sent[0]
	assert.Equal(t, []string{"Team <team@example.com>"}, m.GetHeader("From"))
	assert.Equal(t, []string{"ann@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"cc@example.com"}, m.GetHeader("Cc"))
	assert.Equal(t, []string{"support@example.com"}, m.GetHeader("Reply-To"))
	assert.Equal(t, []string{"spring"}, m.GetHeader("X-Campaign"))

	var raw bytes.Buffer
	_, err = m.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "text/html")
	assert.Contains(t, raw.String(), "note.txt")
}

func TestSender_Send_ExplicitFrom(t *testing.T) {
	t.Parallel()

	var from []string
	s := NewWithDialer(dialerFunc(func(m ...*gomail.Message) error {
		from = m[0].GetHeader("From")
		return nil
	}), Config{SenderEmail: "team@example.com"})

	err := s.Send(context.Background(), &mailer.Email{
		From:    "news@example.com",
		To:      []string{"ann@example.com"},
		Subject: "Plain",
		Text:    "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"news@example.com"}, from)
}

func TestSender_Send_Errors(t *testing.T) {
	t.Parallel()

	t.Run("relay failure", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("connection refused")
		s := NewWithDialer(dialerFunc(func(...*gomail.Message) error { return boom }), Config{})

		err := s.Send(context.Background(), &mailer.Email{To: []string{"a@example.com"}, Subject: "x", Text: "x"})
		require.ErrorIs(t, err, boom)
	})

	t.Run("context cancelled", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		defer close(release)
		s := NewWithDialer(dialerFunc(func(...*gomail.Message) error {
			<-release
			return nil
		}), Config{})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := s.Send(ctx, &mailer.Email{To: []string{"a@example.com"}, Subject: "x", Text: "x"})
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
