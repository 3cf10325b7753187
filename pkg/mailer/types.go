package mailer

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Tags are provider tags attached to an email.
// A tag without a meaningful value is stored as "true".
type Tags map[string]string

// SimpleTags creates presence-only tags.
func SimpleTags(names ...string) Tags {
	t := make(Tags, len(names))
	for _, n := range names {
		t[n] = "true"
	}
	return t
}

// Recipient formats a name and address as "Name <email>".
// Returns the bare address when name is empty.
func Recipient(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

// Email is a fully resolved message handed to a Sender.
type Email struct {
	Headers     map[string]string `json:"headers,omitempty"`
	Tags        Tags              `json:"tags,omitempty"`
	Subject     string            `json:"subject"`
	HTML        string            `json:"html,omitempty"`
	Text        string            `json:"text,omitempty"`
	From        string            `json:"from,omitempty"`
	ReplyTo     string            `json:"reply_to,omitempty"`
	To          []string          `json:"to"`
	CC          []string          `json:"cc,omitempty"`
	BCC         []string          `json:"bcc,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
}

// Attachment is a file attached to an email.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	ContentID   string `json:"content_id,omitempty"`
	Content     []byte `json:"content"`
}

// Validate checks that the email can be handed to a sender.
func (e *Email) Validate() error {
	if len(e.To) == 0 || strings.TrimSpace(e.To[0]) == "" {
		return ErrNoRecipient
	}
	if strings.TrimSpace(e.Subject) == "" {
		return ErrNoSubject
	}
	if e.HTML == "" && e.Text == "" {
		return ErrNoContent
	}
	return nil
}

// IsPlain reports whether the email carries only a plain text body.
func (e *Email) IsPlain() bool {
	return e.HTML == "" && e.Text != ""
}

// Body returns the HTML body, or the text body for plain emails.
func (e *Email) Body() string {
	if e.HTML != "" {
		return e.HTML
	}
	return e.Text
}

// Clone returns a deep copy, so hooks can modify an email without touching the original.
func (e *Email) Clone() *Email {
	c := *e
	c.Headers = maps.Clone(e.Headers)
	c.Tags = maps.Clone(e.Tags)
	c.To = slices.Clone(e.To)
	c.CC = slices.Clone(e.CC)
	c.BCC = slices.Clone(e.BCC)
	if e.Attachments != nil {
		c.Attachments = make([]Attachment, len(e.Attachments))
		for i, a := range e.Attachments {
			a.Content = slices.Clone(a.Content)
			c.Attachments[i] = a
		}
	}
	return &c
}
