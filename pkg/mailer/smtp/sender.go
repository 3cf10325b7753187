package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"maps"
	"slices"

	"gopkg.in/gomail.v2"

	"github.com/dmitrymomot/mailvault/pkg/mailer"
)

// Dialer sends composed messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender delivers emails through an SMTP relay.
type Sender struct {
	dialer Dialer
	from   string
}

// New creates an SMTP sender.
func New(cfg Config) *Sender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL
	if cfg.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for test relays
	}
	return NewWithDialer(d, cfg)
}

// NewWithDialer creates a sender using a custom dialer.
func NewWithDialer(d Dialer, cfg Config) *Sender {
	return &Sender{
		dialer: d,
		from:   mailer.Recipient(cfg.SenderName, cfg.SenderEmail),
	}
}

// Send implements mailer.Sender. gomail has no context support, so a cancelled
// context returns early while the SMTP conversation finishes in the background.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	msg := s.message(email)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp: send to %v: %w", email.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp: send to %v: %w", email.To, ctx.Err())
	}
}

func (s *Sender) message(email *mailer.Email) *gomail.Message {
	from := email.From
	if from == "" {
		from = s.from
	}

	m := gomail.NewMessage()
	for _, k := range slices.Sorted(maps.Keys(email.Headers)) {
		m.SetHeader(k, email.Headers[k])
	}
	m.SetHeader("From", from)
	m.SetHeader("To", email.To...)
	if len(email.CC) > 0 {
		m.SetHeader("Cc", email.CC...)
	}
	if len(email.BCC) > 0 {
		m.SetHeader("Bcc", email.BCC...)
	}
	if email.ReplyTo != "" {
		m.SetHeader("Reply-To", email.ReplyTo)
	}
	m.SetHeader("Subject", email.Subject)

	switch {
	case email.HTML != "" && email.Text != "":
		m.SetBody("text/plain", email.Text)
		m.AddAlternative("text/html", email.HTML)
	case email.HTML != "":
		m.SetBody("text/html", email.HTML)
	default:
		m.SetBody("text/plain", email.Text)
	}

	for _, a := range email.Attachments {
		content := a.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
		}
		if a.ContentID != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-ID": {"<" + a.ContentID + ">"}}))
			m.Embed(a.Filename, settings...)
			continue
		}
		m.Attach(a.Filename, settings...)
	}

	return m
}
