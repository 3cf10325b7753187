package mailer

import "context"

// Sender delivers a fully prepared Email.
// Implementations wrap a transport (an HTTP API, an SMTP relay).
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, email *Email) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, email *Email) error {
	return f(ctx, email)
}
