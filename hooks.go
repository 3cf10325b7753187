package mailvault

import (
	"context"

	"github.com/dmitrymomot/mailvault/pkg/mailer"
)

// BeforeSendHook runs before dispatch and may modify the email.
// An error aborts the envelope: nothing is sent or persisted.
type BeforeSendHook func(ctx context.Context, email *mailer.Email) error

// AfterSendHook runs after a successful dispatch, before the record is persisted.
// Errors are logged; the record is persisted regardless.
type AfterSendHook func(ctx context.Context, d *Delivery) error
