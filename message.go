package mailvault

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailvault/pkg/directory"
	"github.com/dmitrymomot/mailvault/pkg/mailer"
)

// Message is what a caller asks the pipeline to send.
//
// Content comes from Body when set, otherwise from the user template named by
// Template, otherwise from the file template FileTemplate (or the configured
// default). When Recipients is set every entity becomes its own envelope and
// To is ignored.
type Message struct {
	Headers map[string]string
	Tags    mailer.Tags
	// Data is merged over resolved template variables.
	Data map[string]any

	From    string
	ReplyTo string
	Subject string
	Body    string

	Template     string
	FileTemplate string

	To         []string
	CC         []string
	BCC        []string
	Recipients []directory.Entity

	Attachments []mailer.Attachment

	// Plain sends Body or the rendered template as text only.
	Plain bool
}

// Delivery is the outcome of one envelope.
type Delivery struct {
	SentAt    time.Time
	Err       error
	Email     *mailer.Email
	Recipient *directory.Entity
	Template  string
	// ID is the identifier of the SentMessage the delivery is persisted as.
	ID uuid.UUID
	// ResentFrom is set when the delivery replays a stored message.
	ResentFrom uuid.UUID
	State      State
	TestMode   bool
}

func (d *Delivery) mode() string {
	switch {
	case d.TestMode:
		return "test"
	case d.ResentFrom != uuid.Nil:
		return "resend"
	default:
		return "live"
	}
}
