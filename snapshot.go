package mailvault

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/dmitrymomot/mailvault/pkg/mailer"
)

// SnapshotVersion is the snapshot format written by this package.
const SnapshotVersion = 1

// Snapshot is the replayable copy of a fully resolved email.
type Snapshot struct {
	Headers     map[string]string   `json:"headers,omitempty"`
	Tags        mailer.Tags         `json:"tags,omitempty"`
	From        string              `json:"from"`
	ReplyTo     string              `json:"reply_to,omitempty"`
	Subject     string              `json:"subject"`
	HTML        string              `json:"html,omitempty"`
	Text        string              `json:"text,omitempty"`
	Template    string              `json:"template_identifier,omitempty"`
	To          []string            `json:"to"`
	CC          []string            `json:"cc,omitempty"`
	BCC         []string            `json:"bcc,omitempty"`
	Attachments []mailer.Attachment `json:"attachments,omitempty"`
	Version     int                 `json:"version"`
	Plain       bool                `json:"plain"`
}

// NewSnapshot captures email as it is handed to the transport.
func NewSnapshot(email *mailer.Email, template string) Snapshot {
	e := email.Clone()
	return Snapshot{
		Headers:     e.Headers,
		Tags:        e.Tags,
		From:        e.From,
		ReplyTo:     e.ReplyTo,
		Subject:     e.Subject,
		HTML:        e.HTML,
		Text:        e.Text,
		Template:    template,
		To:          e.To,
		CC:          e.CC,
		BCC:         e.BCC,
		Attachments: e.Attachments,
		Version:     SnapshotVersion,
		Plain:       e.IsPlain(),
	}
}

// Encode serializes the snapshot.
func (s Snapshot) Encode() (json.RawMessage, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return b, nil
}

// Email rebuilds the email the snapshot was taken from.
func (s Snapshot) Email() *mailer.Email {
	e := &mailer.Email{
		Headers:     maps.Clone(s.Headers),
		Tags:        maps.Clone(s.Tags),
		Subject:     s.Subject,
		HTML:        s.HTML,
		Text:        s.Text,
		From:        s.From,
		ReplyTo:     s.ReplyTo,
		To:          slices.Clone(s.To),
		CC:          slices.Clone(s.CC),
		BCC:         slices.Clone(s.BCC),
		Attachments: s.Attachments,
	}
	if s.Plain {
		e.HTML = ""
	}
	return e.Clone()
}

// DecodeSnapshot parses a stored snapshot.
func DecodeSnapshot(raw []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, s.Version)
	}
	if len(s.To) == 0 {
		return nil, fmt.Errorf("%w: no recipient", ErrInvalidSnapshot)
	}
	return &s, nil
}
