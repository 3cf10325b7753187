package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailvault/pkg/mailtemplate"
)

// TemplateStore persists operator-edited templates and their variables.
type TemplateStore interface {
	Get(ctx context.Context, id uuid.UUID) (*mailtemplate.Template, error)

	// GetByIdentifier returns ErrTemplateNotFound when no template has identifier.
	GetByIdentifier(ctx context.Context, identifier string) (*mailtemplate.Template, error)

	List(ctx context.Context) ([]*mailtemplate.Template, error)

	// Save creates or updates t. The identifier is slugified and suffixed until
	// unique, and the variable set is re-derived from Content. On success t holds
	// the stored identifier, timestamps and variables.
	Save(ctx context.Context, t *mailtemplate.Template) error

	// UpdateVariable changes the value configuration of an existing variable.
	UpdateVariable(ctx context.Context, v *mailtemplate.Variable) error

	// Ensure returns the template with identifier, creating an empty one if missing.
	Ensure(ctx context.Context, identifier string) (*mailtemplate.Template, error)

	Delete(ctx context.Context, id uuid.UUID) error
}

// SentMessage is the immutable record of one dispatched message.
type SentMessage struct {
	CreatedAt time.Time       `json:"created_at"`
	To        string          `json:"to"`
	From      string          `json:"from"`
	Subject   string          `json:"subject"`
	Body      string          `json:"body"`
	CC        string          `json:"cc,omitempty"`
	BCC       string          `json:"bcc,omitempty"`
	Snapshot  json.RawMessage `json:"snapshot"`
	ID        uuid.UUID       `json:"id"`
	TestMode  bool            `json:"test_mode"`
}

// JoinAddresses renders an address list the way SentMessage stores it.
func JoinAddresses(addrs []string) string {
	return strings.Join(addrs, ", ")
}

// Validate checks the fields every stored message must have.
func (m *SentMessage) Validate() error {
	if m.To == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidSentMessage)
	}
	if len(m.Snapshot) == 0 || !json.Valid(m.Snapshot) {
		return fmt.Errorf("%w: snapshot must be valid json", ErrInvalidSentMessage)
	}
	return nil
}

// ListParams pages through sent messages, newest first.
type ListParams struct {
	// Recipient filters by a case-insensitive substring of the To field.
	Recipient string
	Limit     int // Default: 50
	Offset    int
}

func (p ListParams) limit() int {
	if p.Limit <= 0 {
		return 50
	}
	return p.Limit
}

// SentMessageStore persists sent messages.
type SentMessageStore interface {
	// Persist stores m, assigning ID and CreatedAt when unset.
	Persist(ctx context.Context, m *SentMessage) error

	// Get returns ErrSentMessageNotFound for unknown ids.
	Get(ctx context.Context, id uuid.UUID) (*SentMessage, error)

	List(ctx context.Context, p ListParams) ([]*SentMessage, error)

	// ListBefore returns messages created strictly before cutoff, oldest first.
	ListBefore(ctx context.Context, cutoff time.Time) ([]*SentMessage, error)

	// DeleteBefore removes messages created strictly before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// prepare runs the save-time derivation shared by all template stores:
// identifier uniqueness and variable reconciliation against the stored set.
// It assigns IDs to new variables and returns the variables to delete.
func prepare(ctx context.Context, t *mailtemplate.Template, stored []mailtemplate.Variable, taken mailtemplate.TakenFunc) ([]mailtemplate.Variable, error) {
	refs, err := mailtemplate.Scan(t.Content)
	if err != nil {
		return nil, err
	}

	identifier, err := mailtemplate.UniqueIdentifier(ctx, t.Identifier, taken)
	if err != nil {
		return nil, fmt.Errorf("store: resolve identifier: %w", err)
	}
	t.Identifier = identifier

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	ch := mailtemplate.Reconcile(stored, refs)
	for i := range ch.Add {
		ch.Add[i].ID = uuid.New()
		ch.Add[i].TemplateID = t.ID
	}
	t.Variables = append(ch.Keep, ch.Add...)

	return ch.Remove, nil
}
