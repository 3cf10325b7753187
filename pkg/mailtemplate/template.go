package mailtemplate

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailvault/pkg/directory"
)

// DefaultContent is the content of a newly created template.
const DefaultContent = "<html>\n<body>\n\n</body>\n</html>"

// ListLimit caps the number of entities a list variable resolves to.
const ListLimit = 5

// ValueType selects how a variable's value is produced at send time.
type ValueType string

const (
	// ValueStatic uses the configured literal Value.
	ValueStatic ValueType = "static"
	// ValueRandom picks random entities of RecordType.
	ValueRandom ValueType = "random"
	// ValueQuery picks entities of RecordType matching Query.
	ValueQuery ValueType = "query"
)

// Valid reports whether t is a known value type.
func (t ValueType) Valid() bool {
	switch t {
	case ValueStatic, ValueRandom, ValueQuery:
		return true
	default:
		return false
	}
}

// Template is an operator-authored email layout with variable placeholders.
type Template struct {
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Identifier  string     `json:"identifier"`
	Subject     string     `json:"subject,omitempty"`
	From        string     `json:"from,omitempty"`
	Content     string     `json:"content"`
	TestAddress string     `json:"test_address,omitempty"`
	Variables   []Variable `json:"variables,omitempty"`
	ID          uuid.UUID  `json:"id"`
}

// New returns an unsaved template with default content.
func New(identifier string) *Template {
	return &Template{
		Identifier: identifier,
		Content:    DefaultContent,
	}
}

// Variable returns the template's variable with the given name.
func (t *Template) Variable(name string) (Variable, bool) {
	for _, v := range t.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// Variable configures how one placeholder or block of a template is filled.
type Variable struct {
	Name       string    `json:"name"`
	ValueType  ValueType `json:"value_type"`
	RecordType string    `json:"record_type,omitempty"`
	Value      string    `json:"value,omitempty"`
	Query      string    `json:"query,omitempty"`
	List       bool      `json:"list"`
	ID         uuid.UUID `json:"id"`
	TemplateID uuid.UUID `json:"template_id"`
}

// Validate checks the variable configuration.
// Lists can only be filled from entities, so a static list is rejected.
func (v Variable) Validate() error {
	if !v.ValueType.Valid() {
		return fmt.Errorf("%w: %s: unknown value type %q", ErrInvalidVariable, v.Name, v.ValueType)
	}
	if v.ValueType == ValueStatic {
		if v.List {
			return fmt.Errorf("%w: %s: list variables need a random or query value", ErrInvalidVariable, v.Name)
		}
		return nil
	}
	if v.RecordType == "" {
		return fmt.Errorf("%w: %s: record type is required for %s values", ErrInvalidVariable, v.Name, v.ValueType)
	}
	if v.ValueType == ValueQuery {
		if _, err := directory.ParseQuery(v.Query); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidVariable, v.Name, err)
		}
	}
	return nil
}
