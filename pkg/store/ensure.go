package store

import (
	"context"
	"errors"

	"github.com/dmitrymomot/mailvault/pkg/mailtemplate"
)

// ensure looks identifier up as given and in its stored form, so "Welcome Email"
// finds "welcome-email", and only then creates a template.
func ensure(ctx context.Context, s TemplateStore, identifier string) (*mailtemplate.Template, error) {
	keys := []string{identifier}
	if n := mailtemplate.NormalizeIdentifier(identifier); n != identifier {
		keys = append(keys, n)
	}
	for _, key := range keys {
		t, err := s.GetByIdentifier(ctx, key)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrTemplateNotFound) {
			return nil, err
		}
	}

	t := mailtemplate.New(identifier)
	if err := s.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
