package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailvault/pkg/cache"
	"github.com/dmitrymomot/mailvault/pkg/mailtemplate"
)

// CachedTemplates caches identifier lookups of another TemplateStore.
// Writes go to the underlying store and drop the affected entries.
// Entries written by other instances are only seen after the ttl when a
// process-local cache is used; share a Redis cache to avoid that.
type CachedTemplates struct {
	TemplateStore
	loader *cache.Loader[*mailtemplate.Template]
}

// NewCachedTemplates wraps next with a read-through cache.
func NewCachedTemplates(next TemplateStore, c cache.Cache[*mailtemplate.Template], ttl time.Duration) *CachedTemplates {
	return &CachedTemplates{
		TemplateStore: next,
		loader:        cache.NewLoader(c, ttl),
	}
}

// GetByIdentifier implements TemplateStore.
func (s *CachedTemplates) GetByIdentifier(ctx context.Context, identifier string) (*mailtemplate.Template, error) {
	t, err := s.loader.Get(ctx, identifier, func(ctx context.Context) (*mailtemplate.Template, error) {
		return s.TemplateStore.GetByIdentifier(ctx, identifier)
	})
	if err != nil {
		return nil, err
	}
	return cloneTemplate(t), nil
}

// Save implements TemplateStore.
func (s *CachedTemplates) Save(ctx context.Context, t *mailtemplate.Template) error {
	old := s.identifierOf(ctx, t.ID)
	if err := s.TemplateStore.Save(ctx, t); err != nil {
		return err
	}
	s.forget(ctx, old, t.Identifier)
	return nil
}

// UpdateVariable implements TemplateStore.
func (s *CachedTemplates) UpdateVariable(ctx context.Context, v *mailtemplate.Variable) error {
	if err := s.TemplateStore.UpdateVariable(ctx, v); err != nil {
		return err
	}
	s.forget(ctx, s.identifierOf(ctx, v.TemplateID))
	return nil
}

// Ensure implements TemplateStore.
func (s *CachedTemplates) Ensure(ctx context.Context, identifier string) (*mailtemplate.Template, error) {
	return ensure(ctx, s, identifier)
}

// Delete implements TemplateStore.
func (s *CachedTemplates) Delete(ctx context.Context, id uuid.UUID) error {
	old := s.identifierOf(ctx, id)
	if err := s.TemplateStore.Delete(ctx, id); err != nil {
		return err
	}
	s.forget(ctx, old)
	return nil
}

func (s *CachedTemplates) identifierOf(ctx context.Context, id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	t, err := s.TemplateStore.Get(ctx, id)
	if err != nil {
		return ""
	}
	return t.Identifier
}

func (s *CachedTemplates) forget(ctx context.Context, identifiers ...string) {
	for _, id := range identifiers {
		if id != "" {
			_ = s.loader.Forget(ctx, id)
		}
	}
}

var _ TemplateStore = (*CachedTemplates)(nil)
