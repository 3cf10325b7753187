package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailvault/pkg/mailtemplate"
)

// MemoryTemplates is an in-process TemplateStore.
type MemoryTemplates struct {
	items map[uuid.UUID]*mailtemplate.Template
	now   func() time.Time
	mu    sync.RWMutex
}

// NewMemoryTemplates creates an empty in-process template store.
func NewMemoryTemplates() *MemoryTemplates {
	return &MemoryTemplates{items: make(map[uuid.UUID]*mailtemplate.Template), now: time.Now}
}

// Get implements TemplateStore.
func (s *MemoryTemplates) Get(_ context.Context, id uuid.UUID) (*mailtemplate.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return cloneTemplate(t), nil
}

// GetByIdentifier implements TemplateStore.
func (s *MemoryTemplates) GetByIdentifier(_ context.Context, identifier string) (*mailtemplate.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.items {
		if t.Identifier == identifier {
			return cloneTemplate(t), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, identifier)
}

// List implements TemplateStore. Templates are ordered by identifier.
func (s *MemoryTemplates) List(_ context.Context) ([]*mailtemplate.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*mailtemplate.Template, 0, len(s.items))
	for _, t := range s.items {
		out = append(out, cloneTemplate(t))
	}
	slices.SortFunc(out, func(a, b *mailtemplate.Template) int {
		return strings.Compare(a.Identifier, b.Identifier)
	})
	return out, nil
}

// Save implements TemplateStore.
func (s *MemoryTemplates) Save(ctx context.Context, t *mailtemplate.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored []mailtemplate.Variable
	prev, exists := s.items[t.ID]
	if exists {
		stored = prev.Variables
	}

	taken := func(_ context.Context, identifier string) (bool, error) {
		for id, other := range s.items {
			if id != t.ID && other.Identifier == identifier {
				return true, nil
			}
		}
		return false, nil
	}

	if _, err := prepare(ctx, t, stored, taken); err != nil {
		return err
	}

	now := s.now().UTC()
	if exists {
		t.CreatedAt = prev.CreatedAt
	} else {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	s.items[t.ID] = cloneTemplate(t)
	return nil
}

// UpdateVariable implements TemplateStore.
func (s *MemoryTemplates) UpdateVariable(_ context.Context, v *mailtemplate.Variable) error {
	if err := v.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.items {
		for i := range t.Variables {
			if t.Variables[i].ID != v.ID {
				continue
			}
			v.Name = t.Variables[i].Name
			v.TemplateID = t.ID
			t.Variables[i] = *v
			t.UpdatedAt = s.now().UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrVariableNotFound, v.ID)
}

// Ensure implements TemplateStore.
func (s *MemoryTemplates) Ensure(ctx context.Context, identifier string) (*mailtemplate.Template, error) {
	return ensure(ctx, s, identifier)
}

// Delete implements TemplateStore.
func (s *MemoryTemplates) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	delete(s.items, id)
	return nil
}

func cloneTemplate(t *mailtemplate.Template) *mailtemplate.Template {
	c := *t
	c.Variables = slices.Clone(t.Variables)
	return &c
}

// MemorySentMessages is an in-process SentMessageStore.
type MemorySentMessages struct {
	items []*SentMessage
	now   func() time.Time
	mu    sync.RWMutex
}

// NewMemorySentMessages creates an empty in-process sent message store.
func NewMemorySentMessages() *MemorySentMessages {
	return &MemorySentMessages{now: time.Now}
}

// Persist implements SentMessageStore.
func (s *MemorySentMessages) Persist(_ context.Context, m *SentMessage) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *m
	s.items = append(s.items, &c)
	return nil
}

// Get implements SentMessageStore.
func (s *MemorySentMessages) Get(_ context.Context, id uuid.UUID) (*SentMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.items {
		if m.ID == id {
			c := *m
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSentMessageNotFound, id)
}

// List implements SentMessageStore.
func (s *MemorySentMessages) List(_ context.Context, p ListParams) ([]*SentMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(p.Recipient)
	var matched []*SentMessage
	for _, m := range s.items {
		if needle == "" || strings.Contains(strings.ToLower(m.To), needle) {
			c := *m
			matched = append(matched, &c)
		}
	}
	slices.SortStableFunc(matched, func(a, b *SentMessage) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	start := min(max(p.Offset, 0), len(matched))
	end := min(start+p.limit(), len(matched))
	return matched[start:end], nil
}

// ListBefore implements SentMessageStore.
func (s *MemorySentMessages) ListBefore(_ context.Context, cutoff time.Time) ([]*SentMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*SentMessage
	for _, m := range s.items {
		if m.CreatedAt.Before(cutoff) {
			c := *m
			out = append(out, &c)
		}
	}
	slices.SortStableFunc(out, func(a, b *SentMessage) int {
		return cmp.Compare(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	})
	return out, nil
}

// DeleteBefore implements SentMessageStore.
func (s *MemorySentMessages) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[:0]
	var deleted int64
	for _, m := range s.items {
		if m.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	clear(s.items[len(kept):])
	s.items = kept
	return deleted, nil
}

// Len returns the number of stored messages.
func (s *MemorySentMessages) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

var (
	_ TemplateStore    = (*MemoryTemplates)(nil)
	_ SentMessageStore = (*MemorySentMessages)(nil)
)
