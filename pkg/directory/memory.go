package directory

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
)

// MemorySource serves entities from an in-process slice.
// Useful for tests and for small static recipient lists.
type MemorySource struct {
	entities []Entity
	mu       sync.RWMutex
}

// NewMemorySource creates a source holding a copy of entities.
func NewMemorySource(entities ...Entity) *MemorySource {
	return &MemorySource{entities: slices.Clone(entities)}
}

// Add appends entities to the source.
func (s *MemorySource) Add(entities ...Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = append(s.entities, entities...)
}

// Random implements Source.
func (s *MemorySource) Random(_ context.Context, limit int) ([]Entity, error) {
	s.mu.RLock()
	all := slices.Clone(s.entities)
	s.mu.RUnlock()

	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return truncate(all, limit), nil
}

// Query implements Source.
func (s *MemorySource) Query(_ context.Context, filters []Filter, limit int) ([]Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entity
	for _, e := range s.entities {
		if matchAll(e, filters) {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func matchAll(e Entity, filters []Filter) bool {
	for _, f := range filters {
		if !f.Match(fieldValue(e, f.Field)) {
			return false
		}
	}
	return true
}

func fieldValue(e Entity, field string) string {
	switch field {
	case "ID":
		return e.ID
	case "Email", "Address":
		return e.Address
	default:
		return e.Attributes[field]
	}
}

func truncate(entities []Entity, limit int) []Entity {
	if limit > 0 && len(entities) > limit {
		return entities[:limit]
	}
	return entities
}
