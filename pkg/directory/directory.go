package directory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Entity is an addressable record returned by a Source.
type Entity struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Address    string            `json:"address"`
}

// TemplateData exposes the entity to templates as a flat map.
// ID and Email are always present; attributes never override them.
func (e Entity) TemplateData() map[string]string {
	data := make(map[string]string, len(e.Attributes)+2)
	maps.Copy(data, e.Attributes)
	data["ID"] = e.ID
	data["Email"] = e.Address
	return data
}

// Source provides entities of a single type.
type Source interface {
	// Random returns up to limit entities in random order.
	Random(ctx context.Context, limit int) ([]Entity, error)

	// Query returns up to limit entities matching all filters, in source order.
	Query(ctx context.Context, filters []Filter, limit int) ([]Entity, error)
}

// Registry maps entity type names to their sources.
// It is populated at process start and read on every resolution.
type Registry struct {
	sources map[string]Source
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register binds a type name to a source, replacing any previous binding.
func (r *Registry) Register(typeName string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[typeName] = src
}

// Lookup returns the source registered for typeName.
// Returns ErrUnknownType if nothing was registered under that name.
func (r *Registry) Lookup(typeName string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[typeName]
	if !ok || src == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	return src, nil
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.sources))
}
