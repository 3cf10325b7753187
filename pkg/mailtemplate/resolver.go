package mailtemplate

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/mailvault/pkg/directory"
)

// Resolver computes variable values at send time.
type Resolver struct {
	registry *directory.Registry
}

// NewResolver creates a resolver reading entities from registry.
func NewResolver(registry *directory.Registry) *Resolver {
	if registry == nil {
		registry = directory.NewRegistry()
	}
	return &Resolver{registry: registry}
}

// Resolve returns the value of v.
//
// Static variables yield their Value unchanged. Random and query variables
// yield a single entity as map[string]string, or up to ListLimit entities as
// []map[string]string when v.List is set. A single lookup with no match
// yields nil.
func (r *Resolver) Resolve(ctx context.Context, v Variable) (any, error) {
	switch v.ValueType {
	case ValueStatic:
		return v.Value, nil
	case ValueRandom, ValueQuery:
	default:
		return nil, fmt.Errorf("%w: variable %q: unknown value type %q", ErrResolution, v.Name, v.ValueType)
	}

	if v.RecordType == "" {
		return nil, fmt.Errorf("%w: variable %q: record type is required", ErrResolution, v.Name)
	}
	src, err := r.registry.Lookup(v.RecordType)
	if err != nil {
		return nil, fmt.Errorf("%w: variable %q: %w", ErrResolution, v.Name, err)
	}

	limit := 1
	if v.List {
		limit = ListLimit
	}

	var entities []directory.Entity
	if v.ValueType == ValueRandom {
		entities, err = src.Random(ctx, limit)
	} else {
		var filters []directory.Filter
		filters, err = directory.ParseQuery(v.Query)
		if err != nil {
			return nil, fmt.Errorf("%w: variable %q: %w", ErrResolution, v.Name, err)
		}
		entities, err = src.Query(ctx, filters, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: variable %q: %w", ErrResolution, v.Name, err)
	}

	if v.List {
		items := make([]map[string]string, 0, min(len(entities), limit))
		for _, e := range entities[:min(len(entities), limit)] {
			items = append(items, e.TemplateData())
		}
		return items, nil
	}
	if len(entities) == 0 {
		return nil, nil
	}
	return entities[0].TemplateData(), nil
}

// ResolveAll resolves every variable into a data map keyed by name.
// The first failure aborts resolution.
func (r *Resolver) ResolveAll(ctx context.Context, vars []Variable) (map[string]any, error) {
	data := make(map[string]any, len(vars))
	for _, v := range vars {
		val, err := r.Resolve(ctx, v)
		if err != nil {
			return nil, err
		}
		data[v.Name] = val
	}
	return data, nil
}
