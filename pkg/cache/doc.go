// Package cache provides small typed caches used in front of the template store.
//
// Memory keeps entries in process; Redis shares them between instances.
// Loader adds read-through loading with singleflight deduplication:
//
//	l := cache.NewLoader[*mailtemplate.Template](cache.NewMemory[*mailtemplate.Template](), time.Minute)
//	tmpl, err := l.Get(ctx, "welcome", func(ctx context.Context) (*mailtemplate.Template, error) {
//		return store.GetByIdentifier(ctx, "welcome")
//	})
package cache
