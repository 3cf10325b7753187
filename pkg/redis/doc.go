// Package redis connects the shared Redis client used by the template cache.
//
//	client, err := redis.Connect(ctx, cfg)
//	c := cache.NewRedis[*mailtemplate.Template](client, cfg.Prefix+"template:", time.Minute, nil)
package redis
