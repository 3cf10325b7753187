// Package health reports the state of the service dependencies over HTTP.
//
//	checker := health.New(health.Checks{
//		"postgres": db.Healthcheck(pool),
//		"redis":    redis.Healthcheck(client),
//		"jobs":     manager.Healthcheck,
//	}, health.WithLogger(log))
//	r.Get("/healthz", checker.Handler())
//	r.Get("/livez", health.LivenessHandler())
//
// Checks run concurrently under one timeout; the response is JSON with a
// per-check status.
package health
