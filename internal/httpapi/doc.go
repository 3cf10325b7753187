// Package httpapi serves the JSON admin API over sent messages.
//
// Routes:
//
//	GET  /livez                          liveness
//	GET  /healthz                        dependency checks
//	GET  /metrics                        Prometheus metrics
//	GET  /api/sent?recipient=&limit=&offset=
//	GET  /api/sent/{id}                  body sanitized for preview
//	POST /api/sent/{id}/resend           queued when an Enqueuer is set
//	POST /api/cleanup?count=&unit=
//	POST /api/templates/{identifier}/test?to=
//
// The /api routes expose full message bodies and destructive actions. When
// MAILVAULT_ADMIN_TOKEN is set they require "Authorization: Bearer <token>";
// without it the server must only be reachable from a private network or
// behind an authenticating proxy. Health and metrics stay open for probes.
//
// Errors are rendered as {"error": {"message", "code", "request_id"}}.
package httpapi
