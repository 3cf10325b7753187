// Package logger builds the slog logger used across mailvault.
//
// Records go to stdout as JSON (or text) and, when a Sentry DSN is
// configured, to Sentry as well: errors become issues and records at or
// above SentryMinLevel are stored as logs.
//
//	log := logger.New(cfg)
//	defer logger.Flush(2 * time.Second)
//
// Attributes attached to a context with WithAttrs are added to every record
// logged with that context, which is how the send pipeline tags records
// with the template and recipient being processed:
//
//	ctx = logger.WithAttrs(ctx, slog.String("template", "welcome"))
//	log.InfoContext(ctx, "message sent")
//
// Additional ContextExtractor funcs can pull other request-scoped values.
package logger
