// Package mailvault sends templated email and keeps a replayable record of
// every message sent.
//
// A Pipeline takes a Message through resolution, rendering and dispatch, then
// persists a store.SentMessage whose Snapshot holds the fully resolved email:
//
//	p := mailvault.New(cfg, templates, sent, sender,
//		mailvault.WithLogger(log),
//		mailvault.WithRegistry(registry),
//	)
//
//	deliveries, err := p.Send(ctx, &mailvault.Message{
//		Template:   "welcome",
//		Recipients: members,
//	})
//
// Content comes from the message body, else the named user template (its
// variables resolved against the entity registry), else a markdown file
// template. Each entity in Recipients becomes its own envelope and is
// available to templates as {{.RecipientMember}}.
//
// Sender falls back from the message to the template to Config.DefaultFrom and
// Config.AdminEmail. Subject falls back from the message to the template, the
// file template frontmatter and Config.FallbackSubject.
//
// # Hooks
//
// Before-send hooks may modify the email; an error aborts the envelope.
// After-send hooks see the Delivery once the transport accepted it; their
// errors are logged and the message is persisted anyway.
//
// # Test mode
//
// With Config.TestMode the transport is skipped, but messages are rendered,
// passed through hooks and persisted with TestMode set.
//
// # Resend and retention
//
// Resend replays a stored snapshot without resolving anything again and
// records the replay as a new message. Cleanup deletes messages older than a
// Retention window:
//
//	r, err := mailvault.ParseRetention("3", "months")
//	n, err := p.Cleanup(ctx, r)
//
// CleanupTask and ResendTask run both through pkg/job.
package mailvault
