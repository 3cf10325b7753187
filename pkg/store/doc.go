// Package store persists mail templates and the log of sent messages.
//
// TemplateStore keeps templates with their derived variables. Every Save
// re-derives the variable set from the content: configured variables that
// are still referenced keep their configuration, new references are added as
// static and dropped references are deleted. Identifiers are unique; a
// colliding identifier gets a numeric suffix.
//
// SentMessageStore is append-only apart from retention cleanup
// (DeleteBefore). Each SentMessage carries a JSON snapshot of the message
// that produced it so it can be sent again.
//
// Memory and PostgreSQL implementations are provided. Migrations returns the
// goose migrations for the PostgreSQL schema:
//
//	if err := db.Migrate(ctx, pool, store.Migrations(), cfg.MigrationsTable, log); err != nil {
//		return err
//	}
//	templates := store.NewCachedTemplates(store.NewPostgresTemplates(pool), cache.NewMemory[*mailtemplate.Template](), time.Minute)
package store
