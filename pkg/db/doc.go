// Package db connects to PostgreSQL through pgxpool and runs schema migrations.
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	migrations, _ := fs.Sub(store.Migrations, "migrations")
//	if err := db.Migrate(ctx, pool, migrations, cfg.MigrationsTable, log); err != nil {
//		return err
//	}
//
// Configuration is read from the environment with caarlos0/env:
//
//	DATABASE_URL                - connection URL (required)
//	DATABASE_MAX_CONNS          - pool size (default: 10)
//	DATABASE_MIN_CONNS          - idle connections kept open (default: 2)
//	DATABASE_HEALTHCHECK_PERIOD - pool health check interval (default: 1m)
//	DATABASE_MAX_CONN_IDLE_TIME - idle connection lifetime (default: 10m)
//	DATABASE_MAX_CONN_LIFETIME  - connection lifetime (default: 30m)
//	DATABASE_RETRY_ATTEMPTS     - startup connection attempts (default: 3)
//	DATABASE_RETRY_INTERVAL     - base wait between attempts (default: 5s)
//	DATABASE_MIGRATIONS_TABLE   - goose version table (default: mailvault_migrations)
//
// WithTx wraps a function in a transaction:
//
//	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
//		_, err := tx.Exec(ctx, "DELETE FROM sent_messages WHERE created_at < $1", cutoff)
//		return err
//	})
package db
