package db

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
)

// Migrate applies pending SQL migrations found at the root of migrations.
// A Postgres advisory lock keeps concurrent instances from migrating at once.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, table string, log *slog.Logger) error {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	p, err := newProvider(pool, migrations, table, log)
	if err != nil {
		return err
	}

	results, err := p.Up(ctx)
	if err != nil {
		return errors.Join(ErrApplyMigrations, err)
	}
	for _, r := range results {
		log.InfoContext(ctx, "migration applied",
			slog.String("path", r.Source.Path),
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration),
		)
	}
	return nil
}

// MigrationStatus reports every known migration and whether it has been applied.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, table string, log *slog.Logger) ([]*goose.MigrationStatus, error) {
	p, err := newProvider(pool, migrations, table, log)
	if err != nil {
		return nil, err
	}
	return p.Status(ctx)
}

func newProvider(pool *pgxpool.Pool, migrations fs.FS, table string, log *slog.Logger) (*goose.Provider, error) {
	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return nil, errors.Join(ErrMigrator, err)
	}

	// The *sql.DB shares the pool's connections, so it is never closed here.
	sqlDB := stdlib.OpenDBFromPool(pool)

	opts := []goose.ProviderOption{goose.WithSessionLocker(locker)}
	if log != nil {
		opts = append(opts, goose.WithSlog(log))
	}
	if table != "" {
		opts = append(opts, goose.WithTableName(table))
	}

	p, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations, opts...)
	if err != nil {
		return nil, errors.Join(ErrMigrator, err)
	}
	return p, nil
}
