package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/mailvault"
	"github.com/dmitrymomot/mailvault/pkg/archive"
	"github.com/dmitrymomot/mailvault/pkg/cache"
	"github.com/dmitrymomot/mailvault/pkg/db"
	"github.com/dmitrymomot/mailvault/pkg/directory"
	"github.com/dmitrymomot/mailvault/pkg/events"
	"github.com/dmitrymomot/mailvault/pkg/health"
	"github.com/dmitrymomot/mailvault/pkg/mailer"
	"github.com/dmitrymomot/mailvault/pkg/mailer/resend"
	"github.com/dmitrymomot/mailvault/pkg/mailer/smtp"
	"github.com/dmitrymomot/mailvault/pkg/mailtemplate"
	"github.com/dmitrymomot/mailvault/pkg/redis"
	"github.com/dmitrymomot/mailvault/pkg/store"
)

// app holds the wired dependencies shared by all commands.
type app struct {
	cfg      *config
	log      *slog.Logger
	pool     *pgxpool.Pool
	sent     store.SentMessageStore
	pipeline *mailvault.Pipeline
	checks   health.Checks
	closers  []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config, log *slog.Logger) (a *app, err error) {
	a = &app{cfg: cfg, log: log, checks: health.Checks{}}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	a.pool, err = db.Connect(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Shutdown(a.pool))
	a.checks["postgres"] = db.Healthcheck(a.pool)

	var templates store.TemplateStore = store.NewPostgresTemplates(a.pool)
	templates, err = a.cacheTemplates(ctx, templates)
	if err != nil {
		return nil, err
	}
	a.sent = store.NewPostgresSentMessages(a.pool)

	registry, err := a.registry()
	if err != nil {
		return nil, err
	}

	renderer, err := mailtemplate.NewRenderer(mailtemplate.RendererConfig{BaseURL: cfg.BaseURL})
	if err != nil {
		return nil, err
	}

	opts := []mailvault.Option{
		mailvault.WithLogger(log),
		mailvault.WithRegistry(registry),
		mailvault.WithRenderer(renderer),
		mailvault.WithConcurrency(cfg.Concurrency),
	}
	if cfg.TemplatesDir != "" {
		opts = append(opts, mailvault.WithFileTemplates(mailer.NewRenderer(os.DirFS(cfg.TemplatesDir), mailer.RendererConfig{})))
	}

	if cfg.Archive.Enabled() {
		arch, err := archive.New(cfg.Archive)
		if err != nil {
			return nil, err
		}
		opts = append(opts, mailvault.WithArchiver(arch))
	}

	if cfg.Kafka.Enabled() {
		pub, err := events.NewKafkaPublisher(cfg.Kafka, events.WithLogger(log))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return pub.Close() })
		opts = append(opts, mailvault.WithAfterSend(pub.Publish))
	}

	a.pipeline = mailvault.New(cfg.Mail, templates, a.sent, a.sender(), opts...)
	return a, nil
}

// cacheTemplates puts a Redis cache in front of the template store when
// Redis is configured, an in-process cache otherwise.
func (a *app) cacheTemplates(ctx context.Context, next store.TemplateStore) (store.TemplateStore, error) {
	if !a.cfg.Redis.Enabled() {
		c := cache.NewMemory[*mailtemplate.Template](cache.WithDefaultTTL(a.cfg.TemplateCacheTTL))
		return store.NewCachedTemplates(next, c, a.cfg.TemplateCacheTTL), nil
	}

	client, err := redis.Connect(ctx, a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, redis.Shutdown(client))
	a.checks["redis"] = redis.Healthcheck(client)

	c := cache.NewRedis[*mailtemplate.Template](client, a.cfg.Redis.Prefix+"templates:", a.cfg.TemplateCacheTTL, nil)
	return store.NewCachedTemplates(next, c, a.cfg.TemplateCacheTTL), nil
}

func (a *app) registry() (*directory.Registry, error) {
	reg := directory.NewRegistry()
	if a.cfg.DirectorySources == "" {
		return reg, nil
	}

	data, err := os.ReadFile(a.cfg.DirectorySources)
	if err != nil {
		return nil, fmt.Errorf("read directory sources: %w", err)
	}
	cfgs, err := directory.ParseSources(data)
	if err != nil {
		return nil, err
	}
	if err := directory.RegisterPostgres(reg, a.pool, cfgs); err != nil {
		return nil, err
	}
	a.log.Debug("directory sources registered", slog.Any("types", reg.Types()))
	return reg, nil
}

func (a *app) sender() mailer.Sender {
	if a.cfg.Transport == transportResend {
		return resend.New(a.cfg.Resend)
	}
	return smtp.New(a.cfg.SMTP)
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
