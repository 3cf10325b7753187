package mailvault

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/mailvault/pkg/directory"
	"github.com/dmitrymomot/mailvault/pkg/mailer"
	"github.com/dmitrymomot/mailvault/pkg/mailtemplate"
	"github.com/dmitrymomot/mailvault/pkg/store"
)

// Archiver receives sent messages before retention deletes them.
type Archiver interface {
	Archive(ctx context.Context, cutoff time.Time, msgs []*store.SentMessage) error
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
// If nil, logging is disabled.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRegistry sets the entity directory random and query variables resolve against.
func WithRegistry(r *directory.Registry) Option {
	return func(p *Pipeline) {
		p.resolver = mailtemplate.NewResolver(r)
	}
}

// WithRenderer sets the user template renderer.
// Defaults to a renderer without a base URL.
func WithRenderer(r *mailtemplate.Renderer) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.renderer = r
		}
	}
}

// WithFileTemplates enables markdown file templates.
func WithFileTemplates(r *mailer.Renderer) Option {
	return func(p *Pipeline) {
		p.files = r
	}
}

// WithBeforeSend appends hooks run before every dispatch, in order.
func WithBeforeSend(hooks ...BeforeSendHook) Option {
	return func(p *Pipeline) {
		p.before = append(p.before, hooks...)
	}
}

// WithAfterSend appends hooks run after every successful dispatch, in order.
func WithAfterSend(hooks ...AfterSendHook) Option {
	return func(p *Pipeline) {
		p.after = append(p.after, hooks...)
	}
}

// WithArchiver sets where expired messages go before cleanup deletes them.
func WithArchiver(a Archiver) Option {
	return func(p *Pipeline) {
		p.archiver = a
	}
}

// WithConcurrency sets how many envelopes of one send are processed at once.
// Defaults to 1.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}
