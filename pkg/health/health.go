package health

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultTimeout = 5 * time.Second

	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// ErrCheckTimeout is reported for checks still running when the timeout expires.
var ErrCheckTimeout = errors.New("health: check timeout")

// CheckFunc matches the Healthcheck closures of db, redis and job.
type CheckFunc func(ctx context.Context) error

// Checks maps a dependency name to its check.
type Checks map[string]CheckFunc

// Response is the aggregated result of all checks.
type Response struct {
	Checks map[string]Check `json:"checks,omitempty"`
	Status string           `json:"status"`
}

// Check is the result of a single check.
type Check struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// Checker runs a fixed set of checks concurrently.
type Checker struct {
	checks  Checks
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Checker.
type Option func(*Checker)

// WithTimeout bounds the whole run. Default: 5s.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger logs failed checks as warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Checker. Nil checks are skipped.
func New(checks Checks, opts ...Option) *Checker {
	c := &Checker{
		checks:  make(Checks, len(checks)),
		logger:  slog.New(slog.DiscardHandler),
		timeout: defaultTimeout,
	}
	for name, fn := range checks {
		if fn != nil {
			c.checks[name] = fn
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes all checks. A check that does not return before the timeout
// is reported as failed with ErrCheckTimeout.
func (c *Checker) Run(ctx context.Context) *Response {
	resp := &Response{Status: StatusHealthy}
	if len(c.checks) == 0 {
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	resp.Checks = make(map[string]Check, len(c.checks))
	for name := range c.checks {
		resp.Checks[name] = Check{Status: StatusUnhealthy, Error: ErrCheckTimeout.Error()}
	}

	for name, fn := range c.checks {
		wg.Go(func() {
			start := time.Now()
			err := fn(ctx)
			res := Check{Status: StatusHealthy, Duration: time.Since(start).String()}
			if err != nil {
				res.Status = StatusUnhealthy
				res.Error = err.Error()
				c.logger.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.String("error", err.Error()),
				)
			}

			mu.Lock()
			resp.Checks[name] = res
			mu.Unlock()
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	out := &Response{Status: StatusHealthy, Checks: make(map[string]Check, len(resp.Checks))}
	for name, res := range resp.Checks {
		out.Checks[name] = res
		if res.Status != StatusHealthy {
			out.Status = StatusUnhealthy
		}
	}
	return out
}
