package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/mailvault"
	"github.com/dmitrymomot/mailvault/pkg/health"
	"github.com/dmitrymomot/mailvault/pkg/job"
	"github.com/dmitrymomot/mailvault/pkg/store"
)

// Server timeouts.
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 60 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
)

// Config configures the HTTP server.
type Config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	// AdminToken is required as a bearer token on /api routes when set.
	AdminToken string `env:"MAILVAULT_ADMIN_TOKEN"`
}

// Pipeline is the part of *mailvault.Pipeline the API drives.
type Pipeline interface {
	Resend(ctx context.Context, id uuid.UUID) (*mailvault.Delivery, error)
	SendTest(ctx context.Context, identifier, to string) (*mailvault.Delivery, error)
	Cleanup(ctx context.Context, r mailvault.Retention) (int64, error)
}

// Enqueuer queues background tasks. *job.Manager implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...job.EnqueueOption) error
}

// Server is the JSON admin API.
type Server struct {
	pipeline Pipeline
	sent     store.SentMessageStore
	enqueuer Enqueuer
	health   *health.Checker
	metrics  http.Handler
	logger   *slog.Logger
	cfg      Config
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEnqueuer makes resend requests run in the background.
func WithEnqueuer(e Enqueuer) Option {
	return func(s *Server) {
		s.enqueuer = e
	}
}

// WithHealth serves the checker on /healthz.
func WithHealth(c *health.Checker) Option {
	return func(s *Server) {
		s.health = c
	}
}

// WithMetricsHandler replaces the default Prometheus handler on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.metrics = h
		}
	}
}

// New creates the admin API server.
func New(cfg Config, p Pipeline, sent store.SentMessageStore, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}

	s := &Server{
		pipeline: p,
		sent:     sent,
		metrics:  promhttp.Handler(),
		logger:   slog.New(slog.DiscardHandler),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, s.recoverer)

	r.Get("/livez", health.LivenessHandler())
	if s.health != nil {
		r.Get("/healthz", s.health.Handler())
	}
	r.Handle("/metrics", s.metrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Get("/sent", s.handle(s.listSent))
		r.Get("/sent/{id}", s.handle(s.getSent))
		r.Post("/sent/{id}/resend", s.handle(s.resend))
		r.Post("/cleanup", s.handle(s.cleanup))
		r.Post("/templates/{identifier}/test", s.handle(s.sendTest))
	})

	r.NotFound(s.handle(func(http.ResponseWriter, *http.Request) error {
		return &HTTPError{Code: http.StatusNotFound, Message: "route not found", ErrorCode: "not_found"}
	}))
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully and runs the
// shutdown hooks in order.
func (s *Server) Run(ctx context.Context, shutdownHooks ...func(context.Context) error) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	for _, hook := range shutdownHooks {
		if err := hook(shutdownCtx); err != nil {
			errs = append(errs, err)
			s.logger.Error("shutdown hook failed", slog.Any("error", err))
		}
	}

	if len(errs) > 0 {
		s.logger.Error("shutdown completed with errors")
		return errors.Join(errs...)
	}
	s.logger.Info("shutdown completed")
	return nil
}

// handlerFunc is an HTTP handler that returns its error instead of writing it.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.writeError(w, r, err)
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	he := toHTTPError(err)
	he.RequestID = RequestIDFromContext(r.Context())

	level := slog.LevelWarn
	if he.Code >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", he.Code),
		slog.String("error", err.Error()))

	writeJSON(w, he.Code, map[string]*HTTPError{"error": he})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
