package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/mailvault"
	"github.com/dmitrymomot/mailvault/internal/httpapi"
	"github.com/dmitrymomot/mailvault/pkg/archive"
	"github.com/dmitrymomot/mailvault/pkg/db"
	"github.com/dmitrymomot/mailvault/pkg/events"
	"github.com/dmitrymomot/mailvault/pkg/logger"
	"github.com/dmitrymomot/mailvault/pkg/mailer/resend"
	"github.com/dmitrymomot/mailvault/pkg/mailer/smtp"
	"github.com/dmitrymomot/mailvault/pkg/redis"
)

// Transports selectable with MAIL_TRANSPORT.
const (
	transportSMTP   = "smtp"
	transportResend = "resend"
)

type config struct {
	Log     logger.Config
	DB      db.Config
	Redis   redis.Config
	HTTP    httpapi.Config
	Mail    mailvault.Config
	SMTP    smtp.Config
	Resend  resend.Config
	Archive archive.Config
	Kafka   events.Config

	Transport string `env:"MAIL_TRANSPORT" envDefault:"smtp"`
	BaseURL   string `env:"MAILVAULT_BASE_URL"`

	// TemplatesDir holds markdown file templates and their layouts/.
	TemplatesDir string `env:"MAILVAULT_TEMPLATES_DIR"`
	// DirectorySources is a YAML file mapping entity types to tables.
	DirectorySources string `env:"MAILVAULT_DIRECTORY_SOURCES"`

	Concurrency      int           `env:"MAILVAULT_SEND_CONCURRENCY" envDefault:"1"`
	TemplateCacheTTL time.Duration `env:"MAILVAULT_TEMPLATE_CACHE_TTL" envDefault:"5m"`
	JobMaxWorkers    int           `env:"MAILVAULT_JOB_MAX_WORKERS" envDefault:"10"`
}

// loadConfig reads .env when present, then the environment.
func loadConfig() (*config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[config]()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	switch cfg.Transport {
	case transportSMTP, transportResend:
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
	return &cfg, nil
}
