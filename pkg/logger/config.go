package logger

import "log/slog"

// Config selects the log level, output format and optional Sentry reporting.
type Config struct {
	// Format is "json" or "text".
	Format string     `env:"LOG_FORMAT" envDefault:"json"`
	Level  slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	SentryDSN         string `env:"SENTRY_DSN"`
	SentryEnvironment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	// Records at or above SentryMinLevel are stored in Sentry as logs.
	// Errors always create Sentry issues.
	SentryMinLevel slog.Level `env:"SENTRY_MIN_LEVEL" envDefault:"warn"`
}
