package mailvault

import "time"

// Config configures the send pipeline.
type Config struct {
	// AdminEmail is the last-resort sender and test recipient.
	AdminEmail string `env:"MAILVAULT_ADMIN_EMAIL"`
	// DefaultFrom overrides AdminEmail as the default sender.
	DefaultFrom string `env:"MAILVAULT_DEFAULT_FROM"`
	// FallbackSubject is used when neither the message nor a template provides one.
	FallbackSubject string `env:"MAILVAULT_FALLBACK_SUBJECT" envDefault:"(no subject)"`

	// DefaultTemplate names the file template used when a message has no body and no template.
	DefaultTemplate string `env:"MAILVAULT_DEFAULT_TEMPLATE"`
	// Layout wraps rendered file templates.
	Layout string `env:"MAILVAULT_LAYOUT" envDefault:"base.html"`

	// TestMode skips the transport. Messages are still rendered and persisted.
	TestMode bool `env:"MAILVAULT_TEST_MODE" envDefault:"false"`
	// SendTimeout bounds a single transport call. Zero means the caller context only.
	SendTimeout time.Duration `env:"MAILVAULT_SEND_TIMEOUT" envDefault:"30s"`

	RetentionSchedule string `env:"MAILVAULT_RETENTION_SCHEDULE" envDefault:"0 3 * * *"`
	RetentionCount    string `env:"MAILVAULT_RETENTION_COUNT" envDefault:"90"`
	RetentionUnit     string `env:"MAILVAULT_RETENTION_UNIT" envDefault:"days"`
}

// Retention parses the configured retention window.
func (c Config) Retention() (Retention, error) {
	return ParseRetention(c.RetentionCount, c.RetentionUnit)
}

// defaultFrom returns the configured sender fallback.
func (c Config) defaultFrom() string {
	if c.DefaultFrom != "" {
		return c.DefaultFrom
	}
	return c.AdminEmail
}
