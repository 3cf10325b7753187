package smtp

// Config holds SMTP relay settings.
type Config struct {
	Host               string `env:"SMTP_HOST" envDefault:"localhost"`
	Username           string `env:"SMTP_USERNAME"`
	Password           string `env:"SMTP_PASSWORD"`
	SenderEmail        string `env:"SMTP_FROM_EMAIL"`
	SenderName         string `env:"SMTP_FROM_NAME"`
	Port               int    `env:"SMTP_PORT" envDefault:"587"`
	SSL                bool   `env:"SMTP_SSL" envDefault:"false"`
	InsecureSkipVerify bool   `env:"SMTP_INSECURE_SKIP_VERIFY" envDefault:"false"`
}
