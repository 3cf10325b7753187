package resend

// Config selects the Resend HTTP API as the outbound transport
// (MAIL_TRANSPORT=resend). The sender address is used when a message
// carries no From of its own.
type Config struct {
	APIKey      string `env:"RESEND_API_KEY"`
	SenderEmail string `env:"RESEND_FROM_EMAIL"`
	SenderName  string `env:"RESEND_FROM_NAME"`
}
