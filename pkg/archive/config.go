package archive

// Config holds the S3-compatible bucket that receives pruned sent messages.
type Config struct {
	Bucket    string `env:"ARCHIVE_S3_BUCKET"`
	AccessKey string `env:"ARCHIVE_S3_ACCESS_KEY"`
	SecretKey string `env:"ARCHIVE_S3_SECRET_KEY"`
	Region    string `env:"ARCHIVE_S3_REGION" envDefault:"us-east-1"`
	// Endpoint is set for MinIO and other S3-compatible services.
	Endpoint  string `env:"ARCHIVE_S3_ENDPOINT"`
	Prefix    string `env:"ARCHIVE_S3_PREFIX" envDefault:"sent-messages/"`
	PathStyle bool   `env:"ARCHIVE_S3_PATH_STYLE" envDefault:"false"`
}

// Enabled reports whether a bucket is configured.
func (c Config) Enabled() bool { return c.Bucket != "" }

func (c Config) validate() error {
	if c.Bucket == "" || c.AccessKey == "" || c.SecretKey == "" {
		return ErrInvalidConfig
	}
	return nil
}
