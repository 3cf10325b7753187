package db

import "errors"

var (
	ErrFailedToParseDBConfig    = errors.New("db: invalid DATABASE_URL")
	ErrFailedToOpenDBConnection = errors.New("db: unable to reach postgres")
	ErrHealthcheckFailed        = errors.New("db: ping failed")

	// Schema management.
	ErrMigrator        = errors.New("db: failed to create migration provider")
	ErrApplyMigrations = errors.New("db: failed to apply migrations")
)
