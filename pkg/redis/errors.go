package redis

import "errors"

// Connection setup errors. Connect and Healthcheck join the underlying cause.
var (
	ErrEmptyConnectionURL = errors.New("redis: REDIS_URL is empty")
	ErrFailedToParseURL   = errors.New("redis: invalid connection URL")
	ErrConnectionFailed   = errors.New("redis: unable to reach server")
	ErrHealthcheckFailed  = errors.New("redis: ping failed")
)
