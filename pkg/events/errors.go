package events

import "errors"

var (
	ErrInvalidConfig = errors.New("events: invalid configuration")
	ErrPublish       = errors.New("events: publish failed")
)
