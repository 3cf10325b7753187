package store

import "errors"

var (
	ErrTemplateNotFound    = errors.New("store: template not found")
	ErrVariableNotFound    = errors.New("store: template variable not found")
	ErrSentMessageNotFound = errors.New("store: sent message not found")
	ErrInvalidSentMessage  = errors.New("store: invalid sent message")
)
