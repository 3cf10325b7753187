package mailvault

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation reports a message, retention or snapshot that cannot be processed as given.
	ErrValidation = errors.New("mailvault: validation failed")

	// ErrNoRecipient is returned when a send resolves to no recipient at all.
	ErrNoRecipient = fmt.Errorf("%w: no recipient", ErrValidation)

	// ErrResolution wraps template lookup and variable resolution failures.
	ErrResolution = errors.New("mailvault: resolution failed")

	// ErrRender wraps template rendering failures.
	ErrRender = errors.New("mailvault: render failed")

	// ErrDispatch wraps transport failures. Nothing is persisted for the envelope.
	ErrDispatch = errors.New("mailvault: dispatch failed")

	// ErrPersist is returned when the transport succeeded but the record could not be written.
	ErrPersist = errors.New("mailvault: persist failed")

	// ErrHook wraps errors returned by send hooks.
	ErrHook = errors.New("mailvault: hook failed")

	// ErrInvalidSnapshot is returned when a stored snapshot cannot be replayed.
	ErrInvalidSnapshot = errors.New("mailvault: invalid snapshot")

	// ErrArchive aborts a cleanup whose rows could not be archived.
	ErrArchive = errors.New("mailvault: archive failed")
)
