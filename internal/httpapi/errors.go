package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/mailvault"
	"github.com/dmitrymomot/mailvault/pkg/store"
)

// HTTPError is an error with everything needed to render it.
type HTTPError struct {
	// Err is the underlying error (for logging, not exposed to clients).
	Err error `json:"-"`

	Message   string `json:"message"`
	ErrorCode string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Code      int    `json:"-"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError creates an HTTPError with the given status code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}

func badRequest(message string) *HTTPError {
	return &HTTPError{Code: http.StatusBadRequest, Message: message, ErrorCode: "bad_request"}
}

// toHTTPError maps domain errors to responses. Unknown errors become 500
// without leaking their text.
func toHTTPError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}

	e := &HTTPError{Err: err, Message: err.Error()}
	switch {
	case errors.Is(err, store.ErrSentMessageNotFound), errors.Is(err, store.ErrTemplateNotFound):
		e.Code, e.ErrorCode = http.StatusNotFound, "not_found"
	case errors.Is(err, mailvault.ErrInvalidSnapshot):
		e.Code, e.ErrorCode = http.StatusUnprocessableEntity, "invalid_snapshot"
	case errors.Is(err, mailvault.ErrValidation):
		e.Code, e.ErrorCode = http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, mailvault.ErrResolution), errors.Is(err, mailvault.ErrRender):
		e.Code, e.ErrorCode = http.StatusUnprocessableEntity, "template_failed"
	case errors.Is(err, mailvault.ErrDispatch):
		e.Code, e.ErrorCode = http.StatusBadGateway, "dispatch_failed"
	case errors.Is(err, mailvault.ErrHook):
		e.Code, e.ErrorCode = http.StatusConflict, "hook_rejected"
	default:
		e.Code, e.ErrorCode = http.StatusInternalServerError, "internal"
		e.Message = http.StatusText(http.StatusInternalServerError)
	}
	return e
}
