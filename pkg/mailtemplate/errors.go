package mailtemplate

import "errors"

var (
	// ErrInvalidTemplate indicates template content that cannot be parsed.
	ErrInvalidTemplate = errors.New("mailtemplate: invalid template content")

	// ErrInvalidVariable indicates a variable configuration that cannot be resolved.
	ErrInvalidVariable = errors.New("mailtemplate: invalid variable")

	// ErrResolution indicates a variable value could not be resolved.
	ErrResolution = errors.New("mailtemplate: variable resolution failed")

	// ErrRender indicates template execution failed.
	ErrRender = errors.New("mailtemplate: render failed")

	// ErrInvalidBaseURL indicates the renderer base URL is not absolute.
	ErrInvalidBaseURL = errors.New("mailtemplate: base url must be absolute")
)
