package directory

import "errors"

var (
	// ErrUnknownType is returned when no source is registered for an entity type.
	ErrUnknownType = errors.New("directory: unknown entity type")

	// ErrInvalidQuery is returned when a filter string cannot be parsed.
	ErrInvalidQuery = errors.New("directory: invalid query")

	// ErrUnsupportedOperator is returned for filter operators a source cannot apply.
	ErrUnsupportedOperator = errors.New("directory: unsupported filter operator")

	// ErrUnknownField is returned when a filter references a field the source does not expose.
	ErrUnknownField = errors.New("directory: unknown field")
)
