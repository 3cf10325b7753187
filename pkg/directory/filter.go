package directory

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Operator is a filter comparison.
type Operator string

// Supported operators. Names are matched case-insensitively in query strings.
const (
	OpExact              Operator = "exact"
	OpStartsWith         Operator = "startswith"
	OpEndsWith           Operator = "endswith"
	OpPartialMatch       Operator = "partialmatch"
	OpGreaterThan        Operator = "greaterthan"
	OpGreaterThanOrEqual Operator = "greaterthanorequal"
	OpLessThan           Operator = "lessthan"
	OpLessThanOrEqual    Operator = "lessthanorequal"
	OpNot                Operator = "not"
)

var operators = map[Operator]struct{}{
	OpExact:              {},
	OpStartsWith:         {},
	OpEndsWith:           {},
	OpPartialMatch:       {},
	OpGreaterThan:        {},
	OpGreaterThanOrEqual: {},
	OpLessThan:           {},
	OpLessThanOrEqual:    {},
	OpNot:                {},
}

// Filter is a single field comparison.
type Filter struct {
	Field    string
	Operator Operator
	Value    string
}

// String renders the filter back into query syntax.
func (f Filter) String() string {
	if f.Operator == OpExact {
		return url.QueryEscape(f.Field) + "=" + url.QueryEscape(f.Value)
	}
	return url.QueryEscape(f.Field) + ":" + string(f.Operator) + "=" + url.QueryEscape(f.Value)
}

// ParseQuery parses a query string such as "Name:StartsWith=Uncle&Status=Active"
// into ordered filters. Pairs keep their order of appearance; empty segments are
// skipped. A pair without "=", an empty field or an unknown operator is an error.
func ParseQuery(q string) ([]Filter, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}

	var filters []Filter
	for pair := range strings.SplitSeq(q, "&") {
		if pair == "" {
			continue
		}

		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: missing '=' in %q", ErrInvalidQuery, pair)
		}

		key, err := url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}

		field, op, hasOp := strings.Cut(key, ":")
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, fmt.Errorf("%w: empty field name in %q", ErrInvalidQuery, pair)
		}

		operator := OpExact
		if hasOp {
			operator = Operator(strings.ToLower(strings.TrimSpace(op)))
			if _, known := operators[operator]; !known {
				return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, op)
			}
		}

		filters = append(filters, Filter{Field: field, Operator: operator, Value: value})
	}

	return filters, nil
}

// Match reports whether value satisfies the filter.
// Ordering operators compare numerically when both sides parse as numbers.
func (f Filter) Match(value string) bool {
	switch f.Operator {
	case OpExact:
		return value == f.Value
	case OpNot:
		return value != f.Value
	case OpStartsWith:
		return strings.HasPrefix(value, f.Value)
	case OpEndsWith:
		return strings.HasSuffix(value, f.Value)
	case OpPartialMatch:
		return strings.Contains(value, f.Value)
	case OpGreaterThan:
		return compare(value, f.Value) > 0
	case OpGreaterThanOrEqual:
		return compare(value, f.Value) >= 0
	case OpLessThan:
		return compare(value, f.Value) < 0
	case OpLessThanOrEqual:
		return compare(value, f.Value) <= 0
	default:
		return false
	}
}

func compare(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}
