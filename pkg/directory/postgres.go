package directory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool and pgx.Tx used by PostgresSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresConfig describes how an entity type maps onto a table.
type PostgresConfig struct {
	// Columns maps template attribute names to column names.
	// Only listed attributes can be filtered on or rendered.
	Columns       map[string]string
	Type          string
	Table         string
	IDColumn      string // Default: "id"
	AddressColumn string // Default: "email"
}

// PostgresSource reads entities from a PostgreSQL table.
// Table and column names come from configuration, never from filter input.
type PostgresSource struct {
	db    Querier
	cfg   PostgresConfig
	attrs []string
}

// NewPostgresSource creates a table-backed source.
func NewPostgresSource(db Querier, cfg PostgresConfig) (*PostgresSource, error) {
	if db == nil {
		return nil, errors.New("directory: querier is required")
	}
	if cfg.Table == "" {
		return nil, errors.New("directory: table is required")
	}
	if cfg.IDColumn == "" {
		cfg.IDColumn = "id"
	}
	if cfg.AddressColumn == "" {
		cfg.AddressColumn = "email"
	}

	return &PostgresSource{
		db:    db,
		cfg:   cfg,
		attrs: slices.Sorted(maps.Keys(cfg.Columns)),
	}, nil
}

// Random implements Source.
func (s *PostgresSource) Random(ctx context.Context, limit int) ([]Entity, error) {
	query, args := s.selectSQL(nil, "random()", limit)
	return s.fetch(ctx, query, args)
}

// Query implements Source.
func (s *PostgresSource) Query(ctx context.Context, filters []Filter, limit int) ([]Entity, error) {
	where, args, err := s.whereSQL(filters)
	if err != nil {
		return nil, err
	}
	query, args := s.selectSQL(where, quote(s.cfg.IDColumn), limit, args...)
	return s.fetch(ctx, query, args)
}

func (s *PostgresSource) selectSQL(where []string, orderBy string, limit int, args ...any) (string, []any) {
	cols := []string{
		quote(s.cfg.IDColumn) + "::text",
		"coalesce(" + quote(s.cfg.AddressColumn) + "::text, '')",
	}
	for _, attr := range s.attrs {
		cols = append(cols, "coalesce("+quote(s.cfg.Columns[attr])+"::text, '')")
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" FROM ")
	b.WriteString(quote(s.cfg.Table))
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(orderBy)
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

func (s *PostgresSource) whereSQL(filters []Filter) ([]string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	for _, f := range filters {
		col, err := s.column(f.Field)
		if err != nil {
			return nil, nil, err
		}

		text := quote(col) + "::text"
		var clause string
		switch f.Operator {
		case OpExact:
			args = append(args, f.Value)
			clause = fmt.Sprintf("%s = $%d", text, len(args))
		case OpNot:
			args = append(args, f.Value)
			clause = fmt.Sprintf("%s IS DISTINCT FROM $%d", text, len(args))
		case OpStartsWith:
			args = append(args, escapeLike(f.Value)+"%")
			clause = fmt.Sprintf("%s LIKE $%d", text, len(args))
		case OpEndsWith:
			args = append(args, "%"+escapeLike(f.Value))
			clause = fmt.Sprintf("%s LIKE $%d", text, len(args))
		case OpPartialMatch:
			args = append(args, "%"+escapeLike(f.Value)+"%")
			clause = fmt.Sprintf("%s LIKE $%d", text, len(args))
		case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
			sym := map[Operator]string{
				OpGreaterThan:        ">",
				OpGreaterThanOrEqual: ">=",
				OpLessThan:           "<",
				OpLessThanOrEqual:    "<=",
			}[f.Operator]
			if n, err := strconv.ParseFloat(f.Value, 64); err == nil {
				args = append(args, n)
				clause = fmt.Sprintf("%s::numeric %s $%d", quote(col), sym, len(args))
			} else {
				args = append(args, f.Value)
				clause = fmt.Sprintf("%s %s $%d", text, sym, len(args))
			}
		default:
			return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, f.Operator)
		}
		clauses = append(clauses, clause)
	}
	return clauses, args, nil
}

func (s *PostgresSource) column(field string) (string, error) {
	switch field {
	case "ID":
		return s.cfg.IDColumn, nil
	case "Email", "Address":
		return s.cfg.AddressColumn, nil
	}
	if col, ok := s.cfg.Columns[field]; ok {
		return col, nil
	}
	return "", fmt.Errorf("%w: %s.%s", ErrUnknownField, s.cfg.Type, field)
}

func (s *PostgresSource) fetch(ctx context.Context, query string, args []any) ([]Entity, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("directory: query %s: %w", s.cfg.Table, err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		values := make([]string, 2+len(s.attrs))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("directory: scan %s: %w", s.cfg.Table, err)
		}

		e := Entity{
			Type:       s.cfg.Type,
			ID:         values[0],
			Address:    values[1],
			Attributes: make(map[string]string, len(s.attrs)),
		}
		for i, attr := range s.attrs {
			e.Attributes[attr] = values[2+i]
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: read %s: %w", s.cfg.Table, err)
	}
	return out, nil
}

// quote sanitizes a possibly schema-qualified identifier ("public.members").
func quote(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
