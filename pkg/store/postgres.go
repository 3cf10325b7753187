package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/mailvault/pkg/db"
	"github.com/dmitrymomot/mailvault/pkg/mailtemplate"
)

// DB is the subset of *pgxpool.Pool used by the Postgres stores.
type DB interface {
	db.TxStarter
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Concurrent saves can race for the same identifier between the uniqueness
// check and the insert; the loser retries with a fresh suffix.
const saveAttempts = 3

// PostgresTemplates is a TemplateStore on PostgreSQL.
type PostgresTemplates struct {
	db DB
}

// NewPostgresTemplates creates a Postgres-backed template store.
func NewPostgresTemplates(pool DB) *PostgresTemplates {
	return &PostgresTemplates{db: pool}
}

const templateColumns = `id, identifier, subject, from_address, content, test_address, created_at, updated_at`

// Get implements TemplateStore.
func (s *PostgresTemplates) Get(ctx context.Context, id uuid.UUID) (*mailtemplate.Template, error) {
	return s.getOne(ctx, `SELECT `+templateColumns+` FROM mail_templates WHERE id = $1`, id)
}

// GetByIdentifier implements TemplateStore.
func (s *PostgresTemplates) GetByIdentifier(ctx context.Context, identifier string) (*mailtemplate.Template, error) {
	return s.getOne(ctx, `SELECT `+templateColumns+` FROM mail_templates WHERE identifier = $1`, identifier)
}

func (s *PostgresTemplates) getOne(ctx context.Context, query string, arg any) (*mailtemplate.Template, error) {
	t, err := scanTemplate(s.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", ErrTemplateNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get template: %w", err)
	}

	t.Variables, err = loadVariables(ctx, s.db, t.ID, false)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List implements TemplateStore.
func (s *PostgresTemplates) List(ctx context.Context) ([]*mailtemplate.Template, error) {
	rows, err := s.db.Query(ctx, `SELECT `+templateColumns+` FROM mail_templates ORDER BY identifier`)
	if err != nil {
		return nil, fmt.Errorf("store: list templates: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*mailtemplate.Template, error) {
		return scanTemplate(row)
	})
	if err != nil {
		return nil, fmt.Errorf("store: list templates: %w", err)
	}

	for _, t := range out {
		if t.Variables, err = loadVariables(ctx, s.db, t.ID, false); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Save implements TemplateStore.
func (s *PostgresTemplates) Save(ctx context.Context, t *mailtemplate.Template) error {
	if _, err := mailtemplate.Scan(t.Content); err != nil {
		return err
	}

	raw := t.Identifier
	var err error
	for range saveAttempts {
		candidate := *t
		candidate.Identifier = raw
		err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
			return s.save(ctx, tx, &candidate)
		})
		if err == nil {
			*t = candidate
			return nil
		}
		if !isIdentifierConflict(err) {
			return err
		}
	}
	return err
}

func (s *PostgresTemplates) save(ctx context.Context, tx pgx.Tx, t *mailtemplate.Template) error {
	var stored []mailtemplate.Variable
	if t.ID != uuid.Nil {
		var err error
		if stored, err = loadVariables(ctx, tx, t.ID, true); err != nil {
			return err
		}
	}

	taken := func(ctx context.Context, identifier string) (bool, error) {
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM mail_templates WHERE identifier = $1 AND id <> $2)`,
			identifier, t.ID,
		).Scan(&exists)
		return exists, err
	}

	removed, err := prepare(ctx, t, stored, taken)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO mail_templates (id, identifier, subject, from_address, content, test_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			identifier = EXCLUDED.identifier,
			subject = EXCLUDED.subject,
			from_address = EXCLUDED.from_address,
			content = EXCLUDED.content,
			test_address = EXCLUDED.test_address,
			updated_at = now()
		RETURNING created_at, updated_at`,
		t.ID, t.Identifier, t.Subject, t.From, t.Content, t.TestAddress,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: save template: %w", err)
	}

	for _, v := range removed {
		if _, err := tx.Exec(ctx, `DELETE FROM mail_template_variables WHERE id = $1`, v.ID); err != nil {
			return fmt.Errorf("store: delete variable %s: %w", v.Name, err)
		}
	}

	batch := &pgx.Batch{}
	for i, v := range t.Variables {
		batch.Queue(`
			INSERT INTO mail_template_variables (id, template_id, name, value_type, record_type, value, query, is_list, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET position = EXCLUDED.position`,
			v.ID, t.ID, v.Name, string(v.ValueType), v.RecordType, v.Value, v.Query, v.List, i,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("store: save variables: %w", err)
	}
	return nil
}

// UpdateVariable implements TemplateStore.
func (s *PostgresTemplates) UpdateVariable(ctx context.Context, v *mailtemplate.Variable) error {
	if err := v.Validate(); err != nil {
		return err
	}

	err := s.db.QueryRow(ctx, `
		UPDATE mail_template_variables
		SET value_type = $2, record_type = $3, value = $4, query = $5, is_list = $6
		WHERE id = $1
		RETURNING name, template_id`,
		v.ID, string(v.ValueType), v.RecordType, v.Value, v.Query, v.List,
	).Scan(&v.Name, &v.TemplateID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrVariableNotFound, v.ID)
	}
	if err != nil {
		return fmt.Errorf("store: update variable: %w", err)
	}

	_, err = s.db.Exec(ctx, `UPDATE mail_templates SET updated_at = now() WHERE id = $1`, v.TemplateID)
	if err != nil {
		return fmt.Errorf("store: touch template: %w", err)
	}
	return nil
}

// Ensure implements TemplateStore.
func (s *PostgresTemplates) Ensure(ctx context.Context, identifier string) (*mailtemplate.Template, error) {
	return ensure(ctx, s, identifier)
}

// Delete implements TemplateStore. Variables are removed by cascade.
func (s *PostgresTemplates) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM mail_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return nil
}

func scanTemplate(row pgx.Row) (*mailtemplate.Template, error) {
	var t mailtemplate.Template
	err := row.Scan(&t.ID, &t.Identifier, &t.Subject, &t.From, &t.Content, &t.TestAddress, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadVariables(ctx context.Context, q querier, templateID uuid.UUID, lock bool) ([]mailtemplate.Variable, error) {
	query := `
		SELECT id, template_id, name, value_type, record_type, value, query, is_list
		FROM mail_template_variables
		WHERE template_id = $1
		ORDER BY position, name`
	if lock {
		query += ` FOR UPDATE`
	}

	rows, err := q.Query(ctx, query, templateID)
	if err != nil {
		return nil, fmt.Errorf("store: load variables: %w", err)
	}
	vars, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (mailtemplate.Variable, error) {
		var (
			v  mailtemplate.Variable
			vt string
		)
		err := row.Scan(&v.ID, &v.TemplateID, &v.Name, &vt, &v.RecordType, &v.Value, &v.Query, &v.List)
		v.ValueType = mailtemplate.ValueType(vt)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("store: load variables: %w", err)
	}
	return vars, nil
}

func isIdentifierConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		pgErr.ConstraintName == "mail_templates_identifier_idx"
}

// PostgresSentMessages is a SentMessageStore on PostgreSQL.
type PostgresSentMessages struct {
	db  DB
	now func() time.Time
}

// NewPostgresSentMessages creates a Postgres-backed sent message store.
func NewPostgresSentMessages(pool DB) *PostgresSentMessages {
	return &PostgresSentMessages{db: pool, now: time.Now}
}

const sentColumns = `id, to_addresses, from_address, subject, body, cc, bcc, snapshot, test_mode, created_at`

// Persist implements SentMessageStore.
func (s *PostgresSentMessages) Persist(ctx context.Context, m *SentMessage) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO sent_messages (`+sentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.To, m.From, m.Subject, m.Body, m.CC, m.BCC, []byte(m.Snapshot), m.TestMode, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: persist sent message: %w", err)
	}
	return nil
}

// Get implements SentMessageStore.
func (s *PostgresSentMessages) Get(ctx context.Context, id uuid.UUID) (*SentMessage, error) {
	m, err := scanSentMessage(s.db.QueryRow(ctx, `SELECT `+sentColumns+` FROM sent_messages WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSentMessageNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get sent message: %w", err)
	}
	return m, nil
}

// List implements SentMessageStore.
func (s *PostgresSentMessages) List(ctx context.Context, p ListParams) ([]*SentMessage, error) {
	return s.collect(ctx, `
		SELECT `+sentColumns+` FROM sent_messages
		WHERE $1 = '' OR to_addresses ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		escapeLike(p.Recipient), p.limit(), max(p.Offset, 0),
	)
}

// ListBefore implements SentMessageStore.
func (s *PostgresSentMessages) ListBefore(ctx context.Context, cutoff time.Time) ([]*SentMessage, error) {
	return s.collect(ctx, `
		SELECT `+sentColumns+` FROM sent_messages
		WHERE created_at < $1
		ORDER BY created_at, id`,
		cutoff,
	)
}

// DeleteBefore implements SentMessageStore.
func (s *PostgresSentMessages) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sent_messages WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: delete sent messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresSentMessages) collect(ctx context.Context, query string, args ...any) ([]*SentMessage, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list sent messages: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*SentMessage, error) {
		return scanSentMessage(row)
	})
	if err != nil {
		return nil, fmt.Errorf("store: list sent messages: %w", err)
	}
	return out, nil
}

func scanSentMessage(row pgx.Row) (*SentMessage, error) {
	var (
		m        SentMessage
		snapshot []byte
	)
	err := row.Scan(&m.ID, &m.To, &m.From, &m.Subject, &m.Body, &m.CC, &m.BCC, &snapshot, &m.TestMode, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Snapshot = snapshot
	return &m, nil
}

func escapeLike(s string) string {
	var b []byte
	for i := range len(s) {
		switch s[i] {
		case '\\', '%', '_':
			b = append(b, '\\')
		}
		b = append(b, s[i])
	}
	return string(b)
}

var (
	_ TemplateStore    = (*PostgresTemplates)(nil)
	_ SentMessageStore = (*PostgresSentMessages)(nil)
)
