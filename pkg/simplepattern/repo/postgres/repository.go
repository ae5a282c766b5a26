package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-pattern/pkg/simplepattern"
	"github.com/tendant/simple-pattern/pkg/simplepattern/property"
)

// Schema creates the pattern table. Values go to the data column as json rather than jsonb
// so key order survives the round trip.
const Schema = `
CREATE TABLE IF NOT EXISTS pattern (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL,
	data       JSON NOT NULL DEFAULT '{}',
	children   JSON NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS pattern_type_idx ON pattern (type);
`

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simplepattern.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) simplepattern.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) simplepattern.Repository {
	return &Repository{db: pool}
}

// Migrate creates the schema objects used by the repository
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to migrate pattern schema: %w", err)
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: pattern already exists", simplepattern.ErrInvalidPattern)
		case "23502": // not_null_violation
			return fmt.Errorf("%w: required field %s is missing", simplepattern.ErrInvalidPattern, pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return simplepattern.ErrPatternNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const patternColumns = `id, name, type, data, children, created_at, updated_at`

func (r *Repository) CreatePattern(ctx context.Context, pattern *simplepattern.Pattern) error {
	values, children, err := encodePattern(pattern)
	if err != nil {
		return err
	}

	query := `INSERT INTO pattern (` + patternColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.db.Exec(ctx, query,
		pattern.ID, pattern.Name, pattern.Type, values, children,
		pattern.CreatedAt, pattern.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create pattern", err)
	}

	return nil
}

func (r *Repository) GetPattern(ctx context.Context, id uuid.UUID) (*simplepattern.Pattern, error) {
	query := `SELECT ` + patternColumns + ` FROM pattern WHERE id = $1`

	pattern, err := scanPattern(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.handlePostgresError("get pattern", err)
	}

	return pattern, nil
}

func (r *Repository) UpdatePattern(ctx context.Context, pattern *simplepattern.Pattern) error {
	values, children, err := encodePattern(pattern)
	if err != nil {
		return err
	}

	query := `
		UPDATE pattern SET
			name = $2, type = $3, data = $4, children = $5, updated_at = $6
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		pattern.ID, pattern.Name, pattern.Type, values, children, pattern.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update pattern", err)
	}
	if tag.RowsAffected() == 0 {
		return simplepattern.ErrPatternNotFound
	}

	return nil
}

func (r *Repository) DeletePattern(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM pattern WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete pattern", err)
	}
	if tag.RowsAffected() == 0 {
		return simplepattern.ErrPatternNotFound
	}
	return nil
}

func (r *Repository) ListPatterns(ctx context.Context, req simplepattern.ListPatternsRequest) ([]*simplepattern.Pattern, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if req.Type != "" {
		args = append(args, req.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}

	query := `SELECT ` + patternColumns + ` FROM pattern`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`

	if req.Limit > 0 {
		args = append(args, req.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if req.Offset > 0 {
		args = append(args, req.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return r.queryPatterns(ctx, "list patterns", query, args...)
}

func (r *Repository) FindParents(ctx context.Context, id uuid.UUID) ([]*simplepattern.Pattern, error) {
	query := `
		SELECT ` + patternColumns + ` FROM pattern
		WHERE children::jsonb @> jsonb_build_array(jsonb_build_object('pattern_id', $1::text))
		ORDER BY created_at ASC`

	return r.queryPatterns(ctx, "find parents", query, id.String())
}

func (r *Repository) queryPatterns(ctx context.Context, operation, query string, args ...interface{}) ([]*simplepattern.Pattern, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	defer rows.Close()

	result := []*simplepattern.Pattern{}
	for rows.Next() {
		pattern, err := scanPattern(rows)
		if err != nil {
			return nil, r.handlePostgresError(operation, err)
		}
		result = append(result, pattern)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError(operation, err)
	}

	return result, nil
}

func encodePattern(pattern *simplepattern.Pattern) (string, string, error) {
	values := pattern.Values
	if values == nil {
		values = property.NewRecord()
	}
	valuesJSON, err := json.Marshal(values)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode pattern values: %w", err)
	}

	children := pattern.Children
	if children == nil {
		children = []simplepattern.ChildRef{}
	}
	childrenJSON, err := json.Marshal(children)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode pattern children: %w", err)
	}

	return string(valuesJSON), string(childrenJSON), nil
}

func scanPattern(row pgx.Row) (*simplepattern.Pattern, error) {
	var (
		pattern      simplepattern.Pattern
		valuesJSON   string
		childrenJSON string
	)

	err := row.Scan(
		&pattern.ID, &pattern.Name, &pattern.Type, &valuesJSON, &childrenJSON,
		&pattern.CreatedAt, &pattern.UpdatedAt)
	if err != nil {
		return nil, err
	}

	pattern.Values = property.NewRecord()
	if err := json.Unmarshal([]byte(valuesJSON), pattern.Values); err != nil {
		return nil, fmt.Errorf("failed to decode pattern values: %w", err)
	}
	if err := json.Unmarshal([]byte(childrenJSON), &pattern.Children); err != nil {
		return nil, fmt.Errorf("failed to decode pattern children: %w", err)
	}

	return &pattern, nil
}
