package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores every collection in a single documents table with a JSONB
// body, which keeps the store generic: adding a collection needs no schema
// change.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() {
	s.pool.Close()
}

// EnsureSchema creates the documents table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection text NOT NULL,
			id         text NOT NULL,
			data       jsonb NOT NULL DEFAULT '{}'::jsonb,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, id)
		)`)
	if err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS documents_collection_created_idx
		ON documents (collection, created_at DESC)`)
	if err != nil {
		return fmt.Errorf("create documents index: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT data, created_at, updated_at
		FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)

	doc := Document{ID: id, Collection: collection}
	var raw []byte
	if err := row.Scan(&raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return Document{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *Postgres) Query(ctx context.Context, collection string, filters []Filter, opts QueryOpts) ([]Document, error) {
	query, args, err := buildSelect(collection, filters, opts)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc := Document{Collection: collection}
		var raw []byte
		if err := rows.Scan(&doc.ID, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", collection, err)
		}
		if err := json.Unmarshal(raw, &doc.Data); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, doc.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", collection, err)
	}
	return docs, nil
}

func (s *Postgres) Count(ctx context.Context, collection string, filters []Filter) (int, error) {
	where, args, err := buildWhere(collection, filters)
	if err != nil {
		return 0, err
	}

	var count int
	row := s.pool.QueryRow(ctx, "SELECT count(*) FROM documents WHERE "+where, args...)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return count, nil
}

func (s *Postgres) Create(ctx context.Context, collection, id string, data map[string]any) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())`,
		collection, id, raw,
	)
	if err != nil {
		return "", fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	return id, nil
}

func (s *Postgres) UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s update: %w", collection, id, err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// buildSelect assembles the filtered, ordered, limited query. Field values
// are compared through data->>field (text), which is adequate for the
// status/id/date-string predicates the pipeline issues.
func buildSelect(collection string, filters []Filter, opts QueryOpts) (string, []any, error) {
	where, args, err := buildWhere(collection, filters)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT id, data, created_at, updated_at FROM documents WHERE ")
	b.WriteString(where)

	if opts.OrderBy != "" {
		b.WriteString(fmt.Sprintf(" ORDER BY data->>$%d", len(args)+1))
		args = append(args, opts.OrderBy)
		if opts.Descending {
			b.WriteString(" DESC")
		}
	}
	if opts.Limit > 0 {
		b.WriteString(fmt.Sprintf(" LIMIT %d", opts.Limit))
	}
	return b.String(), args, nil
}

func buildWhere(collection string, filters []Filter) (string, []any, error) {
	clauses := []string{"collection = $1"}
	args := []any{collection}

	for _, f := range filters {
		op, ok := sqlOp(f.Op)
		if !ok {
			return "", nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
		args = append(args, f.Field)
		fieldArg := len(args)
		args = append(args, fmt.Sprintf("%v", f.Value))
		valueArg := len(args)
		clauses = append(clauses, fmt.Sprintf("data->>$%d %s $%d", fieldArg, op, valueArg))
	}
	return strings.Join(clauses, " AND "), args, nil
}

func sqlOp(op string) (string, bool) {
	switch op {
	case "==", "":
		return "=", true
	case "!=":
		return "<>", true
	case ">", ">=", "<", "<=":
		return op, true
	}
	return "", false
}
