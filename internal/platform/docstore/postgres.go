package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores documents in a single JSONB table created by the
// 001_documents migration:
//
//	documents(collection TEXT, key TEXT, body JSONB, created_at, updated_at)
//	PRIMARY KEY (collection, key)
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres backend over pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	var body []byte
	err := p.pool.QueryRow(ctx,
		`SELECT body FROM documents WHERE collection = $1 AND key = $2`,
		collection, key,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return body, nil
}

func (p *Postgres) Insert(ctx context.Context, collection, key string, doc json.RawMessage) error {
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO documents (collection, key, body)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (collection, key) DO NOTHING`,
		collection, key, []byte(doc),
	)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("insert %s/%s: %w", collection, key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateKey
	}
	return nil
}

func (p *Postgres) Put(ctx context.Context, collection, key string, doc json.RawMessage) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO documents (collection, key, body)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (collection, key)
		 DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`,
		collection, key, []byte(doc),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, key, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, key string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND key = $2`,
		collection, key,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Find uses JSONB containment, which for scalar filter values is top-level
// equality.
func (p *Postgres) Find(ctx context.Context, collection string, filter Filter) ([]json.RawMessage, error) {
	if filter == nil {
		filter = Filter{}
	}
	containment, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	rows, err := p.pool.Query(ctx,
		`SELECT body FROM documents
		 WHERE collection = $1 AND body @> $2::jsonb
		 ORDER BY key`,
		collection, containment,
	)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		out = append(out, body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return out, nil
}

func (p *Postgres) Truncate(ctx context.Context, collection string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1`, collection); err != nil {
		return fmt.Errorf("truncate %s: %w", collection, err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
