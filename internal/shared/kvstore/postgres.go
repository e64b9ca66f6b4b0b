package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// PostgresStore persiste os blobs na tabela kv_store (variante durável do store).
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore { return &PostgresStore{DB: db} }

// EnsureSchema cria a tabela caso ainda não exista.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	const q = `
		CREATE TABLE IF NOT EXISTS kv_store (
		  key        TEXT PRIMARY KEY,
		  value      BYTEA NOT NULL,
		  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	_, err := p.DB.ExecContext(ctx, q)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := p.DB.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

// Set usa ON CONFLICT para sobrescrever o valor (last write wins).
func (p *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	const q = `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
		  value      = EXCLUDED.value,
		  updated_at = EXCLUDED.updated_at
	`
	_, err := p.DB.ExecContext(ctx, q, key, value)
	return err
}

func (p *PostgresStore) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if _, err := p.DB.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, k); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT key FROM kv_store WHERE key LIKE $1 ESCAPE '\' ORDER BY key`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
