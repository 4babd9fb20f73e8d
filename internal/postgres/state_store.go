package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ariefcatur/go-storefront/internal/state"
)

// DB is the subset of *pgxpool.Pool the state store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS client_state (
	session_id TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      BYTEA       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, key)
)`

// StateStore keeps client state rows in the client_state table.
type StateStore struct{ DB DB }

var _ state.Backend = (*StateStore)(nil)

func (s *StateStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create client_state: %w", err)
	}
	return nil
}

func (s *StateStore) Get(ctx context.Context, session, key string) ([]byte, error) {
	var v []byte
	err := s.DB.QueryRow(ctx,
		`SELECT value FROM client_state WHERE session_id=$1 AND key=$2`, session, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, state.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select client_state: %w", err)
	}
	return v, nil
}

func (s *StateStore) Set(ctx context.Context, session, key string, value []byte) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO client_state(session_id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		session, key, value)
	if err != nil {
		return fmt.Errorf("upsert client_state: %w", err)
	}
	return nil
}

func (s *StateStore) Delete(ctx context.Context, session, key string) error {
	if _, err := s.DB.Exec(ctx,
		`DELETE FROM client_state WHERE session_id=$1 AND key=$2`, session, key); err != nil {
		return fmt.Errorf("delete client_state: %w", err)
	}
	return nil
}
