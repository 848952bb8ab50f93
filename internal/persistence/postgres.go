// Package persistence implements the optional result-history
// collaborator. The pipeline treats saves as best-effort: a failed
// write is logged by the caller, never surfaced to the user.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Result is one stored pipeline outcome.
type Result struct {
	ID      int64           `db:"id" json:"id"`
	User    string          `db:"user_id" json:"user"`
	Kind    string          `db:"kind" json:"kind"`
	Payload json.RawMessage `db:"payload" json:"payload"`
	Created time.Time       `db:"created_at" json:"created"`
}

// Store is what the pipeline consumes.
type Store interface {
	SaveResult(ctx context.Context, user, kind string, payload any) error
	LoadHistory(ctx context.Context, user string, limit int) ([]Result, error)
}

// NopStore discards saves and returns empty history.
type NopStore struct{}

func (NopStore) SaveResult(context.Context, string, string, any) error { return nil }

func (NopStore) LoadHistory(context.Context, string, int) ([]Result, error) { return nil, nil }

// PostgresStore keeps result blobs in a single results table with a
// JSONB payload column.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Open connects and verifies the DSN.
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: connect: %w", err)
	}
	return NewPostgresStore(db), nil
}

const saveQuery = `INSERT INTO results (user_id, kind, payload, created_at) VALUES ($1, $2, $3, $4)`

// SaveResult serializes the payload and inserts one row.
func (s *PostgresStore) SaveResult(ctx context.Context, user, kind string, payload any) error {
	blob, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("persistence: marshal %s result: %w", kind, err)
	}
	if _, err := s.db.ExecContext(ctx, saveQuery, user, kind, blob, time.Now().UTC()); err != nil {
		return fmt.Errorf("persistence: save %s result for %s: %w", kind, user, err)
	}
	return nil
}

const loadQuery = `SELECT id, user_id, kind, payload, created_at FROM results WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

// LoadHistory returns the user's most recent results, newest first.
func (s *PostgresStore) LoadHistory(ctx context.Context, user string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []Result
	if err := s.db.SelectContext(ctx, &out, loadQuery, user, limit); err != nil {
		return nil, fmt.Errorf("persistence: load history for %s: %w", user, err)
	}
	return out, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error { return s.db.Close() }
