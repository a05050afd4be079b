// Package store implements the durable (Postgres-backed) state layer
// shared by the admission service and the execution engine: jobs,
// artifacts, the event log, the external-call ledger, the profile
// cache and API key rows.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/flyingrobots/creator-scout/internal/config"
)

// Store wraps a *sql.DB with the query methods the rest of the system
// needs. It has no knowledge of HTTP or queueing concerns.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and applies pending migrations.
func Open(ctx context.Context, cfg config.Store) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the raw handle for components (e.g. the ledger exporter)
// that need to run ad-hoc reporting queries.
func (s *Store) DB() *sql.DB { return s.db }
