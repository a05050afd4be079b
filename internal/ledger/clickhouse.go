// Package ledger exports the external_calls cost ledger to ClickHouse
// for long-term cost analytics, decoupled from the operational store.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"github.com/flyingrobots/creator-scout/internal/config"
	"github.com/flyingrobots/creator-scout/internal/store"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS external_calls (
	id UInt64,
	job_id String,
	api_key_id String,
	service LowCardinality(String),
	operation LowCardinality(String),
	ts DateTime64(3),
	duration_ms UInt64,
	status LowCardinality(String),
	cost_usd Float64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(ts)
ORDER BY (service, ts, id)
TTL ts + INTERVAL 1 YEAR DELETE
`

const insertSQL = `
INSERT INTO external_calls (id, job_id, api_key_id, service, operation, ts, duration_ms, status, cost_usd)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Exporter mirrors external_calls rows into ClickHouse in batches.
type Exporter struct {
	db  *sql.DB
	log *zap.Logger
}

// NewExporter opens a ClickHouse connection and ensures the target
// table exists. Returns (nil, nil) if ClickHouse export is disabled.
func NewExporter(cfg config.Ledger, log *zap.Logger) (*Exporter, error) {
	if !cfg.ClickHouseEnabled {
		return nil, nil
	}

	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseDSN},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("ensure external_calls table: %w", err)
	}

	return &Exporter{db: db, log: log}, nil
}

// ExportBatch writes a batch of external call rows to ClickHouse inside
// a single transaction. Called periodically by the cleanup worker on
// rows not yet mirrored.
func (e *Exporter) ExportBatch(ctx context.Context, calls []store.ExternalCall) error {
	if e == nil || len(calls) == 0 {
		return nil
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clickhouse tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range calls {
		if _, err := stmt.ExecContext(ctx, c.ID, c.JobID, c.APIKeyID, c.Service, c.Operation,
			c.TS, c.DurationMS, c.Status, c.CostUSD); err != nil {
			return fmt.Errorf("insert external call %d: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clickhouse tx: %w", err)
	}
	e.log.Debug("exported external calls batch", zap.Int("count", len(calls)))
	return nil
}

// Close releases the underlying ClickHouse connection.
func (e *Exporter) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Close()
}
