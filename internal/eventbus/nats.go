// Package eventbus mirrors job lifecycle transitions onto a NATS
// JetStream subject so external systems can react to a job finishing
// without polling the admission API.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/flyingrobots/creator-scout/internal/config"
	"github.com/flyingrobots/creator-scout/internal/store"
)

// jobLifecycleEvent is the payload mirrored to the bus on every
// terminal job transition.
type jobLifecycleEvent struct {
	JobID      string    `json:"job_id"`
	APIKeyID   string    `json:"api_key_id"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	FinishedAt time.Time `json:"finished_at"`
}

// Publisher mirrors job terminal transitions onto NATS JetStream.
type Publisher struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	subject string
	log     *zap.Logger
}

// NewPublisher connects to NATS and obtains a JetStream context; it
// does not create a stream for the subject. Returns (nil, nil) if the bus is
// disabled in config, so callers can treat a nil *Publisher as a no-op.
func NewPublisher(cfg config.EventBus, log *zap.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Publisher{conn: conn, js: js, subject: cfg.Subject, log: log}, nil
}

// PublishTerminal is wired as an engine.WithTerminalHook and mirrors a
// job's terminal transition onto the bus. Failures are logged, never
// propagated: the event bus is an observability fan-out, not part of
// the job's durability guarantee.
func (p *Publisher) PublishTerminal(ctx context.Context, job *store.Job) {
	if p == nil {
		return
	}

	event := jobLifecycleEvent{
		JobID:    job.JobID,
		APIKeyID: job.APIKeyID,
		Status:   string(job.Status),
		Progress: job.Progress,
	}
	if job.FinishedAt != nil {
		event.FinishedAt = *job.FinishedAt
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("marshal lifecycle event failed", zap.String("job_id", job.JobID), zap.Error(err))
		return
	}

	subject := fmt.Sprintf("%s.%s", p.subject, job.Status)
	if _, err := p.js.Publish(subject, payload, nats.Context(ctx)); err != nil {
		p.log.Warn("publish lifecycle event failed",
			zap.String("job_id", job.JobID), zap.String("subject", subject), zap.Error(err))
	}
}

// Close releases the underlying NATS connection.
func (p *Publisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	p.conn.Close()
	return nil
}
