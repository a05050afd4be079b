// Package enrichment defines the capability interface for the
// trigger/poll/download enrichment provider that fetches raw profile
// and post data for a batch of URLs, plus an HTTP client and a fixture
// implementation for tests.
package enrichment

import (
	"context"
	"encoding/json"
)

type SnapshotStatus string

const (
	SnapshotRunning   SnapshotStatus = "running"
	SnapshotReady     SnapshotStatus = "ready"
	SnapshotCompleted SnapshotStatus = "completed"
	SnapshotFailed    SnapshotStatus = "failed"
)

// RawProfile is the unprocessed per-account payload as returned by the
// provider, before stage 3 normalization.
type RawProfile struct {
	ProfileURL string          `json:"profile_url"`
	Data       json.RawMessage `json:"data"`
}

// Client triggers a batch fetch, polls its progress, and downloads the
// results once ready. Instagram and TikTok use distinct dataset ids;
// TikTok payloads require an explicitly empty country field.
type Client interface {
	Trigger(ctx context.Context, platform string, datasetID string, profileURLs []string) (snapshotID string, err error)
	Progress(ctx context.Context, snapshotID string) (SnapshotStatus, error)
	Download(ctx context.Context, snapshotID string) ([]RawProfile, error)
}
