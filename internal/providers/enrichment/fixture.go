package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Fixture is an in-memory enrichment provider: Trigger immediately
// marks the snapshot ready, Download synthesizes a handful of recent
// posts per profile.
type Fixture struct {
	mu        sync.Mutex
	snapshots map[string][]string
	seq       int
}

func NewFixture() *Fixture {
	return &Fixture{snapshots: make(map[string][]string)}
}

func (f *Fixture) Trigger(_ context.Context, _ string, _ string, profileURLs []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("fixture-snapshot-%d", f.seq)
	f.snapshots[id] = profileURLs
	return id, nil
}

func (f *Fixture) Progress(_ context.Context, snapshotID string) (SnapshotStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.snapshots[snapshotID]; !ok {
		return "", fmt.Errorf("unknown snapshot %s", snapshotID)
	}
	return SnapshotReady, nil
}

func (f *Fixture) Download(_ context.Context, snapshotID string) ([]RawProfile, error) {
	f.mu.Lock()
	urls, ok := f.snapshots[snapshotID]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown snapshot %s", snapshotID)
	}

	now := time.Now()
	out := make([]RawProfile, 0, len(urls))
	for i, url := range urls {
		posts := []map[string]any{
			{"posted_at": now.Add(-time.Duration(i) * 24 * time.Hour).Format(time.RFC3339), "caption": "recent post"},
		}
		data, _ := json.Marshal(map[string]any{
			"account_id":   fmt.Sprintf("acct-%d", i),
			"display_name": fmt.Sprintf("Creator %d", i),
			"followers":    5000 + i*100,
			"biography":    "fixture bio",
			"posts_data":   posts,
		})
		out = append(out, RawProfile{ProfileURL: url, Data: data})
	}
	return out, nil
}
