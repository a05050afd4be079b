package admission

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/flyingrobots/creator-scout/internal/apierr"
	"github.com/flyingrobots/creator-scout/internal/store"
)

const (
	sseMaxEventsPerChunk = 200
	ssePollInterval      = 1 * time.Second
)

// handleEvents streams a job's event log as Server-Sent Events.
// Last-Event-ID takes precedence over the ?after= query argument when
// both are present, per the resumable-stream contract.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobForRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	after := parseAfterCursor(r)
	if lastID := r.Header.Get("Last-Event-ID"); lastID != "" {
		var n int64
		if _, scanErr := fmt.Sscanf(lastID, "%d", &n); scanErr == nil {
			after = n
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, apierr.Fatal("streaming not supported", nil))
		return
	}

	ctx := r.Context()
	ticker := time.NewTicker(ssePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			events, err := s.store.EventsAfter(ctx, job.JobID, after, sseMaxEventsPerChunk)
			if err != nil {
				sendSSEEvent(w, flusher, "error", map[string]any{"message": "failed to fetch events"})
				continue
			}
			for _, e := range events {
				sendSSEEventID(w, flusher, e.ID, string(e.Type), e)
				after = e.ID
			}
			if len(events) == 0 {
				sendSSEHeartbeat(w, flusher)
				continue
			}

			refreshed, err := s.store.GetJob(ctx, job.JobID)
			if err == nil && refreshed.Status.Terminal() {
				sendSSEEvent(w, flusher, "complete", newJobView(refreshed))
				return
			}
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, raw)
	flusher.Flush()
}

func sendSSEEventID(w http.ResponseWriter, flusher http.Flusher, id int64, event string, data store.Event) {
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, raw)
	flusher.Flush()
}

func sendSSEHeartbeat(w http.ResponseWriter, flusher http.Flusher) {
	_, _ = fmt.Fprint(w, ": heartbeat\n\n")
	flusher.Flush()
}
