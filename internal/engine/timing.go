package engine

import (
	"sync"
	"time"
)

// Waterfall records relative-time offsets for each named span within a
// single job run, forming the `timing` artifact.
type Waterfall struct {
	mu    sync.Mutex
	start time.Time
	spans []WaterfallSpan
}

type WaterfallSpan struct {
	Name       string `json:"name"`
	StartMS    int64  `json:"start_ms"`
	DurationMS int64  `json:"duration_ms"`
}

func NewWaterfall() *Waterfall {
	return &Waterfall{start: time.Now()}
}

// Record appends a completed span measured relative to waterfall start.
func (w *Waterfall) Record(name string, start time.Time, dur time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.spans = append(w.spans, WaterfallSpan{
		Name:       name,
		StartMS:    start.Sub(w.start).Milliseconds(),
		DurationMS: dur.Milliseconds(),
	})
}

// Track is a convenience wrapper: call the returned func when the
// named span completes.
func (w *Waterfall) Track(name string) func() {
	start := time.Now()
	return func() {
		w.Record(name, start, time.Since(start))
	}
}

func (w *Waterfall) Spans() []WaterfallSpan {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]WaterfallSpan, len(w.spans))
	copy(out, w.spans)
	return out
}
