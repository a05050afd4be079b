package obs

import (
	"net/http/httptest"
	"testing"
)

func TestNewMetricsRegistersAllSeriesOnAFreshRegistry(t *testing.T) {
	m := NewMetrics()
	if m.Registry == nil {
		t.Fatal("expected a non-nil registry")
	}

	m.JobsSubmitted.WithLabelValues("api").Inc()
	m.QueueDepth.Set(3)
	m.ProfilesScored.Inc()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"scout_jobs_submitted_total",
		"scout_queue_depth",
		"scout_profiles_scored_total",
	} {
		if !names[want] {
			t.Fatalf("expected metric %q to be registered, got %v", want, names)
		}
	}
}

func TestMetricsHandlerServesPrometheusFormat(t *testing.T) {
	m := NewMetrics()
	m.EventsAppended.Inc()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytesContain(rec.Body.Bytes(), []byte("scout_events_appended_total")) {
		t.Fatal("expected metrics body to mention scout_events_appended_total")
	}
}

func bytesContain(haystack, needle []byte) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
