package apierr

import (
	"errors"
	"net/http"
	"testing"
)

func TestHTTPStatusMapsEveryKind(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:  http.StatusBadRequest,
		KindAuth:        http.StatusUnauthorized,
		KindNotFound:    http.StatusNotFound,
		KindConflict:    http.StatusConflict,
		KindRateLimited: http.StatusTooManyRequests,
		KindOverCap:     http.StatusTooManyRequests,
		KindCancelled:   http.StatusOK,
		KindUpstream:    http.StatusInternalServerError,
		KindFatal:       http.StatusInternalServerError,
	}
	for kind, want := range cases {
		e := New(kind, "message")
		if got := e.HTTPStatus(); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestErrorMessageIncludesCauseWhenWrapped(t *testing.T) {
	cause := errors.New("transport reset")
	e := Wrap(KindUpstream, "scoring call failed", cause)
	msg := e.Error()
	if !contains(msg, "scoring call failed") || !contains(msg, "transport reset") {
		t.Fatalf("expected message to include both message and cause, got %q", msg)
	}
	if !errors.Is(e, e) {
		t.Fatal("expected Error to satisfy errors.Is against itself")
	}
	if errors.Unwrap(e) != cause {
		t.Fatal("expected Unwrap to return the original cause")
	}
}

func TestErrorMessageOmitsCauseWhenUnset(t *testing.T) {
	e := New(KindValidation, "bad input")
	if contains(e.Error(), "<nil>") {
		t.Fatalf("expected no nil-cause artifact in message, got %q", e.Error())
	}
}

func TestAsExtractsTaxonomyError(t *testing.T) {
	e := Validation("min_followers must be <= max_followers")
	got, ok := As(e)
	if !ok || got != e {
		t.Fatalf("expected As to extract the same *Error, got %v, %v", got, ok)
	}

	_, ok = As(errors.New("plain error"))
	if ok {
		t.Fatal("expected As to report false for a non-taxonomy error")
	}
}

func TestKindOfDefaultsToFatalForUnknownErrors(t *testing.T) {
	if got := KindOf(errors.New("plain error")); got != KindFatal {
		t.Fatalf("expected KindFatal default, got %s", got)
	}
	if got := KindOf(NotFound("job %s not found", "job-1")); got != KindNotFound {
		t.Fatalf("expected KindNotFound, got %s", got)
	}
}

func TestConstructorsFormatMessages(t *testing.T) {
	if got := NotFound("job %s not found", "job-1").Message; got != "job job-1 not found" {
		t.Fatalf("NotFound message = %q", got)
	}
	if got := Conflict("job %s already running", "job-1").Message; got != "job job-1 already running" {
		t.Fatalf("Conflict message = %q", got)
	}
	if got := RateLimited("too many requests").Kind; got != KindRateLimited {
		t.Fatalf("RateLimited kind = %q", got)
	}
	if got := OverCap("active job cap reached").Kind; got != KindOverCap {
		t.Fatalf("OverCap kind = %q", got)
	}
}

func contains(s, substr string) bool {
	return len(substr) == 0 || indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
