package obs

import "testing"

func TestNewLoggerFallsBackToInfoOnUnrecognizedLevel(t *testing.T) {
	logger, err := NewLogger("not-a-level", "test")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if logger == nil {
		t.Fatal("expected a non-nil logger")
	}
}

func TestNewLoggerAcceptsKnownLevel(t *testing.T) {
	logger, err := NewLogger("debug", "test")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if logger == nil {
		t.Fatal("expected a non-nil logger")
	}
}

func TestNewNopReturnsUsableLogger(t *testing.T) {
	logger := NewNop()
	if logger == nil {
		t.Fatal("expected a non-nil no-op logger")
	}
	logger.Info("should be discarded") // must not panic
}
