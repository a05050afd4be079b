package breaker

import (
	"testing"
	"time"
)

func TestBreakerTransitions(t *testing.T) {
	b := New(0.5, 2*time.Second, 200*time.Millisecond, 2)
	if b.StateValue() != 0 {
		t.Fatal("expected closed")
	}

	b.Record(false)
	b.Record(false)
	if b.StateValue() != 1 {
		t.Fatal("expected open after breaching failure threshold")
	}
	if b.Allow() {
		t.Fatal("should not allow calls during cooldown")
	}

	time.Sleep(250 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("should allow a single probe once cooldown elapses")
	}
	if b.StateValue() != 2 {
		t.Fatal("expected half-open after granting probe")
	}
	if b.Allow() {
		t.Fatal("should not allow a second concurrent probe")
	}

	b.Record(true)
	if b.StateValue() != 0 {
		t.Fatal("expected closed after successful probe")
	}
}

func TestBreakerWindowPrunesOldSamples(t *testing.T) {
	b := New(0.5, 50*time.Millisecond, time.Second, 2)
	b.Record(false)
	time.Sleep(60 * time.Millisecond)
	b.Record(false)
	if b.StateValue() != 0 {
		t.Fatal("expected closed: first failure should have aged out of the window")
	}
}

func TestRegistryReusesBreakerPerProvider(t *testing.T) {
	r := NewRegistry(0.5, time.Second, time.Second, 2)
	a := r.For("embedding")
	b := r.For("embedding")
	if a != b {
		t.Fatal("expected the same breaker instance for the same provider name")
	}
	c := r.For("scoring")
	if a == c {
		t.Fatal("expected distinct breakers for distinct providers")
	}
	all := r.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 tracked providers, got %d", len(all))
	}
}
