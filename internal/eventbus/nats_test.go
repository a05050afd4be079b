package eventbus

import (
	"context"
	"testing"

	"github.com/flyingrobots/creator-scout/internal/config"
	"github.com/flyingrobots/creator-scout/internal/store"
)

func TestNewPublisherDisabledReturnsNilWithoutError(t *testing.T) {
	p, err := NewPublisher(config.EventBus{Enabled: false}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Fatal("expected a nil publisher when the event bus is disabled")
	}
}

func TestNilPublisherPublishTerminalIsNoOp(t *testing.T) {
	var p *Publisher
	p.PublishTerminal(context.Background(), &store.Job{JobID: "job-1"}) // must not panic
}

func TestNilPublisherCloseIsNoOp(t *testing.T) {
	var p *Publisher
	if err := p.Close(); err != nil {
		t.Fatalf("expected nil-receiver close to be a no-op, got %v", err)
	}
}
