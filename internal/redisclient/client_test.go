package redisclient

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/flyingrobots/creator-scout/internal/config"
)

func TestNewConnectsAndPingsSuccessfully(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := New(context.Background(), config.Redis{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("expected a successful connection, got %v", err)
	}
	defer client.Close()

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("expected ping to succeed, got %v", err)
	}
}

func TestNewReturnsErrorWhenRedisIsUnreachable(t *testing.T) {
	_, err := New(context.Background(), config.Redis{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Fatal("expected an error connecting to an unreachable address")
	}
}

func TestNewAppliesPoolSizeMultiplier(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := New(context.Background(), config.Redis{Addr: mr.Addr(), PoolSizeMultiplier: 3})
	if err != nil {
		t.Fatalf("expected a successful connection, got %v", err)
	}
	defer client.Close()

	if got := client.Options().PoolSize; got != 30 {
		t.Fatalf("expected pool size 30, got %d", got)
	}
}
