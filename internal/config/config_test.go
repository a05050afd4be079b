package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadWithMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Worker.Concurrency < 1 {
		t.Fatalf("expected default worker concurrency >= 1, got %d", cfg.Worker.Concurrency)
	}
	if cfg.Providers.UseFixtures != true {
		t.Fatal("expected fixtures enabled by default")
	}
	if cfg.Providers.EmbeddingDims != 256 {
		t.Fatalf("expected default embedding dims 256, got %d", cfg.Providers.EmbeddingDims)
	}
}

func TestLoadReadsYAMLFileOverridingDefaults(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	content := []byte("redis:\n  addr: \"redis.internal:6380\"\nproviders:\n  use_fixtures: false\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Fatalf("expected overridden redis addr, got %q", cfg.Redis.Addr)
	}
	if cfg.Providers.UseFixtures {
		t.Fatal("expected use_fixtures overridden to false")
	}
}

func TestLoadRespectsEnvironmentOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "env-redis:6379")
	cfg, err := Load("nonexistent.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Redis.Addr != "env-redis:6379" {
		t.Fatalf("expected env override to win, got %q", cfg.Redis.Addr)
	}
}

func TestValidateRejectsSubMinimumConcurrency(t *testing.T) {
	cfg := defaultConfig()
	cfg.Worker.Concurrency = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error for worker.concurrency < 1")
	}
}

func TestValidateRejectsHeartbeatTTLBelowFiveSeconds(t *testing.T) {
	cfg := defaultConfig()
	cfg.Queue.HeartbeatTTL = time.Second
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error for queue.heartbeat_ttl < 5s")
	}
}

func TestValidateRejectsBRPopTimeoutAboveHalfHeartbeat(t *testing.T) {
	cfg := defaultConfig()
	cfg.Queue.HeartbeatTTL = 10 * time.Second
	cfg.Queue.BRPopTimeout = 8 * time.Second
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error for brpop_timeout > heartbeat_ttl/2")
	}
}

func TestValidateRejectsMetricsPortOutOfRange(t *testing.T) {
	cfg := defaultConfig()
	cfg.Observability.MetricsPort = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error for an out-of-range metrics port")
	}
}

func TestValidateAcceptsDefaultConfig(t *testing.T) {
	if err := Validate(defaultConfig()); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}
