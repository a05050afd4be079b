package engine

import (
	"testing"

	"github.com/flyingrobots/creator-scout/internal/store"
)

func TestChunkSplitsIntoFixedSizeGroups(t *testing.T) {
	items := make([]string, 45)
	for i := range items {
		items[i] = "x"
	}
	got := chunk(items, 20)
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	if len(got[0]) != 20 || len(got[1]) != 20 || len(got[2]) != 5 {
		t.Fatalf("unexpected chunk sizes: %d, %d, %d", len(got[0]), len(got[1]), len(got[2]))
	}
}

func TestChunkEmptyInputReturnsNoChunks(t *testing.T) {
	if got := chunk(nil, 20); len(got) != 0 {
		t.Fatalf("expected no chunks for empty input, got %d", len(got))
	}
}

func TestTargetGoodPrefersLLMTopNOverTopN(t *testing.T) {
	job := &store.Job{Params: store.Params{TopN: 10, LLMTopN: 3}}
	if got := targetGood(job); got != 3 {
		t.Fatalf("expected LLMTopN to take precedence, got %d", got)
	}
}

func TestTargetGoodFallsBackToTopNWhenLLMTopNUnset(t *testing.T) {
	job := &store.Job{Params: store.Params{TopN: 10}}
	if got := targetGood(job); got != 10 {
		t.Fatalf("expected TopN fallback, got %d", got)
	}
}
