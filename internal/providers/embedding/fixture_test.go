package embedding

import (
	"context"
	"testing"
)

func TestFixtureEmbedIsDeterministic(t *testing.T) {
	f := NewFixture(8)
	ctx := context.Background()

	a, err := f.Embed(ctx, []string{"creator marketing"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.Embed(ctx, []string{"creator marketing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 1 || len(b) != 1 || len(a[0]) != 8 {
		t.Fatalf("unexpected shape: %v, %v", a, b)
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("expected identical embeddings for identical text, diverged at %d: %v vs %v", i, a[0], b[0])
		}
	}
}

func TestFixtureEmbedDistinguishesDifferentText(t *testing.T) {
	f := NewFixture(8)
	out, err := f.Embed(context.Background(), []string{"pottery", "skincare"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(out))
	}
	same := true
	for i := range out[0] {
		if out[0][i] != out[1][i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected distinct inputs to produce distinct vectors")
	}
}

func TestNewFixtureDefaultsDimsWhenNonPositive(t *testing.T) {
	f := NewFixture(0)
	if f.Dims != 8 {
		t.Fatalf("expected default dims 8, got %d", f.Dims)
	}
}
