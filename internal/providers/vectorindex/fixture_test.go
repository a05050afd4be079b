package vectorindex

import (
	"context"
	"testing"
)

func TestFixtureSearchRespectsLimit(t *testing.T) {
	f := NewFixture(10)
	out, err := f.Search(context.Background(), SearchRequest{Keyword: "pottery", Platform: "instagram", Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 candidates honoring the lower limit, got %d", len(out))
	}
	for _, c := range out {
		if c.Platform != "instagram" {
			t.Errorf("expected platform propagated to candidates, got %q", c.Platform)
		}
	}
}

func TestFixtureSearchDefaultsProfilesPerKeyword(t *testing.T) {
	f := NewFixture(0)
	if f.ProfilesPerKeyword != 5 {
		t.Fatalf("expected default of 5, got %d", f.ProfilesPerKeyword)
	}
	out, err := f.Search(context.Background(), SearchRequest{Keyword: "pottery"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(out))
	}
}

func TestFixtureSearchScoresDescendByIndex(t *testing.T) {
	f := NewFixture(5)
	out, err := f.Search(context.Background(), SearchRequest{Keyword: "pottery"})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(out); i++ {
		if out[i].Score >= out[i-1].Score {
			t.Fatalf("expected strictly decreasing scores, got %v", out)
		}
	}
}
