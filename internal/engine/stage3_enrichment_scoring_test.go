package engine

import (
	"encoding/json"
	"testing"

	"github.com/flyingrobots/creator-scout/internal/store"
)

func TestCountGoodFitsOnlyCountsPerfectScores(t *testing.T) {
	profiles := []ScoredProfile{
		{Fit: 100},
		{Fit: 99},
		{Fit: 100},
		{Fit: 0},
	}
	if got := countGoodFits(profiles); got != 2 {
		t.Fatalf("expected 2 good fits, got %d", got)
	}
}

func TestRoundFRoundsHalfAwayFromZero(t *testing.T) {
	cases := map[float64]float64{
		0.4:  0,
		0.5:  1,
		0.6:  1,
		-0.5: -1,
		-0.4: 0,
	}
	for in, want := range cases {
		if got := roundF(in); got != want {
			t.Errorf("roundF(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestBuildProfileTextIncludesBioFollowersAndPosts(t *testing.T) {
	p := NormalizedProfile{
		DisplayName: "Jane",
		Biography:   "makes pottery",
		Followers:   4200,
		PostsData: []Post{
			{RelativeTime: "2d ago", Caption: "new mug"},
		},
	}
	text := buildProfileText(p)
	for _, want := range []string{"Jane", "makes pottery", "4200", "2d ago", "new mug"} {
		if !containsSubstr(text, want) {
			t.Errorf("expected profile text to contain %q, got %q", want, text)
		}
	}
}

func containsSubstr(haystack, needle string) bool {
	return len(needle) == 0 || indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func TestMergeScoredBatchesConcatenatesAllChunks(t *testing.T) {
	chunk1, _ := json.Marshal([]ScoredProfile{{Fit: 90}})
	chunk2, _ := json.Marshal([]ScoredProfile{{Fit: 50}, {Fit: 10}})

	batches := []store.Artifact{
		{Kind: "batch:0", Data: chunk1},
		{Kind: "batch:1", Data: chunk2},
	}

	all, err := mergeScoredBatches(batches)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 merged profiles, got %d", len(all))
	}
}

func TestMergeScoredBatchesPropagatesUnmarshalErrors(t *testing.T) {
	batches := []store.Artifact{
		{Kind: "batch:0", Data: json.RawMessage(`not json`)},
	}
	if _, err := mergeScoredBatches(batches); err == nil {
		t.Fatal("expected an error for malformed batch data")
	}
}
