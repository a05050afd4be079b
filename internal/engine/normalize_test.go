package engine

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNormalizeOrdersPostsMostRecentFirst(t *testing.T) {
	raw := json.RawMessage(`{
		"account_id": "acct-1",
		"display_name": "Jane",
		"followers": 1200,
		"biography": "creator",
		"posts_data": [
			{"posted_at": "2024-01-01T00:00:00Z", "caption": "oldest"},
			{"posted_at": "2024-06-01T00:00:00Z", "caption": "newest"},
			{"posted_at": "2024-03-01T00:00:00Z", "caption": "middle"}
		]
	}`)

	p, err := Normalize("instagram", "https://instagram.com/jane", raw)
	if err != nil {
		t.Fatal(err)
	}
	if p.AccountID != "acct-1" || p.Followers != 1200 {
		t.Fatalf("unexpected profile fields: %+v", p)
	}
	if len(p.PostsData) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(p.PostsData))
	}
	if p.PostsData[0].Caption != "newest" || p.PostsData[2].Caption != "oldest" {
		t.Fatalf("expected posts ordered most-recent first, got %+v", p.PostsData)
	}
}

func TestNormalizeTruncatesToMaxPostsPerProfile(t *testing.T) {
	postsJSON := `[`
	for i := 0; i < maxPostsPerProfile+5; i++ {
		if i > 0 {
			postsJSON += ","
		}
		postsJSON += `{"posted_at": "2024-0` + string(rune('1'+i%9)) + `-01T00:00:00Z"}`
	}
	postsJSON += `]`
	raw := json.RawMessage(`{"account_id": "acct-1", "posts_data": ` + postsJSON + `}`)

	p, err := Normalize("tiktok", "https://tiktok.com/@jane", raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.PostsData) != maxPostsPerProfile {
		t.Fatalf("expected truncation to %d posts, got %d", maxPostsPerProfile, len(p.PostsData))
	}
}

func TestNormalizeSkipsUnparseablePostDates(t *testing.T) {
	raw := json.RawMessage(`{"account_id": "acct-1", "posts_data": [{"posted_at": "not-a-date"}]}`)
	p, err := Normalize("instagram", "https://instagram.com/jane", raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.PostsData) != 0 {
		t.Fatalf("expected unparseable post to be dropped, got %d posts", len(p.PostsData))
	}
}

func TestRelativeTimeBuckets(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		delta time.Duration
		want  string
	}{
		{30 * time.Minute, "30m ago"},
		{5 * time.Hour, "5h ago"},
		{3 * 24 * time.Hour, "3d ago"},
		{60 * 24 * time.Hour, "2mo ago"},
	}
	for _, c := range cases {
		got := relativeTime(now.Add(-c.delta), now)
		if got != c.want {
			t.Errorf("relativeTime(%v) = %q, want %q", c.delta, got, c.want)
		}
	}
}

func TestInactivityWindowTrueWhenAllPostsOlderThanWindow(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	posts := []Post{
		{PostedAt: now.Add(-60 * 24 * time.Hour)},
		{PostedAt: now.Add(-90 * 24 * time.Hour)},
	}
	if !InactivityWindow(posts, 30*24*time.Hour, now) {
		t.Fatal("expected inactive: all posts older than window")
	}
}

func TestInactivityWindowFalseWhenARecentPostExists(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	posts := []Post{
		{PostedAt: now.Add(-60 * 24 * time.Hour)},
		{PostedAt: now.Add(-time.Hour)},
	}
	if InactivityWindow(posts, 30*24*time.Hour, now) {
		t.Fatal("expected active: one post within window")
	}
}
