package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// Post is one truncated, relative-time-formatted post entry.
type Post struct {
	PostedAt     time.Time `json:"posted_at"`
	RelativeTime string    `json:"relative_time"`
	Caption      string    `json:"caption,omitempty"`
}

// NormalizedProfile is the unified shape every raw provider payload is
// mapped into before scoring.
type NormalizedProfile struct {
	Platform    string `json:"platform"`
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
	Followers   int    `json:"followers"`
	Biography   string `json:"biography"`
	ProfileURL  string `json:"profile_url"`
	PostsData   []Post `json:"posts_data"`
}

type rawShape struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
	Followers   int    `json:"followers"`
	Biography   string `json:"biography"`
	PostsData   []struct {
		PostedAt string `json:"posted_at"`
		Caption  string `json:"caption"`
	} `json:"posts_data"`
}

const maxPostsPerProfile = 8

// Normalize maps a raw enrichment payload into the unified profile
// shape, truncating to the most recent 8 posts with relative-time
// formatted dates.
func Normalize(platform, profileURL string, raw json.RawMessage) (NormalizedProfile, error) {
	var rs rawShape
	if err := json.Unmarshal(raw, &rs); err != nil {
		return NormalizedProfile{}, fmt.Errorf("unmarshal raw profile: %w", err)
	}

	posts := make([]Post, 0, len(rs.PostsData))
	for _, p := range rs.PostsData {
		t, err := time.Parse(time.RFC3339, p.PostedAt)
		if err != nil {
			continue
		}
		posts = append(posts, Post{PostedAt: t, Caption: p.Caption})
	}
	// Sort by most-recent first, then truncate.
	for i := 1; i < len(posts); i++ {
		for j := i; j > 0 && posts[j].PostedAt.After(posts[j-1].PostedAt); j-- {
			posts[j], posts[j-1] = posts[j-1], posts[j]
		}
	}
	if len(posts) > maxPostsPerProfile {
		posts = posts[:maxPostsPerProfile]
	}
	now := time.Now()
	for i := range posts {
		posts[i].RelativeTime = relativeTime(posts[i].PostedAt, now)
	}

	return NormalizedProfile{
		Platform:    platform,
		AccountID:   rs.AccountID,
		DisplayName: rs.DisplayName,
		Followers:   rs.Followers,
		Biography:   rs.Biography,
		ProfileURL:  profileURL,
		PostsData:   posts,
	}, nil
}

func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dmo ago", int(d.Hours()/24/30))
	}
}

// InactivityWindow reports whether none of a profile's posts fall
// within the given window, triggering the inactive-profile short
// circuit.
func InactivityWindow(posts []Post, window time.Duration, now time.Time) bool {
	cutoff := now.Add(-window)
	for _, p := range posts {
		if p.PostedAt.After(cutoff) {
			return false
		}
	}
	return true
}
