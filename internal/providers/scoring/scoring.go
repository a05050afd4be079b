// Package scoring defines the capability interface for the language
// model used both to expand a business description into search
// keywords (stage 1) and to score individual creator profiles against
// that description (stage 3/4), plus an HTTP client and a fixture
// implementation for tests.
package scoring

import "context"

// ExpandRequest asks for a small ordered list of keyword queries
// covering broad, specific, and adjacent facets of the description.
type ExpandRequest struct {
	BusinessDescription string
}

// ScoreRequest carries everything the scoring prompt is deterministic
// over: profile text, the original description, and the strict
// location-matching flag.
type ScoreRequest struct {
	ProfileText            string
	BusinessDescription     string
	StrictLocationMatching bool
}

type ScoreResult struct {
	Score     int    `json:"score"` // 1..10
	Rationale string `json:"rationale"`
	Summary   string `json:"summary"`
}

type Client interface {
	ExpandQuery(ctx context.Context, req ExpandRequest) ([]string, error)
	Score(ctx context.Context, req ScoreRequest) (ScoreResult, error)
}
