// Package vectorindex defines the capability interface for the hybrid
// dense/lexical profile search backing stage 2 of the pipeline, plus an
// HTTP client and a fixture implementation for tests.
package vectorindex

import "context"

// VectorWeights mixes the three target vectors (profile, hashtag,
// post) in a single hybrid search.
type VectorWeights struct {
	Profile float64
	Hashtag float64
	Post    float64
}

// DefaultVectorWeights matches the documented 2.5:1.5:1.0 ratio.
func DefaultVectorWeights() VectorWeights {
	return VectorWeights{Profile: 2.5, Hashtag: 1.5, Post: 1.0}
}

type SearchRequest struct {
	Collection       string
	Keyword          string
	Alpha            float64
	Platform         string
	MinFollowers     int
	MaxFollowers     int
	ExcludeCount     int
	Limit            int
	Weights          VectorWeights
}

type Candidate struct {
	ID          string  `json:"id"`
	Score       float64 `json:"score"`
	Distance    float64 `json:"distance"`
	ProfileURL  string  `json:"profile_url"`
	Platform    string  `json:"platform"`
	DisplayName string  `json:"display_name"`
	Biography   string  `json:"biography"`
	Followers   int     `json:"followers"`
}

// Client performs one hybrid search against the vector index.
type Client interface {
	Search(ctx context.Context, req SearchRequest) ([]Candidate, error)
}
