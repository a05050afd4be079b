package vectorindex

import (
	"context"
	"fmt"
)

// Fixture returns deterministic synthetic candidates derived from the
// keyword, for use in tests that exercise the merge/dedup logic
// without a live vector index.
type Fixture struct {
	ProfilesPerKeyword int
}

func NewFixture(profilesPerKeyword int) *Fixture {
	if profilesPerKeyword <= 0 {
		profilesPerKeyword = 5
	}
	return &Fixture{ProfilesPerKeyword: profilesPerKeyword}
}

func (f *Fixture) Search(_ context.Context, req SearchRequest) ([]Candidate, error) {
	n := f.ProfilesPerKeyword
	if req.Limit > 0 && req.Limit < n {
		n = req.Limit
	}
	out := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		url := fmt.Sprintf("https://instagram.com/%s_creator_%d", req.Keyword, i)
		out = append(out, Candidate{
			ID:          fmt.Sprintf("%s-%d", req.Keyword, i),
			Score:       1.0 - float64(i)*0.01,
			Distance:    float64(i) * 0.01,
			ProfileURL:  url,
			Platform:    req.Platform,
			DisplayName: fmt.Sprintf("%s Creator %d", req.Keyword, i),
			Biography:   fmt.Sprintf("A creator focused on %s", req.Keyword),
			Followers:   10000 + i*500,
		})
	}
	return out, nil
}
