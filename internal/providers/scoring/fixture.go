package scoring

import (
	"context"
	"fmt"
	"strings"
)

// Fixture is a deterministic scorer for tests: it expands a
// description into three canned facets and scores profiles by a
// cheap keyword-overlap heuristic instead of calling a model.
type Fixture struct{}

func NewFixture() *Fixture { return &Fixture{} }

func (f *Fixture) ExpandQuery(_ context.Context, req ExpandRequest) ([]string, error) {
	base := strings.Fields(strings.ToLower(req.BusinessDescription))
	if len(base) == 0 {
		return nil, nil
	}
	head := base[0]
	return []string{head, head + " creator", head + " lifestyle"}, nil
}

func (f *Fixture) Score(_ context.Context, req ScoreRequest) (ScoreResult, error) {
	overlap := 0
	words := strings.Fields(strings.ToLower(req.BusinessDescription))
	lowerText := strings.ToLower(req.ProfileText)
	for _, w := range words {
		if strings.Contains(lowerText, w) {
			overlap++
		}
	}
	score := 1 + overlap
	if score > 10 {
		score = 10
	}
	return ScoreResult{
		Score:     score,
		Rationale: fmt.Sprintf("%d keyword overlaps with description", overlap),
		Summary:   "fixture score based on keyword overlap",
	}, nil
}
