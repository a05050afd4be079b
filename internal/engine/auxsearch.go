package engine

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/flyingrobots/creator-scout/internal/apierr"
	"github.com/flyingrobots/creator-scout/internal/breaker"
	"github.com/flyingrobots/creator-scout/internal/providers/vectorindex"
)

// AuxSearchRequest mirrors the filter fields stage 2 applies, for the
// synchronous auxiliary search endpoint.
type AuxSearchRequest struct {
	Keyword            string
	Platform           string
	MinFollowers       int
	MaxFollowers       int
	ExcludeProfileURLs []string
	Limit              int
}

// AuxSearch runs a single hybrid search directly against the vector
// index, applying the same dedupe/exclusion filtering stage 2 uses,
// without touching job state. Used by the admission service's
// auxiliary search surface, which has no job to attribute cost to.
func AuxSearch(ctx context.Context, vi vectorindex.Client, breakers *breaker.Registry, log *zap.Logger, req AuxSearchRequest) ([]vectorindex.Candidate, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}

	breakerObj := breakers.For("vectorindex")
	if !breakerObj.Allow() {
		return nil, apierr.Fatal("vector index circuit open", nil)
	}

	cands, err := vi.Search(ctx, vectorindex.SearchRequest{
		Keyword:      req.Keyword,
		Alpha:        0.5,
		Platform:     req.Platform,
		MinFollowers: req.MinFollowers,
		MaxFollowers: req.MaxFollowers,
		ExcludeCount: len(req.ExcludeProfileURLs),
		Limit:        limit,
		Weights:      vectorindex.DefaultVectorWeights(),
	})
	breakerObj.Record(err == nil)
	if err != nil {
		log.Warn("aux search failed", zap.String("keyword", req.Keyword), zap.Error(err))
		return nil, apierr.Upstream(apierr.SubtypeTransport, "vector index search failed", err)
	}

	filtered := filterExclusions(cands, req.ExcludeProfileURLs, limit)
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Score > filtered[j].Score })
	return filtered, nil
}
