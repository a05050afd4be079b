package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flyingrobots/creator-scout/internal/store"
)

const batchSize = 20

// urlBatch is one group of same-platform profile URLs, sized by
// batchSize, destined either for the cache phase or the fetch phase.
type urlBatch struct {
	index    int
	platform string
	urls     []string
}

// Plan is computed once, up front, so total_batches is stable for
// progress reporting even as batches complete out of order.
type Plan struct {
	CacheBatches []urlBatch
	FetchBatches []urlBatch
	TotalBatches int
	CacheRaw     map[string]json.RawMessage
}

// buildPlan bulk-looks-up the profile cache for every candidate URL,
// classifies each as cache-hit or uncached, groups by platform, and
// chunks into fixed-size batches.
func (e *Engine) buildPlan(ctx context.Context, rc *runContext) (*Plan, error) {
	urls := make([]string, len(rc.candidates))
	for i, c := range rc.candidates {
		urls[i] = c.ProfileURL
	}

	hits, err := e.store.CacheLookup(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}

	cacheByPlatform := map[string][]string{}
	fetchByPlatform := map[string][]string{}
	for _, c := range rc.candidates {
		if _, ok := hits[c.ProfileURL]; ok {
			cacheByPlatform[c.Platform] = append(cacheByPlatform[c.Platform], c.ProfileURL)
		} else {
			fetchByPlatform[c.Platform] = append(fetchByPlatform[c.Platform], c.ProfileURL)
		}
	}
	rc.cacheHits = len(hits)

	cacheRaw := make(map[string]json.RawMessage, len(hits))
	for url, entry := range hits {
		cacheRaw[url] = entry.RawData
	}

	plan := &Plan{CacheRaw: cacheRaw}
	idx := 0
	for platform, urls := range cacheByPlatform {
		for _, chunk := range chunk(urls, batchSize) {
			plan.CacheBatches = append(plan.CacheBatches, urlBatch{index: idx, platform: platform, urls: chunk})
			idx++
		}
	}
	for platform, urls := range fetchByPlatform {
		for _, chunk := range chunk(urls, batchSize) {
			plan.FetchBatches = append(plan.FetchBatches, urlBatch{index: idx, platform: platform, urls: chunk})
			idx++
		}
	}
	plan.TotalBatches = len(plan.CacheBatches) + len(plan.FetchBatches)

	if err := e.store.MergeMeta(ctx, rc.job.JobID, map[string]any{
		"total_batches": plan.TotalBatches,
		"cache_batches": len(plan.CacheBatches),
		"fetch_batches": len(plan.FetchBatches),
	}); err != nil {
		return nil, fmt.Errorf("merge meta with plan: %w", err)
	}
	return plan, nil
}

func chunk(items []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

func targetGood(job *store.Job) int {
	if job.Params.LLMTopN > 0 {
		return job.Params.LLMTopN
	}
	return job.Params.TopN
}
