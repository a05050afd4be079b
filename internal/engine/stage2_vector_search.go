package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flyingrobots/creator-scout/internal/apierr"
	"github.com/flyingrobots/creator-scout/internal/providers/embedding"
	"github.com/flyingrobots/creator-scout/internal/providers/vectorindex"
	"github.com/flyingrobots/creator-scout/internal/store"
)

// hybridAlphas is the fixed pair of dense/lexical mix weights each
// keyword is searched with, per the documented Cartesian product of
// {keyword x alpha}.
var hybridAlphas = []float64{0.25, 0.75}

type candidateEntry struct {
	vectorindex.Candidate
}

func (e *Engine) runStage2(ctx context.Context, rc *runContext) error {
	jobID := rc.job.JobID
	done := rc.waterfall.Track("vector_search")
	defer done()

	if err := e.store.SetStage(ctx, jobID, store.StageVectorSearch, 10); err != nil {
		return fmt.Errorf("set stage vector_search: %w", err)
	}

	keywords := dedupeStrings(rc.keywords)
	if len(keywords) == 0 {
		// No keywords to search: finalize as completed with an empty
		// candidate set rather than erroring.
		rc.candidates = nil
		return e.store.UpsertArtifact(ctx, jobID, store.ArtifactCandidates, []vectorindex.Candidate{})
	}

	vectors, err := e.embedWithFallback(ctx, rc, keywords)
	if err != nil {
		return err
	}
	_ = vectors // embeddings inform provider-side ranking; the index API takes raw keywords here.

	if err := e.store.SetStage(ctx, jobID, store.StageVectorSearch, 20); err != nil {
		return fmt.Errorf("set stage progress 20: %w", err)
	}

	weaviateTopN := rc.job.Params.WeaviateTopN
	if weaviateTopN == 0 {
		weaviateTopN = 100
	}
	perSearchLimit := int(math.Max(500, math.Ceil(float64(weaviateTopN)*1.25/math.Max(1, float64(len(keywords))))))

	type searchJob struct {
		keyword string
		alpha   float64
	}
	var jobs []searchJob
	for _, kw := range keywords {
		for _, a := range hybridAlphas {
			jobs = append(jobs, searchJob{keyword: kw, alpha: a})
		}
	}

	sem := make(chan struct{}, e.cfg.MaxInFlightSearches)
	results := make(chan []vectorindex.Candidate, len(jobs))
	errs := make(chan error, len(jobs))
	var wg sync.WaitGroup

	searchCtx, cancel := context.WithTimeout(ctx, e.cfg.VectorSearchTimeout)
	defer cancel()

	for _, sj := range jobs {
		if cancelled, cerr := e.checkCancelled(ctx, jobID); cerr != nil {
			return fmt.Errorf("check cancelled before search: %w", cerr)
		} else if cancelled {
			cancel()
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(sj searchJob) {
			defer wg.Done()
			defer func() { <-sem }()

			req := vectorindex.SearchRequest{
				Collection:   e.providers.VectorCollection,
				Keyword:      sj.keyword,
				Alpha:        sj.alpha,
				Platform:     rc.job.Params.Platform,
				MinFollowers: rc.job.Params.MinFollowers,
				MaxFollowers: rc.job.Params.MaxFollowers,
				ExcludeCount: len(rc.job.Params.ExcludeProfileURLs),
				Limit:        perSearchLimit,
				Weights:      vectorindex.DefaultVectorWeights(),
			}
			breaker := e.breakers.For("vectorindex")
			if !breaker.Allow() {
				errs <- apierr.Fatal("vector index circuit open", nil)
				return
			}
			start := time.Now()
			cands, err := e.providers.VectorIndex.Search(searchCtx, req)
			breaker.Record(err == nil)
			_ = e.store.RecordExternalCall(ctx, jobID, rc.job.APIKeyID, "vectorindex", "search",
				time.Since(start), statusOf(err), 0, map[string]any{"keyword": sj.keyword, "alpha": sj.alpha})
			if err != nil {
				errs <- fmt.Errorf("search %q alpha %.2f: %w", sj.keyword, sj.alpha, err)
				return
			}
			results <- filterExclusions(cands, rc.job.Params.ExcludeProfileURLs, perSearchLimit)
		}(sj)
	}

	wg.Wait()
	close(results)
	close(errs)

	var firstErr error
	for err := range errs {
		if firstErr == nil {
			firstErr = err
		}
	}
	var all []vectorindex.Candidate
	for r := range results {
		all = append(all, r...)
	}
	if len(all) == 0 && firstErr != nil {
		return apierr.Fatal("all vector searches failed", firstErr)
	}

	merged := mergeDedupeByURL(all)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > weaviateTopN {
		merged = merged[:weaviateTopN]
	}

	rc.candidates = make([]candidateEntry, len(merged))
	for i, c := range merged {
		rc.candidates[i] = candidateEntry{Candidate: c}
	}

	if err := e.store.UpsertArtifact(ctx, jobID, store.ArtifactCandidates, merged); err != nil {
		return fmt.Errorf("upsert candidates artifact: %w", err)
	}
	if err := e.store.SetStage(ctx, jobID, store.StageVectorSearch, 50); err != nil {
		return fmt.Errorf("set stage progress 50: %w", err)
	}
	if _, err := e.store.AppendEvent(ctx, jobID, store.LevelInfo, "stage_complete", map[string]any{
		"stage": store.StageVectorSearch, "candidate_count": len(merged),
	}); err != nil {
		e.log.Warn("append stage2 event failed", zapErr(err)...)
	}
	return nil
}

func (e *Engine) embedWithFallback(ctx context.Context, rc *runContext, keywords []string) ([][]float32, error) {
	jobID := rc.job.JobID
	breaker := e.breakers.For("embedding")
	if breaker.Allow() {
		start := time.Now()
		vecs, err := e.providers.EmbeddingPrimary.Embed(ctx, keywords)
		breaker.Record(err == nil)
		_ = e.store.RecordExternalCall(ctx, jobID, rc.job.APIKeyID, "embedding", "embed",
			time.Since(start), statusOf(err), 0, nil)
		if err == nil {
			return vecs, nil
		}
		if _, isPayment := err.(*embedding.PaymentRequiredError); !isPayment && e.providers.EmbeddingSecondary == nil {
			return nil, apierr.Fatal("embedding call failed", err)
		}
	}

	if e.providers.EmbeddingSecondary == nil {
		return nil, apierr.Fatal("embedding provider unavailable and no secondary configured", nil)
	}
	start := time.Now()
	vecs, err := e.providers.EmbeddingSecondary.Embed(ctx, keywords)
	_ = e.store.RecordExternalCall(ctx, jobID, rc.job.APIKeyID, "embedding_secondary", "embed",
		time.Since(start), statusOf(err), 0, nil)
	if err != nil {
		return nil, apierr.Fatal("secondary embedding call failed", err)
	}
	return vecs, nil
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func normalizeURL(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	u = strings.TrimSuffix(u, "/")
	return u
}

func filterExclusions(cands []vectorindex.Candidate, exclude []string, limit int) []vectorindex.Candidate {
	if len(exclude) == 0 {
		if len(cands) > limit {
			return cands[:limit]
		}
		return cands
	}
	excluded := make(map[string]struct{}, len(exclude))
	for _, u := range exclude {
		excluded[normalizeURL(u)] = struct{}{}
	}
	out := make([]vectorindex.Candidate, 0, len(cands))
	for _, c := range cands {
		if _, ok := excluded[normalizeURL(c.ProfileURL)]; ok {
			continue
		}
		out = append(out, c)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// mergeDedupeByURL keeps the highest-scoring entry per normalized
// profile URL, satisfying the no-duplicate-URL invariant.
func mergeDedupeByURL(all []vectorindex.Candidate) []vectorindex.Candidate {
	best := make(map[string]vectorindex.Candidate, len(all))
	for _, c := range all {
		key := normalizeURL(c.ProfileURL)
		if existing, ok := best[key]; !ok || c.Score > existing.Score {
			best[key] = c
		}
	}
	out := make([]vectorindex.Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	return out
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
