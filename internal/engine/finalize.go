package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/flyingrobots/creator-scout/internal/store"
)

type pipelineStats struct {
	CandidateCount     int     `json:"candidate_count"`
	BatchesCompleted   int     `json:"batches_completed"`
	BatchesFailed      int     `json:"batches_failed"`
	CacheHits          int     `json:"cache_hits"`
	EnrichmentAPICalls int     `json:"api_calls"`
	ProfilesAnalyzed   int     `json:"profiles_analyzed"`
	EnrichmentCostUSD  float64 `json:"enrichment_cost_usd"`
	ScoringCostUSD     float64 `json:"scoring_cost_usd"`
	TotalCostUSD       float64 `json:"total_cost_usd"`
}

func (e *Engine) finalizeScoring(ctx context.Context, rc *runContext) error {
	jobID := rc.job.JobID

	batches, err := e.store.BatchArtifacts(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load batch artifacts for finalize: %w", err)
	}
	all, err := mergeScoredBatches(batches)
	if err != nil {
		return fmt.Errorf("merge batches for finalize: %w", err)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Fit > all[j].Fit })

	llmTopN := rc.job.Params.LLMTopN
	if llmTopN <= 0 {
		llmTopN = rc.job.Params.TopN
	}
	var final, remaining []ScoredProfile
	if len(all) > llmTopN {
		final, remaining = all[:llmTopN], all[llmTopN:]
	} else {
		final = all
	}

	stats := pipelineStats{
		CandidateCount:     len(rc.candidates),
		BatchesCompleted:   rc.batchesCompleted,
		BatchesFailed:      rc.batchesFailed,
		CacheHits:          rc.cacheHits,
		EnrichmentAPICalls: rc.enrichmentCalls,
		ProfilesAnalyzed:   rc.profilesScored,
		EnrichmentCostUSD:  float64(rc.enrichmentCalls) * e.cfg.EnrichmentCostPerCall,
		ScoringCostUSD:     float64(rc.profilesScored) * e.cfg.ScoringCostPerProfile,
	}
	stats.TotalCostUSD = stats.EnrichmentCostUSD + stats.ScoringCostUSD

	if err := e.store.UpsertArtifact(ctx, jobID, store.ArtifactFinal, map[string]any{
		"profiles":       final,
		"pipeline_stats": stats,
	}); err != nil {
		return fmt.Errorf("upsert final artifact: %w", err)
	}
	if err := e.store.UpsertArtifact(ctx, jobID, store.ArtifactRemaining, remaining); err != nil {
		return fmt.Errorf("upsert remaining artifact: %w", err)
	}
	if err := e.recomputeProgressive(ctx, rc, true); err != nil {
		return fmt.Errorf("finalize progressive: %w", err)
	}

	if err := e.store.RecordExternalCall(ctx, jobID, rc.job.APIKeyID, "enrichment", "batch_summary",
		0, "ok", stats.EnrichmentCostUSD, map[string]any{"api_calls": rc.enrichmentCalls}); err != nil {
		e.log.Warn("record enrichment ledger entry failed", zapErr(err)...)
	}
	if err := e.store.RecordExternalCall(ctx, jobID, rc.job.APIKeyID, "scoring", "batch_summary",
		0, "ok", stats.ScoringCostUSD, map[string]any{"profiles_analyzed": rc.profilesScored}); err != nil {
		e.log.Warn("record scoring ledger entry failed", zapErr(err)...)
	}

	if err := e.store.SetStage(ctx, jobID, store.StageScoring, 100); err != nil {
		return fmt.Errorf("set final stage: %w", err)
	}
	return nil
}
