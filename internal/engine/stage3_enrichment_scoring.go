package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flyingrobots/creator-scout/internal/apierr"
	"github.com/flyingrobots/creator-scout/internal/providers/enrichment"
	"github.com/flyingrobots/creator-scout/internal/providers/scoring"
	"github.com/flyingrobots/creator-scout/internal/store"
)

const maxInFlightSnapshots = 5

type inFlightSnapshot struct {
	batch       urlBatch
	snapshotID  string
	triggeredAt time.Time
}

func (e *Engine) runStage34(ctx context.Context, rc *runContext) error {
	jobID := rc.job.JobID
	done := rc.waterfall.Track("enrichment_scoring")
	defer done()

	if err := e.store.SetStage(ctx, jobID, store.StageEnrichment, 50); err != nil {
		return fmt.Errorf("set stage enrichment: %w", err)
	}

	plan, err := e.buildPlan(ctx, rc)
	if err != nil {
		return apierr.Fatal("plan construction failed", err)
	}

	target := targetGood(rc.job)
	if target <= 0 {
		target = 1
	}

	// Phase A: cache batches, sequential.
	for _, b := range plan.CacheBatches {
		if cancelled, cerr := e.checkCancelled(ctx, jobID); cerr != nil {
			return fmt.Errorf("check cancelled phase A: %w", cerr)
		} else if cancelled {
			return apierr.New(apierr.KindCancelled, "cancelled during cache phase")
		}
		rawByURL := make(map[string]json.RawMessage, len(b.urls))
		for _, u := range b.urls {
			rawByURL[u] = plan.CacheRaw[u]
		}
		if err := e.processBatch(ctx, rc, b, rawByURL, true); err != nil {
			return err
		}
		if rc.goodFound >= target {
			break
		}
	}

	stageTimeout := e.cfg.StageTimeout
	if stageTimeout <= 0 {
		stageTimeout = time.Hour
	}
	stageCtx, cancel := context.WithTimeout(ctx, stageTimeout)
	defer cancel()

	// Phase B: fetch batches, only if phase A didn't satisfy the target.
	if rc.goodFound < target && len(plan.FetchBatches) > 0 {
		if err := e.runPhaseB(stageCtx, rc, plan, target); err != nil {
			return err
		}
	}

	return e.finalizeScoring(ctx, rc)
}

func (e *Engine) runPhaseB(ctx context.Context, rc *runContext, plan *Plan, target int) error {
	jobID := rc.job.JobID
	pending := append([]urlBatch(nil), plan.FetchBatches...)
	inFlight := map[string]*inFlightSnapshot{}

	for len(pending) > 0 || len(inFlight) > 0 {
		if cancelled, cerr := e.checkCancelled(ctx, jobID); cerr != nil {
			return fmt.Errorf("check cancelled phase B: %w", cerr)
		} else if cancelled {
			return apierr.New(apierr.KindCancelled, "cancelled during fetch phase")
		}

		// Poll all in-flight snapshots.
		var ready []*inFlightSnapshot
		for snap, info := range inFlight {
			if time.Since(info.triggeredAt) >= e.cfg.PerBatchTimeout {
				e.log.Info("fetch batch timed out", zap.Int("batch_index", info.batch.index))
				rc.batchesFailed++
				delete(inFlight, snap)
				continue
			}
			status, err := e.providers.Enrichment.Progress(ctx, snap)
			if err != nil {
				e.log.Warn("poll snapshot failed", zap.String("snapshot_id", snap), zap.Error(err))
				continue
			}
			switch status {
			case enrichment.SnapshotReady, enrichment.SnapshotCompleted:
				ready = append(ready, info)
				delete(inFlight, snap)
			case enrichment.SnapshotFailed:
				rc.batchesFailed++
				delete(inFlight, snap)
			}
		}

		// Top up in-flight slots before downloading, so trigger latency
		// and download latency overlap.
		for len(inFlight) < maxInFlightSnapshots && len(pending) > 0 && rc.goodFound < target {
			b := pending[0]
			pending = pending[1:]

			datasetID := e.providers.EnrichmentDatasets[b.platform]
			triggerCtx, cancel := context.WithTimeout(ctx, e.cfg.TriggerTimeout)
			snapshotID, err := e.providers.Enrichment.Trigger(triggerCtx, b.platform, datasetID, b.urls)
			cancel()
			if err != nil {
				e.log.Warn("trigger batch failed", zap.Int("batch_index", b.index), zap.Error(err))
				rc.batchesFailed++
				continue
			}
			inFlight[snapshotID] = &inFlightSnapshot{batch: b, snapshotID: snapshotID, triggeredAt: time.Now()}
		}

		// Process ready snapshots strictly sequentially: scoring
		// concurrency is a single global cap.
		for _, info := range ready {
			if rc.goodFound >= target {
				break
			}
			profiles, err := e.providers.Enrichment.Download(ctx, info.snapshotID)
			if err != nil {
				e.log.Warn("download snapshot failed", zap.String("snapshot_id", info.snapshotID), zap.Error(err))
				rc.batchesFailed++
				continue
			}
			rc.enrichmentCalls += len(profiles)
			rawByURL := make(map[string]json.RawMessage, len(profiles))
			for _, p := range profiles {
				rawByURL[p.ProfileURL] = p.Data
			}
			if err := e.processBatch(ctx, rc, info.batch, rawByURL, false); err != nil {
				return err
			}
		}

		if rc.goodFound >= target {
			break
		}
		if len(pending) == 0 && len(inFlight) == 0 {
			break
		}
		sleepInterruptible(ctx, e.cfg.PollInterval)
	}
	return nil
}

// processBatch is the routine shared between Phase A cache batches
// and Phase B ready snapshots.
func (e *Engine) processBatch(ctx context.Context, rc *runContext, b urlBatch, rawByURL map[string]json.RawMessage, fromCache bool) error {
	jobID := rc.job.JobID
	if cancelled, err := e.checkCancelled(ctx, jobID); err != nil {
		return fmt.Errorf("check cancelled in batch: %w", err)
	} else if cancelled {
		return apierr.New(apierr.KindCancelled, "cancelled during batch processing")
	}

	normalized := make([]NormalizedProfile, 0, len(b.urls))
	for _, url := range b.urls {
		raw, ok := rawByURL[url]
		if !ok {
			continue
		}
		np, err := Normalize(b.platform, url, raw)
		if err != nil {
			e.log.Warn("normalize profile failed", zap.String("profile_url", url), zap.Error(err))
			continue
		}
		normalized = append(normalized, np)
	}

	scored := e.scoreBatch(ctx, rc, normalized)
	sort.Slice(scored, func(i, j int) bool { return scored[i].Fit > scored[j].Fit })

	kind := fmt.Sprintf("batch:%d", b.index)
	if err := e.store.UpsertArtifact(ctx, jobID, kind, scored); err != nil {
		return fmt.Errorf("upsert %s: %w", kind, err)
	}
	rc.batchesCompleted++
	rc.goodFound += countGoodFits(scored)

	if err := e.recomputeProgressive(ctx, rc, false); err != nil {
		e.log.Warn("recompute progressive failed", zapErr(err)...)
	}

	// Fetched (non-cache) batches get written back to the profile
	// cache, best-effort.
	if !fromCache {
		go e.cacheWriteback(context.Background(), jobID, b.platform, rawByURL)
	}

	if err := e.store.MergeMeta(ctx, jobID, map[string]any{
		"batches_completed": rc.batchesCompleted,
		"batches_failed":    rc.batchesFailed,
		"good_found":        rc.goodFound,
	}); err != nil {
		e.log.Warn("merge meta after batch failed", zapErr(err)...)
	}
	return nil
}

func (e *Engine) cacheWriteback(ctx context.Context, jobID, platform string, rawByURL map[string]json.RawMessage) {
	for url, raw := range rawByURL {
		if err := e.store.CachePut(ctx, url, platform, raw, 14*24*time.Hour); err != nil {
			e.log.Warn("cache writeback failed", zap.String("job_id", jobID), zap.String("profile_url", url), zap.Error(err))
		}
	}
}

func (e *Engine) scoreBatch(ctx context.Context, rc *runContext, profiles []NormalizedProfile) []ScoredProfile {
	sem := make(chan struct{}, e.cfg.ScoringConcurrency)
	out := make([]ScoredProfile, len(profiles))
	var wg sync.WaitGroup

	now := time.Now()
	for i, p := range profiles {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, p NormalizedProfile) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = e.scoreOne(ctx, rc, p, now)
		}(i, p)
	}
	wg.Wait()
	rc.profilesScored += len(profiles)
	return out
}

func (e *Engine) scoreOne(ctx context.Context, rc *runContext, p NormalizedProfile, now time.Time) ScoredProfile {
	if InactivityWindow(p.PostsData, time.Duration(e.cfg.InactivityWindowDays)*24*time.Hour, now) {
		return ScoredProfile{NormalizedProfile: p, Fit: 0, Rationale: "inactive - no posts in last 60 days"}
	}

	profileText := buildProfileText(p)
	req := scoring.ScoreRequest{
		ProfileText:            profileText,
		BusinessDescription:    rc.job.Params.BusinessDescription,
		StrictLocationMatching: rc.job.Params.StrictLocationMatching,
	}

	var result scoring.ScoreResult
	var err error
	backoffs := []time.Duration{1 * time.Second, 2 * time.Second}
	breaker := e.breakers.For("scoring")
	for attempt := 0; attempt <= len(backoffs); attempt++ {
		if !breaker.Allow() {
			err = fmt.Errorf("scoring circuit open")
			break
		}
		result, err = e.providers.Scoring.Score(ctx, req)
		breaker.Record(err == nil)
		if err == nil {
			break
		}
		if attempt < len(backoffs) {
			sleepInterruptible(ctx, backoffs[attempt])
		}
	}
	if err != nil {
		return ScoredProfile{NormalizedProfile: p, Fit: 0, Rationale: "scoring failed after retries: " + err.Error()}
	}

	fit := int(roundF(float64(result.Score) / 10.0 * 100))
	return ScoredProfile{NormalizedProfile: p, Fit: fit, Rationale: result.Rationale, Summary: result.Summary}
}

func roundF(f float64) float64 {
	if f < 0 {
		return float64(int(f - 0.5))
	}
	return float64(int(f + 0.5))
}

func buildProfileText(p NormalizedProfile) string {
	var sb strings.Builder
	sb.WriteString(p.DisplayName)
	sb.WriteString(". ")
	sb.WriteString(p.Biography)
	sb.WriteString(". Followers: ")
	sb.WriteString(strconv.Itoa(p.Followers))
	for _, post := range p.PostsData {
		sb.WriteString(". Post (")
		sb.WriteString(post.RelativeTime)
		sb.WriteString("): ")
		sb.WriteString(post.Caption)
	}
	return sb.String()
}

// recomputeProgressive merges every batch:* artifact, sorts by fit
// descending, and upserts the top llm_top_n as the `progressive`
// artifact with the given completeness flag.
func (e *Engine) recomputeProgressive(ctx context.Context, rc *runContext, isComplete bool) error {
	jobID := rc.job.JobID
	batches, err := e.store.BatchArtifacts(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load batch artifacts: %w", err)
	}

	all, err := mergeScoredBatches(batches)
	if err != nil {
		return fmt.Errorf("merge batch artifacts: %w", err)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Fit > all[j].Fit })

	llmTopN := rc.job.Params.LLMTopN
	if llmTopN <= 0 {
		llmTopN = rc.job.Params.TopN
	}
	top := all
	if len(top) > llmTopN {
		top = top[:llmTopN]
	}

	return e.store.UpsertArtifact(ctx, jobID, store.ArtifactProgressive, map[string]any{
		"profiles":    top,
		"is_complete": isComplete,
	})
}

func mergeScoredBatches(batches []store.Artifact) ([]ScoredProfile, error) {
	var all []ScoredProfile
	for _, a := range batches {
		var chunk []ScoredProfile
		if err := json.Unmarshal(a.Data, &chunk); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", a.Kind, err)
		}
		all = append(all, chunk...)
	}
	return all, nil
}
