package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/flyingrobots/creator-scout/internal/apierr"
	"github.com/flyingrobots/creator-scout/internal/providers/scoring"
	"github.com/flyingrobots/creator-scout/internal/store"
)

func (e *Engine) runStage1(ctx context.Context, rc *runContext) error {
	jobID := rc.job.JobID
	done := rc.waterfall.Track("query_expansion")
	defer done()

	if err := e.store.SetStage(ctx, jobID, store.StageQueryExpansion, 0); err != nil {
		return fmt.Errorf("set stage query_expansion: %w", err)
	}

	breaker := e.breakers.For("scoring")
	if !breaker.Allow() {
		return apierr.Fatal("scoring provider circuit open", nil)
	}

	start := time.Now()
	keywords, err := e.providers.Scoring.ExpandQuery(ctx, scoring.ExpandRequest{
		BusinessDescription: rc.job.Params.BusinessDescription,
	})
	breaker.Record(err == nil)
	if err != nil {
		return apierr.Fatal("query expansion call failed", err)
	}

	if err := e.store.RecordExternalCall(ctx, jobID, rc.job.APIKeyID, "scoring", "expand_query",
		time.Since(start), "ok", 0, nil); err != nil {
		e.log.Warn("record external call failed", zapErr(err)...)
	}

	rc.keywords = keywords
	if err := e.store.MergeMeta(ctx, jobID, map[string]any{"query_count": len(keywords)}); err != nil {
		return fmt.Errorf("merge meta after stage1: %w", err)
	}
	if err := e.store.SetStage(ctx, jobID, store.StageQueryExpansion, 10); err != nil {
		return fmt.Errorf("set stage progress: %w", err)
	}
	if _, err := e.store.AppendEvent(ctx, jobID, store.LevelInfo, "stage_complete", map[string]any{
		"stage": store.StageQueryExpansion, "query_count": len(keywords),
	}); err != nil {
		e.log.Warn("append stage1 event failed", zapErr(err)...)
	}
	return nil
}
