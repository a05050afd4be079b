package admission

import (
	"testing"
	"time"

	"github.com/flyingrobots/creator-scout/internal/store"
)

func TestNewJobViewFormatsTimestampsOnlyWhenSet(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	j := &store.Job{
		JobID:     "job-1",
		Status:    store.JobRunning,
		Progress:  42,
		CreatedAt: created,
	}

	v := newJobView(j)
	if v.JobID != "job-1" || v.Progress != 42 {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.CreatedAt != created.Format(rfc3339) {
		t.Fatalf("CreatedAt = %q, want %q", v.CreatedAt, created.Format(rfc3339))
	}
	if v.StartedAt != nil {
		t.Fatal("expected StartedAt to stay nil when the job hasn't started")
	}
	if v.FinishedAt != nil {
		t.Fatal("expected FinishedAt to stay nil when the job hasn't finished")
	}
}

func TestNewJobViewPopulatesStartedAndFinishedWhenPresent(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC)
	finished := time.Date(2026, 1, 2, 3, 10, 0, 0, time.UTC)
	j := &store.Job{
		JobID:      "job-1",
		Status:     store.JobCompleted,
		StartedAt:  &started,
		FinishedAt: &finished,
	}

	v := newJobView(j)
	if v.StartedAt == nil || *v.StartedAt != started.Format(rfc3339) {
		t.Fatalf("unexpected StartedAt: %+v", v.StartedAt)
	}
	if v.FinishedAt == nil || *v.FinishedAt != finished.Format(rfc3339) {
		t.Fatalf("unexpected FinishedAt: %+v", v.FinishedAt)
	}
}

func TestToJobViewsPreservesOrderAndCount(t *testing.T) {
	jobs := []store.Job{
		{JobID: "job-1"},
		{JobID: "job-2"},
		{JobID: "job-3"},
	}
	views := toJobViews(jobs)
	if len(views) != 3 {
		t.Fatalf("expected 3 views, got %d", len(views))
	}
	for i, j := range jobs {
		if views[i].JobID != j.JobID {
			t.Errorf("view %d JobID = %q, want %q", i, views[i].JobID, j.JobID)
		}
	}
}
