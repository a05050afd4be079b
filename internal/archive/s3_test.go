package archive

import (
	"context"
	"testing"

	"github.com/flyingrobots/creator-scout/internal/config"
	"github.com/flyingrobots/creator-scout/internal/store"
)

func TestNewArchiverDisabledReturnsNilWithoutError(t *testing.T) {
	a, err := NewArchiver(config.Archive{S3Enabled: false}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a != nil {
		t.Fatal("expected a nil archiver when S3 archival is disabled")
	}
}

func TestNilArchiverArchiveJobIsNoOp(t *testing.T) {
	var a *Archiver
	if err := a.ArchiveJob(context.Background(), store.Job{JobID: "job-1"}, nil, nil); err != nil {
		t.Fatalf("expected nil-receiver archive to be a no-op, got %v", err)
	}
}
