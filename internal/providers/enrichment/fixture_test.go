package enrichment

import (
	"context"
	"testing"
)

func TestFixtureTriggerProgressDownloadLifecycle(t *testing.T) {
	f := NewFixture()
	ctx := context.Background()

	snapshotID, err := f.Trigger(ctx, "instagram", "dataset-1", []string{"https://instagram.com/a", "https://instagram.com/b"})
	if err != nil {
		t.Fatal(err)
	}
	if snapshotID == "" {
		t.Fatal("expected a non-empty snapshot id")
	}

	status, err := f.Progress(ctx, snapshotID)
	if err != nil {
		t.Fatal(err)
	}
	if status != SnapshotReady {
		t.Fatalf("expected fixture to report ready immediately, got %q", status)
	}

	profiles, err := f.Download(ctx, snapshotID)
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 downloaded profiles, got %d", len(profiles))
	}
	if profiles[0].ProfileURL != "https://instagram.com/a" {
		t.Fatalf("expected profile URLs preserved in order, got %q", profiles[0].ProfileURL)
	}
}

func TestFixtureProgressUnknownSnapshotErrors(t *testing.T) {
	f := NewFixture()
	if _, err := f.Progress(context.Background(), "nonexistent"); err == nil {
		t.Fatal("expected an error for an unknown snapshot id")
	}
}

func TestFixtureDownloadUnknownSnapshotErrors(t *testing.T) {
	f := NewFixture()
	if _, err := f.Download(context.Background(), "nonexistent"); err == nil {
		t.Fatal("expected an error for an unknown snapshot id")
	}
}

func TestFixtureTriggerAssignsDistinctSnapshotIDs(t *testing.T) {
	f := NewFixture()
	ctx := context.Background()
	id1, _ := f.Trigger(ctx, "instagram", "d1", []string{"u1"})
	id2, _ := f.Trigger(ctx, "instagram", "d1", []string{"u2"})
	if id1 == id2 {
		t.Fatal("expected distinct snapshot ids across triggers")
	}
}
