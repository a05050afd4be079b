package ledger

import (
	"context"
	"testing"

	"github.com/flyingrobots/creator-scout/internal/config"
	"github.com/flyingrobots/creator-scout/internal/store"
)

func TestNewExporterDisabledReturnsNilWithoutError(t *testing.T) {
	e, err := NewExporter(config.Ledger{ClickHouseEnabled: false}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e != nil {
		t.Fatal("expected a nil exporter when ClickHouse export is disabled")
	}
}

func TestNilExporterExportBatchIsNoOp(t *testing.T) {
	var e *Exporter
	if err := e.ExportBatch(context.Background(), []store.ExternalCall{{ID: 1}}); err != nil {
		t.Fatalf("expected nil-receiver export to be a no-op, got %v", err)
	}
}

func TestNilExporterCloseIsNoOp(t *testing.T) {
	var e *Exporter
	if err := e.Close(); err != nil {
		t.Fatalf("expected nil-receiver close to be a no-op, got %v", err)
	}
}
