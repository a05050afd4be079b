package admission

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type nopCloserBuffer struct{ *bytes.Buffer }

func (nopCloserBuffer) Close() error { return nil }

func TestAuditLoggerWritesOneJSONLinePerEntry(t *testing.T) {
	var buf bytes.Buffer
	al := &auditLogger{writer: nopCloserBuffer{&buf}}

	al.log(auditEntry{RequestID: "req-1", Principal: "tenant-1", Action: "submit", JobID: "job-1"})
	al.log(auditEntry{RequestID: "req-2", Principal: "tenant-1", Action: "cancel", JobID: "job-1"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), buf.String())
	}
	var first auditEntry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if first.RequestID != "req-1" || first.Action != "submit" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("expected a timestamp to be stamped when unset")
	}
}

func TestAuditLoggerNilReceiverIsNoOp(t *testing.T) {
	var al *auditLogger
	al.log(auditEntry{Action: "submit"}) // must not panic
	if err := al.close(); err != nil {
		t.Fatalf("expected nil-receiver close to be a no-op, got %v", err)
	}
}
