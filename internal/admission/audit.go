package admission

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// auditEntry is one line of the admission service's audit trail: every
// mutating request (submit, cancel, idempotent replay) gets one.
type auditEntry struct {
	Timestamp time.Time `json:"ts"`
	RequestID string    `json:"request_id"`
	Principal string    `json:"principal"`
	Action    string    `json:"action"`
	JobID     string    `json:"job_id,omitempty"`
	RemoteIP  string    `json:"remote_ip,omitempty"`
}

type auditLogger struct {
	mu     sync.Mutex
	writer io.WriteCloser
}

func newAuditLogger(path string, rotateSizeMB, maxBackups int) *auditLogger {
	return &auditLogger{
		writer: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    rotateSizeMB,
			MaxBackups: maxBackups,
			Compress:   true,
		},
	}
}

func (a *auditLogger) log(entry auditEntry) {
	if a == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	_, _ = a.writer.Write(append(raw, '\n'))
}

func (a *auditLogger) close() error {
	if a == nil {
		return nil
	}
	return a.writer.Close()
}

// auditf is a no-op when audit logging is disabled, so call sites don't
// need to guard on cfg.AuditEnabled themselves.
func (s *Server) auditf(r *http.Request, action, jobID string) {
	if s.audit == nil {
		return
	}
	principalID := ""
	if p := principalFrom(r.Context()); p != nil {
		principalID = p.ID
	}
	s.audit.log(auditEntry{
		RequestID: requestIDFrom(r.Context()),
		Principal: principalID,
		Action:    action,
		JobID:     jobID,
		RemoteIP:  r.RemoteAddr,
	})
}
