// Package admission implements the synchronous HTTP surface: request
// validation, authentication, idempotency, rate limiting, the
// active-job cap, and job/artifact/event read paths.
package admission

import "github.com/flyingrobots/creator-scout/internal/store"

// SubmitRequest is the wire shape of POST /pipeline/start.
type SubmitRequest struct {
	BusinessDescription    string   `json:"business_description"`
	TopN                   int      `json:"top_n"`
	WeaviateTopN           int      `json:"weaviate_top_n"`
	LLMTopN                int      `json:"llm_top_n"`
	MinFollowers           int      `json:"min_followers"`
	MaxFollowers           int      `json:"max_followers"`
	Platform               string   `json:"platform"`
	ExcludeProfileURLs     []string `json:"exclude_profile_urls"`
	StrictLocationMatching bool     `json:"strict_location_matching"`
}

type SubmitResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
}

// JobView is the public projection of a store.Job.
type JobView struct {
	JobID           string         `json:"job_id"`
	Status          store.JobStatus `json:"status"`
	Params          store.Params    `json:"params"`
	Progress        int             `json:"progress"`
	CurrentStage    store.Stage     `json:"current_stage"`
	Error           *store.JobErr   `json:"error,omitempty"`
	CancelRequested bool            `json:"cancel_requested"`
	CreatedAt       string          `json:"created_at"`
	StartedAt       *string         `json:"started_at,omitempty"`
	FinishedAt      *string         `json:"finished_at,omitempty"`
}

func newJobView(j *store.Job) JobView {
	v := JobView{
		JobID: j.JobID, Status: j.Status, Params: j.Params, Progress: j.Progress,
		CurrentStage: j.CurrentStage, Error: j.Error, CancelRequested: j.CancelRequested,
		CreatedAt: j.CreatedAt.Format(rfc3339),
	}
	if j.StartedAt != nil {
		s := j.StartedAt.Format(rfc3339)
		v.StartedAt = &s
	}
	if j.FinishedAt != nil {
		s := j.FinishedAt.Format(rfc3339)
		v.FinishedAt = &s
	}
	return v
}

const rfc3339 = "2006-01-02T15:04:05.999999999Z07:00"

type errorResponse struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}
