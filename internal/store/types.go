// Copyright 2025 James Ross
package store

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobError     JobStatus = "error"
	JobCancelled JobStatus = "cancelled"
)

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobError || s == JobCancelled
}

type Stage string

const (
	StageNone             Stage = "none"
	StageQueryExpansion   Stage = "query_expansion"
	StageVectorSearch     Stage = "vector_search"
	StageEnrichment       Stage = "enrichment"
	StageScoring          Stage = "scoring"
)

// Params is the immutable request body a job was submitted with.
type Params struct {
	BusinessDescription    string   `json:"business_description"`
	TopN                   int      `json:"top_n"`
	WeaviateTopN           int      `json:"weaviate_top_n"`
	LLMTopN                int      `json:"llm_top_n"`
	MinFollowers           int      `json:"min_followers,omitempty"`
	MaxFollowers           int      `json:"max_followers,omitempty"`
	Platform               string   `json:"platform,omitempty"`
	ExcludeProfileURLs     []string `json:"exclude_profile_urls,omitempty"`
	StrictLocationMatching bool     `json:"strict_location_matching"`
}

// JobErr is the stage-scoped error surfaced on a terminal error job.
type JobErr struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

// Job is the full row projection of pipeline_jobs.
type Job struct {
	JobID           string          `json:"job_id"`
	APIKeyID        string          `json:"api_key_id"`
	Status          JobStatus       `json:"status"`
	Params          Params          `json:"params"`
	Meta            json.RawMessage `json:"meta"`
	Progress        int             `json:"progress"`
	CurrentStage    Stage           `json:"current_stage"`
	Error           *JobErr         `json:"error,omitempty"`
	CancelRequested bool            `json:"cancel_requested"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	FinishedAt      *time.Time      `json:"finished_at,omitempty"`
}

// ArtifactKind enumerates the recognized artifact kinds. batch:N kinds
// are represented as plain strings since N is unbounded.
const (
	ArtifactCandidates  = "candidates"
	ArtifactProgressive = "progressive"
	ArtifactFinal       = "final"
	ArtifactRemaining   = "remaining"
	ArtifactTiming      = "timing"
)

type Artifact struct {
	JobID     string          `json:"job_id"`
	Kind      string          `json:"kind"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type EventLevel string

const (
	LevelDebug EventLevel = "debug"
	LevelInfo  EventLevel = "info"
	LevelWarn  EventLevel = "warn"
	LevelError EventLevel = "error"
)

type Event struct {
	ID      int64           `json:"id"`
	JobID   string          `json:"job_id"`
	TS      time.Time       `json:"ts"`
	Level   EventLevel      `json:"level"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"data"`
}

type ExternalCall struct {
	ID        int64           `json:"id"`
	JobID     string          `json:"job_id"`
	APIKeyID  string          `json:"api_key_id"`
	Service   string          `json:"service"`
	Operation string          `json:"operation"`
	TS        time.Time       `json:"ts"`
	DurationMS int64          `json:"duration_ms"`
	Status    string          `json:"status"`
	CostUSD   float64         `json:"cost_usd"`
	Meta      json.RawMessage `json:"meta,omitempty"`
}

type ProfileCacheEntry struct {
	CacheKey      string          `json:"cache_key"`
	NormalizedURL string          `json:"normalized_url"`
	Platform      string          `json:"platform"`
	RawData       json.RawMessage `json:"raw_data"`
	CachedAt      time.Time       `json:"cached_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

type APIKey struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	KeyHash      string     `json:"-"`
	RateRPS      float64    `json:"rate_rps"`
	Burst        int        `json:"burst"`
	MonthlyQuota int64      `json:"monthly_quota"`
	CreatedAt    time.Time  `json:"created_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
}
