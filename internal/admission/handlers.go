package admission

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/flyingrobots/creator-scout/internal/apierr"
	"github.com/flyingrobots/creator-scout/internal/engine"
	"github.com/flyingrobots/creator-scout/internal/store"
)

const defaultTopN = 30

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())
	rawBody, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, r, apierr.Validation("could not read request body"))
		return
	}
	if err := validateSubmitShape(rawBody); err != nil {
		writeError(w, r, err)
		return
	}

	var req SubmitRequest
	if err := json.Unmarshal(rawBody, &req); err != nil {
		writeError(w, r, apierr.Validation("malformed JSON: %v", err))
		return
	}
	if req.TopN == 0 {
		req.TopN = defaultTopN
	}
	if err := validateSubmitSemantics(req); err != nil {
		writeError(w, r, err)
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	if err := validateIdempotencyKey(idemKey); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()

	active, err := s.store.CountActiveJobs(ctx, principal.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if active >= s.cfg.MaxActiveJobsPerKey {
		writeError(w, r, apierr.OverCap("active job cap reached"))
		return
	}

	if idemKey != "" {
		reserveID := uuid.NewString()
		existing, claimed, err := s.q.ReserveIdempotency(ctx, principal.ID, idemKey, reserveID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !claimed {
			s.auditf(r, "idempotent_replay", existing)
			writeJSON(w, r, http.StatusAccepted, SubmitResponse{JobID: existing, Status: "accepted", RequestID: requestIDFrom(ctx)})
			return
		}
		if err := s.admitJob(ctx, w, reserveID, principal, req); err != nil {
			writeError(w, r, err)
			return
		}
		s.auditf(r, "submit", reserveID)
		writeJSON(w, r, http.StatusAccepted, SubmitResponse{JobID: reserveID, Status: "accepted", RequestID: requestIDFrom(ctx)})
		return
	}

	jobID := uuid.NewString()
	if err := s.admitJob(ctx, w, jobID, principal, req); err != nil {
		writeError(w, r, err)
		return
	}
	s.auditf(r, "submit", jobID)
	writeJSON(w, r, http.StatusAccepted, SubmitResponse{JobID: jobID, Status: "accepted", RequestID: requestIDFrom(ctx)})
}

func (s *Server) admitJob(ctx context.Context, w http.ResponseWriter, jobID string, principal *store.APIKey, req SubmitRequest) error {
	res, err := s.limiter.Allow(ctx, principal.ID, "submit", principal.RateRPS, principal.Burst)
	if err != nil {
		return err
	}
	w.Header().Set("X-RateLimit-Scope", "submit")
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatFloat(res.Remaining, 'f', 2, 64))
	if !res.Allowed {
		return apierr.RateLimited("rate limit exceeded")
	}

	params := store.Params{
		BusinessDescription:    req.BusinessDescription,
		TopN:                   req.TopN,
		WeaviateTopN:           req.WeaviateTopN,
		LLMTopN:                req.LLMTopN,
		MinFollowers:           req.MinFollowers,
		MaxFollowers:           req.MaxFollowers,
		Platform:               req.Platform,
		ExcludeProfileURLs:     req.ExcludeProfileURLs,
		StrictLocationMatching: req.StrictLocationMatching,
	}
	if err := s.store.CreateJob(ctx, jobID, principal.ID, params); err != nil {
		return err
	}
	if err := s.q.Enqueue(ctx, jobID); err != nil {
		return err
	}
	return nil
}

func (s *Server) jobForRequest(r *http.Request) (*store.Job, error) {
	jobID := mux.Vars(r)["id"]
	principal := principalFrom(r.Context())

	owned, err := s.store.JobOwnedBy(r.Context(), jobID, principal.ID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, apierr.NotFound("job %s not found", jobID)
	}
	return s.store.GetJob(r.Context(), jobID)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobForRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newJobView(job))
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobForRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if job.Status != store.JobCompleted {
		writeError(w, r, apierr.Conflict("job %s is not completed", job.JobID))
		return
	}
	artifact, err := s.store.GetArtifact(r.Context(), job.JobID, store.ArtifactFinal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, artifact)
}

var validArtifactKinds = map[string]bool{
	store.ArtifactCandidates:  true,
	store.ArtifactProgressive: true,
	store.ArtifactRemaining:   true,
	store.ArtifactTiming:      true,
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	if !validArtifactKinds[kind] {
		writeError(w, r, apierr.Validation("unrecognized artifact kind %q", kind))
		return
	}
	job, err := s.jobForRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	artifact, err := s.store.GetArtifact(r.Context(), job.JobID, kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, artifact)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobForRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.RequestCancel(r.Context(), job.JobID); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.store.AppendEvent(r.Context(), job.JobID, store.LevelInfo, "cancel_requested", map[string]any{}); err != nil {
		s.log.Warn("append cancel_requested event failed")
	}
	s.auditf(r, "cancel", job.JobID)
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "cancel_requested"})
}

type auxSearchRequest struct {
	Keyword            string   `json:"keyword"`
	Platform           string   `json:"platform,omitempty"`
	MinFollowers       int      `json:"min_followers,omitempty"`
	MaxFollowers       int      `json:"max_followers,omitempty"`
	ExcludeProfileURLs []string `json:"exclude_profile_urls,omitempty"`
	Limit              int      `json:"limit,omitempty"`
}

func (s *Server) handleAuxSearch(w http.ResponseWriter, r *http.Request) {
	var req auxSearchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, r, apierr.Validation("malformed JSON: %v", err))
		return
	}
	if req.Keyword == "" {
		writeError(w, r, apierr.Validation("keyword is required"))
		return
	}

	candidates, err := engine.AuxSearch(r.Context(), s.vindex, s.breakers, s.log, engine.AuxSearchRequest{
		Keyword:            req.Keyword,
		Platform:           req.Platform,
		MinFollowers:       req.MinFollowers,
		MaxFollowers:       req.MaxFollowers,
		ExcludeProfileURLs: req.ExcludeProfileURLs,
		Limit:              req.Limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, candidates)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func parseAfterCursor(r *http.Request) int64 {
	if v := r.URL.Query().Get("after"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
