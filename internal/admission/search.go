package admission

import (
	"net/http"
	"strconv"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/flyingrobots/creator-scout/internal/store"
)

const adminSearchScanLimit = 2000

// handleAdminSearch fuzzy-matches a query string against recent jobs'
// business descriptions and ids, for operators hunting a job without
// its exact id.
func (s *Server) handleAdminSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	jobs, err := s.store.ListRecentJobs(r.Context(), adminSearchScanLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if q == "" {
		if len(jobs) > limit {
			jobs = jobs[:limit]
		}
		writeJSON(w, r, http.StatusOK, toJobViews(jobs))
		return
	}

	labels := make([]string, len(jobs))
	for i, j := range jobs {
		labels[i] = j.JobID + " " + j.Params.BusinessDescription
	}
	ranks := fuzzy.RankFindNormalizedFold(q, labels)
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}

	matched := make([]store.Job, 0, len(ranks))
	for _, rank := range ranks {
		matched = append(matched, jobs[rank.OriginalIndex])
	}
	writeJSON(w, r, http.StatusOK, toJobViews(matched))
}

func toJobViews(jobs []store.Job) []JobView {
	views := make([]JobView, len(jobs))
	for i, j := range jobs {
		views[i] = newJobView(&j)
	}
	return views
}
