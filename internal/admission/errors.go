package admission

import (
	"encoding/json"
	"net/http"

	"github.com/flyingrobots/creator-scout/internal/apierr"
)

func apiAuthError(msg string) error {
	return apierr.New(apierr.KindAuth, msg)
}

// writeError maps a taxonomy error to its HTTP status and writes the
// standard error body. Every handler must route failures through this
// (enforced by the requestidlint static check) so X-Request-ID is
// never dropped from an error response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := apierr.As(err)
	if !ok {
		apiErr = apierr.Wrap(apierr.KindFatal, "internal error", err)
	}
	writeJSON(w, r, apiErr.HTTPStatus(), errorResponse{
		Kind:      string(apiErr.Kind),
		Message:   apiErr.Message,
		RequestID: requestIDFrom(r.Context()),
	})
}

// writeJSON writes a status code and JSON body, tagging the response
// with X-Request-ID if present on the request context.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	if reqID := requestIDFrom(r.Context()); reqID != "" {
		w.Header().Set("X-Request-ID", reqID)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
