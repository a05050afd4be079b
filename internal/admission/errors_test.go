package admission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flyingrobots/creator-scout/internal/apierr"
)

func TestWriteErrorMapsTaxonomyErrorToStatusAndBody(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/pipeline/start", nil)
	req = req.WithContext(context.WithValue(req.Context(), ctxKeyRequestID, "req-1"))

	writeError(rr, req, apierr.Validation("business_description is required"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Kind != string(apierr.KindValidation) || body.RequestID != "req-1" {
		t.Fatalf("unexpected error body: %+v", body)
	}
	if rr.Header().Get("X-Request-ID") != "req-1" {
		t.Fatal("expected X-Request-ID header set")
	}
}

func TestWriteErrorWrapsNonTaxonomyErrorsAsFatal(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/pipeline/start", nil)

	writeError(rr, req, errors.New("boom"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for a wrapped unknown error, got %d", rr.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Kind != string(apierr.KindFatal) {
		t.Fatalf("expected fatal kind, got %q", body.Kind)
	}
}

func TestWriteJSONSetsContentTypeAndStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	writeJSON(rr, req, http.StatusCreated, map[string]string{"ok": "true"})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %q", ct)
	}
}

func TestAPIAuthErrorIsAuthKind(t *testing.T) {
	err := apiAuthError("missing credential")
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Kind != apierr.KindAuth {
		t.Fatalf("expected auth-kind apierr, got %v", err)
	}
}
