package admission

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/flyingrobots/creator-scout/internal/store"
)

type contextKey string

const (
	ctxKeyRequestID contextKey = "request_id"
	ctxKeyPrincipal contextKey = "principal"
)

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return id
	}
	return ""
}

var openPaths = map[string]bool{
	"/health": true,
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if openPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		raw := extractCredential(r)
		if raw == "" {
			writeError(w, r, apiAuthError("missing credential"))
			return
		}
		key, err := s.store.LookupAPIKey(r.Context(), raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyPrincipal, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractCredential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

func principalFrom(ctx context.Context) *store.APIKey {
	if k, ok := ctx.Value(ctxKeyPrincipal).(*store.APIKey); ok {
		return k
	}
	return nil
}
