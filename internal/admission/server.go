package admission

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/flyingrobots/creator-scout/internal/breaker"
	"github.com/flyingrobots/creator-scout/internal/config"
	"github.com/flyingrobots/creator-scout/internal/obs"
	"github.com/flyingrobots/creator-scout/internal/providers/vectorindex"
	"github.com/flyingrobots/creator-scout/internal/queue"
	"github.com/flyingrobots/creator-scout/internal/store"
)

// Server is the admission service's HTTP server.
type Server struct {
	cfg      config.Admission
	store    *store.Store
	q        *queue.Queue
	limiter  *queue.RateLimiter
	log      *zap.Logger
	metrics  *obs.Metrics
	audit    *auditLogger
	vindex   vectorindex.Client
	breakers *breaker.Registry

	httpServer *http.Server
}

func NewServer(cfg config.Admission, st *store.Store, q *queue.Queue, limiter *queue.RateLimiter, vindex vectorindex.Client, breakers *breaker.Registry, log *zap.Logger, metrics *obs.Metrics) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		store:    st,
		q:        q,
		limiter:  limiter,
		vindex:   vindex,
		breakers: breakers,
		log:      log,
		metrics:  metrics,
	}
	if cfg.AuditEnabled {
		s.audit = newAuditLogger(cfg.AuditLogPath, cfg.AuditRotateSizeMB, cfg.AuditMaxBackups)
	}

	router := s.routes()
	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

func (s *Server) ListenAndServe() error {
	s.log.Info("admission service listening", zap.String("addr", s.cfg.ListenAddr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	if closeErr := s.audit.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(obs.RequestLogger(s.log))
	r.Use(s.requestIDMiddleware)
	r.Use(s.authMiddleware)

	r.HandleFunc("/pipeline/start", s.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/pipeline/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	r.HandleFunc("/pipeline/jobs/{id}/results", s.handleGetResults).Methods(http.MethodGet)
	r.HandleFunc("/pipeline/jobs/{id}/artifacts/{kind}", s.handleGetArtifact).Methods(http.MethodGet)
	r.HandleFunc("/pipeline/jobs/{id}/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/pipeline/jobs/{id}/cancel", s.handleCancel).Methods(http.MethodPost)
	r.HandleFunc("/weaviate/search", s.handleAuxSearch).Methods(http.MethodPost)
	r.HandleFunc("/admin/jobs/search", s.handleAdminSearch).Methods(http.MethodGet)

	health := mux.NewRouter()
	health.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.PathPrefix("/health").Handler(health)

	return r
}
