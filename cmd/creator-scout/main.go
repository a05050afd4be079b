// Copyright 2025 James Ross
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flyingrobots/creator-scout/internal/admission"
	"github.com/flyingrobots/creator-scout/internal/archive"
	"github.com/flyingrobots/creator-scout/internal/breaker"
	"github.com/flyingrobots/creator-scout/internal/cleanup"
	"github.com/flyingrobots/creator-scout/internal/config"
	"github.com/flyingrobots/creator-scout/internal/engine"
	"github.com/flyingrobots/creator-scout/internal/eventbus"
	"github.com/flyingrobots/creator-scout/internal/ledger"
	"github.com/flyingrobots/creator-scout/internal/obs"
	"github.com/flyingrobots/creator-scout/internal/providers/embedding"
	"github.com/flyingrobots/creator-scout/internal/providers/enrichment"
	"github.com/flyingrobots/creator-scout/internal/providers/scoring"
	"github.com/flyingrobots/creator-scout/internal/providers/vectorindex"
	"github.com/flyingrobots/creator-scout/internal/queue"
	"github.com/flyingrobots/creator-scout/internal/reaper"
	"github.com/flyingrobots/creator-scout/internal/redisclient"
	"github.com/flyingrobots/creator-scout/internal/store"
)

var version = "dev"

func main() {
	var role string
	var configPath string
	var showVersion bool
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&role, "role", "all", "Role to run: admission|engine|cleanup|all")
	fs.StringVar(&configPath, "config", "config/config.yaml", "Path to YAML config")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	_ = fs.Parse(os.Args[1:])

	if showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := obs.NewLogger(cfg.Observability.LogLevel, "creator-scout")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := obs.InitTracing(ctx, "creator-scout", obs.TracingConfig{
		Enabled:     cfg.Observability.Tracing.Enabled,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		Environment: cfg.Observability.Tracing.Environment,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Insecure:    cfg.Observability.Tracing.Insecure,
	})
	if err != nil {
		logger.Warn("tracing init failed", zap.Error(err))
	} else {
		defer func() { _ = shutdownTracing(context.Background()) }()
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		logger.Fatal("open store failed", zap.Error(err))
	}
	defer st.Close()

	rdb, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("connect redis failed", zap.Error(err))
	}
	defer rdb.Close()

	q := queue.New(rdb, cfg.Queue)
	limiter := queue.NewRateLimiter(rdb)
	breakers := breaker.NewRegistry(cfg.CircuitBreaker.FailureThreshold, cfg.CircuitBreaker.Window,
		cfg.CircuitBreaker.CooldownPeriod, cfg.CircuitBreaker.MinSamples)
	metrics := obs.NewMetrics()

	providers := buildProviders(cfg.Providers)

	metricsSrv := startMetricsServer(cfg.Observability.MetricsPort, metrics, logger)
	defer func() { _ = metricsSrv.Shutdown(context.Background()) }()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, shutting down", zap.String("signal", sig.String()))
		cancel()
		select {
		case sig2 := <-sigCh:
			logger.Warn("second signal received, exiting immediately", zap.String("signal", sig2.String()))
			os.Exit(1)
		case <-time.After(10 * time.Second):
		}
	}()

	switch role {
	case "admission":
		runAdmission(ctx, cfg, st, q, limiter, providers.VectorIndex, breakers, logger, metrics)
	case "engine":
		runEngine(ctx, cfg, st, q, breakers, providers, logger, metrics)
	case "cleanup":
		runCleanup(ctx, cfg, st, logger)
	case "all":
		done := make(chan struct{})
		go func() {
			runEngine(ctx, cfg, st, q, breakers, providers, logger, metrics)
			close(done)
		}()
		go runCleanup(ctx, cfg, st, logger)
		runAdmission(ctx, cfg, st, q, limiter, providers.VectorIndex, breakers, logger, metrics)
		<-done
	default:
		logger.Fatal("unknown role", zap.String("role", role))
	}
}

func buildProviders(cfg config.Providers) engine.Providers {
	if cfg.UseFixtures {
		return engine.Providers{
			EmbeddingPrimary:   embedding.NewFixture(cfg.EmbeddingDims),
			VectorIndex:        vectorindex.NewFixture(0),
			Enrichment:         enrichment.NewFixture(),
			Scoring:            scoring.NewFixture(),
			VectorCollection:   cfg.VectorCollection,
			EnrichmentDatasets: cfg.EnrichmentDatasets,
		}
	}

	p := engine.Providers{
		EmbeddingPrimary:   embedding.NewHTTPClient(cfg.EmbeddingPrimary.BaseURL, cfg.EmbeddingPrimary.APIKey, cfg.RequestTimeout),
		VectorIndex:        vectorindex.NewHTTPClient(cfg.VectorIndex.BaseURL, cfg.VectorIndex.APIKey, cfg.RequestTimeout),
		Enrichment:         enrichment.NewHTTPClient(cfg.Enrichment.BaseURL, cfg.Enrichment.APIKey, cfg.RequestTimeout),
		Scoring:            scoring.NewHTTPClient(cfg.Scoring.BaseURL, cfg.Scoring.APIKey, cfg.ScoringModel, cfg.RequestTimeout),
		VectorCollection:   cfg.VectorCollection,
		EnrichmentDatasets: cfg.EnrichmentDatasets,
	}
	if cfg.EmbeddingSecondary.BaseURL != "" {
		p.EmbeddingSecondary = embedding.NewHTTPClient(cfg.EmbeddingSecondary.BaseURL, cfg.EmbeddingSecondary.APIKey, cfg.RequestTimeout)
	}
	return p
}

func runAdmission(ctx context.Context, cfg *config.Config, st *store.Store, q *queue.Queue, limiter *queue.RateLimiter,
	vindex vectorindex.Client, breakers *breaker.Registry, logger *zap.Logger, metrics *obs.Metrics) {
	srv, err := admission.NewServer(cfg.Admission, st, q, limiter, vindex, breakers, logger, metrics)
	if err != nil {
		logger.Fatal("build admission server failed", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("admission server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Admission.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("admission server shutdown error", zap.Error(err))
	}
}

func runEngine(ctx context.Context, cfg *config.Config, st *store.Store, q *queue.Queue, breakers *breaker.Registry,
	providers engine.Providers, logger *zap.Logger, metrics *obs.Metrics) {
	pub, err := eventbus.NewPublisher(cfg.EventBus, logger)
	if err != nil {
		logger.Fatal("build event bus publisher failed", zap.Error(err))
	}
	defer pub.Close()

	workerID := fmt.Sprintf("%s-%d-%s", hostnameOrUnknown(), os.Getpid(), uuid.NewString()[:8])

	e := engine.New(workerID, st, q, breakers, providers, cfg.Pipeline, logger, metrics,
		engine.WithTerminalHook(pub.PublishTerminal))

	rep := reaper.New(q, logger, cfg.Worker.HeartbeatTTL)
	go rep.Run(ctx)

	if err := e.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("engine run error", zap.Error(err))
	}
}

func runCleanup(ctx context.Context, cfg *config.Config, st *store.Store, logger *zap.Logger) {
	archiver, err := archive.NewArchiver(cfg.Archive, logger)
	if err != nil {
		logger.Fatal("build archiver failed", zap.Error(err))
	}
	exporter, err := ledger.NewExporter(cfg.Ledger, logger)
	if err != nil {
		logger.Fatal("build ledger exporter failed", zap.Error(err))
	}
	defer exporter.Close()

	w := cleanup.New(st, archiver, exporter, cfg.Retention, logger)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("cleanup worker error", zap.Error(err))
	}
}

func startMetricsServer(port int, metrics *obs.Metrics, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server error", zap.Error(err))
		}
	}()
	return srv
}

func hostnameOrUnknown() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
