// Copyright 2025 James Ross
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Store struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type Redis struct {
	Addr               string        `mapstructure:"addr"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	DB                 int           `mapstructure:"db"`
	PoolSizeMultiplier int           `mapstructure:"pool_size_multiplier"`
	MinIdleConns       int           `mapstructure:"min_idle_conns"`
	DialTimeout        time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
}

// Queue holds the dispatch/backoff shape for the job queue list.
type Queue struct {
	JobsKey           string        `mapstructure:"jobs_key"`
	RetryZSetKey      string        `mapstructure:"retry_zset_key"`
	ProcessingPattern string        `mapstructure:"processing_pattern"`
	HeartbeatPattern  string        `mapstructure:"heartbeat_pattern"`
	HeartbeatTTL      time.Duration `mapstructure:"heartbeat_ttl"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	BackoffMax        time.Duration `mapstructure:"backoff_max"`
	BRPopTimeout      time.Duration `mapstructure:"brpop_timeout"`
	IdempotencyTTL    time.Duration `mapstructure:"idempotency_ttl"`
}

type CircuitBreaker struct {
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	Window           time.Duration `mapstructure:"window"`
	CooldownPeriod   time.Duration `mapstructure:"cooldown_period"`
	MinSamples       int           `mapstructure:"min_samples"`
}

type Admission struct {
	ListenAddr         string        `mapstructure:"listen_addr"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	MaxActiveJobsPerKey int          `mapstructure:"max_active_jobs_per_key"`
	CORSEnabled        bool          `mapstructure:"cors_enabled"`
	CORSAllowOrigins   []string      `mapstructure:"cors_allow_origins"`
	AuditEnabled       bool          `mapstructure:"audit_enabled"`
	AuditLogPath       string        `mapstructure:"audit_log_path"`
	AuditRotateSizeMB  int           `mapstructure:"audit_rotate_size_mb"`
	AuditMaxBackups    int           `mapstructure:"audit_max_backups"`
	EventBatchLimit    int           `mapstructure:"event_batch_limit"`
	EventHeartbeat     time.Duration `mapstructure:"event_heartbeat"`
}

// Pipeline holds every constant named by the pipeline state machine.
type Pipeline struct {
	BatchSize             int           `mapstructure:"batch_size"`
	MaxInFlightBatches    int           `mapstructure:"max_inflight_batches"`
	ScoringConcurrency    int           `mapstructure:"scoring_concurrency"`
	ScoringRetries        int           `mapstructure:"scoring_retries"`
	PollInterval          time.Duration `mapstructure:"poll_interval"`
	PerBatchTimeout       time.Duration `mapstructure:"per_batch_timeout"`
	StageTimeout          time.Duration `mapstructure:"stage_timeout"`
	MaxInFlightSearches   int           `mapstructure:"max_inflight_searches"`
	VectorSearchTimeout   time.Duration `mapstructure:"vector_search_timeout"`
	TriggerTimeout        time.Duration `mapstructure:"trigger_timeout"`
	ProgressTimeout       time.Duration `mapstructure:"progress_timeout"`
	DownloadTimeout       time.Duration `mapstructure:"download_timeout"`
	InactivityWindowDays  int           `mapstructure:"inactivity_window_days"`
	CacheTTLDays          int           `mapstructure:"cache_ttl_days"`
	EnrichmentCostPerCall float64       `mapstructure:"enrichment_cost_per_call"`
	ScoringCostPerProfile float64       `mapstructure:"scoring_cost_per_profile"`
}

type ProviderEndpoint struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type Providers struct {
	UseFixtures        bool             `mapstructure:"use_fixtures"`
	RequestTimeout     time.Duration    `mapstructure:"request_timeout"`
	EmbeddingsProvider string           `mapstructure:"embeddings_provider"` // "primary" | "secondary"
	EmbeddingDims      int              `mapstructure:"embedding_dims"`
	EmbeddingPrimary   ProviderEndpoint `mapstructure:"embedding_primary"`
	EmbeddingSecondary ProviderEndpoint `mapstructure:"embedding_secondary"`
	VectorIndex        ProviderEndpoint `mapstructure:"vector_index"`
	VectorCollection   string           `mapstructure:"vector_collection"`
	Enrichment         ProviderEndpoint `mapstructure:"enrichment"`
	EnrichmentDatasets map[string]string `mapstructure:"enrichment_datasets"` // platform -> dataset id
	Scoring            ProviderEndpoint `mapstructure:"scoring"`
	ScoringModel       string           `mapstructure:"scoring_model"`
}

type EventBus struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject_prefix"`
}

type Ledger struct {
	ClickHouseEnabled bool   `mapstructure:"clickhouse_enabled"`
	ClickHouseDSN     string `mapstructure:"clickhouse_dsn"`
}

type Archive struct {
	S3Enabled bool   `mapstructure:"s3_enabled"`
	S3Bucket  string `mapstructure:"s3_bucket"`
	S3Region  string `mapstructure:"s3_region"`
	S3Prefix  string `mapstructure:"s3_prefix"`
}

type Retention struct {
	JobRetentionDays  int           `mapstructure:"job_retention_days"`
	CleanupCron       string        `mapstructure:"cleanup_cron"`
	CleanupBatchSize  int           `mapstructure:"cleanup_batch_size"`
	CacheSweepEnabled bool          `mapstructure:"cache_sweep_enabled"`
}

type ObservabilityConfig struct {
	MetricsPort         int           `mapstructure:"metrics_port"`
	LogLevel            string        `mapstructure:"log_level"`
	Tracing             TracingConfig `mapstructure:"tracing"`
	QueueSampleInterval time.Duration `mapstructure:"queue_sample_interval"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

type Worker struct {
	Concurrency  int           `mapstructure:"concurrency"`
	HeartbeatTTL time.Duration `mapstructure:"heartbeat_ttl"`
}

type Config struct {
	Redis          Redis               `mapstructure:"redis"`
	Store          Store               `mapstructure:"store"`
	Queue          Queue               `mapstructure:"queue"`
	Worker         Worker              `mapstructure:"worker"`
	CircuitBreaker CircuitBreaker      `mapstructure:"circuit_breaker"`
	Admission      Admission           `mapstructure:"admission"`
	Pipeline       Pipeline            `mapstructure:"pipeline"`
	Providers      Providers           `mapstructure:"providers"`
	EventBus       EventBus            `mapstructure:"event_bus"`
	Ledger         Ledger              `mapstructure:"ledger"`
	Archive        Archive             `mapstructure:"archive"`
	Retention      Retention           `mapstructure:"retention"`
	Observability  ObservabilityConfig `mapstructure:"observability"`
}

func defaultConfig() *Config {
	return &Config{
		Redis: Redis{
			Addr:               "localhost:6379",
			PoolSizeMultiplier: 10,
			MinIdleConns:       5,
			DialTimeout:        5 * time.Second,
			ReadTimeout:        3 * time.Second,
			WriteTimeout:       3 * time.Second,
			MaxRetries:         3,
		},
		Store: Store{
			DSN:             "postgres://localhost:5432/creator_scout?sslmode=disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Queue: Queue{
			JobsKey:           "scout:jobs",
			RetryZSetKey:      "scout:jobs:retry",
			ProcessingPattern: "scout:worker:%s:processing",
			HeartbeatPattern:  "scout:worker:%s:heartbeat",
			HeartbeatTTL:      30 * time.Second,
			MaxAttempts:       3,
			BackoffBase:       5 * time.Second,
			BackoffMax:        5 * time.Minute,
			BRPopTimeout:      1 * time.Second,
			IdempotencyTTL:    24 * time.Hour,
		},
		Worker: Worker{
			Concurrency:  16,
			HeartbeatTTL: 30 * time.Second,
		},
		CircuitBreaker: CircuitBreaker{
			FailureThreshold: 0.5,
			Window:           1 * time.Minute,
			CooldownPeriod:   30 * time.Second,
			MinSamples:       20,
		},
		Admission: Admission{
			ListenAddr:          ":8080",
			ReadTimeout:         30 * time.Second,
			WriteTimeout:        30 * time.Second,
			ShutdownTimeout:     10 * time.Second,
			MaxActiveJobsPerKey: 3,
			CORSEnabled:         false,
			CORSAllowOrigins:    []string{"*"},
			AuditEnabled:        true,
			AuditLogPath:        "./log/audit.log",
			AuditRotateSizeMB:   100,
			AuditMaxBackups:     10,
			EventBatchLimit:     200,
			EventHeartbeat:      1 * time.Second,
		},
		Pipeline: Pipeline{
			BatchSize:             20,
			MaxInFlightBatches:    5,
			ScoringConcurrency:    100,
			ScoringRetries:        2,
			PollInterval:          10 * time.Second,
			PerBatchTimeout:       300 * time.Second,
			StageTimeout:          3600 * time.Second,
			MaxInFlightSearches:   24,
			VectorSearchTimeout:   120 * time.Second,
			TriggerTimeout:        120 * time.Second,
			ProgressTimeout:       300 * time.Second,
			DownloadTimeout:       600 * time.Second,
			InactivityWindowDays:  60,
			CacheTTLDays:          14,
			EnrichmentCostPerCall: 0.0015,
			ScoringCostPerProfile: 0.0015,
		},
		Providers: Providers{
			UseFixtures:        true,
			RequestTimeout:     30 * time.Second,
			EmbeddingsProvider: "primary",
			EmbeddingDims:      256,
			VectorCollection:   "CreatorProfiles",
			EnrichmentDatasets: map[string]string{
				"instagram": "instagram_profiles",
				"tiktok":    "tiktok_profiles",
			},
			ScoringModel: "default",
		},
		EventBus: EventBus{
			Enabled: false,
			Subject: "jobs",
		},
		Ledger: Ledger{
			ClickHouseEnabled: false,
		},
		Archive: Archive{
			S3Enabled: false,
			S3Prefix:  "creator-scout/jobs",
		},
		Retention: Retention{
			JobRetentionDays:  7,
			CleanupCron:       "0 */6 * * *",
			CleanupBatchSize:  500,
			CacheSweepEnabled: true,
		},
		Observability: ObservabilityConfig{
			MetricsPort:         9090,
			LogLevel:            "info",
			Tracing:             TracingConfig{Enabled: false},
			QueueSampleInterval: 2 * time.Second,
		},
	}
}

// Load reads configuration from YAML file and env overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	setDefaults(v, def)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("redis.addr", def.Redis.Addr)
	v.SetDefault("redis.pool_size_multiplier", def.Redis.PoolSizeMultiplier)
	v.SetDefault("redis.min_idle_conns", def.Redis.MinIdleConns)
	v.SetDefault("redis.dial_timeout", def.Redis.DialTimeout)
	v.SetDefault("redis.read_timeout", def.Redis.ReadTimeout)
	v.SetDefault("redis.write_timeout", def.Redis.WriteTimeout)
	v.SetDefault("redis.max_retries", def.Redis.MaxRetries)

	v.SetDefault("store.dsn", def.Store.DSN)
	v.SetDefault("store.max_open_conns", def.Store.MaxOpenConns)
	v.SetDefault("store.max_idle_conns", def.Store.MaxIdleConns)
	v.SetDefault("store.conn_max_lifetime", def.Store.ConnMaxLifetime)

	v.SetDefault("queue.jobs_key", def.Queue.JobsKey)
	v.SetDefault("queue.retry_zset_key", def.Queue.RetryZSetKey)
	v.SetDefault("queue.processing_pattern", def.Queue.ProcessingPattern)
	v.SetDefault("queue.heartbeat_pattern", def.Queue.HeartbeatPattern)
	v.SetDefault("queue.heartbeat_ttl", def.Queue.HeartbeatTTL)
	v.SetDefault("queue.max_attempts", def.Queue.MaxAttempts)
	v.SetDefault("queue.backoff_base", def.Queue.BackoffBase)
	v.SetDefault("queue.backoff_max", def.Queue.BackoffMax)
	v.SetDefault("queue.brpop_timeout", def.Queue.BRPopTimeout)
	v.SetDefault("queue.idempotency_ttl", def.Queue.IdempotencyTTL)

	v.SetDefault("worker.concurrency", def.Worker.Concurrency)
	v.SetDefault("worker.heartbeat_ttl", def.Worker.HeartbeatTTL)

	v.SetDefault("circuit_breaker.failure_threshold", def.CircuitBreaker.FailureThreshold)
	v.SetDefault("circuit_breaker.window", def.CircuitBreaker.Window)
	v.SetDefault("circuit_breaker.cooldown_period", def.CircuitBreaker.CooldownPeriod)
	v.SetDefault("circuit_breaker.min_samples", def.CircuitBreaker.MinSamples)

	v.SetDefault("admission.listen_addr", def.Admission.ListenAddr)
	v.SetDefault("admission.read_timeout", def.Admission.ReadTimeout)
	v.SetDefault("admission.write_timeout", def.Admission.WriteTimeout)
	v.SetDefault("admission.shutdown_timeout", def.Admission.ShutdownTimeout)
	v.SetDefault("admission.max_active_jobs_per_key", def.Admission.MaxActiveJobsPerKey)
	v.SetDefault("admission.cors_enabled", def.Admission.CORSEnabled)
	v.SetDefault("admission.cors_allow_origins", def.Admission.CORSAllowOrigins)
	v.SetDefault("admission.audit_enabled", def.Admission.AuditEnabled)
	v.SetDefault("admission.audit_log_path", def.Admission.AuditLogPath)
	v.SetDefault("admission.audit_rotate_size_mb", def.Admission.AuditRotateSizeMB)
	v.SetDefault("admission.audit_max_backups", def.Admission.AuditMaxBackups)
	v.SetDefault("admission.event_batch_limit", def.Admission.EventBatchLimit)
	v.SetDefault("admission.event_heartbeat", def.Admission.EventHeartbeat)

	v.SetDefault("pipeline.batch_size", def.Pipeline.BatchSize)
	v.SetDefault("pipeline.max_inflight_batches", def.Pipeline.MaxInFlightBatches)
	v.SetDefault("pipeline.scoring_concurrency", def.Pipeline.ScoringConcurrency)
	v.SetDefault("pipeline.scoring_retries", def.Pipeline.ScoringRetries)
	v.SetDefault("pipeline.poll_interval", def.Pipeline.PollInterval)
	v.SetDefault("pipeline.per_batch_timeout", def.Pipeline.PerBatchTimeout)
	v.SetDefault("pipeline.stage_timeout", def.Pipeline.StageTimeout)
	v.SetDefault("pipeline.max_inflight_searches", def.Pipeline.MaxInFlightSearches)
	v.SetDefault("pipeline.vector_search_timeout", def.Pipeline.VectorSearchTimeout)
	v.SetDefault("pipeline.trigger_timeout", def.Pipeline.TriggerTimeout)
	v.SetDefault("pipeline.progress_timeout", def.Pipeline.ProgressTimeout)
	v.SetDefault("pipeline.download_timeout", def.Pipeline.DownloadTimeout)
	v.SetDefault("pipeline.inactivity_window_days", def.Pipeline.InactivityWindowDays)
	v.SetDefault("pipeline.cache_ttl_days", def.Pipeline.CacheTTLDays)
	v.SetDefault("pipeline.enrichment_cost_per_call", def.Pipeline.EnrichmentCostPerCall)
	v.SetDefault("pipeline.scoring_cost_per_profile", def.Pipeline.ScoringCostPerProfile)

	v.SetDefault("providers.use_fixtures", def.Providers.UseFixtures)
	v.SetDefault("providers.request_timeout", def.Providers.RequestTimeout)
	v.SetDefault("providers.embeddings_provider", def.Providers.EmbeddingsProvider)
	v.SetDefault("providers.embedding_dims", def.Providers.EmbeddingDims)
	v.SetDefault("providers.vector_collection", def.Providers.VectorCollection)
	v.SetDefault("providers.enrichment_datasets", def.Providers.EnrichmentDatasets)
	v.SetDefault("providers.scoring_model", def.Providers.ScoringModel)

	v.SetDefault("event_bus.enabled", def.EventBus.Enabled)
	v.SetDefault("event_bus.subject_prefix", def.EventBus.Subject)

	v.SetDefault("ledger.clickhouse_enabled", def.Ledger.ClickHouseEnabled)
	v.SetDefault("archive.s3_enabled", def.Archive.S3Enabled)
	v.SetDefault("archive.s3_prefix", def.Archive.S3Prefix)

	v.SetDefault("retention.job_retention_days", def.Retention.JobRetentionDays)
	v.SetDefault("retention.cleanup_cron", def.Retention.CleanupCron)
	v.SetDefault("retention.cleanup_batch_size", def.Retention.CleanupBatchSize)
	v.SetDefault("retention.cache_sweep_enabled", def.Retention.CacheSweepEnabled)

	v.SetDefault("observability.metrics_port", def.Observability.MetricsPort)
	v.SetDefault("observability.log_level", def.Observability.LogLevel)
	v.SetDefault("observability.tracing.enabled", def.Observability.Tracing.Enabled)
	v.SetDefault("observability.tracing.endpoint", def.Observability.Tracing.Endpoint)
	v.SetDefault("observability.queue_sample_interval", def.Observability.QueueSampleInterval)
}

// Validate checks config constraints and returns an error on invalid settings.
func Validate(cfg *Config) error {
	if cfg.Worker.Concurrency < 1 {
		return fmt.Errorf("worker.concurrency must be >= 1")
	}
	if cfg.Queue.HeartbeatTTL < 5*time.Second {
		return fmt.Errorf("queue.heartbeat_ttl must be >= 5s")
	}
	if cfg.Queue.BRPopTimeout <= 0 || cfg.Queue.BRPopTimeout > cfg.Queue.HeartbeatTTL/2 {
		return fmt.Errorf("queue.brpop_timeout must be >0 and <= heartbeat_ttl/2")
	}
	if cfg.Admission.MaxActiveJobsPerKey < 1 {
		return fmt.Errorf("admission.max_active_jobs_per_key must be >= 1")
	}
	if cfg.Pipeline.BatchSize < 1 {
		return fmt.Errorf("pipeline.batch_size must be >= 1")
	}
	if cfg.Pipeline.MaxInFlightBatches < 1 {
		return fmt.Errorf("pipeline.max_inflight_batches must be >= 1")
	}
	if cfg.Pipeline.ScoringConcurrency < 1 {
		return fmt.Errorf("pipeline.scoring_concurrency must be >= 1")
	}
	if cfg.Observability.MetricsPort <= 0 || cfg.Observability.MetricsPort > 65535 {
		return fmt.Errorf("observability.metrics_port must be 1..65535")
	}
	return nil
}
