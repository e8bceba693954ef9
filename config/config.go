// Package config centralises configuration parsing for curve, the way
// the reference stack's internal/config package does for the activity
// service: one Load() call, env vars with sane defaults, validated
// ranges enforced once at startup rather than scattered through the
// components that consume them.
package config

import (
	"os"
	"strconv"
	"time"

	"example.com/curve/curveerr"
)

// KafkaConfig is the publisher's broker-facing surface.
type KafkaConfig struct {
	Topic    string
	DLQTopic string

	AsyncMode      bool
	AsyncTimeout   time.Duration
	SyncTimeout    time.Duration
	Retries        int
	RetryBackoff   time.Duration
	RequestTimeout time.Duration

	DLQExecutorThreads         int
	DLQExecutorShutdownTimeout time.Duration

	BackupLocalEnabled bool
	BackupS3Enabled    bool
}

// RetryConfig is the publisher's retry policy.
type RetryConfig struct {
	Enabled         bool
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
}

// PIIConfig is the redaction layer's crypto configuration.
type PIIConfig struct {
	Enabled    bool
	DefaultKey string
	Salt       string
}

// OutboxConfig is the transactional outbox's configuration.
type OutboxConfig struct {
	Enabled          bool
	PollInterval     time.Duration
	BatchSize        int
	MaxRetries       int
	SendTimeout      time.Duration
	CleanupEnabled   bool
	RetentionDays    int
	CleanupCron      string
	InitializeSchema bool
	PublisherEnabled bool
}

// IDGeneratorConfig is the Snowflake id generator's configuration.
type IDGeneratorConfig struct {
	WorkerID     int64
	AutoGenerate bool
}

// Config is the top-level configuration surface, matching spec.md §6's
// conceptual key list (`enabled, kafka.*, retry.*, pii.*, outbox.*,
// idGenerator.*, serde.type`).
type Config struct {
	Enabled bool

	Kafka       KafkaConfig
	Retry       RetryConfig
	PII         PIIConfig
	Outbox      OutboxConfig
	IDGenerator IDGeneratorConfig
	SerdeType   string
}

// Load reads environment variables into Config, applying conservative
// defaults in line with publish.DefaultConfig and the outbox poller's
// zero-value fallbacks, then validates the result. Unlike
// publish.DefaultConfig, Load defaults the DLQ topic to
// "curve.events.dlq" and the async timeout to 5s, and has no backup-path
// setting.
func Load() (Config, error) {
	cfg := Config{
		Enabled: getBoolEnv("CURVE_ENABLED", true),
		Kafka: KafkaConfig{
			Topic:                      getEnv("CURVE_KAFKA_TOPIC", "curve.events"),
			DLQTopic:                   getEnv("CURVE_KAFKA_DLQ_TOPIC", "curve.events.dlq"),
			AsyncMode:                  getBoolEnv("CURVE_KAFKA_ASYNC_MODE", false),
			AsyncTimeout:               getDurationMsEnv("CURVE_KAFKA_ASYNC_TIMEOUT_MS", 5*time.Second),
			SyncTimeout:                getDurationSecEnv("CURVE_KAFKA_SYNC_TIMEOUT_SECONDS", 10*time.Second),
			Retries:                    getIntEnv("CURVE_KAFKA_RETRIES", 3),
			RetryBackoff:               getDurationMsEnv("CURVE_KAFKA_RETRY_BACKOFF_MS", 200*time.Millisecond),
			RequestTimeout:             getDurationMsEnv("CURVE_KAFKA_REQUEST_TIMEOUT_MS", 10*time.Second),
			DLQExecutorThreads:         getIntEnv("CURVE_KAFKA_DLQ_EXECUTOR_THREADS", 2),
			DLQExecutorShutdownTimeout: getDurationSecEnv("CURVE_KAFKA_DLQ_EXECUTOR_SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second),
			BackupLocalEnabled:         getBoolEnv("CURVE_KAFKA_BACKUP_LOCAL_ENABLED", true),
			BackupS3Enabled:            getBoolEnv("CURVE_KAFKA_BACKUP_S3_ENABLED", false),
		},
		Retry: RetryConfig{
			Enabled:         getBoolEnv("CURVE_RETRY_ENABLED", true),
			MaxAttempts:     getIntEnv("CURVE_RETRY_MAX_ATTEMPTS", 3),
			InitialInterval: getDurationMsEnv("CURVE_RETRY_INITIAL_INTERVAL_MS", 200*time.Millisecond),
			Multiplier:      getFloatEnv("CURVE_RETRY_MULTIPLIER", 2.0),
			MaxInterval:     getDurationMsEnv("CURVE_RETRY_MAX_INTERVAL_MS", 5*time.Second),
		},
		PII: PIIConfig{
			Enabled:    getBoolEnv("CURVE_PII_ENABLED", false),
			DefaultKey: getEnv("PII_ENCRYPTION_KEY", ""),
			Salt:       getEnv("PII_HASH_SALT", ""),
		},
		Outbox: OutboxConfig{
			Enabled:          getBoolEnv("CURVE_OUTBOX_ENABLED", false),
			PollInterval:     getDurationMsEnv("CURVE_OUTBOX_POLL_INTERVAL_MS", time.Second),
			BatchSize:        getIntEnv("CURVE_OUTBOX_BATCH_SIZE", 100),
			MaxRetries:       getIntEnv("CURVE_OUTBOX_MAX_RETRIES", 5),
			SendTimeout:      getDurationSecEnv("CURVE_OUTBOX_SEND_TIMEOUT_SECONDS", 10*time.Second),
			CleanupEnabled:   getBoolEnv("CURVE_OUTBOX_CLEANUP_ENABLED", true),
			RetentionDays:    getIntEnv("CURVE_OUTBOX_RETENTION_DAYS", 7),
			CleanupCron:      getEnv("CURVE_OUTBOX_CLEANUP_CRON", "0 0 2 * * *"),
			InitializeSchema: getBoolEnv("CURVE_OUTBOX_INITIALIZE_SCHEMA", false),
			PublisherEnabled: getBoolEnv("CURVE_OUTBOX_PUBLISHER_ENABLED", true),
		},
		IDGenerator: IDGeneratorConfig{
			WorkerID:     int64(getIntEnv("CURVE_ID_GENERATOR_WORKER_ID", 0)),
			AutoGenerate: getBoolEnv("CURVE_ID_GENERATOR_AUTO_GENERATE", true),
		},
		SerdeType: getEnv("CURVE_SERDE_TYPE", "json"),
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces spec.md §6's validation ranges. It is exported
// separately from Load so callers assembling a Config by hand (tests,
// alternate loaders) can reuse the same checks.
func Validate(cfg Config) error {
	if !cfg.IDGenerator.AutoGenerate {
		if cfg.IDGenerator.WorkerID < 0 || cfg.IDGenerator.WorkerID > 1023 {
			return curveerr.New(curveerr.KindPublishConfig, "idGenerator.workerId must be in [0,1023]", nil)
		}
	}
	if cfg.Outbox.BatchSize < 1 || cfg.Outbox.BatchSize > 1000 {
		return curveerr.New(curveerr.KindPublishConfig, "outbox.batchSize must be in [1,1000]", nil)
	}
	if cfg.Retry.Enabled {
		if cfg.Retry.MaxAttempts < 1 {
			return curveerr.New(curveerr.KindPublishConfig, "retry.maxAttempts must be >= 1", nil)
		}
		if cfg.Retry.Multiplier < 1 {
			return curveerr.New(curveerr.KindPublishConfig, "retry.multiplier must be >= 1", nil)
		}
	}
	for name, d := range map[string]time.Duration{
		"kafka.asyncTimeoutMs":      cfg.Kafka.AsyncTimeout,
		"kafka.syncTimeoutSeconds":  cfg.Kafka.SyncTimeout,
		"kafka.requestTimeoutMs":    cfg.Kafka.RequestTimeout,
		"outbox.sendTimeoutSeconds": cfg.Outbox.SendTimeout,
	} {
		if d <= 0 {
			return curveerr.New(curveerr.KindPublishConfig, name+" must be positive", nil)
		}
	}
	if cfg.PII.Enabled && cfg.PII.DefaultKey == "" {
		return curveerr.New(curveerr.KindPublishConfig, "pii.crypto.defaultKey is required when pii.enabled is true", nil)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationMsEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return fallback
}

func getDurationSecEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return time.Duration(parsed) * time.Second
		}
	}
	return fallback
}
