// Package publish assembles, serializes, and dispatches envelopes to a
// broker, with retry, DLQ fallback, and local file backup, per
// spec.md §4.2. The dispatch plumbing (lazy per-topic writer, acks=all,
// compression) is grounded on the reference stack's KafkaProducer
// (instagrim-dev-fitpulse/internal/outbox/producer.go); the retry
// policy is grounded on the reference stack's use of
// github.com/cenkalti/backoff/v4 (fairyhunter13-ai-cv-evaluator's
// internal/adapter/ai/real/client.go).
package publish

import "time"

// Config is the publisher's configuration surface, named after
// spec.md §6's conceptual keys.
type Config struct {
	Topic    string
	DLQTopic string

	AsyncMode      bool
	AsyncTimeout   time.Duration
	SyncTimeout    time.Duration
	RequestTimeout time.Duration

	RetryEnabled    bool
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration

	DLQExecutorThreads         int
	DLQExecutorShutdownTimeout time.Duration

	BackupLocalEnabled bool
	BackupPath         string
}

// DefaultConfig returns conservative defaults matching the validation
// ranges in spec.md §6.
func DefaultConfig(topic string) Config {
	return Config{
		Topic:                      topic,
		SyncTimeout:                10 * time.Second,
		RequestTimeout:             10 * time.Second,
		RetryEnabled:               true,
		MaxAttempts:                3,
		InitialInterval:            200 * time.Millisecond,
		Multiplier:                 2.0,
		MaxInterval:                5 * time.Second,
		DLQExecutorThreads:         2,
		DLQExecutorShutdownTimeout: 10 * time.Second,
		BackupLocalEnabled:         true,
		BackupPath:                 "./curve-backup",
	}
}
