package config

import (
	"example.com/curve/idgen"
	"example.com/curve/outbox"
	"example.com/curve/publish"
)

// ToPublishConfig projects Config onto the publisher's own configuration
// surface (publish.Config), the way the reference stack's main.go wires
// its top-level Config into each component's constructor rather than
// having components read the environment themselves.
func (c Config) ToPublishConfig() publish.Config {
	return publish.Config{
		Topic:    c.Kafka.Topic,
		DLQTopic: c.Kafka.DLQTopic,

		AsyncMode:      c.Kafka.AsyncMode,
		AsyncTimeout:   c.Kafka.AsyncTimeout,
		SyncTimeout:    c.Kafka.SyncTimeout,
		RequestTimeout: c.Kafka.RequestTimeout,

		RetryEnabled:    c.Retry.Enabled,
		MaxAttempts:     c.Retry.MaxAttempts,
		InitialInterval: c.Retry.InitialInterval,
		Multiplier:      c.Retry.Multiplier,
		MaxInterval:     c.Retry.MaxInterval,

		DLQExecutorThreads:         c.Kafka.DLQExecutorThreads,
		DLQExecutorShutdownTimeout: c.Kafka.DLQExecutorShutdownTimeout,

		BackupLocalEnabled: c.Kafka.BackupLocalEnabled,
	}
}

// ToPollerConfig projects Config onto the outbox poller's configuration
// surface.
func (c Config) ToPollerConfig() outbox.PollerConfig {
	return outbox.PollerConfig{
		Topic:               c.Kafka.Topic,
		BatchSize:           c.Outbox.BatchSize,
		MaxRetries:          c.Outbox.MaxRetries,
		SendTimeout:         c.Outbox.SendTimeout,
		DynamicBatchEnabled: true,

		CircuitBreakerEnabled: true,
	}
}

// NewIDGenerator builds an idgen.Generator from IDGenerator, deriving
// the worker id from the host when AutoGenerate is set and using the
// configured value otherwise.
func (c Config) NewIDGenerator(opts ...idgen.Option) (*idgen.Generator, error) {
	if c.IDGenerator.AutoGenerate {
		return idgen.NewAutoWorkerID(opts...)
	}
	return idgen.New(c.IDGenerator.WorkerID, opts...)
}
