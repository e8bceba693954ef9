package publish

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"example.com/curve/curveerr"
	"example.com/curve/envelope"
	"example.com/curve/eventctx"
	"example.com/curve/executor"
	"example.com/curve/metrics"
	"example.com/curve/serialize"
)

// Publisher assembles envelopes from published payloads, serializes
// them (with redaction), and dispatches them to Broker, falling back
// to the DLQ topic and then local file backup on failure, per
// spec.md §4.2.
type Publisher struct {
	Factory    *envelope.Factory
	Serializer *serialize.Serializer
	Broker     BrokerClient
	Config     Config
	Metrics    metrics.Sink
	Executor   *executor.Pool

	shuttingDown atomic.Bool
}

// New constructs a Publisher. sink may be nil, defaulting to
// metrics.NoOp{}. The async executor is always a new internal pool sized
// from cfg.DLQExecutorThreads (at least one worker).
func New(factory *envelope.Factory, ser *serialize.Serializer, broker BrokerClient, cfg Config, sink metrics.Sink) *Publisher {
	if sink == nil {
		sink = metrics.NoOp{}
	}
	threads := cfg.DLQExecutorThreads
	if threads <= 0 {
		threads = 1
	}
	return &Publisher{
		Factory:    factory,
		Serializer: ser,
		Broker:     broker,
		Config:     cfg,
		Metrics:    sink,
		Executor:   executor.NewPool(threads, threads*64),
	}
}

// Publish assembles an envelope for payload at severity INFO and
// dispatches it. It is shorthand for PublishSeverity(ctx, p, payload, envelope.SeverityInfo, metadata).
func Publish[T envelope.EventPayload](ctx context.Context, p *Publisher, payload T, metadata eventctx.Metadata) error {
	return PublishSeverity(ctx, p, payload, envelope.SeverityInfo, metadata)
}

// PublishSeverity is the full publish(payload, severity) operation
// from spec.md §4.2: assemble, serialize, dispatch (sync or async),
// retry, DLQ fallback, file backup, metrics. It never returns an error
// for a transient broker failure; it does return one for a
// serialization failure or when the publisher is shutting down.
func PublishSeverity[T envelope.EventPayload](ctx context.Context, p *Publisher, payload T, severity envelope.Severity, metadata eventctx.Metadata) error {
	if p.shuttingDown.Load() {
		return curveerr.ErrShuttingDown
	}

	env, err := envelope.New(p.Factory, payload, severity, metadata)
	if err != nil {
		return err
	}
	if err := envelope.Validate(env); err != nil {
		return err
	}

	env = envelope.Restamp(env, time.Now().UTC())

	data, err := serialize.Serialize(p.Serializer, env)
	if err != nil {
		p.Metrics.IncCounter(metrics.PublishFailureTotal, map[string]string{metrics.LabelReason: "serialization"})
		return err
	}

	if p.Config.AsyncMode {
		return p.dispatchAsync(env.EventID, env.EventType, data)
	}
	return p.dispatchSync(ctx, env.EventID, env.EventType, data)
}

func (p *Publisher) dispatchSync(ctx context.Context, eventID, eventType string, data []byte) error {
	start := time.Now()
	p.Metrics.IncCounter(metrics.PublishAttemptsTotal, map[string]string{metrics.LabelTopic: p.Config.Topic})

	sendCtx, cancel := context.WithTimeout(ctx, syncTimeoutOrDefault(p.Config))
	defer cancel()

	err := withRetry(sendCtx, p.Config, func() error {
		return p.Broker.Send(sendCtx, p.Config.Topic, eventID, data)
	})

	p.Metrics.ObserveSeconds(metrics.PublishDuration, map[string]string{metrics.LabelTopic: p.Config.Topic}, time.Since(start).Seconds())

	if err == nil {
		p.Metrics.IncCounter(metrics.PublishSuccessTotal, map[string]string{metrics.LabelTopic: p.Config.Topic})
		return nil
	}

	p.fallback(ctx, eventID, eventType, data, err)
	return nil
}

func (p *Publisher) dispatchAsync(eventID, eventType string, data []byte) error {
	submitErr := p.Executor.Submit(func(taskCtx context.Context) {
		ctx, cancel := context.WithTimeout(taskCtx, asyncTimeoutOrDefault(p.Config))
		defer cancel()

		p.Metrics.IncCounter(metrics.PublishAttemptsTotal, map[string]string{metrics.LabelTopic: p.Config.Topic})
		err := withRetry(ctx, p.Config, func() error {
			return p.Broker.Send(ctx, p.Config.Topic, eventID, data)
		})
		if err == nil {
			p.Metrics.IncCounter(metrics.PublishSuccessTotal, map[string]string{metrics.LabelTopic: p.Config.Topic})
			return
		}
		p.fallback(ctx, eventID, eventType, data, err)
	})
	if submitErr != nil {
		return submitErr
	}
	return nil
}

// fallback implements spec.md §4.2 steps 6-7: a single DLQ attempt,
// then file backup if the DLQ send also fails or is not configured.
func (p *Publisher) fallback(ctx context.Context, eventID, eventType string, data []byte, cause error) {
	p.Metrics.IncCounter(metrics.PublishFailureTotal, map[string]string{metrics.LabelTopic: p.Config.Topic})

	if p.Config.DLQTopic != "" {
		dlqErr := p.Broker.Send(ctx, p.Config.DLQTopic, eventID, data)
		if dlqErr == nil {
			p.Metrics.IncCounter(metrics.PublishDLQTotal, map[string]string{metrics.LabelTopic: p.Config.DLQTopic})
			return
		}
		log.Printf("curve: dlq send failed for event %s (%s): %v", eventID, eventType, dlqErr)
	}

	if !p.Config.BackupLocalEnabled {
		log.Printf("curve: publish failed permanently for event %s (%s), no backup configured: %v", eventID, eventType, cause)
		return
	}

	if err := writeBackup(p.Config.BackupPath, eventID, data); err != nil {
		log.Printf("curve: file backup failed for event %s (%s): %v", eventID, eventType, err)
		return
	}
	p.Metrics.IncCounter(metrics.PublishBackupTotal, map[string]string{metrics.LabelTopic: p.Config.Topic})
}

func syncTimeoutOrDefault(cfg Config) time.Duration {
	if cfg.SyncTimeout > 0 {
		return cfg.SyncTimeout
	}
	return 10 * time.Second
}

func asyncTimeoutOrDefault(cfg Config) time.Duration {
	if cfg.AsyncTimeout > 0 {
		return cfg.AsyncTimeout
	}
	return 10 * time.Second
}

// Shutdown rejects new Publish calls and drains the async executor,
// waiting up to cfg.DLQExecutorShutdownTimeout.
func (p *Publisher) Shutdown(ctx context.Context) error {
	p.shuttingDown.Store(true)
	if d := p.Config.DLQExecutorShutdownTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return p.Executor.Shutdown(ctx)
}
