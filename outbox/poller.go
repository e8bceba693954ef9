package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/curve/clock"
	"example.com/curve/curveerr"
	"example.com/curve/metrics"
	"example.com/curve/publish"
	"example.com/curve/schema"
)

// PollerConfig is the poller's configuration surface, named after
// spec.md §6's conceptual `outbox.*` keys.
type PollerConfig struct {
	Topic               string
	BatchSize           int
	MaxRetries          int
	SendTimeout         time.Duration
	DynamicBatchEnabled bool

	CircuitBreakerEnabled bool
	CircuitOpenDuration   time.Duration
}

// SchemaResolver maps an event type to the schema-registry subject and
// raw schema document EnsureSchema should register/fetch for it. A nil
// resolver skips Confluent wire framing entirely, publishing payload
// bytes as-is.
type SchemaResolver func(eventType string) (subject, schemaJSON string)

// Poller drains curve_outbox_events to the broker, generalizing the
// reference stack's Dispatcher with the circuit breaker and dynamic
// batch sizing spec.md §4.5 adds.
type Poller struct {
	pool   *pgxpool.Pool
	broker publish.BrokerClient
	cfg    PollerConfig
	clock  clock.Clock
	sink   metrics.Sink

	schemaClient   *schema.ConfluentClient
	schemaResolver SchemaResolver
	schemaIDCache  map[string]int

	breaker *CircuitBreaker
}

// NewPoller constructs a Poller. sink defaults to metrics.NoOp{}; clk
// defaults to clock.System{}.
func NewPoller(pool *pgxpool.Pool, broker publish.BrokerClient, cfg PollerConfig, clk clock.Clock, sink metrics.Sink) *Poller {
	if clk == nil {
		clk = clock.System{}
	}
	if sink == nil {
		sink = metrics.NoOp{}
	}
	return &Poller{
		pool:          pool,
		broker:        broker,
		cfg:           cfg,
		clock:         clk,
		sink:          sink,
		schemaIDCache: make(map[string]int),
		breaker:       NewCircuitBreaker(cfg.CircuitOpenDuration),
	}
}

// WithSchemaRegistry wires an optional Confluent-compatible schema
// registry client and event-type resolver, applying Confluent wire
// framing (magic byte + 4-byte schema id) to every row it sends, per
// spec.md §6's broker record shape and the reference stack's
// schema_registry.go / encodeWireFormat.
func (p *Poller) WithSchemaRegistry(client *schema.ConfluentClient, resolver SchemaResolver) *Poller {
	p.schemaClient = client
	p.schemaResolver = resolver
	return p
}

// Tick runs one poller cycle: spec.md §4.5 steps 1-7. It returns nil
// when the circuit breaker skips the tick or there is nothing PENDING.
func (p *Poller) Tick(ctx context.Context) error {
	now := p.clock.Now()

	if p.cfg.CircuitBreakerEnabled && !p.breaker.Allow(now) {
		p.sink.SetGauge(metrics.OutboxCircuitStateGauge, nil, float64(CircuitOpen))
		return nil
	}

	effective, err := p.effectiveBatchSize(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	rows, err := p.claim(ctx, tx, effective, now)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		committed = true
		return tx.Commit(ctx)
	}

	for i := range rows {
		p.sendRow(ctx, tx, &rows[i], now)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	committed = true

	p.sink.ObserveSeconds(metrics.OutboxBatchDuration, nil, time.Since(start).Seconds())
	p.sink.SetGauge(metrics.OutboxCircuitStateGauge, nil, float64(p.breaker.State()))
	return nil
}

// effectiveBatchSize implements spec.md §4.5 step 2's dynamic sizing.
func (p *Poller) effectiveBatchSize(ctx context.Context) (int, error) {
	base := p.cfg.BatchSize
	if base <= 0 {
		base = 100
	}
	if !p.cfg.DynamicBatchEnabled {
		return base, nil
	}

	var pending int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM curve_outbox_events WHERE status = $1`, StatusPending).Scan(&pending)
	if err != nil {
		return 0, err
	}
	p.sink.SetGauge(metrics.OutboxBacklogGauge, nil, float64(pending))

	return dynamicBatchSize(base, pending), nil
}

// dynamicBatchSize is the pure calculation behind spec.md §4.5 step 2,
// split out from effectiveBatchSize so it can be tested without a
// database.
func dynamicBatchSize(base, pending int) int {
	switch {
	case pending > 1000:
		return minInt(base*2, 500)
	case pending > 500:
		return minInt(int(float64(base)*1.5), 300)
	case pending < 10:
		return minInt(base, 10)
	default:
		return base
	}
}

const claimSQL = `
SELECT event_id, aggregate_type, aggregate_id, event_type, payload, occurred_at,
       status, retry_count, published_at, error_message, next_retry_at, created_at, updated_at, version
FROM curve_outbox_events
WHERE status = $1 AND next_retry_at <= $2
ORDER BY occurred_at ASC
LIMIT $3
FOR UPDATE SKIP LOCKED`

func (p *Poller) claim(ctx context.Context, tx pgx.Tx, limit int, now time.Time) ([]Event, error) {
	rows, err := tx.Query(ctx, claimSQL, StatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.EventID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload,
			&e.OccurredAt, &e.Status, &e.RetryCount, &e.PublishedAt, &e.ErrorMessage, &e.NextRetryAt,
			&e.CreatedAt, &e.UpdatedAt, &e.Version); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// sendRow implements spec.md §4.5 steps 4-6 for a single claimed row,
// applying the update in-place within tx. It never returns an error:
// broker failures are recorded on the row and in the breaker, never
// abort the batch (per spec.md §7's propagation policy for the outbox
// path).
func (p *Poller) sendRow(ctx context.Context, tx pgx.Tx, e *Event, now time.Time) {
	payload := p.encode(ctx, e)

	sendCtx, cancel := context.WithTimeout(ctx, p.sendTimeoutOrDefault())
	defer cancel()

	err := p.broker.Send(sendCtx, p.cfg.Topic, e.EventID, payload)
	if err == nil {
		p.markPublished(ctx, tx, e, now)
		if p.cfg.CircuitBreakerEnabled {
			p.breaker.RecordSuccess()
		}
		p.sink.IncCounter(metrics.OutboxDeliveredTotal, map[string]string{metrics.LabelTopic: p.cfg.Topic})
		return
	}

	p.markFailed(ctx, tx, e, now, err)
	if p.cfg.CircuitBreakerEnabled {
		p.breaker.RecordFailure(now)
	}
	p.sink.IncCounter(metrics.OutboxFailedTotal, map[string]string{metrics.LabelTopic: p.cfg.Topic})
}

// encode applies Confluent wire framing when a schema registry is
// wired, caching schema ids per event type for the poller's lifetime.
func (p *Poller) encode(ctx context.Context, e *Event) []byte {
	if p.schemaClient == nil || p.schemaResolver == nil {
		return e.Payload
	}
	id, ok := p.schemaIDCache[e.EventType]
	if !ok {
		subject, schemaJSON := p.schemaResolver(e.EventType)
		fetched, err := p.schemaClient.EnsureSchema(ctx, subject, schemaJSON)
		if err != nil {
			// Schema registry failures fall back to unframed payload
			// rather than abandoning the send; the broker failure path
			// (if any) still gets recorded on the row normally.
			return e.Payload
		}
		id = fetched
		p.schemaIDCache[e.EventType] = id
	}
	return schema.EncodeWire(id, e.Payload)
}

const markPublishedSQL = `UPDATE curve_outbox_events SET status = $1, published_at = $2, updated_at = $2, version = version + 1 WHERE event_id = $3`

func (p *Poller) markPublished(ctx context.Context, tx pgx.Tx, e *Event, now time.Time) {
	_, _ = tx.Exec(ctx, markPublishedSQL, StatusPublished, now, e.EventID)
}

const markFailedSQL = `UPDATE curve_outbox_events SET status = $1, retry_count = $2, next_retry_at = $3, error_message = $4, updated_at = $5, version = version + 1 WHERE event_id = $6`

func (p *Poller) markFailed(ctx context.Context, tx pgx.Tx, e *Event, now time.Time, cause error) {
	retryCount := e.RetryCount + 1
	nextRetryAt := retryBackoff(now, retryCount)
	message := curveerr.Truncate(cause, 500)

	maxRetries := p.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	status := nextStatus(retryCount, maxRetries)

	_, _ = tx.Exec(ctx, markFailedSQL, status, retryCount, nextRetryAt, message, now, e.EventID)

	if status == StatusFailed {
		_, _ = tx.Exec(ctx, insertDLQSQL, e.EventID, e.AggregateType, e.AggregateID, e.EventType, e.Payload, message)
		p.sink.IncCounter(metrics.OutboxDLQTotal, map[string]string{metrics.LabelTopic: p.cfg.Topic})
	}
}

// retryBackoff implements spec.md §4.5 step 6's `now + 2^retryCount ×
// 1000ms`, split out for unit testing.
func retryBackoff(now time.Time, retryCount int) time.Time {
	return now.Add(time.Duration(1<<uint(retryCount)) * time.Second)
}

// nextStatus implements spec.md §4.5 step 6's FAILED threshold check.
func nextStatus(retryCount, maxRetries int) Status {
	if retryCount >= maxRetries {
		return StatusFailed
	}
	return StatusPending
}

func (p *Poller) sendTimeoutOrDefault() time.Duration {
	if p.cfg.SendTimeout > 0 {
		return p.cfg.SendTimeout
	}
	return 10 * time.Second
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
