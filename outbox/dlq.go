package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/curve/metrics"
)

// DLQEntry is a row of curve_outbox_dlq, adapted from the reference
// stack's dlqEntry, dropping the tenant-scoping columns this module has
// no multi-tenant concept for.
type DLQEntry struct {
	ID            int64
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Reason        string
	RetryCount    int
	NextRetryAt   *time.Time
	QuarantinedAt *time.Time
}

// DLQWriter persists rows the poller could not place back onto
// curve_outbox_events, adapted from the reference stack's DLQWriter.
type DLQWriter struct {
	pool *pgxpool.Pool
}

// NewDLQWriter constructs a DLQWriter.
func NewDLQWriter(pool *pgxpool.Pool) *DLQWriter {
	return &DLQWriter{pool: pool}
}

const insertDLQSQL = `
INSERT INTO curve_outbox_dlq (event_id, aggregate_type, aggregate_id, event_type, payload, reason, next_retry_at)
VALUES ($1, $2, $3, $4, $5, $6, now())`

// Write records one quarantined event.
func (w *DLQWriter) Write(ctx context.Context, e Event, reason string) error {
	_, err := w.pool.Exec(ctx, insertDLQSQL, e.EventID, e.AggregateType, e.AggregateID, e.EventType, e.Payload, reason)
	return err
}

// DLQManager retries DLQ entries back into curve_outbox_events,
// quarantining those that exceed maxRetries, adapted from the reference
// stack's DLQManager.
type DLQManager struct {
	pool       *pgxpool.Pool
	maxRetries int
	baseDelay  time.Duration
	sink       metrics.Sink
}

// NewDLQManager constructs a DLQManager with exponential backoff capped
// at one hour, matching the reference stack's backoffDelay.
func NewDLQManager(pool *pgxpool.Pool, maxRetries int, baseDelay time.Duration, sink metrics.Sink) *DLQManager {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Minute
	}
	if sink == nil {
		sink = metrics.NoOp{}
	}
	return &DLQManager{pool: pool, maxRetries: maxRetries, baseDelay: baseDelay, sink: sink}
}

const selectDLQBatchSQL = `
SELECT dlq_id, event_id, aggregate_type, aggregate_id, event_type, payload, reason, retry_count
FROM curve_outbox_dlq
WHERE quarantined_at IS NULL AND (next_retry_at IS NULL OR next_retry_at <= now())
ORDER BY created_at
LIMIT $1`

// RunOnce processes up to batchSize DLQ entries, returning the count
// successfully requeued.
func (m *DLQManager) RunOnce(ctx context.Context, batchSize int) (int, error) {
	rows, err := m.pool.Query(ctx, selectDLQBatchSQL, batchSize)
	if err != nil {
		return 0, err
	}

	var entries []DLQEntry
	for rows.Next() {
		var e DLQEntry
		if scanErr := rows.Scan(&e.ID, &e.EventID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.Reason, &e.RetryCount); scanErr != nil {
			rows.Close()
			return 0, scanErr
		}
		entries = append(entries, e)
	}
	rowsErr := rows.Err()
	rows.Close()
	if rowsErr != nil {
		return 0, rowsErr
	}

	processed := 0
	for _, entry := range entries {
		if err := m.handleEntry(ctx, entry); err != nil {
			continue
		}
		processed++
	}
	return processed, nil
}

func (m *DLQManager) handleEntry(ctx context.Context, entry DLQEntry) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if entry.RetryCount >= m.maxRetries {
		if _, err := tx.Exec(ctx, `UPDATE curve_outbox_dlq SET quarantined_at = now() WHERE dlq_id = $1`, entry.ID); err != nil {
			return err
		}
		m.sink.IncCounter(metrics.OutboxDLQQuarantineTotal, map[string]string{metrics.LabelTopic: entry.EventType})
		return tx.Commit(ctx)
	}

	if err := requeue(ctx, tx, entry); err != nil {
		delay := backoffDelay(entry.RetryCount+1, m.baseDelay)
		if _, execErr := tx.Exec(ctx,
			`UPDATE curve_outbox_dlq SET retry_count = retry_count + 1, last_attempt_at = now(), next_retry_at = $1, reason = $2 WHERE dlq_id = $3`,
			time.Now().Add(delay), err.Error(), entry.ID,
		); execErr != nil {
			return execErr
		}
		return tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM curve_outbox_dlq WHERE dlq_id = $1`, entry.ID); err != nil {
		return err
	}
	m.sink.IncCounter(metrics.OutboxDLQRequeuedTotal, map[string]string{metrics.LabelTopic: entry.EventType})
	return tx.Commit(ctx)
}

const requeueSQL = `
UPDATE curve_outbox_events
SET status = $1, retry_count = 0, next_retry_at = $2, error_message = NULL, updated_at = $2, version = version + 1
WHERE event_id = $3`

// requeue resets entry's original curve_outbox_events row back to
// PENDING so the poller picks it up on its next tick. The row is never
// deleted when it moves to the DLQ (see Poller.markFailed), so requeue
// updates it in place rather than re-inserting.
func requeue(ctx context.Context, tx pgx.Tx, entry DLQEntry) error {
	if entry.EventID == "" {
		return fmt.Errorf("missing event_id for dlq entry %d", entry.ID)
	}
	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, requeueSQL, StatusPending, now, entry.EventID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no curve_outbox_events row for event_id %s", entry.EventID)
	}
	return nil
}

// backoffDelay calculates exponential backoff capped at one hour,
// matching the reference stack's DLQManager.backoffDelay.
func backoffDelay(attempt int, base time.Duration) time.Duration {
	delay := time.Duration(1<<uint(attempt-1)) * base
	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}
