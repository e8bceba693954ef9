package outbox

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
)

// deleteBatchSize is the per-pass deletion cap spec.md §4.5's Cleanup
// step repeats until a pass deletes fewer rows than this.
const deleteBatchSize = 1000

const deletePublishedBatchSQL = `
DELETE FROM curve_outbox_events
WHERE event_id IN (
	SELECT event_id FROM curve_outbox_events
	WHERE status = $1 AND occurred_at < $2
	LIMIT $3
)`

// Cleanup repeatedly deletes PUBLISHED rows older than retentionDays,
// scheduled by a CRON expression (default "0 0 2 * * *") via
// robfig/cron/v3 in place of a hand-rolled ticker, since this concern
// is expressed as a calendar schedule rather than a fixed interval.
type Cleanup struct {
	pool          *pgxpool.Pool
	retentionDays int
	cronSpec      string

	scheduler *cron.Cron
}

// NewCleanup constructs a Cleanup. retentionDays must be positive.
func NewCleanup(pool *pgxpool.Pool, retentionDays int, cronSpec string) *Cleanup {
	if cronSpec == "" {
		cronSpec = "0 0 2 * * *"
	}
	return &Cleanup{
		pool:          pool,
		retentionDays: retentionDays,
		cronSpec:      cronSpec,
		scheduler:     cron.New(cron.WithSeconds()),
	}
}

// Start registers the cleanup job on the CRON schedule and starts the
// scheduler's own goroutine.
func (c *Cleanup) Start(ctx context.Context) error {
	_, err := c.scheduler.AddFunc(c.cronSpec, func() {
		if err := c.RunOnce(ctx); err != nil {
			log.Printf("curve: outbox cleanup failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	c.scheduler.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight run to finish.
func (c *Cleanup) Stop() {
	<-c.scheduler.Stop().Done()
}

// RunOnce deletes PUBLISHED rows older than the retention window in
// batches of deleteBatchSize until a pass deletes fewer than that.
func (c *Cleanup) RunOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -c.retentionDays)

	for {
		tag, err := c.pool.Exec(ctx, deletePublishedBatchSQL, StatusPublished, cutoff, deleteBatchSize)
		if err != nil {
			return err
		}
		if tag.RowsAffected() < deleteBatchSize {
			return nil
		}
	}
}
