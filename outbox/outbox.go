package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/curve/clock"
	"example.com/curve/executor"
	"example.com/curve/metrics"
	"example.com/curve/publish"
)

// Outbox wires the Store, Poller, and Cleanup behind the one logical
// long-running scheduled task spec.md §5 describes for the poller (plus
// a second for cleanup), driven by the graceful executor's TickerLoop
// rather than a bare goroutine+ticker.
type Outbox struct {
	Store   *Store
	Poller  *Poller
	Cleanup *Cleanup

	pollLoop *executor.TickerLoop
}

// New constructs an Outbox. pollInterval defaults to 1s per spec.md
// §4.5's `pollIntervalMs` default.
func New(pool *pgxpool.Pool, broker publish.BrokerClient, pollerCfg PollerConfig, pollInterval time.Duration, clk clock.Clock, sink metrics.Sink) *Outbox {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	poller := NewPoller(pool, broker, pollerCfg, clk, sink)
	return &Outbox{
		Store:    NewStore(),
		Poller:   poller,
		pollLoop: executor.NewTickerLoop("outbox-poller", pollInterval, poller.Tick),
	}
}

// WithCleanup attaches a retention-based cleanup job on its own CRON
// schedule.
func (o *Outbox) WithCleanup(pool *pgxpool.Pool, retentionDays int, cronSpec string) *Outbox {
	o.Cleanup = NewCleanup(pool, retentionDays, cronSpec)
	return o
}

// Start launches the poller loop (and the cleanup scheduler, if
// attached). It should be called in a goroutine; it blocks until ctx is
// canceled.
func (o *Outbox) Start(ctx context.Context) error {
	if o.Cleanup != nil {
		if err := o.Cleanup.Start(ctx); err != nil {
			return err
		}
	}
	o.pollLoop.Start(ctx)
	if o.Cleanup != nil {
		o.Cleanup.Stop()
	}
	return nil
}

// Wait blocks until the poller loop has fully stopped.
func (o *Outbox) Wait() {
	o.pollLoop.Wait()
}
