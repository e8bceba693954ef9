package outbox

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig sizes the connection pool NewPool builds. MaxConns caps the
// pool's open connections; the outbox store, the poller and any other
// caller of the pool share that cap. A poller tick holds one connection
// for its transaction (plus one for the backlog count when dynamic
// batching is on) and sends its rows one at a time.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnIdleTime time.Duration
}

func (cfg *PoolConfig) applyDefaults() {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 10
	}
	if cfg.MaxConnIdleTime <= 0 {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}
}

// NewPool builds a traced pgx connection pool for the outbox store and
// poller, so outbox writes and claims show up in the same trace as the
// business transaction that produced them.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	cfg.applyDefaults()

	parsed, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("outbox: parsing pool dsn: %w", err)
	}
	parsed.MaxConns = cfg.MaxConns
	parsed.MaxConnIdleTime = cfg.MaxConnIdleTime
	parsed.ConnConfig.Tracer = otelpgx.NewTracer(otelpgx.WithTrimSQLInSpanName())

	pool, err := pgxpool.NewWithConfig(ctx, parsed)
	if err != nil {
		return nil, err
	}

	recordPoolStats(pool)
	return pool, nil
}

// recordPoolStats wires the pool's acquire/idle/use counters into the
// otelpgx metric exporter; a failure here degrades observability, not
// the pool itself, so it is logged rather than returned.
func recordPoolStats(pool *pgxpool.Pool) {
	if err := otelpgx.RecordStats(pool); err != nil {
		log.Printf("outbox: failed to record pgx pool stats: %v", err)
	}
}
