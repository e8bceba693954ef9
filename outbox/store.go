package outbox

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store writes outbox rows. Enqueue generalizes the reference stack's
// repository.insertOutbox: callers pass their own pgx.Tx so the outbox
// insert commits atomically with business state, per spec.md §4.5
// write-path step 4 and §5's "scoped database transactions" note.
type Store struct{}

// NewStore constructs a Store. It carries no state of its own; every
// operation takes the caller's transaction or pool explicitly.
func NewStore() *Store {
	return &Store{}
}

const insertEventSQL = `
INSERT INTO curve_outbox_events
	(event_id, aggregate_type, aggregate_id, event_type, payload, occurred_at,
	 status, retry_count, next_retry_at, created_at, updated_at, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)`

// Enqueue inserts event within tx. The caller commits tx; the row is
// only visible to the poller after that commit.
func (s *Store) Enqueue(ctx context.Context, tx pgx.Tx, event Event) error {
	_, err := tx.Exec(ctx, insertEventSQL,
		event.EventID,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		event.Payload,
		event.OccurredAt,
		event.Status,
		event.RetryCount,
		event.NextRetryAt,
		event.CreatedAt,
		event.UpdatedAt,
	)
	return err
}

// SchemaMode controls how curve_outbox_events/curve_outbox_dlq get
// created, per spec.md §4.5's "Schema-initialization mode".
type SchemaMode string

const (
	// SchemaModeEmbedded creates the tables only for a recognized
	// embedded/test store. This module has no embedded-store detection
	// of its own, so it treats Embedded the same as Never; callers
	// targeting an embedded Postgres in tests should use Always.
	SchemaModeEmbedded SchemaMode = "EMBEDDED"
	// SchemaModeAlways always issues CREATE TABLE IF NOT EXISTS.
	SchemaModeAlways SchemaMode = "ALWAYS"
	// SchemaModeNever leaves schema entirely to the operator.
	SchemaModeNever SchemaMode = "NEVER"
)

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS curve_outbox_events (
	event_id       VARCHAR(64)   PRIMARY KEY,
	aggregate_type VARCHAR(100)  NOT NULL,
	aggregate_id   VARCHAR(100)  NOT NULL,
	event_type     VARCHAR(100)  NOT NULL,
	payload        TEXT          NOT NULL,
	occurred_at    TIMESTAMPTZ   NOT NULL,
	status         VARCHAR(20)   NOT NULL,
	retry_count    INT           NOT NULL DEFAULT 0,
	published_at   TIMESTAMPTZ   NULL,
	error_message  VARCHAR(500)  NULL,
	next_retry_at  TIMESTAMPTZ   NULL,
	created_at     TIMESTAMPTZ   NOT NULL,
	updated_at     TIMESTAMPTZ   NOT NULL,
	version        BIGINT        NULL
);
CREATE INDEX IF NOT EXISTS curve_outbox_events_status_idx ON curve_outbox_events (status);
CREATE INDEX IF NOT EXISTS curve_outbox_events_aggregate_idx ON curve_outbox_events (aggregate_type, aggregate_id);
CREATE INDEX IF NOT EXISTS curve_outbox_events_occurred_at_idx ON curve_outbox_events (occurred_at);
CREATE INDEX IF NOT EXISTS curve_outbox_events_next_retry_at_idx ON curve_outbox_events (next_retry_at);

CREATE TABLE IF NOT EXISTS curve_outbox_dlq (
	dlq_id          BIGSERIAL    PRIMARY KEY,
	event_id        VARCHAR(64)  NOT NULL,
	aggregate_type  VARCHAR(100) NOT NULL,
	aggregate_id    VARCHAR(100) NOT NULL,
	event_type      VARCHAR(100) NOT NULL,
	payload         TEXT         NOT NULL,
	reason          TEXT         NOT NULL,
	retry_count     INT          NOT NULL DEFAULT 0,
	last_attempt_at TIMESTAMPTZ  NULL,
	next_retry_at   TIMESTAMPTZ  NULL,
	quarantined_at  TIMESTAMPTZ  NULL,
	created_at      TIMESTAMPTZ  NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS curve_outbox_dlq_pending_idx ON curve_outbox_dlq (quarantined_at, next_retry_at);
`

// EnsureSchema creates curve_outbox_events/curve_outbox_dlq when mode is
// SchemaModeAlways; it is a no-op for Embedded/Never, per spec.md §4.5.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, mode SchemaMode) error {
	if mode != SchemaModeAlways {
		return nil
	}
	_, err := pool.Exec(ctx, createTablesSQL)
	return err
}
