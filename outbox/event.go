// Package outbox implements the transactional outbox described in
// spec.md §4.5: a relational table co-transacted with business state,
// drained by a scheduled poller with per-row backoff, a circuit
// breaker, and dynamic batch sizing. It is grounded on the reference
// stack's internal/outbox package (dispatcher.go, producer.go,
// schema_registry.go, dlq_manager.go, failure.go, metrics.go).
package outbox

import "time"

// Status is an OutboxEvent's lifecycle state, per spec.md §3's
// `status ∈ {PENDING, PUBLISHED, FAILED}`.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPublished Status = "PUBLISHED"
	StatusFailed    Status = "FAILED"
)

// Event is one row of curve_outbox_events, matching spec.md §6's table
// layout. EventID is the publisher's Snowflake id rendered as a decimal
// string, so a single id space spans both the synchronous publish path
// and the outbox path.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	OccurredAt    time.Time
	Status        Status
	RetryCount    int
	PublishedAt   *time.Time
	ErrorMessage  *string
	NextRetryAt   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
}

// NewEvent constructs a PENDING Event ready for insertion within the
// caller's transaction, per spec.md §4.5 write-path steps 2-3.
func NewEvent(eventID, aggregateType, aggregateID, eventType string, payload []byte, occurredAt time.Time) Event {
	return Event{
		EventID:       eventID,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		OccurredAt:    occurredAt,
		Status:        StatusPending,
		RetryCount:    0,
		NextRetryAt:   occurredAt,
		CreatedAt:     occurredAt,
		UpdatedAt:     occurredAt,
	}
}
