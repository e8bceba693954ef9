// Package envelope assembles and validates the immutable EventEnvelope
// carried across the wire, per spec.md §3 and §9's polymorphic-payload
// design note: payloads are modeled as an EventPayload interface rather
// than via reflective type discovery.
package envelope

import (
	"strconv"
	"time"

	"example.com/curve/clock"
	"example.com/curve/curveerr"
	"example.com/curve/eventctx"
	"example.com/curve/idgen"
)

// Severity classifies how urgently an event should be handled downstream.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarn     Severity = "WARN"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// EventPayload is the contract every domain event payload implements. It
// replaces reflective type discovery with a single explicit method, per
// spec.md §9.
type EventPayload interface {
	EventTypeTag() string
}

// Envelope is the immutable record carrying one event and its metadata.
// New populates all seven fields but checks none of them; there is no
// separate construction-failure error. Empty or invalid fields and the
// occurredAt/publishedAt ordering invariant are all reported by Validate
// as KindInvalidEvent.
type Envelope[T EventPayload] struct {
	EventID     string
	EventType   string
	Severity    Severity
	Metadata    eventctx.Metadata
	Payload     T
	OccurredAt  time.Time
	PublishedAt time.Time
}

// Factory assembles envelopes, stamping the id (via idgen) and timestamps
// (via clock), per spec.md §4.2 step 1.
type Factory struct {
	IDs   *idgen.Generator
	Clock clock.Clock
}

// NewFactory constructs a Factory. clk defaults to clock.System{} if nil.
func NewFactory(ids *idgen.Generator, clk clock.Clock) *Factory {
	if clk == nil {
		clk = clock.System{}
	}
	return &Factory{IDs: ids, Clock: clk}
}

// New builds an envelope for payload with the given severity and metadata.
// occurredAt and publishedAt are both stamped to "now"; publishedAt may be
// restamped by the publisher immediately before send.
func New[T EventPayload](f *Factory, payload T, severity Severity, metadata eventctx.Metadata) (Envelope[T], error) {
	id, err := f.IDs.Generate()
	if err != nil {
		return Envelope[T]{}, err
	}

	now := f.Clock.Now()
	env := Envelope[T]{
		EventID:     formatEventID(id),
		EventType:   payload.EventTypeTag(),
		Severity:    severity,
		Metadata:    metadata,
		Payload:     payload,
		OccurredAt:  now,
		PublishedAt: now,
	}
	return env, nil
}

// Restamp returns a copy of env with PublishedAt set to "now", used by the
// publisher immediately before send so PublishedAt reflects actual dispatch
// time rather than envelope-construction time.
func Restamp[T EventPayload](env Envelope[T], now time.Time) Envelope[T] {
	env.PublishedAt = now
	return env
}

// Validate enforces the invariants from spec.md §3: eventId, eventType
// and severity are non-empty, the metadata source and schema are valid,
// both timestamps are non-zero, and occurredAt <= publishedAt. The
// payload and the actor, trace and tags metadata are not checked.
func Validate[T EventPayload](env Envelope[T]) error {
	if env.EventID == "" {
		return curveerr.New(curveerr.KindInvalidEvent, "eventId must not be empty", nil)
	}
	if env.EventType == "" {
		return curveerr.New(curveerr.KindInvalidEvent, "eventType must not be empty", nil)
	}
	if env.Severity == "" {
		return curveerr.New(curveerr.KindInvalidEvent, "severity must not be empty", nil)
	}
	if err := env.Metadata.Source.Validate(); err != nil {
		return curveerr.New(curveerr.KindInvalidEvent, "metadata.source invalid", err)
	}
	if err := env.Metadata.Schema.Validate(); err != nil {
		return curveerr.New(curveerr.KindInvalidEvent, "metadata.schema invalid", err)
	}
	if env.OccurredAt.IsZero() {
		return curveerr.New(curveerr.KindInvalidEvent, "occurredAt must not be zero", nil)
	}
	if env.PublishedAt.IsZero() {
		return curveerr.New(curveerr.KindInvalidEvent, "publishedAt must not be zero", nil)
	}
	if env.OccurredAt.After(env.PublishedAt) {
		return curveerr.New(curveerr.KindInvalidEvent, "occurredAt must not be after publishedAt", nil)
	}
	return nil
}

// formatEventID renders the 64-bit id as a decimal string, per spec.md §3:
// "64-bit numeric value represented as decimal string externally".
func formatEventID(id int64) string {
	return strconv.FormatInt(id, 10)
}
