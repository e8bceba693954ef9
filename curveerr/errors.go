// Package curveerr defines the error taxonomy shared by the publisher and
// outbox pipelines. Kinds, not concrete types, drive routing decisions:
// callers use errors.Is against the sentinel Kind values, the way the
// reference stack checks errors.Is(err, pgx.ErrNoRows) or
// errors.Is(err, context.Canceled).
package curveerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for routing purposes (retry, DLQ, abort).
type Kind string

const (
	// KindInvalidEvent means the envelope violates a construction invariant.
	KindInvalidEvent Kind = "invalid_event"
	// KindSerialization means the envelope could not be turned into bytes.
	KindSerialization Kind = "serialization"
	// KindPiiCrypto means redaction encryption was attempted without a key
	// or with malformed key material.
	KindPiiCrypto Kind = "pii_crypto"
	// KindClockMovedBackwards means id generation aborted on a large or
	// prolonged backward clock step.
	KindClockMovedBackwards Kind = "clock_moved_backwards"
	// KindTransientBroker means a retryable broker failure (network,
	// timeout, not-leader, broker-unavailable).
	KindTransientBroker Kind = "transient_broker"
	// KindPermanentBroker means a non-retryable broker failure
	// (authorization, record-too-large, invalid-topic).
	KindPermanentBroker Kind = "permanent_broker"
	// KindOutboxWrite means a database constraint or optimistic-lock
	// conflict occurred while writing an outbox row.
	KindOutboxWrite Kind = "outbox_write"
	// KindPublishConfig means the outbox was opted into without the
	// aggregate coordinates or repository required to use it.
	KindPublishConfig Kind = "publish_config"
)

// Error is the taxonomy's concrete error type. Kind is always set;
// Message and Cause describe the specific failure.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, curveerr.New(curveerr.KindTransientBroker, "", nil)).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Retryable reports whether an error, wrapped or not, represents a
// transient failure that should be retried before falling back to DLQ.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == KindTransientBroker
}

// ClockMovedBackwardsError carries the timestamps needed for an operator to
// diagnose a clock regression, per spec.md's requirement that the message
// contain both timestamps and their delta.
type ClockMovedBackwardsError struct {
	LastTimestamp    int64
	CurrentTimestamp int64
}

func (e *ClockMovedBackwardsError) Error() string {
	delta := e.LastTimestamp - e.CurrentTimestamp
	return fmt.Sprintf("clock moved backwards: last=%d current=%d delta=%dms", e.LastTimestamp, e.CurrentTimestamp, delta)
}

// DiffMs returns the magnitude of the regression in milliseconds.
func (e *ClockMovedBackwardsError) DiffMs() int64 {
	d := e.LastTimestamp - e.CurrentTimestamp
	if d < 0 {
		return -d
	}
	return d
}

// Is lets errors.Is(err, curveerr.ErrClockMovedBackwards) match any
// *ClockMovedBackwardsError regardless of its timestamps.
func (e *ClockMovedBackwardsError) Is(target error) bool {
	_, ok := target.(*ClockMovedBackwardsError)
	return ok
}

// ErrClockMovedBackwards is the sentinel used with errors.Is to detect a
// clock regression without caring about the specific timestamps.
var ErrClockMovedBackwards = &ClockMovedBackwardsError{}

// ErrShuttingDown is returned by Publish when a graceful shutdown is in
// progress and new work is being rejected.
var ErrShuttingDown = errors.New("curve: publisher is shutting down")

// Truncate clips a cause's message to n runes, matching the outbox's
// errorMessage column width (500 chars per spec.md's table layout).
func Truncate(cause error, n int) string {
	if cause == nil {
		return ""
	}
	msg := cause.Error()
	runes := []rune(msg)
	if len(runes) <= n {
		return msg
	}
	return string(runes[:n])
}
