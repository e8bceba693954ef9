// Package idgen implements the Snowflake-style 64-bit identifier source
// described in spec.md §4.1: sign(1) | timestamp(41) | workerId(10) |
// sequence(12), resilient to small clock regressions.
//
// Concurrency follows the same shape as the teacher's KafkaProducer: a
// single mutex serializes the read-modify-write of the generator's
// internal (lastTimestamp, sequence) pair.
package idgen

import (
	"fmt"
	"hash/fnv"
	"net"
	"os"
	"sync"
	"time"

	"example.com/curve/clock"
	"example.com/curve/curveerr"
)

const (
	timestampBits = 41
	workerIDBits  = 10
	sequenceBits  = 12

	maxWorkerID = (1 << workerIDBits) - 1 // 1023
	maxSequence = (1 << sequenceBits) - 1 // 4095

	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits

	// regressionThreshold is the boundary below which a backward clock
	// step is tolerated by spinning, per spec.md §4.1 step 4.
	regressionThreshold = 100 * time.Millisecond
	// maxRegressionWait is the cumulative spin budget before a regression
	// gives up and fails, even if under regressionThreshold initially.
	maxRegressionWait = 5 * time.Second
	// spinInitial/spinCap bound the exponential backoff used while
	// spinning through a tolerated regression.
	spinInitial = time.Millisecond
	spinCap     = 100 * time.Millisecond
)

// Epoch is the custom offset subtracted from wall-clock milliseconds before
// they are packed into the timestamp field. Fixed at construction time so
// generators created years apart still produce comparable, strictly
// time-sorted ids within the 41-bit budget (~69 years from Epoch).
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Generator produces strictly increasing 64-bit ids for the lifetime of the
// process. A Generator must not be copied after first use.
type Generator struct {
	clock    clock.Clock
	workerID int64

	mu            sync.Mutex
	lastTimestamp int64
	sequence      int64
}

// Option configures a Generator at construction time.
type Option func(*Generator)

// WithClock overrides the injected clock (defaults to clock.System{}).
func WithClock(c clock.Clock) Option {
	return func(g *Generator) { g.clock = c }
}

// New constructs a Generator for the given worker id, which must be in
// [0, 1023].
func New(workerID int64, opts ...Option) (*Generator, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("idgen: workerID %d out of range [0,%d]", workerID, maxWorkerID)
	}
	g := &Generator{
		clock:         clock.System{},
		workerID:      workerID,
		lastTimestamp: -1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// NewAutoWorkerID constructs a Generator whose worker id is derived from a
// stable host identifier (first non-loopback MAC address, falling back to
// hostname). Collisions across hosts are the operator's responsibility, as
// documented in spec.md §4.1.
func NewAutoWorkerID(opts ...Option) (*Generator, error) {
	return New(DeriveWorkerID(), opts...)
}

// DeriveWorkerID hashes a stable host identifier into [0, 1023].
func DeriveWorkerID() int64 {
	id := hostIdentifier()
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return int64(h.Sum64() % uint64(maxWorkerID+1))
}

func hostIdentifier() string {
	if ifaces, err := net.Interfaces(); err == nil {
		for _, iface := range ifaces {
			if len(iface.HardwareAddr) == 0 {
				continue
			}
			if iface.Flags&net.FlagLoopback != 0 {
				continue
			}
			return iface.HardwareAddr.String()
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "curve-idgen-unknown-host"
}

// Generate returns the next strictly increasing id, or a
// KindClockMovedBackwards *curveerr.Error wrapping a
// *curveerr.ClockMovedBackwardsError if the clock regressed beyond what the
// generator tolerates.
func (g *Generator) Generate() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.timestampMs()

	if now < g.lastTimestamp {
		adjusted, err := g.handleRegression(now)
		if err != nil {
			return 0, err
		}
		now = adjusted
	}

	if now == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			now = g.waitNextMillis(g.lastTimestamp)
		}
	} else {
		g.sequence = 0
	}

	g.lastTimestamp = now

	id := (now << timestampShift) | (g.workerID << workerIDShift) | g.sequence
	return id, nil
}

// handleRegression implements spec.md §4.1 step 4: spin through a small
// backward step, fail fast on a large one.
func (g *Generator) handleRegression(now int64) (int64, error) {
	delta := time.Duration(g.lastTimestamp-now) * time.Millisecond
	if delta > regressionThreshold {
		return 0, curveerr.New(curveerr.KindClockMovedBackwards, "clock regressed beyond tolerance",
			&curveerr.ClockMovedBackwardsError{LastTimestamp: g.lastTimestamp, CurrentTimestamp: now})
	}

	wait := spinInitial
	waited := time.Duration(0)
	for {
		time.Sleep(wait)
		waited += wait
		current := g.timestampMs()
		if current > g.lastTimestamp {
			return current, nil
		}
		if waited >= maxRegressionWait {
			return 0, curveerr.New(curveerr.KindClockMovedBackwards, "clock regression did not recover within 5s",
				&curveerr.ClockMovedBackwardsError{LastTimestamp: g.lastTimestamp, CurrentTimestamp: current})
		}
		wait *= 2
		if wait > spinCap {
			wait = spinCap
		}
	}
}

// waitNextMillis busy-waits until the clock advances past last, used when
// the intra-millisecond sequence overflows.
func (g *Generator) waitNextMillis(last int64) int64 {
	now := g.timestampMs()
	for now <= last {
		now = g.timestampMs()
	}
	return now
}

func (g *Generator) timestampMs() int64 {
	return g.clock.Now().Sub(Epoch).Milliseconds()
}
