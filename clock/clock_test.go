package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/curve/clock"
)

func TestSystemNowIsUTC(t *testing.T) {
	now := clock.System{}.Now()
	require.Equal(t, time.UTC, now.Location())
}

func TestFixedNeverAdvances(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.Fixed{At: at}
	require.Equal(t, at, c.Now())
	require.Equal(t, at, c.Now())
}

func TestMutableAdvanceAndSet(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := clock.NewMutable(start)
	require.Equal(t, start, m.Now())

	m.Advance(50 * time.Millisecond)
	require.Equal(t, start.Add(50*time.Millisecond), m.Now())

	rewound := start.Add(-200 * time.Millisecond)
	m.Set(rewound)
	require.Equal(t, rewound, m.Now())
}
