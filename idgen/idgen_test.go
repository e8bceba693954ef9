package idgen_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/curve/clock"
	"example.com/curve/curveerr"
	"example.com/curve/idgen"
)

func TestGenerateSequentialIdsAreDistinctAndIncreasing(t *testing.T) {
	gen, err := idgen.New(1)
	require.NoError(t, err)

	seen := make(map[int64]struct{}, 10000)
	var last int64 = -1
	for i := 0; i < 10000; i++ {
		id, err := gen.Generate()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
		require.Greater(t, id, last)
		last = id
	}
	require.Len(t, seen, 10000)
}

func TestGenerateConcurrentCallersProduceDistinctIds(t *testing.T) {
	gen, err := idgen.New(2)
	require.NoError(t, err)

	const goroutines = 10
	const perGoroutine = 1000

	ids := make(chan int64, goroutines*perGoroutine)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id, err := gen.Generate()
				require.NoError(t, err)
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]struct{}, goroutines*perGoroutine)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
	require.Len(t, seen, goroutines*perGoroutine)
}

func TestTwoGeneratorsWithDistinctWorkerIDsProduceDistinctIds(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c := clock.Fixed{At: at}

	gen1, err := idgen.New(1, idgen.WithClock(c))
	require.NoError(t, err)
	gen2, err := idgen.New(2, idgen.WithClock(c))
	require.NoError(t, err)

	id1, err := gen1.Generate()
	require.NoError(t, err)
	id2, err := gen2.Generate()
	require.NoError(t, err)

	require.NotEqual(t, id1, id2)
}

func TestClockRegressionWithinToleranceSucceeds(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mc := clock.NewMutable(start)

	gen, err := idgen.New(3, idgen.WithClock(mc))
	require.NoError(t, err)

	_, err = gen.Generate()
	require.NoError(t, err)

	// Regress the clock by 50ms, then let it catch back up after a short
	// delay from a background goroutine, simulating a small NTP step-back.
	mc.Set(start.Add(-50 * time.Millisecond))

	done := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		mc.Set(start.Add(2 * time.Millisecond))
		close(done)
	}()

	genStart := time.Now()
	_, err = gen.Generate()
	require.NoError(t, err)
	require.LessOrEqual(t, time.Since(genStart), 150*time.Millisecond)
	<-done
}

func TestClockRegressionBeyondToleranceFails(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mc := clock.NewMutable(start)

	gen, err := idgen.New(4, idgen.WithClock(mc))
	require.NoError(t, err)

	_, err = gen.Generate()
	require.NoError(t, err)

	mc.Set(start.Add(-200 * time.Millisecond))

	_, err = gen.Generate()
	require.Error(t, err)
	var cmb *curveerr.ClockMovedBackwardsError
	require.True(t, errors.As(err, &cmb))
	require.True(t, errors.Is(err, curveerr.ErrClockMovedBackwards))
}

func TestWorkerIDOutOfRangeRejected(t *testing.T) {
	_, err := idgen.New(1024)
	require.Error(t, err)

	_, err = idgen.New(-1)
	require.Error(t, err)
}

func TestDeriveWorkerIDInRange(t *testing.T) {
	id := idgen.DeriveWorkerID()
	require.GreaterOrEqual(t, id, int64(0))
	require.LessOrEqual(t, id, int64(1023))
}
