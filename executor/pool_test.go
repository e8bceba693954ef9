package executor_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/curve/executor"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := executor.NewPool(2, 8)
	var done int32

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(func(context.Context) {
			atomic.AddInt32(&done, 1)
		}))
	}

	require.NoError(t, p.Shutdown(context.Background()))
	require.Equal(t, int32(5), atomic.LoadInt32(&done))
}

func TestPoolSubmitAfterShutdownFails(t *testing.T) {
	p := executor.NewPool(1, 4)
	require.NoError(t, p.Shutdown(context.Background()))

	err := p.Submit(func(context.Context) {})
	require.Error(t, err)
}

func TestPoolShutdownIsIdempotent(t *testing.T) {
	p := executor.NewPool(1, 4)
	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPoolShutdownRespectsContextDeadline(t *testing.T) {
	p := executor.NewPool(1, 4)
	blocked := make(chan struct{})
	require.NoError(t, p.Submit(func(context.Context) {
		<-blocked
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Shutdown(ctx)
	require.Error(t, err)
	close(blocked)
}

func TestPoolShutdownNowReturnsUnstartedTasks(t *testing.T) {
	p := executor.NewPool(1, 8)
	blocked := make(chan struct{})

	require.NoError(t, p.Submit(func(context.Context) { <-blocked }))
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Submit(func(context.Context) {}))
	}

	time.Sleep(10 * time.Millisecond) // let the worker pick up the blocking task
	pending := p.ShutdownNow()
	close(blocked)

	require.LessOrEqual(t, len(pending), 3)
}
