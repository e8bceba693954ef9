package curveerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/curve/curveerr"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := curveerr.New(curveerr.KindTransientBroker, "timeout", nil)
	require.True(t, errors.Is(err, curveerr.New(curveerr.KindTransientBroker, "", nil)))
	require.False(t, errors.Is(err, curveerr.New(curveerr.KindPermanentBroker, "", nil)))
}

func TestRetryableOnlyForTransientBroker(t *testing.T) {
	require.True(t, curveerr.Retryable(curveerr.New(curveerr.KindTransientBroker, "x", nil)))
	require.False(t, curveerr.Retryable(curveerr.New(curveerr.KindPermanentBroker, "x", nil)))
	require.False(t, curveerr.Retryable(errors.New("plain error")))
}

func TestClockMovedBackwardsMessageContainsTimestampsAndDelta(t *testing.T) {
	err := &curveerr.ClockMovedBackwardsError{LastTimestamp: 1000, CurrentTimestamp: 800}
	msg := err.Error()
	require.Contains(t, msg, "1000")
	require.Contains(t, msg, "800")
	require.Contains(t, msg, "200")
	require.EqualValues(t, 200, err.DiffMs())
	require.True(t, errors.Is(err, curveerr.ErrClockMovedBackwards))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "", curveerr.Truncate(nil, 10))

	longErr := errors.New(string(make([]rune, 600)))
	require.Len(t, []rune(curveerr.Truncate(longErr, 500)), 500)

	shortErr := errors.New("boom")
	require.Equal(t, "boom", curveerr.Truncate(shortErr, 500))
}
