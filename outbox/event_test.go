package outbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewEventIsPendingWithZeroRetries(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewEvent("123", "Order", "O-1", "order.placed", []byte(`{"orderId":"O-1"}`), now)

	require.Equal(t, StatusPending, e.Status)
	require.Equal(t, 0, e.RetryCount)
	require.Equal(t, now, e.NextRetryAt)
	require.Equal(t, now, e.CreatedAt)
	require.Equal(t, now, e.UpdatedAt)
	require.Equal(t, now, e.OccurredAt)
	require.Nil(t, e.PublishedAt)
	require.Nil(t, e.ErrorMessage)
}
