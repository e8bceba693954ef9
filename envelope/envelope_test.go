package envelope_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/curve/clock"
	"example.com/curve/envelope"
	"example.com/curve/eventctx"
	"example.com/curve/idgen"
)

type orderPlaced struct {
	OrderID string
}

func (orderPlaced) EventTypeTag() string { return "order.placed" }

func validMetadata() eventctx.Metadata {
	return eventctx.NewMetadata(
		eventctx.Source{Service: "activity"},
		eventctx.Actor{},
		eventctx.Trace{},
		eventctx.Schema{Name: "OrderPlaced", Version: 1},
		nil,
	)
}

func newFactory(t *testing.T) *envelope.Factory {
	t.Helper()
	gen, err := idgen.New(1)
	require.NoError(t, err)
	return envelope.NewFactory(gen, clock.System{})
}

func TestNewEnvelopeHasAllSevenFieldsPopulated(t *testing.T) {
	f := newFactory(t)
	env, err := envelope.New(f, orderPlaced{OrderID: "O-1"}, envelope.SeverityInfo, validMetadata())
	require.NoError(t, err)

	require.NotEmpty(t, env.EventID)
	require.Equal(t, "order.placed", env.EventType)
	require.Equal(t, envelope.SeverityInfo, env.Severity)
	require.Equal(t, "activity", env.Metadata.Source.Service)
	require.Equal(t, "O-1", env.Payload.OrderID)
	require.False(t, env.OccurredAt.IsZero())
	require.False(t, env.PublishedAt.IsZero())

	require.NoError(t, envelope.Validate(env))
}

func TestValidateRejectsOccurredAfterPublished(t *testing.T) {
	f := newFactory(t)
	env, err := envelope.New(f, orderPlaced{OrderID: "O-1"}, envelope.SeverityInfo, validMetadata())
	require.NoError(t, err)

	env.OccurredAt = env.PublishedAt.Add(time.Second)
	require.Error(t, envelope.Validate(env))
}

func TestValidateRejectsMissingEventType(t *testing.T) {
	f := newFactory(t)
	env, err := envelope.New(f, orderPlaced{OrderID: "O-1"}, envelope.SeverityInfo, validMetadata())
	require.NoError(t, err)

	env.EventType = ""
	require.Error(t, envelope.Validate(env))
}

func TestValidateRejectsBlankSourceService(t *testing.T) {
	f := newFactory(t)
	meta := eventctx.NewMetadata(eventctx.Source{}, eventctx.Actor{}, eventctx.Trace{}, eventctx.Schema{Name: "OrderPlaced", Version: 1}, nil)
	env, err := envelope.New(f, orderPlaced{OrderID: "O-1"}, envelope.SeverityInfo, meta)
	require.NoError(t, err)

	require.Error(t, envelope.Validate(env))
}

func TestRestampUpdatesPublishedAtOnly(t *testing.T) {
	f := newFactory(t)
	env, err := envelope.New(f, orderPlaced{OrderID: "O-1"}, envelope.SeverityInfo, validMetadata())
	require.NoError(t, err)

	later := env.PublishedAt.Add(time.Minute)
	restamped := envelope.Restamp(env, later)

	require.Equal(t, later, restamped.PublishedAt)
	require.Equal(t, env.OccurredAt, restamped.OccurredAt)
	require.Equal(t, env.EventID, restamped.EventID)
}
