package eventctx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/curve/eventctx"
)

func TestSourceChainDepth(t *testing.T) {
	require.Equal(t, 0, eventctx.Source{Service: "activity"}.ChainDepth())

	root := eventctx.Source{Service: "activity", CorrelationID: "c-1"}
	require.Equal(t, 1, root.ChainDepth())
	require.True(t, root.IsRootEvent())

	child := eventctx.Source{Service: "activity", CorrelationID: "c-1", CausationID: "e-1"}
	require.Equal(t, 2, child.ChainDepth())
	require.False(t, child.IsRootEvent())
}

func TestSourceValidateRequiresService(t *testing.T) {
	require.Error(t, eventctx.Source{}.Validate())
	require.NoError(t, eventctx.Source{Service: "activity"}.Validate())
}

func TestSchemaKeyAndValidate(t *testing.T) {
	s := eventctx.Schema{Name: "ActivityCreated", Version: 2}
	require.Equal(t, "ActivityCreated:v2", s.Key())
	require.NoError(t, s.Validate())

	require.Error(t, eventctx.Schema{Name: "", Version: 1}.Validate())
	require.Error(t, eventctx.Schema{Name: "X", Version: 0}.Validate())
}

func TestMetadataTagsImmutability(t *testing.T) {
	mutable := map[string]string{"k": "v"}
	meta := eventctx.NewMetadata(eventctx.Source{Service: "svc"}, eventctx.Actor{}, eventctx.Trace{}, eventctx.Schema{Name: "S", Version: 1}, mutable)

	mutable["k"] = "mutated"
	mutable["new"] = "added"

	got := meta.Tags()
	require.Equal(t, "v", got["k"])
	_, ok := got["new"]
	require.False(t, ok)

	// Mutating the returned copy must not affect the stored state either.
	got["k"] = "tampered"
	require.Equal(t, "v", meta.Tags()["k"])
}

func TestMetadataNilTagsBecomeEmptyMap(t *testing.T) {
	meta := eventctx.NewMetadata(eventctx.Source{Service: "svc"}, eventctx.Actor{}, eventctx.Trace{}, eventctx.Schema{Name: "S", Version: 1}, nil)
	require.NotNil(t, meta.Tags())
	require.Empty(t, meta.Tags())
}
