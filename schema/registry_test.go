package schema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/curve/schema"
)

func TestRegisterIsIdempotentForSamePayloadClass(t *testing.T) {
	r := schema.NewRegistry()
	v := schema.SchemaVersion{Name: "S", Version: 1, PayloadClass: "SV1"}

	require.NoError(t, r.Register(v))
	require.NoError(t, r.Register(v))
}

func TestRegisterRejectsMismatchedPayloadClass(t *testing.T) {
	r := schema.NewRegistry()
	require.NoError(t, r.Register(schema.SchemaVersion{Name: "S", Version: 1, PayloadClass: "SV1"}))

	err := r.Register(schema.SchemaVersion{Name: "S", Version: 1, PayloadClass: "Different"})
	require.Error(t, err)
}

func TestGetLatestVersionAndAllVersions(t *testing.T) {
	r := schema.NewRegistry()
	require.NoError(t, r.Register(schema.SchemaVersion{Name: "S", Version: 1, PayloadClass: "V1"}))
	require.NoError(t, r.Register(schema.SchemaVersion{Name: "S", Version: 3, PayloadClass: "V3"}))
	require.NoError(t, r.Register(schema.SchemaVersion{Name: "S", Version: 2, PayloadClass: "V2"}))

	all := r.GetAllVersions("S")
	require.Len(t, all, 3)
	require.Equal(t, 1, all[0].Version)
	require.Equal(t, 2, all[1].Version)
	require.Equal(t, 3, all[2].Version)

	latest, ok := r.GetLatestVersion("S")
	require.True(t, ok)
	require.Equal(t, 3, latest.Version)
}

func TestGetAllSchemaNames(t *testing.T) {
	r := schema.NewRegistry()
	require.NoError(t, r.Register(schema.SchemaVersion{Name: "B", Version: 1, PayloadClass: "B1"}))
	require.NoError(t, r.Register(schema.SchemaVersion{Name: "A", Version: 1, PayloadClass: "A1"}))

	require.Equal(t, []string{"A", "B"}, r.GetAllSchemaNames())
}

func TestRegisterMigrationRequiresBothEndpointsRegistered(t *testing.T) {
	r := schema.NewRegistry()
	require.NoError(t, r.Register(schema.SchemaVersion{Name: "S", Version: 1, PayloadClass: "V1"}))

	m := schema.NewMigration(1, 2, func(v int) (int, error) { return v + 1, nil })
	err := r.RegisterMigration("S", m)
	require.Error(t, err)
}

func TestFindMigrationPathShortestTwoHop(t *testing.T) {
	r := schema.NewRegistry()
	require.NoError(t, r.Register(schema.SchemaVersion{Name: "S", Version: 1, PayloadClass: "V1"}))
	require.NoError(t, r.Register(schema.SchemaVersion{Name: "S", Version: 2, PayloadClass: "V2"}))
	require.NoError(t, r.Register(schema.SchemaVersion{Name: "S", Version: 3, PayloadClass: "V3"}))

	m12 := schema.NewMigration(1, 2, func(v int) (int, error) { return v + 10, nil })
	m23 := schema.NewMigration(2, 3, func(v int) (int, error) { return v + 100, nil })
	require.NoError(t, r.RegisterMigration("S", m12))
	require.NoError(t, r.RegisterMigration("S", m23))

	path := r.FindMigrationPath("S", 1, 3)
	require.Len(t, path, 2)
	require.Equal(t, 1, path[0].FromVersion())
	require.Equal(t, 2, path[0].ToVersion())
	require.Equal(t, 2, path[1].FromVersion())
	require.Equal(t, 3, path[1].ToVersion())

	result, err := schema.Apply(path, 5)
	require.NoError(t, err)
	require.Equal(t, 115, result)
}

func TestIsCompatibleFalseWithoutMigration(t *testing.T) {
	r := schema.NewRegistry()
	require.NoError(t, r.Register(schema.SchemaVersion{Name: "S", Version: 1, PayloadClass: "V1"}))
	require.NoError(t, r.Register(schema.SchemaVersion{Name: "S", Version: 2, PayloadClass: "V2"}))

	require.False(t, r.IsCompatible("S", 1, 2))
	require.Nil(t, r.FindMigrationPath("S", 1, 2))
}

func TestIsCompatibleTrueForSameVersion(t *testing.T) {
	r := schema.NewRegistry()
	require.NoError(t, r.Register(schema.SchemaVersion{Name: "S", Version: 1, PayloadClass: "V1"}))

	require.True(t, r.IsCompatible("S", 1, 1))
}

func TestFindMigrationPathPrefersShorterOverLongerEqualDistance(t *testing.T) {
	r := schema.NewRegistry()
	for v := 1; v <= 3; v++ {
		require.NoError(t, r.Register(schema.SchemaVersion{Name: "S", Version: v, PayloadClass: "V"}))
	}

	direct := schema.NewMigration(1, 3, func(v int) (int, error) { return v, nil })
	viaTwo1 := schema.NewMigration(1, 2, func(v int) (int, error) { return v, nil })
	viaTwo2 := schema.NewMigration(2, 3, func(v int) (int, error) { return v, nil })

	require.NoError(t, r.RegisterMigration("S", viaTwo1))
	require.NoError(t, r.RegisterMigration("S", viaTwo2))
	require.NoError(t, r.RegisterMigration("S", direct))

	path := r.FindMigrationPath("S", 1, 3)
	require.Len(t, path, 1)
}
