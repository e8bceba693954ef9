package schema

import "example.com/curve/curveerr"

// Migration is the type-erased form a Registry stores: it knows its own
// endpoint versions and can transform an opaque value, but the concrete
// FROM/TO payload types live only in the generic wrapper that produced
// it (TypedMigration). This mirrors spec.md §3's
// SchemaMigration<FROM,TO> contract while letting one Registry hold
// migrations between arbitrarily different payload types.
type Migration interface {
	FromVersion() int
	ToVersion() int
	IsApplicable(from, to int) bool
	Migrate(source any) (any, error)
}

// TypedMigration is a migration from payload type F at FromVersion to
// payload type T at ToVersion.
type TypedMigration[F, T any] struct {
	From int
	To   int
	Fn   func(F) (T, error)
}

// NewMigration constructs a TypedMigration.
func NewMigration[F, T any](from, to int, fn func(F) (T, error)) TypedMigration[F, T] {
	return TypedMigration[F, T]{From: from, To: to, Fn: fn}
}

// FromVersion returns the source version.
func (m TypedMigration[F, T]) FromVersion() int { return m.From }

// ToVersion returns the target version.
func (m TypedMigration[F, T]) ToVersion() int { return m.To }

// IsApplicable defaults to exact equality on both endpoints, per
// spec.md §3.
func (m TypedMigration[F, T]) IsApplicable(from, to int) bool {
	return from == m.From && to == m.To
}

// Migrate type-asserts source to F, applies Fn, and returns the result
// as T erased to any.
func (m TypedMigration[F, T]) Migrate(source any) (any, error) {
	typed, ok := source.(F)
	if !ok {
		return nil, curveerr.New(curveerr.KindInvalidEvent, "migration input does not match the expected source type", nil)
	}
	return m.Fn(typed)
}

// Apply runs every migration in path in order, starting from value.
func Apply(path []Migration, value any) (any, error) {
	current := value
	for _, m := range path {
		next, err := m.Migrate(current)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}
