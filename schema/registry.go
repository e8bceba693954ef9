// Package schema implements the versioned payload registry and the
// shortest-path migration engine over registered from→to transforms,
// per spec.md §4.4.
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"example.com/curve/curveerr"
)

// SchemaVersion identifies one registered version of a named schema.
// Equality is by (Name, Version); PayloadClass is an operator-supplied
// tag (typically a Go type name) used only to detect an accidental
// re-registration of the same (name, version) under a different shape.
type SchemaVersion struct {
	Name         string
	Version      int
	PayloadClass string
}

// Key renders the "{name}:v{version}" identifier spec.md §3 uses.
func (v SchemaVersion) Key() string {
	return v.Name + ":v" + strconv.Itoa(v.Version)
}

// Registry tracks registered schema versions and the migrations
// between them. The versions map is a concurrent compare-and-set map
// per spec.md §5; migrations are guarded by a mutex since
// RegisterMigration must validate against the versions map and
// FindMigrationPath needs a consistent snapshot.
type Registry struct {
	versions sync.Map // key: "name:vN" -> SchemaVersion

	mu         sync.Mutex
	migrations map[string][]Migration // key: schema name
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{migrations: make(map[string][]Migration)}
}

func versionKey(name string, version int) string {
	return name + ":v" + strconv.Itoa(version)
}

// Register is idempotent when v's PayloadClass matches an existing
// registration of the same (Name, Version); it rejects a mismatched
// re-registration.
func (r *Registry) Register(v SchemaVersion) error {
	actual, loaded := r.versions.LoadOrStore(versionKey(v.Name, v.Version), v)
	if loaded {
		existing := actual.(SchemaVersion)
		if existing.PayloadClass != v.PayloadClass {
			return curveerr.New(curveerr.KindInvalidEvent,
				fmt.Sprintf("schema %s already registered with payload class %q, cannot re-register as %q",
					v.Key(), existing.PayloadClass, v.PayloadClass), nil)
		}
	}
	return nil
}

// GetVersion looks up one registered version.
func (r *Registry) GetVersion(name string, version int) (SchemaVersion, bool) {
	v, ok := r.versions.Load(versionKey(name, version))
	if !ok {
		return SchemaVersion{}, false
	}
	return v.(SchemaVersion), true
}

// IsVersionRegistered reports whether (name, version) has been registered.
func (r *Registry) IsVersionRegistered(name string, version int) bool {
	_, ok := r.GetVersion(name, version)
	return ok
}

// GetAllVersions returns every registered version of name, ascending.
func (r *Registry) GetAllVersions(name string) []SchemaVersion {
	var out []SchemaVersion
	r.versions.Range(func(_, v any) bool {
		sv := v.(SchemaVersion)
		if sv.Name == name {
			out = append(out, sv)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// GetLatestVersion returns the highest registered version of name.
func (r *Registry) GetLatestVersion(name string) (SchemaVersion, bool) {
	all := r.GetAllVersions(name)
	if len(all) == 0 {
		return SchemaVersion{}, false
	}
	return all[len(all)-1], true
}

// GetAllSchemaNames returns every distinct registered schema name, sorted.
func (r *Registry) GetAllSchemaNames() []string {
	seen := make(map[string]struct{})
	r.versions.Range(func(_, v any) bool {
		seen[v.(SchemaVersion).Name] = struct{}{}
		return true
	})
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RegisterMigration adds m under name. Both fromVersion and toVersion
// must already be registered.
func (r *Registry) RegisterMigration(name string, m Migration) error {
	if !r.IsVersionRegistered(name, m.FromVersion()) {
		return curveerr.New(curveerr.KindInvalidEvent,
			fmt.Sprintf("cannot register migration for %s: version %d is not registered", name, m.FromVersion()), nil)
	}
	if !r.IsVersionRegistered(name, m.ToVersion()) {
		return curveerr.New(curveerr.KindInvalidEvent,
			fmt.Sprintf("cannot register migration for %s: version %d is not registered", name, m.ToVersion()), nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.migrations[name] = append(r.migrations[name], m)
	return nil
}

// IsCompatible reports whether a value can move from version "from" to
// version "to": both must be registered, and either from==to or a
// migration path exists.
func (r *Registry) IsCompatible(name string, from, to int) bool {
	if !r.IsVersionRegistered(name, from) || !r.IsVersionRegistered(name, to) {
		return false
	}
	if from == to {
		return true
	}
	return r.FindMigrationPath(name, from, to) != nil
}

// FindMigrationPath returns the shortest sequence of migrations that
// carries a value from version "from" to version "to", or nil if none
// exists. The search is breadth-first, expanding only to strictly
// greater versions no higher than "to"; ties between equal-length
// paths resolve in registration order (the order migrations were
// appended via RegisterMigration), making the result deterministic.
func (r *Registry) FindMigrationPath(name string, from, to int) []Migration {
	if from == to {
		return []Migration{}
	}

	r.mu.Lock()
	migs := append([]Migration(nil), r.migrations[name]...)
	r.mu.Unlock()

	type frontierNode struct {
		version int
		path    []Migration
	}

	visited := map[int]bool{from: true}
	queue := []frontierNode{{version: from}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, m := range migs {
			if m.FromVersion() != cur.version {
				continue
			}
			next := m.ToVersion()
			if next <= cur.version || next > to || visited[next] {
				continue
			}

			path := make([]Migration, len(cur.path), len(cur.path)+1)
			copy(path, cur.path)
			path = append(path, m)

			if next == to {
				return path
			}
			visited[next] = true
			queue = append(queue, frontierNode{version: next, path: path})
		}
	}
	return nil
}
