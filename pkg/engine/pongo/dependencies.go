package pongo

import (
	"time"

	"github.com/goliatone/go-viewresolver/pkg/resolve"
)

// dependency is a resource a compiled template was built from, with the
// modification time it had when it was loaded.
type dependency struct {
	name    string
	modTime time.Time
	known   bool
}

type dependencies []dependency

func dependencyKey(compileID, resource string) string {
	return "deps:" + compileID + "\x00" + resource
}

// snapshotDependencies captures the current modification time of names.
func snapshotDependencies(handler *resolve.Handler, names []string) dependencies {
	deps := make(dependencies, 0, len(names))
	for _, name := range names {
		mod, known, err := handler.ModificationTime(name)
		if err != nil {
			known = false
		}
		deps = append(deps, dependency{name: name, modTime: mod, known: known})
	}
	return deps
}

// stale reports the first dependency that no longer resolves or whose
// modification time moved since it was recorded.
func (d dependencies) stale(handler *resolve.Handler) (string, bool) {
	for _, dep := range d {
		mod, known, err := handler.ModificationTime(dep.name)
		if err != nil {
			return dep.name, true
		}
		if known != dep.known || !mod.Equal(dep.modTime) {
			return dep.name, true
		}
	}
	return "", false
}

func (d dependencies) names() []string {
	out := make([]string, 0, len(d))
	for _, dep := range d {
		out = append(out, dep.name)
	}
	return out
}
