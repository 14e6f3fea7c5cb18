package scene

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
)

// Library is the set of scenes a session can be started from, keyed by
// scene id.
type Library struct {
	scenes map[string]*Graph
}

func NewLibrary(graphs ...*Graph) (*Library, error) {
	l := &Library{scenes: make(map[string]*Graph, len(graphs))}
	for _, g := range graphs {
		if _, dup := l.scenes[g.ID()]; dup {
			return nil, &ValidationError{Scene: g.ID(), Problems: []string{"duplicate scene id"}}
		}
		l.scenes[g.ID()] = g
	}
	return l, nil
}

// LoadDir loads every .yaml and .yml file in dir as a scene.
func LoadDir(dir string) (*Library, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scene files in %s: %w", dir, ErrNotFound)
	}
	slices.Sort(paths)

	graphs := make([]*Graph, 0, len(paths))
	for _, p := range paths {
		g, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	return NewLibrary(graphs...)
}

func (l *Library) Scene(id string) (*Graph, error) {
	g, ok := l.scenes[id]
	if !ok {
		return nil, fmt.Errorf("scene %q: %w", id, ErrNotFound)
	}
	return g, nil
}

func (l *Library) IDs() []string {
	return slices.Sorted(maps.Keys(l.scenes))
}
