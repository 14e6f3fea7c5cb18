package world

import (
	"maps"
	"slices"

	"github.com/tatianab/branching-scenes/internal/models"
)

// Snapshot is a detached copy of a State. Changing it does not affect the
// state it was taken from.
type Snapshot struct {
	Room       string
	Present    []string
	Vars       map[string]models.Value
	Introduced []models.Character

	schema map[string]models.Variable
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Room:       s.room,
		Present:    slices.Clone(s.present),
		Vars:       maps.Clone(s.vars),
		Introduced: s.IntroducedCharacters(),
		schema:     s.schema,
	}
}

// Restore rebuilds the state a snapshot was taken from.
func Restore(snap Snapshot) *State {
	s := &State{
		room:       snap.Room,
		present:    slices.Clone(snap.Present),
		vars:       maps.Clone(snap.Vars),
		schema:     snap.schema,
		introduced: make(map[string]models.Character, len(snap.Introduced)),
	}
	if s.vars == nil {
		s.vars = map[string]models.Value{}
	}
	for _, c := range snap.Introduced {
		s.introduced[c.ID] = c
	}
	return s
}
