// Package world holds the live story state: where the player is, who is on
// stage, and the value of every tracked variable.
//
// A State is never modified after construction. Apply and ApplyDelta return a
// successor state, which makes checkpointing a matter of keeping the old one.
package world

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/tatianab/branching-scenes/internal/models"
)

var (
	ErrUnknownVariable = errors.New("unknown variable")
	ErrTypeMismatch    = errors.New("type mismatch")
)

type State struct {
	room       string
	present    []string
	vars       map[string]models.Value
	schema     map[string]models.Variable
	introduced map[string]models.Character
}

// New returns the initial state for a scene: every variable at its initial
// value, nobody on stage.
func New(vars []models.Variable, room string) *State {
	s := &State{
		room:       room,
		vars:       make(map[string]models.Value, len(vars)),
		schema:     make(map[string]models.Variable, len(vars)),
		introduced: map[string]models.Character{},
	}
	for _, v := range vars {
		s.schema[v.Name] = v
		s.vars[v.Name] = v.Initial
	}
	return s
}

func (s *State) Room() string { return s.room }

func (s *State) Present() []string { return slices.Clone(s.present) }

func (s *State) IsPresent(id string) bool {
	_, ok := slices.BinarySearch(s.present, id)
	return ok
}

func (s *State) Value(name string) (models.Value, bool) {
	v, ok := s.vars[name]
	return v, ok
}

func (s *State) Vars() map[string]models.Value { return maps.Clone(s.vars) }

func (s *State) Variable(name string) (models.Variable, bool) {
	v, ok := s.schema[name]
	return v, ok
}

// Variables returns the declared variables in name order.
func (s *State) Variables() []models.Variable {
	out := make([]models.Variable, 0, len(s.schema))
	for _, name := range slices.Sorted(maps.Keys(s.schema)) {
		out = append(out, s.schema[name])
	}
	return out
}

// Introduced returns a character that a generated event brought into the story.
func (s *State) Introduced(id string) (models.Character, bool) {
	c, ok := s.introduced[id]
	return c, ok
}

func (s *State) IntroducedCharacters() []models.Character {
	out := make([]models.Character, 0, len(s.introduced))
	for _, id := range slices.Sorted(maps.Keys(s.introduced)) {
		out = append(out, s.introduced[id])
	}
	return out
}

// Check validates d against the declared variables without applying it.
func (s *State) Check(d models.Delta) error {
	var errs []error
	for _, name := range d.Names() {
		if _, err := s.resolve(name, d[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *State) resolve(name string, e models.Effect) (models.Value, error) {
	decl, ok := s.schema[name]
	if !ok {
		return models.Value{}, fmt.Errorf("%w %q", ErrUnknownVariable, name)
	}
	cur := s.vars[name]
	switch e.Op {
	case models.OpAdd:
		if decl.Type != models.TypeNumber {
			return models.Value{}, fmt.Errorf("%w: cannot add to %s variable %q", ErrTypeMismatch, decl.Type, name)
		}
		sum := cur.Int + e.Value.Int
		if (e.Value.Int > 0 && sum < cur.Int) || (e.Value.Int < 0 && sum > cur.Int) {
			return models.Value{}, fmt.Errorf("%w: adding %+d to %q overflows", ErrTypeMismatch, e.Value.Int, name)
		}
		return models.NumberValue(sum), nil
	case models.OpSet:
		if !decl.Accepts(e.Value) {
			return models.Value{}, fmt.Errorf("%w: %q is %s, got %s %q", ErrTypeMismatch, name, decl.Type, e.Value.Type, e.Value)
		}
		return e.Value, nil
	}
	return models.Value{}, fmt.Errorf("%w: unknown effect %q on %q", ErrTypeMismatch, e.Op, name)
}

// ApplyDelta returns the state that results from d. s is left untouched.
func (s *State) ApplyDelta(d models.Delta) (*State, error) {
	next := s.clone()
	var errs []error
	for _, name := range d.Names() {
		val, err := s.resolve(name, d[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		next.vars[name] = val
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return next, nil
}

// Apply returns the state after e: its delta is applied, the current room
// becomes the event's room, and the stage is updated. Moving to another room
// replaces who is present with the event's participants; staying adds them.
// Departing characters leave afterwards.
func (s *State) Apply(e models.Event) (*State, error) {
	next, err := s.ApplyDelta(e.Delta)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", e.ID, err)
	}
	for _, c := range e.Introduces {
		next.introduced[c.ID] = c
	}

	stage := next.present
	if e.Room != "" && e.Room != s.room {
		next.room = e.Room
		stage = nil
	}
	stage = append(stage, e.Participants...)
	stage = slices.DeleteFunc(stage, func(id string) bool {
		return slices.Contains(e.Departures, id)
	})
	slices.Sort(stage)
	next.present = slices.Compact(stage)
	return next, nil
}

// Changes lists the variables whose values differ between s and next.
func (s *State) Changes(next *State) map[string]models.Change {
	out := make(map[string]models.Change)
	for name, to := range next.vars {
		if from := s.vars[name]; from != to {
			out[name] = models.Change{From: from, To: to}
		}
	}
	return out
}

func (s *State) Equal(o *State) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.room == o.room &&
		slices.Equal(s.present, o.present) &&
		maps.Equal(s.vars, o.vars) &&
		maps.Equal(s.introduced, o.introduced)
}

func (s *State) clone() *State {
	return &State{
		room:       s.room,
		present:    slices.Clone(s.present),
		vars:       maps.Clone(s.vars),
		schema:     s.schema,
		introduced: maps.Clone(s.introduced),
	}
}
