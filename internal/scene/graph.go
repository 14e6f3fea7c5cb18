// Package scene holds the static structure of an episode: its rooms, cast,
// tracked variables, and canonical events in story order. A Graph is
// validated once when it is built and is read-only afterwards.
package scene

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/tatianab/branching-scenes/internal/models"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidScene = errors.New("invalid scene")
	ErrNotFound     = errors.New("not found")
)

// ValidationError lists every problem found in a scene definition.
type ValidationError struct {
	Scene    string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid scene %q: %s", e.Scene, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidScene }

// Definition is the ingested form of a scene, as read from YAML.
// The order of Events is the canonical story order.
type Definition struct {
	ID         string             `yaml:"id"`
	Title      string             `yaml:"title"`
	Synopsis   string             `yaml:"synopsis"`
	StartRoom  string             `yaml:"start_room,omitempty"`
	Characters []models.Character `yaml:"characters"`
	Variables  []models.Variable  `yaml:"variables"`
	Rooms      []models.Room      `yaml:"rooms"`
	Events     []models.Event     `yaml:"events"`
}

type Graph struct {
	id, title, synopsis string
	start               string

	rooms     map[string]models.Room
	roomOrder []string
	events    []models.Event
	index     map[string]int
	cast      map[string]models.Character
	castOrder []string
	vars      []models.Variable
}

// Load reads a scene definition from r and validates it.
func Load(r io.Reader) (*Graph, error) {
	var def Definition
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	return New(def)
}

func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// New builds a Graph from def, rejecting malformed definitions with an error
// that matches ErrInvalidScene.
func New(def Definition) (*Graph, error) {
	g := &Graph{
		id:       def.ID,
		title:    def.Title,
		synopsis: def.Synopsis,
		start:    def.StartRoom,
		rooms:    make(map[string]models.Room, len(def.Rooms)),
		index:    make(map[string]int, len(def.Events)),
		cast:     make(map[string]models.Character, len(def.Characters)),
		vars:     slices.Clone(def.Variables),
	}
	v := &validator{scene: def.ID}

	if def.ID == "" {
		v.addf("scene has no id")
	}
	g.addCharacters(v, def.Characters)
	g.checkVariables(v)
	g.addRooms(v, def.Rooms)
	g.addEvents(v, def.Events)

	if g.start == "" {
		if len(g.events) > 0 {
			g.start = g.events[0].Room
		}
	} else if _, ok := g.rooms[g.start]; !ok {
		v.addf("start room %q does not exist", g.start)
	}

	if len(v.problems) == 0 {
		g.replayCanon(v)
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	return g, nil
}

type validator struct {
	scene    string
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Scene: v.scene, Problems: v.problems}
}

func (g *Graph) addCharacters(v *validator, chars []models.Character) {
	for _, c := range chars {
		switch {
		case c.ID == "":
			v.addf("character %q has no id", c.Name)
		case g.isCast(c.ID):
			v.addf("duplicate character %q", c.ID)
		default:
			g.cast[c.ID] = c
			g.castOrder = append(g.castOrder, c.ID)
		}
	}
}

func (g *Graph) checkVariables(v *validator) {
	seen := make(map[string]bool, len(g.vars))
	for _, vr := range g.vars {
		switch {
		case vr.Name == "":
			v.addf("variable with no name")
		case seen[vr.Name]:
			v.addf("duplicate variable %q", vr.Name)
		case !vr.Type.Valid():
			v.addf("variable %q has unknown type %q", vr.Name, vr.Type)
		case !vr.Accepts(vr.Initial):
			v.addf("variable %q: initial value %q is not a valid %s", vr.Name, vr.Initial, vr.Type)
		}
		seen[vr.Name] = true
	}
}

func (g *Graph) addRooms(v *validator, rooms []models.Room) {
	if len(rooms) == 0 {
		v.addf("scene has no rooms")
	}
	for _, r := range rooms {
		if r.ID == "" {
			v.addf("room %q has no id", r.Name)
			continue
		}
		if _, dup := g.rooms[r.ID]; dup {
			v.addf("duplicate room %q", r.ID)
			continue
		}
		r.Exits = maps.Clone(r.Exits)
		r.Events = nil
		g.rooms[r.ID] = r
		g.roomOrder = append(g.roomOrder, r.ID)
	}
	for _, id := range g.roomOrder {
		r := g.rooms[id]
		for _, dir := range slices.Sorted(maps.Keys(r.Exits)) {
			if !dir.Valid() {
				v.addf("room %q: unknown direction %q", id, dir)
			}
			if _, ok := g.rooms[r.Exits[dir]]; !ok {
				v.addf("room %q: exit %s leads to unknown room %q", id, dir, r.Exits[dir])
			}
		}
	}
}

func (g *Graph) addEvents(v *validator, events []models.Event) {
	if len(events) == 0 {
		v.addf("scene has no events")
	}
	known := maps.Clone(g.cast)
	initial := g.InitialState()
	for _, e := range events {
		if e.ID == "" {
			v.addf("event in room %q has no id", e.Room)
			continue
		}
		if _, dup := g.index[e.ID]; dup {
			v.addf("duplicate event %q", e.ID)
			continue
		}
		r, ok := g.rooms[e.Room]
		if !ok {
			v.addf("event %q: unknown room %q", e.ID, e.Room)
		}
		for _, c := range e.Introduces {
			known[c.ID] = c
		}
		for _, p := range e.Participants {
			if _, ok := known[p]; !ok {
				v.addf("event %q: unknown participant %q", e.ID, p)
			}
		}
		for _, d := range e.Departures {
			if _, ok := known[d]; !ok {
				v.addf("event %q: unknown departing character %q", e.ID, d)
			}
		}
		// Types and names do not depend on earlier events; replayCanon
		// catches the rest once the structure is sound.
		if err := initial.Check(e.Delta); err != nil {
			for _, msg := range strings.Split(err.Error(), "\n") {
				v.addf("event %q: %s", e.ID, msg)
			}
		}

		e = e.Clone()
		e.Canonical = true
		e.Cause = ""
		e.Concludes = false
		g.index[e.ID] = len(g.events)
		g.events = append(g.events, e)
		if ok {
			r.Events = append(r.Events, e.ID)
			g.rooms[e.Room] = r
		}
	}
}

// replayCanon folds every canonical event from the initial state so that
// bad deltas surface at load time instead of during play.
func (g *Graph) replayCanon(v *validator) {
	st := g.InitialState()
	for _, e := range g.events {
		next, err := st.Apply(e)
		if err != nil {
			for _, msg := range strings.Split(err.Error(), "\n") {
				v.addf("%s", msg)
			}
			continue
		}
		st = next
	}
}

func (g *Graph) isCast(id string) bool {
	_, ok := g.cast[id]
	return ok
}
