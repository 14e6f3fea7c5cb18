package scene

import (
	"fmt"
	"maps"
	"slices"

	"github.com/tatianab/branching-scenes/internal/models"
	"github.com/tatianab/branching-scenes/internal/world"
)

func (g *Graph) ID() string { return g.id }
func (g *Graph) Title() string { return g.title }
func (g *Graph) Synopsis() string { return g.synopsis }
func (g *Graph) StartRoom() string { return g.start }

// InitialState is the world state before any event has happened.
func (g *Graph) InitialState() *world.State {
	return world.New(g.vars, g.start)
}

func (g *Graph) Room(id string) (models.Room, error) {
	r, ok := g.rooms[id]
	if !ok {
		return models.Room{}, fmt.Errorf("room %q: %w", id, ErrNotFound)
	}
	r.Exits = maps.Clone(r.Exits)
	r.Events = slices.Clone(r.Events)
	return r, nil
}

// Rooms returns every room in declaration order.
func (g *Graph) Rooms() []models.Room {
	out := make([]models.Room, 0, len(g.roomOrder))
	for _, id := range g.roomOrder {
		r, _ := g.Room(id)
		out = append(out, r)
	}
	return out
}

// Connected reports whether an exit joins the two rooms in either direction.
func (g *Graph) Connected(a, b string) bool {
	ra, okA := g.rooms[a]
	rb, okB := g.rooms[b]
	return okA && okB && (ra.Connects(b) || rb.Connects(a))
}

func (g *Graph) Event(id string) (models.Event, error) {
	i, ok := g.index[id]
	if !ok {
		return models.Event{}, fmt.Errorf("event %q: %w", id, ErrNotFound)
	}
	return g.events[i].Clone(), nil
}

// Events returns the canonical events in story order.
func (g *Graph) Events() []models.Event {
	out := make([]models.Event, len(g.events))
	for i, e := range g.events {
		out[i] = e.Clone()
	}
	return out
}

// CanonicalEventsOf returns the canonical events that happen in a room, in
// story order.
func (g *Graph) CanonicalEventsOf(roomID string) ([]models.Event, error) {
	r, ok := g.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", roomID, ErrNotFound)
	}
	out := make([]models.Event, 0, len(r.Events))
	for _, id := range r.Events {
		out = append(out, g.events[g.index[id]].Clone())
	}
	return out, nil
}

// NextCanonicalEvent returns the canonical event after currentID. An empty
// currentID asks for the first event. ok is false once the scene is complete.
func (g *Graph) NextCanonicalEvent(currentID string) (e models.Event, ok bool, err error) {
	next := 0
	if currentID != "" {
		i, found := g.index[currentID]
		if !found {
			return models.Event{}, false, fmt.Errorf("event %q: %w", currentID, ErrNotFound)
		}
		next = i + 1
	}
	if next >= len(g.events) {
		return models.Event{}, false, nil
	}
	return g.events[next].Clone(), true, nil
}

// VisitOrder is the sequence of rooms the book passes through.
func (g *Graph) VisitOrder() []string {
	var order []string
	for _, e := range g.events {
		if len(order) == 0 || order[len(order)-1] != e.Room {
			order = append(order, e.Room)
		}
	}
	return order
}

func (g *Graph) Character(id string) (models.Character, bool) {
	c, ok := g.cast[id]
	return c, ok
}

// Characters returns the declared cast in declaration order.
func (g *Graph) Characters() []models.Character {
	out := make([]models.Character, 0, len(g.castOrder))
	for _, id := range g.castOrder {
		out = append(out, g.cast[id])
	}
	return out
}

func (g *Graph) Variables() []models.Variable { return slices.Clone(g.vars) }
