// Package timeline records the events a playthrough has actually gone
// through, canonical or generated, in order.
package timeline

import (
	"errors"
	"fmt"
	"maps"

	"github.com/tatianab/branching-scenes/internal/models"
	"github.com/tatianab/branching-scenes/internal/world"
)

var ErrIndexOutOfRange = errors.New("timeline index out of range")

// Entry is a committed event together with the variable changes it caused.
type Entry struct {
	Event   models.Event
	Changes map[string]models.Change
}

// Timeline is append-only apart from TruncateTo, which drops a suffix when
// the player goes back to try something else.
type Timeline struct {
	entries []Entry
}

func New() *Timeline {
	return &Timeline{}
}

func (t *Timeline) Append(e models.Event, changes map[string]models.Change) {
	t.entries = append(t.entries, Entry{Event: e.Clone(), Changes: maps.Clone(changes)})
}

// TruncateTo keeps the first k entries and discards the rest.
func (t *Timeline) TruncateTo(k int) error {
	if k < 0 || k > len(t.entries) {
		return fmt.Errorf("truncate to %d of %d: %w", k, len(t.entries), ErrIndexOutOfRange)
	}
	clear(t.entries[k:])
	t.entries = t.entries[:k]
	return nil
}

// CurrentIndex is the number of committed entries.
func (t *Timeline) CurrentIndex() int { return len(t.entries) }

// FoldState replays every event's delta in order, starting from initial.
func (t *Timeline) FoldState(initial *world.State) (*world.State, error) {
	st := initial
	for i, e := range t.entries {
		next, err := st.Apply(e.Event)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		st = next
	}
	return st, nil
}

func (t *Timeline) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = Entry{Event: e.Event.Clone(), Changes: maps.Clone(e.Changes)}
	}
	return out
}

func (t *Timeline) Last() (models.Event, bool) {
	if len(t.entries) == 0 {
		return models.Event{}, false
	}
	return t.entries[len(t.entries)-1].Event.Clone(), true
}

// Window returns the last n events, oldest first.
func (t *Timeline) Window(n int) []models.Event {
	start := max(len(t.entries)-n, 0)
	out := make([]models.Event, 0, len(t.entries)-start)
	for _, e := range t.entries[start:] {
		out = append(out, e.Event.Clone())
	}
	return out
}

// DivergedAt returns the index of the first generated event, or -1 if the
// timeline still follows the book.
func (t *Timeline) DivergedAt() int {
	for i, e := range t.entries {
		if !e.Event.Canonical {
			return i
		}
	}
	return -1
}

func (t *Timeline) Diverged() bool { return t.DivergedAt() >= 0 }

// LastCanonical returns the most recent canonical event.
func (t *Timeline) LastCanonical() (models.Event, bool) {
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].Event.Canonical {
			return t.entries[i].Event.Clone(), true
		}
	}
	return models.Event{}, false
}
