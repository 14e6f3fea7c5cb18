package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tatianab/branching-scenes/internal/models"
	"github.com/tatianab/branching-scenes/internal/world"
)

// accept validates a candidate against st and, if it fits, turns it into an
// event together with the state it leads to. st is not modified.
func (r *Resolver) accept(st *world.State, c Candidate, action string) (models.Event, *world.State, error) {
	if err := r.validate(st, c); err != nil {
		return models.Event{}, nil, err
	}

	e := models.Event{
		ID:           r.newID(),
		Room:         c.Room,
		Participants: slices.Clone(c.Participants),
		Description:  strings.TrimSpace(c.Description),
		Delta:        c.Delta.Clone(),
		Departures:   slices.Clone(c.Departures),
		Introduces:   slices.Clone(c.Introduces),
		Cause:        action,
		Concludes:    c.Concludes,
	}
	if e.Room == "" {
		e.Room = st.Room()
	}

	next, err := st.Apply(e)
	if err != nil {
		return models.Event{}, nil, err
	}
	return e, next, nil
}

func (r *Resolver) validate(st *world.State, c Candidate) error {
	var errs []error

	if strings.TrimSpace(c.Description) == "" {
		errs = append(errs, fmt.Errorf("%w: empty description", ErrInvalidCandidate))
	}
	if c.Room != "" && c.Room != st.Room() && !r.graph.Connected(st.Room(), c.Room) {
		errs = append(errs, fmt.Errorf("%w: room %q is not reachable from %q", ErrInvalidCandidate, c.Room, st.Room()))
	}
	if err := st.Check(c.Delta); err != nil {
		errs = append(errs, err)
	}

	fresh := make(map[string]bool, len(c.Introduces))
	for _, ch := range c.Introduces {
		switch {
		case ch.ID == "":
			errs = append(errs, fmt.Errorf("%w: introduced character %q has no id", ErrInvalidCandidate, ch.Name))
		case r.knows(st, ch.ID) || fresh[ch.ID]:
			errs = append(errs, fmt.Errorf("%w: character %q already exists", ErrInvalidCandidate, ch.ID))
		default:
			fresh[ch.ID] = true
		}
	}
	for _, p := range c.Participants {
		if !r.knows(st, p) && !fresh[p] {
			errs = append(errs, fmt.Errorf("%w %q", ErrUnknownCharacter, p))
		}
	}
	for _, d := range c.Departures {
		if !st.IsPresent(d) && !slices.Contains(c.Participants, d) {
			errs = append(errs, fmt.Errorf("%w %q cannot leave: not on stage", ErrUnknownCharacter, d))
		}
	}
	return errors.Join(errs...)
}

// knows reports whether id is in the scene's cast or was introduced earlier
// on this branch.
func (r *Resolver) knows(st *world.State, id string) bool {
	if _, ok := r.graph.Character(id); ok {
		return true
	}
	_, ok := st.Introduced(id)
	return ok
}
