package engine

import (
	"context"

	"github.com/tatianab/branching-scenes/internal/models"
	"github.com/tatianab/branching-scenes/internal/world"
)

// Request is everything a Generator is told about the story so far.
type Request struct {
	SceneTitle string
	Synopsis   string
	Room       models.Room
	Neighbours []models.Room
	Canon      []models.Event // what the book has happen in this room
	Route      []string       // rooms the book passes through, in order
	Recent     []models.Event
	State      world.Snapshot
	Variables  []models.Variable
	Cast       []models.Character

	// Action is the player's intent. Empty means "carry on".
	Action string

	// Attempt counts from 1. Rejections explains why earlier candidates for
	// the same request were refused.
	Attempt    int
	Rejections []string
}

// Candidate is a proposed event. Nothing is trusted until the Resolver has
// validated it against the world state.
type Candidate struct {
	Description  string
	Room         string
	Participants []string
	Delta        models.Delta
	Introduces   []models.Character
	Departures   []string
	Concludes    bool
}

// Generator produces a candidate event for a deviation. Implementations may
// fail, time out, or return content that does not fit the world; the
// Resolver handles all three.
type Generator interface {
	Generate(ctx context.Context, req Request) (Candidate, error)
}

// Suggester is implemented by generators that can also propose actions for
// the player at a decision point.
type Suggester interface {
	Suggest(ctx context.Context, req Request) ([]string, error)
}

type GeneratorFunc func(ctx context.Context, req Request) (Candidate, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Candidate, error) {
	return f(ctx, req)
}
