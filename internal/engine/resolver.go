package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tatianab/branching-scenes/internal/models"
	"github.com/tatianab/branching-scenes/internal/scene"
	"github.com/tatianab/branching-scenes/internal/timeline"
	"github.com/tatianab/branching-scenes/internal/world"
)

// Phase is where the Resolver is in resolving the next event.
type Phase int

const (
	AwaitingCanonical Phase = iota
	AwaitingPlayerChoice
	Generating
	Committed
	SceneComplete
)

func (p Phase) String() string {
	switch p {
	case AwaitingCanonical:
		return "awaiting canonical"
	case AwaitingPlayerChoice:
		return "awaiting player choice"
	case Generating:
		return "generating"
	case Committed:
		return "committed"
	case SceneComplete:
		return "scene complete"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

type Options struct {
	MaxAttempts int           // candidates tried per player action
	Timeout     time.Duration // per attempt
	Window      int           // recent events shown to the generator
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Timeout <= 0 {
		o.Timeout = 45 * time.Second
	}
	if o.Window <= 0 {
		o.Window = 6
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Branch is one line of play: the state the scene started from, the events
// committed since, and the live state they fold to.
type Branch struct {
	initial  *world.State
	live     *world.State
	timeline *timeline.Timeline
}

func newBranch(initial *world.State) *Branch {
	return &Branch{initial: initial, live: initial, timeline: timeline.New()}
}

// Resolver decides what happens next: the book's next event while the player
// follows along, or a generated one once they deviate. A branch that has
// deviated never returns to the book.
type Resolver struct {
	graph *scene.Graph
	gen   Generator
	opts  Options
	log   *slog.Logger
	phase Phase
	newID func() string
}

func NewResolver(g *scene.Graph, gen Generator, opts Options) *Resolver {
	opts = opts.withDefaults()
	return &Resolver{
		graph: g,
		gen:   gen,
		opts:  opts,
		log:   opts.Logger.With("scene", g.ID()),
		phase: AwaitingCanonical,
		newID: func() string { return "gen-" + uuid.NewString() },
	}
}

func (r *Resolver) Phase() Phase { return r.phase }

// Step resolves one event on b. An empty action follows the story: the next
// canonical event, or a generated continuation on a diverged branch.
func (r *Resolver) Step(ctx context.Context, b *Branch, action string) (models.Event, error) {
	if r.phase == SceneComplete {
		return models.Event{}, ErrSceneComplete
	}
	action = strings.TrimSpace(action)
	if action == "" && !b.timeline.Diverged() {
		return r.advance(b)
	}
	return r.deviate(ctx, b, action)
}

// End moves the resolver to SceneComplete.
func (r *Resolver) End() { r.phase = SceneComplete }

func (r *Resolver) advance(b *Branch) (models.Event, error) {
	var lastID string
	if last, ok := b.timeline.LastCanonical(); ok {
		lastID = last.ID
	}
	e, ok, err := r.graph.NextCanonicalEvent(lastID)
	if err != nil {
		return models.Event{}, err
	}
	if !ok {
		r.phase = SceneComplete
		return models.Event{}, ErrSceneComplete
	}

	next, err := b.live.Apply(e)
	if err != nil {
		// Canonical deltas were replayed at load time; failing here means the
		// live state is not what the timeline says it is.
		return models.Event{}, fmt.Errorf("%w: canonical %w", ErrConsistencyViolation, err)
	}
	r.commit(b, e, next)
	return e, nil
}

func (r *Resolver) deviate(ctx context.Context, b *Branch, action string) (models.Event, error) {
	resume := r.phase
	before := b.live
	checkpoint := b.live.Snapshot()
	r.phase = Generating

	e, next, err := r.generate(ctx, b, action)
	if err != nil {
		b.live = world.Restore(checkpoint)
		r.phase = resume
		if !b.live.Equal(before) {
			return models.Event{}, fmt.Errorf("%w: checkpoint restore changed state", ErrConsistencyViolation)
		}
		return models.Event{}, err
	}
	r.commit(b, e, next)
	return e, nil
}

func (r *Resolver) commit(b *Branch, e models.Event, next *world.State) {
	r.phase = Committed
	b.timeline.Append(e, b.live.Changes(next))
	b.live = next
	r.log.Info("event committed",
		"event", e.ID,
		"room", e.Room,
		"canonical", e.Canonical,
		"index", b.timeline.CurrentIndex())
	r.settle(b, e)
}

// settle picks the phase that follows a commit or a rewind.
func (r *Resolver) settle(b *Branch, last models.Event) {
	switch {
	case last.Concludes:
		r.phase = SceneComplete
	case b.timeline.Diverged():
		r.phase = AwaitingPlayerChoice
	default:
		var lastID string
		if c, ok := b.timeline.LastCanonical(); ok {
			lastID = c.ID
		}
		if _, ok, _ := r.graph.NextCanonicalEvent(lastID); ok {
			r.phase = AwaitingCanonical
		} else {
			r.phase = AwaitingPlayerChoice
		}
	}
}

func (r *Resolver) generate(ctx context.Context, b *Branch, action string) (models.Event, *world.State, error) {
	req := r.request(b, action)
	var causes []error
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.Event{}, nil, fmt.Errorf("%w: %w", ErrGenerationCanceled, err)
		}
		req.Attempt = attempt

		cand, err := r.attempt(ctx, req)
		if err == nil {
			var e models.Event
			var next *world.State
			if e, next, err = r.accept(b.live, cand, action); err == nil {
				return e, next, nil
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.Event{}, nil, fmt.Errorf("%w: %w", ErrGenerationCanceled, ctxErr)
		}

		causes = append(causes, err)
		req.Rejections = append(req.Rejections, err.Error())
		r.log.Warn("candidate rejected", "attempt", attempt, "action", action, "err", err)
	}

	gerr := &GenerationError{Action: action, Attempts: len(causes), Causes: causes}
	r.log.Warn("generation failed", "action", action, "attempts", gerr.Attempts)
	return models.Event{}, nil, gerr
}

// attempt runs the generator under the per-attempt timeout. The call runs in
// its own goroutine so a generator that ignores its context still cannot
// hold the session past the deadline.
func (r *Resolver) attempt(ctx context.Context, req Request) (Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	type result struct {
		cand Candidate
		err  error
	}
	done := make(chan result, 1)
	go func() {
		c, err := r.gen.Generate(ctx, req)
		done <- result{c, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return Candidate{}, fmt.Errorf("%w after %s", ErrGenerationTimeout, r.opts.Timeout)
			}
			return Candidate{}, fmt.Errorf("generator: %w", res.err)
		}
		return res.cand, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Candidate{}, fmt.Errorf("%w after %s", ErrGenerationTimeout, r.opts.Timeout)
		}
		return Candidate{}, ctx.Err()
	}
}

func (r *Resolver) request(b *Branch, action string) Request {
	room, _ := r.graph.Room(b.live.Room())
	var neighbours []models.Room
	for _, dir := range slices.Sorted(maps.Keys(room.Exits)) {
		if n, err := r.graph.Room(room.Exits[dir]); err == nil {
			neighbours = append(neighbours, n)
		}
	}
	canon, _ := r.graph.CanonicalEventsOf(room.ID)

	return Request{
		SceneTitle: r.graph.Title(),
		Synopsis:   r.graph.Synopsis(),
		Room:       room,
		Neighbours: neighbours,
		Canon:      canon,
		Route:      r.graph.VisitOrder(),
		Recent:     b.timeline.Window(r.opts.Window),
		State:      b.live.Snapshot(),
		Variables:  b.live.Variables(),
		Cast:       append(r.graph.Characters(), b.live.IntroducedCharacters()...),
		Action:     action,
	}
}

// suggest asks a Suggester generator for player options at the current point.
func (r *Resolver) suggest(ctx context.Context, b *Branch) ([]string, error) {
	s, ok := r.gen.(Suggester)
	if !ok {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()
	out, err := s.Suggest(ctx, r.request(b, ""))
	if err != nil {
		return nil, err
	}
	if len(out) > 3 {
		out = out[:3]
	}
	return out, nil
}
