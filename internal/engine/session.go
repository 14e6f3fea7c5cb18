package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tatianab/branching-scenes/internal/models"
	"github.com/tatianab/branching-scenes/internal/scene"
	"github.com/tatianab/branching-scenes/internal/timeline"
	"github.com/tatianab/branching-scenes/internal/world"
)

// Engine starts sessions on scenes from a library. It holds no per-session
// state, so any number of sessions can run side by side.
type Engine struct {
	library *scene.Library
	gen     Generator
	opts    Options
}

func New(lib *scene.Library, gen Generator, opts Options) *Engine {
	return &Engine{library: lib, gen: gen, opts: opts.withDefaults()}
}

func (e *Engine) Scenes() []string { return e.library.IDs() }

// StartSession begins a new playthrough of the given scene.
func (e *Engine) StartSession(sceneID string) (*Session, error) {
	g, err := e.library.Scene(sceneID)
	if err != nil {
		return nil, err
	}
	return NewSession(g, e.gen, e.opts), nil
}

// Session is one player's playthrough of one scene. Calls are serialised;
// a turn that is waiting on the generator blocks every other call until it
// finishes or its context is canceled.
type Session struct {
	mu       sync.Mutex
	id       string
	graph    *scene.Graph
	resolver *Resolver
	branch   *Branch
	log      *slog.Logger
	aborted  error
}

func NewSession(g *scene.Graph, gen Generator, opts Options) *Session {
	opts = opts.withDefaults()
	id := uuid.NewString()
	opts.Logger = opts.Logger.With("session", id)
	return &Session{
		id:       id,
		graph:    g,
		resolver: NewResolver(g, gen, opts),
		branch:   newBranch(g.InitialState()),
		log:      opts.Logger,
	}
}

func (s *Session) ID() string { return s.id }
func (s *Session) Scene() *scene.Graph { return s.graph }

// PresentCurrentEvent returns the most recently committed event. ok is false
// before the first event.
func (s *Session) PresentCurrentEvent() (e models.Event, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.branch.timeline.Last()
}

// Submit plays one turn. An empty action follows the story; anything else is
// a deviation that the generator has to make sense of.
//
// A *GenerationError means the action could not be turned into an event;
// the session is unchanged and still playable. ErrSceneComplete means there
// is nothing left to play. Errors matching ErrSessionAborted are permanent.
func (s *Session) Submit(ctx context.Context, action string) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted != nil {
		return models.Event{}, s.aborted
	}

	e, err := s.resolver.Step(ctx, s.branch, action)
	if err != nil {
		if errors.Is(err, ErrConsistencyViolation) {
			return models.Event{}, s.abort(err)
		}
		return models.Event{}, err
	}
	if err := s.verify(); err != nil {
		return models.Event{}, s.abort(err)
	}
	return e, nil
}

// End is the player's explicit request to stop the scene.
func (s *Session) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted != nil {
		return s.aborted
	}
	s.resolver.End()
	s.log.Info("session ended by player", "events", s.branch.timeline.CurrentIndex())
	return nil
}

func (s *Session) IsSceneComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted != nil || s.resolver.Phase() == SceneComplete
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.Phase()
}

// Diverged reports whether the current branch has left the book.
func (s *Session) Diverged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.branch.timeline.Diverged()
}

// Err returns the reason the session was aborted, if it was.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// CurrentWorldState returns a copy of the live state.
func (s *Session) CurrentWorldState() world.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.branch.live.Snapshot()
}

func (s *Session) Timeline() []timeline.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.branch.timeline.Entries()
}

// Rewind goes back to the point after the first k events, discarding the
// rest. Rewinding to before the first generated event puts the branch back
// on the book.
func (s *Session) Rewind(k int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted != nil {
		return s.aborted
	}

	if err := s.branch.timeline.TruncateTo(k); err != nil {
		return err
	}
	live, err := s.branch.timeline.FoldState(s.branch.initial)
	if err != nil {
		return s.abort(fmt.Errorf("%w: refold after rewind: %w", ErrConsistencyViolation, err))
	}
	s.branch.live = live

	last, _ := s.branch.timeline.Last()
	s.resolver.settle(s.branch, last)
	s.log.Info("rewound", "to", k, "phase", s.resolver.Phase().String())
	return nil
}

// Suggest returns up to three actions the player could take now. It returns
// nil when the generator cannot make suggestions.
func (s *Session) Suggest(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted != nil {
		return nil, s.aborted
	}
	return s.resolver.suggest(ctx, s.branch)
}

// Transcript exports the playthrough so far.
func (s *Session) Transcript() *models.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &models.Transcript{
		Scene:    s.graph.ID(),
		Title:    s.graph.Title(),
		Diverged: s.branch.timeline.Diverged(),
		Final:    s.branch.live.Vars(),
	}
	for i, entry := range s.branch.timeline.Entries() {
		t.Entries = append(t.Entries, models.TranscriptEntry{
			Index:        i + 1,
			EventID:      entry.Event.ID,
			Room:         entry.Event.Room,
			Canonical:    entry.Event.Canonical,
			Cause:        entry.Event.Cause,
			Description:  entry.Event.Description,
			Participants: entry.Event.Participants,
			Changes:      entry.Changes,
		})
	}
	return t
}

// verify checks that replaying the timeline reproduces the live state.
func (s *Session) verify() error {
	folded, err := s.branch.timeline.FoldState(s.branch.initial)
	if err != nil {
		return fmt.Errorf("%w: replay: %w", ErrConsistencyViolation, err)
	}
	if !folded.Equal(s.branch.live) {
		return fmt.Errorf("%w: timeline replay does not match live state at index %d",
			ErrConsistencyViolation, s.branch.timeline.CurrentIndex())
	}
	return nil
}

func (s *Session) abort(cause error) error {
	s.aborted = fmt.Errorf("%w: %w", ErrSessionAborted, cause)
	s.log.Error("session aborted", "err", cause)
	return s.aborted
}
