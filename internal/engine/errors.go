package engine

import (
	"errors"
	"fmt"
)

var (
	ErrGenerationFailure    = errors.New("generation failed")
	ErrGenerationTimeout    = errors.New("generation timed out")
	ErrGenerationCanceled   = errors.New("generation canceled")
	ErrInvalidCandidate     = errors.New("invalid candidate")
	ErrUnknownCharacter     = errors.New("unknown character")
	ErrConsistencyViolation = errors.New("consistency violation")
	ErrSceneComplete        = errors.New("scene complete")
	ErrSessionAborted       = errors.New("session aborted")
)

// GenerationError reports that no acceptable event could be produced for a
// player action. The session stays usable; the player should try something
// else.
type GenerationError struct {
	Action   string
	Attempts int
	Causes   []error
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("the story could not continue that way (%d attempts)", e.Attempts)
	if n := len(e.Causes); n > 0 {
		msg += ": " + e.Causes[n-1].Error()
	}
	return msg
}

func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailure }

func (e *GenerationError) Unwrap() []error { return e.Causes }
