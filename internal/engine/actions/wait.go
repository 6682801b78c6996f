package actions

import (
	"context"

	"github.com/KirkDiggler/tactics-api/internal/engine"
)

// waitAction consumes the turn with no effect. It always validates, which
// makes it the turn controller's fallback of last resort.
type waitAction struct {
	source engine.Actor
}

var _ engine.Action = (*waitAction)(nil)

// NewWait returns the wait action for an actor. It needs none of the
// factory's dependencies, so turn controllers can mint it directly.
func NewWait(source engine.Actor) engine.Action {
	return &waitAction{source: source}
}

func (w *waitAction) Name() string { return WaitName }

func (w *waitAction) CanPerform(_ context.Context) (*engine.Decision, error) {
	return engine.Allow(), nil
}

func (w *waitAction) Perform(_ context.Context) error { return nil }
