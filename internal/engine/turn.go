package engine

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/tactics-api/internal/errors"
)

// DefaultMaxAttempts bounds how many rejected decisions an actor may make
// in one turn before the controller forces the fallback action.
const DefaultMaxAttempts = 3

// TurnControllerConfig holds the controller's dependencies.
type TurnControllerConfig struct {
	// MaxAttempts bounds decision attempts per turn. Zero means
	// DefaultMaxAttempts.
	MaxAttempts int

	// Fallback mints the action forced after MaxAttempts rejections,
	// typically a wait. Required.
	Fallback func(actor Actor) Action
}

// Validate ensures the config is complete.
func (c *TurnControllerConfig) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config is required")
	}
	if c.Fallback == nil {
		return errors.InvalidArgument("fallback action constructor is required")
	}
	return nil
}

// TurnController runs a single actor's turn: request an action, validate
// it, execute it. A rejected action never executes, and execution always
// follows an accepting validation on the same action instance.
type TurnController struct {
	maxAttempts int
	fallback    func(actor Actor) Action
}

// NewTurnController creates a turn controller from the config.
func NewTurnController(cfg *TurnControllerConfig) (*TurnController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &TurnController{
		maxAttempts: maxAttempts,
		fallback:    cfg.Fallback,
	}, nil
}

// TurnResult reports what happened during a turn.
type TurnResult struct {
	ActorID string `json:"actor_id"`

	// Action is the name of the executed action, empty when the actor
	// passed.
	Action string `json:"action,omitempty"`

	// Rejections lists the reasons of refused decisions, in order.
	Rejections []string `json:"rejections,omitempty"`

	// Forced is true when the fallback ran after too many rejections.
	Forced bool `json:"forced,omitempty"`

	// Passed is true when no action executed this turn.
	Passed bool `json:"passed,omitempty"`
}

// RunTurn drives one turn for the given actor. An actor without the
// ActionRequester capability simply passes. Errors abort the turn without
// consuming it (canceled context, dead session); rule rejections never
// surface as errors.
func (tc *TurnController) RunTurn(ctx context.Context, actor Actor) (*TurnResult, error) {
	if actor == nil {
		return nil, errors.InvalidArgument("actor is required")
	}

	result := &TurnResult{ActorID: actor.GetID()}

	requester, ok := actor.(ActionRequester)
	if !ok {
		result.Passed = true
		return result, nil
	}

	for attempt := 0; attempt < tc.maxAttempts; attempt++ {
		action, err := requester.RequestAction(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "requesting action")
		}

		if action == nil {
			result.Passed = true
			return result, nil
		}

		decision, err := action.CanPerform(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "validating %s", action.Name())
		}
		if decision == nil {
			return nil, errors.Internalf("action %s returned no decision", action.Name())
		}

		if !decision.Allowed {
			result.Rejections = append(result.Rejections, decision.Reason)
			slog.Info("action rejected",
				"actor_id", actor.GetID(),
				"action", action.Name(),
				"reason", decision.Reason,
			)
			continue
		}

		if err := action.Perform(ctx); err != nil {
			return nil, errors.Wrapf(err, "performing %s", action.Name())
		}

		result.Action = action.Name()
		return result, nil
	}

	// Too many rejections; force the fallback so the turn still resolves.
	fallback := tc.fallback(actor)
	decision, err := fallback.CanPerform(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "validating fallback %s", fallback.Name())
	}

	result.Forced = true
	if decision == nil || !decision.Allowed {
		result.Passed = true
		return result, nil
	}

	if err := fallback.Perform(ctx); err != nil {
		return nil, errors.Wrapf(err, "performing fallback %s", fallback.Name())
	}

	result.Action = fallback.Name()
	return result, nil
}
