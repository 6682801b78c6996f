// Package actions implements the verbs an actor can take on its turn:
// ranged attacks, melee strikes, grid movement, and waiting.
//
// Every action follows the two-phase contract from the engine package:
// CanPerform renders a rule verdict without touching the world, Perform
// applies the effects. Rule rejections travel in the Decision; errors are
// reserved for infrastructure failures.
package actions

import (
	"github.com/KirkDiggler/rpg-toolkit/core"
	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/tactics-api/internal/cues"
	"github.com/KirkDiggler/tactics-api/internal/engine"
	"github.com/KirkDiggler/tactics-api/internal/errors"
	"github.com/KirkDiggler/tactics-api/internal/grid"
)

// Action names, as carried in TurnResult and over the wire.
const (
	RangedAttackName = "ranged_attack"
	MeleeAttackName  = "melee_attack"
	MoveName         = "move"
	WaitName         = "wait"
)

// Rejection reasons are player-facing and surface verbatim in
// Decision.Reason.
const (
	ReasonNoTarget       = "Must have a valid target."
	ReasonSelfTarget     = "Cannot target self."
	ReasonBadCoordinates = "Invalid target or source coordinates."
	ReasonTargetTooFar   = "Target is too far away."
	ReasonNoDestination  = "Must have a valid destination."
	ReasonUnreachable    = "Destination is unreachable."
)

// Animation clips referenced by the actions. The presentation layer maps
// them to whatever assets it has; absence of an Animator skips them.
const (
	AnimationIdle   = "idle"
	AnimationWalk   = "walk"
	AnimationRanged = "ranged"
	AnimationMelee  = "melee"
)

// Attack ranges in Euclidean cell distance. A target at exactly the
// maximum range is in range.
const (
	MeleeRange  = 1.0
	RangedRange = 5.0
)

// kindMoveStep tags the cue emitted for each cell of movement.
const kindMoveStep = "move_step"

// Arena is the mutable battlefield actions play out on. *grid.SquareGrid
// satisfies it.
type Arena interface {
	grid.World

	// Move relocates a placed entity to an in-bounds, unoccupied cell.
	Move(entity core.Entity, to grid.Coordinate) error
}

// Config holds the shared dependencies every action draws on.
type Config struct {
	// EncounterID stamps cues and damage events so gateway subscribers can
	// filter by encounter.
	EncounterID string
	World       Arena
	PathFinder  *grid.PathFinder
	Roller      dice.Roller
	Timeline    cues.Timeline
	EventBus    events.EventBus
}

// Validate ensures the config is complete.
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config is required")
	}
	if c.EncounterID == "" {
		return errors.InvalidArgument("encounter ID is required")
	}
	if c.World == nil {
		return errors.InvalidArgument("world is required")
	}
	if c.PathFinder == nil {
		return errors.InvalidArgument("path finder is required")
	}
	if c.Roller == nil {
		return errors.InvalidArgument("dice roller is required")
	}
	if c.Timeline == nil {
		return errors.InvalidArgument("timeline is required")
	}
	if c.EventBus == nil {
		return errors.InvalidArgument("event bus is required")
	}
	return nil
}

// Factory mints single-use action values bound to an actor. Each minted
// action validates and performs once; mint a fresh one per turn attempt.
type Factory struct {
	cfg *Config
}

// NewFactory creates an action factory for one encounter.
func NewFactory(cfg *Config) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Factory{cfg: cfg}, nil
}

// RangedAttack returns a ranged attack for the actor.
func (f *Factory) RangedAttack(source engine.Actor) engine.Action {
	return &attackAction{cfg: f.cfg, source: source, profile: rangedProfile}
}

// MeleeAttack returns a melee strike for the actor.
func (f *Factory) MeleeAttack(source engine.Actor) engine.Action {
	return &attackAction{cfg: f.cfg, source: source, profile: meleeProfile}
}

// Move returns a movement action for the actor.
func (f *Factory) Move(source engine.Actor) engine.Action {
	return &moveAction{cfg: f.cfg, source: source}
}

// Wait returns the no-op action for the actor.
func (f *Factory) Wait(source engine.Actor) engine.Action {
	return NewWait(source)
}

// ByName resolves an action by its wire name.
func (f *Factory) ByName(name string, source engine.Actor) (engine.Action, error) {
	switch name {
	case RangedAttackName:
		return f.RangedAttack(source), nil
	case MeleeAttackName:
		return f.MeleeAttack(source), nil
	case MoveName:
		return f.Move(source), nil
	case WaitName:
		return f.Wait(source), nil
	default:
		return nil, errors.InvalidArgumentf("unknown action %q", name)
	}
}

// Names lists the actions the factory can mint.
func (f *Factory) Names() []string {
	return []string{RangedAttackName, MeleeAttackName, MoveName, WaitName}
}

// faceTarget turns the source toward the target when it can turn.
func faceTarget(source, target engine.Actor) {
	if facer, ok := source.(engine.Facer); ok {
		facer.FaceTarget(target)
	}
}

// playAnimation starts a clip when the actor renders animations.
func playAnimation(actor engine.Actor, name string, loop bool) {
	if animator, ok := actor.(engine.Animator); ok {
		animator.PlayAnimation(name, loop)
	}
}

// refaceOpponent restores facing toward the tracked opponent after an
// action resolves.
func refaceOpponent(actor engine.Actor) {
	tracker, ok := actor.(engine.OpponentTracker)
	if !ok {
		return
	}
	if opponent := tracker.Opponent(); opponent != nil {
		faceTarget(actor, opponent)
	}
}
