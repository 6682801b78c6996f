// Package engine defines the combat core: the actor surface, the action
// contract, and the turn controller that drives them.
//
// Actors expose a deliberately small required interface. Everything else
// (facing, animating, selecting targets, deciding turns) is an optional
// capability discovered via type assertion; callers skip missing
// capabilities silently.
package engine

import (
	"context"

	"github.com/KirkDiggler/rpg-toolkit/core"

	"github.com/KirkDiggler/tactics-api/internal/grid"
)

// Actor is the minimal surface every combat participant exposes: identity,
// coordinates, and damage intake.
type Actor interface {
	core.Entity

	// Position returns the actor's cell, or false when the actor has no
	// coordinate data (not yet placed, or removed from the battlefield).
	Position() (grid.Coordinate, bool)

	// SetPosition updates the actor's cell. Movement keeps this in sync
	// with the battlefield occupancy table.
	SetPosition(c grid.Coordinate)

	// Hit applies damage to the actor.
	Hit(amount int)
}

// Facer is the optional capability of turning toward another actor.
type Facer interface {
	FaceTarget(target Actor)
}

// Orientable is the optional capability of facing a lattice direction,
// used while walking.
type Orientable interface {
	Face(d grid.Direction)
}

// Animator is the optional capability of presenting an animation. Requests
// are fire-and-forget; synchronization happens through cues instead.
type Animator interface {
	PlayAnimation(name string, loop bool)
}

// TargetSelector is the optional capability of choosing targets. Both
// methods may suspend until a decision arrives (a player answering a
// prompt) and both return nil when nothing was selected. Errors are
// infrastructure only (a canceled context, a dead session), never a rule
// verdict.
type TargetSelector interface {
	SelectTarget(ctx context.Context) (Actor, error)
	SelectSquare(ctx context.Context) (*grid.Coordinate, error)
}

// OpponentTracker is the optional capability of remembering a current
// opponent. The reference is weak: the tracker does not own the opponent,
// and nil means none is registered.
type OpponentTracker interface {
	Opponent() Actor
}

// ActionRequester is the optional capability of deciding what to do on a
// turn. May suspend; a nil action means the actor passes.
type ActionRequester interface {
	RequestAction(ctx context.Context) (Action, error)
}
