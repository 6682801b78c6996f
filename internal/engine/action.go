package engine

import "context"

// Decision is an action's validation verdict. It is the only channel for
// rule rejections: an action that cannot run reports why here, never
// through an error.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Allow returns an accepting decision.
func Allow() *Decision {
	return &Decision{Allowed: true}
}

// Deny returns a rejecting decision with the reason shown to the actor.
func Deny(reason string) *Decision {
	return &Decision{Allowed: false, Reason: reason}
}

// Action is a single-use turn decision. The contract:
//
//   - Exactly one accepting CanPerform precedes Perform on the same
//     instance within the same turn.
//   - Validation and execution never run concurrently for an actor.
//   - Errors from either method are infrastructure failures (canceled
//     context, dead session). Rule rejections travel in the Decision.
type Action interface {
	// Name identifies the action in logs and turn reports.
	Name() string

	// CanPerform resolves targets (possibly suspending on actor input) and
	// validates the action against the current world state.
	CanPerform(ctx context.Context) (*Decision, error)

	// Perform executes an action that CanPerform accepted.
	Perform(ctx context.Context) error
}
