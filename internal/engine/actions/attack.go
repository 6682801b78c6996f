package actions

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/tactics-api/internal/cues"
	"github.com/KirkDiggler/tactics-api/internal/engine"
	"github.com/KirkDiggler/tactics-api/internal/errors"
)

// attackProfile fixes the numbers that distinguish one attack from
// another.
type attackProfile struct {
	name       string
	animation  string
	maxRange   float64
	damageBase int
	damageDie  int
}

var (
	// rangedProfile deals 2+1d5 at up to 5 cells of Euclidean distance.
	// Exactly 5.0 is in range, so (3,4) off-axis shots land.
	rangedProfile = attackProfile{
		name:       RangedAttackName,
		animation:  AnimationRanged,
		maxRange:   RangedRange,
		damageBase: 2,
		damageDie:  5,
	}

	// meleeProfile deals 4+1d6 to lattice-adjacent targets only.
	meleeProfile = attackProfile{
		name:       MeleeAttackName,
		animation:  AnimationMelee,
		maxRange:   MeleeRange,
		damageBase: 4,
		damageDie:  6,
	}
)

// attackAction resolves a ranged or melee strike. One accepting CanPerform
// arms exactly one Perform; performing consumes the acceptance.
type attackAction struct {
	cfg     *Config
	source  engine.Actor
	profile attackProfile

	target   engine.Actor
	accepted bool
}

var _ engine.Action = (*attackAction)(nil)

func (a *attackAction) Name() string { return a.profile.name }

// CanPerform resolves a target through the TargetSelector capability and
// checks the attack rules in a fixed order. The first failing check wins.
func (a *attackAction) CanPerform(ctx context.Context) (*engine.Decision, error) {
	a.target = nil
	a.accepted = false

	selector, ok := a.source.(engine.TargetSelector)
	if !ok {
		return engine.Deny(ReasonNoTarget), nil
	}

	target, err := selector.SelectTarget(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "selecting target")
	}
	if target == nil {
		return engine.Deny(ReasonNoTarget), nil
	}
	if target.GetID() == a.source.GetID() {
		return engine.Deny(ReasonSelfTarget), nil
	}

	sourcePos, ok := a.source.Position()
	if !ok {
		return engine.Deny(ReasonBadCoordinates), nil
	}
	targetPos, ok := target.Position()
	if !ok {
		return engine.Deny(ReasonBadCoordinates), nil
	}

	if sourcePos.DistanceTo(targetPos) > a.profile.maxRange {
		return engine.Deny(ReasonTargetTooFar), nil
	}

	a.target = target
	a.accepted = true
	return engine.Allow(), nil
}

// Perform swings at the latched target: face it, play the attack clip,
// await the cue, then roll and apply damage.
func (a *attackAction) Perform(ctx context.Context) error {
	if !a.accepted || a.target == nil {
		return errors.FailedPreconditionf("%s has not passed validation", a.profile.name)
	}
	a.accepted = false

	faceTarget(a.source, a.target)
	playAnimation(a.source, a.profile.animation, false)

	err := a.cfg.Timeline.Await(ctx, cues.Cue{
		EncounterID: a.cfg.EncounterID,
		Kind:        a.profile.name,
		Animation:   a.profile.animation,
		Source:      a.source,
		Target:      a.target,
		Duration:    cues.DefaultAttackDuration,
	})
	if err != nil {
		return errors.Wrap(err, "awaiting attack cue")
	}

	roll, err := a.cfg.Roller.Roll(a.profile.damageDie)
	if err != nil {
		return errors.Wrap(err, "rolling damage")
	}
	damage := a.profile.damageBase + roll

	a.target.Hit(damage)

	err = cues.PublishDamage(ctx, a.cfg.EventBus, a.cfg.EncounterID, a.profile.name, a.source, a.target, damage)
	if err != nil {
		// Damage already landed; a lost announcement does not undo it.
		slog.Warn("failed to publish damage event",
			"encounter_id", a.cfg.EncounterID,
			"action", a.profile.name,
			"error", err.Error(),
		)
	}

	playAnimation(a.source, AnimationIdle, true)
	refaceOpponent(a.source)

	return nil
}
