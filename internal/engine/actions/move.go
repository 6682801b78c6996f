package actions

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/tactics-api/internal/cues"
	"github.com/KirkDiggler/tactics-api/internal/engine"
	"github.com/KirkDiggler/tactics-api/internal/errors"
	"github.com/KirkDiggler/tactics-api/internal/grid"
)

// moveAction walks the actor along a shortest path to a chosen square.
// The path is planned during CanPerform and latched; Perform replays it
// one cell at a time with a fresh occupancy check per step, because the
// world may have shifted since planning.
type moveAction struct {
	cfg    *Config
	source engine.Actor

	path     grid.Path
	accepted bool
}

var _ engine.Action = (*moveAction)(nil)

func (m *moveAction) Name() string { return MoveName }

// CanPerform resolves a destination through the TargetSelector capability
// and plans a path to it. Choosing the current cell is a valid zero-step
// move.
func (m *moveAction) CanPerform(ctx context.Context) (*engine.Decision, error) {
	m.path = nil
	m.accepted = false

	selector, ok := m.source.(engine.TargetSelector)
	if !ok {
		return engine.Deny(ReasonNoDestination), nil
	}

	destination, err := selector.SelectSquare(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "selecting destination")
	}
	if destination == nil {
		return engine.Deny(ReasonNoDestination), nil
	}

	sourcePos, ok := m.source.Position()
	if !ok {
		return engine.Deny(ReasonBadCoordinates), nil
	}

	path, found := m.cfg.PathFinder.Search(m.cfg.World, sourcePos, *destination)
	if !found {
		return engine.Deny(ReasonUnreachable), nil
	}

	m.path = path
	m.accepted = true
	return engine.Allow(), nil
}

// Perform walks the latched path. Each step moves the grid occupancy,
// updates the actor's coordinates and facing, and awaits a move_step cue.
func (m *moveAction) Perform(ctx context.Context) error {
	if !m.accepted {
		return errors.FailedPreconditionf("%s has not passed validation", MoveName)
	}
	m.accepted = false

	playAnimation(m.source, AnimationWalk, true)

	current, _ := m.source.Position()
	for _, step := range m.path {
		if occupant, occupied := m.cfg.World.OccupantAt(step); occupied {
			// Stale path: someone took the cell after planning.
			slog.Info("movement halted",
				"actor_id", m.source.GetID(),
				"cell", step.Key(),
				"occupant_id", occupant.GetID(),
			)
			break
		}

		if err := m.cfg.World.Move(m.source, step); err != nil {
			return errors.Wrapf(err, "moving to %s", step.Key())
		}
		m.source.SetPosition(step)

		if orientable, ok := m.source.(engine.Orientable); ok {
			orientable.Face(grid.DirectionBetween(current, step))
		}
		current = step

		err := m.cfg.Timeline.Await(ctx, cues.Cue{
			EncounterID: m.cfg.EncounterID,
			Kind:        kindMoveStep,
			Animation:   AnimationWalk,
			Source:      m.source,
			Duration:    cues.DefaultStepDuration,
		})
		if err != nil {
			return errors.Wrap(err, "awaiting step cue")
		}
	}

	playAnimation(m.source, AnimationIdle, true)
	refaceOpponent(m.source)

	return nil
}
