// Package agents provides computer-controlled combatants. A bot carries
// the same capability surface as a connected player, so the turn engine
// cannot tell them apart.
package agents

import (
	"context"

	"github.com/KirkDiggler/tactics-api/internal/engine"
	"github.com/KirkDiggler/tactics-api/internal/engine/actions"
	"github.com/KirkDiggler/tactics-api/internal/entities"
	"github.com/KirkDiggler/tactics-api/internal/errors"
	"github.com/KirkDiggler/tactics-api/internal/grid"
)

// BotConfig holds the dependencies of a bot.
type BotConfig struct {
	Combatant  *entities.Combatant
	World      actions.Arena
	PathFinder *grid.PathFinder
	Factory    *actions.Factory
}

// Validate ensures the config is complete.
func (c *BotConfig) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config is required")
	}
	if c.Combatant == nil {
		return errors.InvalidArgument("combatant is required")
	}
	if c.World == nil {
		return errors.InvalidArgument("world is required")
	}
	if c.PathFinder == nil {
		return errors.InvalidArgument("path finder is required")
	}
	if c.Factory == nil {
		return errors.InvalidArgument("action factory is required")
	}
	return nil
}

// Bot wraps a combatant with a deterministic policy: strike the opponent
// when in range (melee beats ranged), close the distance when not, wait
// when there is nothing useful to do.
type Bot struct {
	*entities.Combatant

	world   actions.Arena
	finder  *grid.PathFinder
	factory *actions.Factory

	// Latched by RequestAction for the selection calls that follow it.
	target engine.Actor
	square *grid.Coordinate
}

var (
	_ engine.Actor           = (*Bot)(nil)
	_ engine.TargetSelector  = (*Bot)(nil)
	_ engine.ActionRequester = (*Bot)(nil)
)

// NewBot creates a bot around a combatant.
func NewBot(cfg *BotConfig) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Bot{
		Combatant: cfg.Combatant,
		world:     cfg.World,
		finder:    cfg.PathFinder,
		factory:   cfg.Factory,
	}, nil
}

// RequestAction picks the bot's next action. It never blocks: the decision
// is a pure function of the current world state.
func (b *Bot) RequestAction(_ context.Context) (engine.Action, error) {
	b.target = nil
	b.square = nil

	opponent := b.Opponent()
	if opponent == nil {
		// Nobody left to fight; pass the turn.
		return nil, nil
	}

	myPos, ok := b.Position()
	if !ok {
		return b.factory.Wait(b), nil
	}
	oppPos, ok := opponent.Position()
	if !ok {
		return b.factory.Wait(b), nil
	}

	distance := myPos.DistanceTo(oppPos)
	if distance <= actions.MeleeRange {
		b.target = opponent
		return b.factory.MeleeAttack(b), nil
	}
	if distance <= actions.RangedRange {
		b.target = opponent
		return b.factory.RangedAttack(b), nil
	}

	if square, ok := b.approachSquare(myPos, oppPos); ok {
		b.square = &square
		return b.factory.Move(b), nil
	}

	return b.factory.Wait(b), nil
}

// SelectTarget returns the opponent latched by RequestAction.
func (b *Bot) SelectTarget(_ context.Context) (engine.Actor, error) {
	return b.target, nil
}

// SelectSquare returns the destination latched by RequestAction.
func (b *Bot) SelectSquare(_ context.Context) (*grid.Coordinate, error) {
	return b.square, nil
}

// approachSquare picks the opponent-adjacent cell with the shortest path
// from the bot. Neighbor order breaks ties, which keeps the policy
// deterministic.
func (b *Bot) approachSquare(from, opponent grid.Coordinate) (grid.Coordinate, bool) {
	var best grid.Coordinate
	bestLen := -1

	for _, candidate := range opponent.Neighbors() {
		if !grid.InBounds(b.world, candidate) {
			continue
		}
		if _, occupied := b.world.OccupantAt(candidate); occupied {
			continue
		}

		path, found := b.finder.Search(b.world, from, candidate)
		if !found {
			continue
		}
		if bestLen < 0 || len(path) < bestLen {
			best = candidate
			bestLen = len(path)
		}
	}

	return best, bestLen >= 0
}
