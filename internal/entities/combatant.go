package entities

import (
	"github.com/KirkDiggler/tactics-api/internal/engine"
	"github.com/KirkDiggler/tactics-api/internal/errors"
	"github.com/KirkDiggler/tactics-api/internal/grid"
)

// CombatantKind separates the sides of a skirmish. Combatants of the same
// kind are allies; victory is one kind standing alone.
type CombatantKind string

// Combatant kinds.
const (
	KindPlayer  CombatantKind = "player"
	KindMonster CombatantKind = "monster"
)

// CombatantConfig describes a combatant to create.
type CombatantConfig struct {
	ID    string
	Name  string
	Kind  CombatantKind
	MaxHP int
}

// Validate ensures the config is complete.
func (c *CombatantConfig) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("id", c.ID, vb)
	errors.ValidateRequired("name", c.Name, vb)
	if c.Kind != KindPlayer && c.Kind != KindMonster {
		vb.InvalidField("kind", "must be player or monster")
	}
	if c.MaxHP <= 0 {
		vb.InvalidField("max_hp", "must be positive")
	}
	return vb.Build()
}

// Combatant is a participant in an encounter. It carries the minimal
// actor surface (identity, coordinates, damage intake) plus facing and an
// opponent reference; richer capabilities like target selection come from
// the controller wrapping it (a player session or a bot).
//
// Combatants are not self-synchronizing: turn execution within an
// encounter is already serialized above this layer.
type Combatant struct {
	id    string
	name  string
	kind  CombatantKind
	hp    int
	maxHP int

	pos    grid.Coordinate
	placed bool
	facing grid.Direction

	// opponent is a weak reference; the combatant does not own it.
	opponent engine.Actor
}

var (
	_ engine.Actor           = (*Combatant)(nil)
	_ engine.Facer           = (*Combatant)(nil)
	_ engine.Orientable      = (*Combatant)(nil)
	_ engine.OpponentTracker = (*Combatant)(nil)
)

// NewCombatant creates a combatant at full health, not yet placed.
func NewCombatant(cfg *CombatantConfig) (*Combatant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Combatant{
		id:     cfg.ID,
		name:   cfg.Name,
		kind:   cfg.Kind,
		hp:     cfg.MaxHP,
		maxHP:  cfg.MaxHP,
		facing: grid.South,
	}, nil
}

// GetID implements core.Entity.
func (c *Combatant) GetID() string { return c.id }

// GetType implements core.Entity.
func (c *Combatant) GetType() string { return string(c.kind) }

// Name returns the display name.
func (c *Combatant) Name() string { return c.name }

// Kind returns which side the combatant fights for.
func (c *Combatant) Kind() CombatantKind { return c.kind }

// HP returns current hit points.
func (c *Combatant) HP() int { return c.hp }

// MaxHP returns the hit point ceiling.
func (c *Combatant) MaxHP() int { return c.maxHP }

// Defeated reports whether the combatant is out of the fight.
func (c *Combatant) Defeated() bool { return c.hp <= 0 }

// Position returns the combatant's cell, or false when off the grid.
func (c *Combatant) Position() (grid.Coordinate, bool) {
	return c.pos, c.placed
}

// SetPosition puts the combatant on a cell.
func (c *Combatant) SetPosition(pos grid.Coordinate) {
	c.pos = pos
	c.placed = true
}

// ClearPosition takes the combatant off the grid.
func (c *Combatant) ClearPosition() {
	c.pos = grid.Coordinate{}
	c.placed = false
}

// Hit applies damage. Hit points floor at zero; negative amounts are
// ignored.
func (c *Combatant) Hit(amount int) {
	if amount <= 0 {
		return
	}
	c.hp -= amount
	if c.hp < 0 {
		c.hp = 0
	}
}

// Facing returns the combatant's orientation.
func (c *Combatant) Facing() grid.Direction { return c.facing }

// Face turns the combatant toward a lattice direction. The zero Direction
// is ignored.
func (c *Combatant) Face(d grid.Direction) {
	if d == "" {
		return
	}
	c.facing = d
}

// FaceTarget turns the combatant toward another actor. Targets without
// coordinate data leave the facing unchanged.
func (c *Combatant) FaceTarget(target engine.Actor) {
	if target == nil || !c.placed {
		return
	}

	targetPos, ok := target.Position()
	if !ok {
		return
	}

	c.Face(grid.DirectionBetween(c.pos, targetPos))
}

// Opponent returns the registered opponent, or nil.
func (c *Combatant) Opponent() engine.Actor { return c.opponent }

// SetOpponent registers the current opponent. The reference is weak.
func (c *Combatant) SetOpponent(opponent engine.Actor) { c.opponent = opponent }
