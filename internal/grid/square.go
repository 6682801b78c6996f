package grid

import (
	"sync"

	"github.com/KirkDiggler/rpg-toolkit/core"

	"github.com/KirkDiggler/tactics-api/internal/errors"
)

// SquareGrid is a bounded rectangular battlefield tracking which entity
// occupies which cell. It implements World. All methods are safe for
// concurrent use, though turn execution within an encounter is already
// serialized above this layer.
type SquareGrid struct {
	width  int
	height int

	mu        sync.RWMutex
	occupants map[Coordinate]core.Entity
	positions map[string]Coordinate
}

// NewSquareGrid creates an empty battlefield with the given dimensions.
func NewSquareGrid(width, height int) (*SquareGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.InvalidArgumentf("grid dimensions must be positive, got %dx%d", width, height)
	}

	return &SquareGrid{
		width:     width,
		height:    height,
		occupants: make(map[Coordinate]core.Entity),
		positions: make(map[string]Coordinate),
	}, nil
}

// Width returns the number of cells along the x axis.
func (g *SquareGrid) Width() int { return g.width }

// Height returns the number of cells along the z axis.
func (g *SquareGrid) Height() int { return g.height }

// OccupantAt returns the entity occupying a cell, or false when vacant.
func (g *SquareGrid) OccupantAt(c Coordinate) (core.Entity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	occupant, ok := g.occupants[c]
	return occupant, ok
}

// Place puts an entity on a vacant in-bounds cell. An entity can occupy at
// most one cell; placing an already-placed entity is an error (use Move).
func (g *SquareGrid) Place(entity core.Entity, c Coordinate) error {
	if entity == nil {
		return errors.InvalidArgument("entity is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.inBounds(c) {
		return errors.OutOfRangef("cell %s is out of bounds", c)
	}

	if occupant, ok := g.occupants[c]; ok {
		return errors.AlreadyExistsf("cell %s is occupied by %s", c, occupant.GetID())
	}

	if _, ok := g.positions[entity.GetID()]; ok {
		return errors.AlreadyExistsf("entity %s is already placed", entity.GetID())
	}

	g.occupants[c] = entity
	g.positions[entity.GetID()] = c
	return nil
}

// Move relocates a placed entity to a vacant in-bounds cell. Moving an
// entity onto its own cell is a no-op.
func (g *SquareGrid) Move(entity core.Entity, to Coordinate) error {
	if entity == nil {
		return errors.InvalidArgument("entity is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	from, ok := g.positions[entity.GetID()]
	if !ok {
		return errors.NotFoundf("entity %s is not on the grid", entity.GetID())
	}

	if from == to {
		return nil
	}

	if !g.inBounds(to) {
		return errors.OutOfRangef("cell %s is out of bounds", to)
	}

	if occupant, occupied := g.occupants[to]; occupied {
		return errors.AlreadyExistsf("cell %s is occupied by %s", to, occupant.GetID())
	}

	delete(g.occupants, from)
	g.occupants[to] = entity
	g.positions[entity.GetID()] = to
	return nil
}

// Remove takes an entity off the grid.
func (g *SquareGrid) Remove(entity core.Entity) error {
	if entity == nil {
		return errors.InvalidArgument("entity is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.positions[entity.GetID()]
	if !ok {
		return errors.NotFoundf("entity %s is not on the grid", entity.GetID())
	}

	delete(g.occupants, c)
	delete(g.positions, entity.GetID())
	return nil
}

// PositionOf returns the cell an entity occupies, or false when the entity
// is not on the grid.
func (g *SquareGrid) PositionOf(entity core.Entity) (Coordinate, bool) {
	if entity == nil {
		return Coordinate{}, false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	c, ok := g.positions[entity.GetID()]
	return c, ok
}

// Occupancy returns a copy of the occupancy table keyed by coordinate
// string, suitable for snapshots and logs.
func (g *SquareGrid) Occupancy() map[string]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string]string, len(g.occupants))
	for c, entity := range g.occupants {
		out[c.Key()] = entity.GetID()
	}
	return out
}

func (g *SquareGrid) inBounds(c Coordinate) bool {
	return c.X >= 0 && c.X < g.width && c.Z >= 0 && c.Z < g.height
}
