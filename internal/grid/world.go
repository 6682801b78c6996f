package grid

import (
	"github.com/KirkDiggler/rpg-toolkit/core"
)

// World is the read surface of a battlefield. The pathfinder and the
// actions consume this interface; they never mutate the world through it.
//
// Bounds are immutable for the life of a World. Occupancy may change
// between calls, but never during a single pathfinder search (turns are
// strictly sequential within an encounter).
type World interface {
	// Width returns the number of cells along the x axis.
	Width() int

	// Height returns the number of cells along the z axis.
	Height() int

	// OccupantAt returns the entity occupying a cell, or false when the
	// cell is vacant. The returned entity is a reference, not a copy; the
	// world does not own it. Any occupant makes the cell an obstacle.
	OccupantAt(c Coordinate) (core.Entity, bool)
}

// InBounds reports whether a cell lies inside the world's bounds.
func InBounds(w World, c Coordinate) bool {
	return c.X >= 0 && c.X < w.Width() && c.Z >= 0 && c.Z < w.Height()
}
