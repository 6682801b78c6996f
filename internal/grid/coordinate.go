// Package grid provides the coordinate system, the world surface, and the
// pathfinder for turn-based combat on a rectangular grid.
//
// The battlefield is a flat lattice addressed by two integer axes: x runs
// across the width, z runs across the depth. The vertical axis is fixed at a
// constant height and never appears in coordinates. Adjacency is
// 4-connected; diagonal neighbors do not exist anywhere in the system.
package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KirkDiggler/tactics-api/internal/errors"
)

// Coordinate is an immutable cell address on the battlefield lattice.
// Coordinates are comparable values: equality is exact integer-pair
// equality, and a Coordinate can be used directly as a map key.
type Coordinate struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// ManhattanDistance returns the 4-connected step distance between two
// cells, ignoring occupancy. This is the pathfinder's heuristic.
func (c Coordinate) ManhattanDistance(other Coordinate) int {
	return abs(c.X-other.X) + abs(c.Z-other.Z)
}

// DistanceTo returns the Euclidean distance between two cells. Attack
// range checks use this, so a range of 5 covers cells like (3,4) exactly.
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	dx := float64(c.X - other.X)
	dz := float64(c.Z - other.Z)
	return math.Sqrt(dx*dx + dz*dz)
}

// Neighbors returns the four adjacent cells in a fixed order: east, west,
// south, north. Callers are responsible for bounds and occupancy checks.
func (c Coordinate) Neighbors() [4]Coordinate {
	return [4]Coordinate{
		{X: c.X + 1, Z: c.Z},
		{X: c.X - 1, Z: c.Z},
		{X: c.X, Z: c.Z + 1},
		{X: c.X, Z: c.Z - 1},
	}
}

// Key returns the stable string encoding of a coordinate, used where a
// string key is required (JSON object keys, log fields). In-process
// mappings should key by the Coordinate value itself.
func (c Coordinate) Key() string {
	return strconv.Itoa(c.X) + ":" + strconv.Itoa(c.Z)
}

// ParseKey decodes a string produced by Key.
func ParseKey(key string) (Coordinate, error) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return Coordinate{}, errors.InvalidArgumentf("invalid coordinate key %q", key)
	}

	x, err := strconv.Atoi(parts[0])
	if err != nil {
		return Coordinate{}, errors.InvalidArgumentf("invalid coordinate key %q", key)
	}

	z, err := strconv.Atoi(parts[1])
	if err != nil {
		return Coordinate{}, errors.InvalidArgumentf("invalid coordinate key %q", key)
	}

	return Coordinate{X: x, Z: z}, nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Z)
}

// Direction is a facing on the lattice. North is -z, south is +z, east is
// +x, west is -x.
type Direction string

// Facing directions.
const (
	North Direction = "north"
	East  Direction = "east"
	South Direction = "south"
	West  Direction = "west"
)

// DirectionBetween returns the dominant-axis direction from one cell toward
// another. Ties prefer the x axis. Equal coordinates return the zero
// Direction.
func DirectionBetween(from, to Coordinate) Direction {
	dx := to.X - from.X
	dz := to.Z - from.Z

	if dx == 0 && dz == 0 {
		return ""
	}

	if abs(dx) >= abs(dz) {
		if dx > 0 {
			return East
		}
		return West
	}

	if dz > 0 {
		return South
	}
	return North
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
