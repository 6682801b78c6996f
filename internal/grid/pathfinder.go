package grid

import (
	"container/heap"
)

// DefaultMaxSearchDistance bounds how many steps from the start a search
// will explore before giving up.
const DefaultMaxSearchDistance = 20

// Path is the ordered list of cells an actor traverses to reach a
// destination. It excludes the starting cell and includes the destination.
// A path of length zero means the actor is already there.
type Path []Coordinate

// PathFinder runs bounded best-first searches over a World. It holds no
// state between searches and is safe for concurrent use.
//
// The search expands the frontier in order of f = g + h, where g is the
// exact step count from the start (uniform cost 1) and h is the Manhattan
// distance to the destination. Manhattan distance is admissible on a
// 4-connected lattice, so returned paths are shortest. Ties on f prefer
// lower g, then earlier insertion; identical inputs always produce
// identical paths.
type PathFinder struct {
	maxDistance int
}

// NewPathFinder creates a PathFinder exploring at most maxDistance steps
// from the start. Non-positive values fall back to
// DefaultMaxSearchDistance.
func NewPathFinder(maxDistance int) *PathFinder {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxSearchDistance
	}
	return &PathFinder{maxDistance: maxDistance}
}

// MaxDistance returns the search bound in steps.
func (p *PathFinder) MaxDistance() int { return p.maxDistance }

// Search finds a shortest path between two cells. The boolean is false
// when the destination cannot be reached: out of bounds, occupied, walled
// off, or farther than the search bound. Searching from a cell to itself
// returns an empty path and true; the two outcomes are distinct.
//
// A cell with an occupant is never a valid traversal node, including the
// destination itself.
func (p *PathFinder) Search(world World, start, destination Coordinate) (Path, bool) {
	if world == nil {
		return nil, false
	}

	if start == destination {
		return Path{}, true
	}

	if !InBounds(world, destination) {
		return nil, false
	}

	if _, occupied := world.OccupantAt(destination); occupied {
		return nil, false
	}

	// Manhattan distance is a lower bound on g, so a destination farther
	// than the bound can never be reached within it.
	if start.ManhattanDistance(destination) > p.maxDistance {
		return nil, false
	}

	gScore := map[Coordinate]int{start: 0}
	parents := make(map[Coordinate]Coordinate)
	closed := make(map[Coordinate]struct{})

	frontier := &pathQueue{}
	heap.Init(frontier)
	heap.Push(frontier, &pathNode{
		cell: start,
		f:    start.ManhattanDistance(destination),
	})

	seq := 0
	for frontier.Len() > 0 {
		node := heap.Pop(frontier).(*pathNode)

		if _, done := closed[node.cell]; done {
			continue
		}
		if best, ok := gScore[node.cell]; ok && node.g > best {
			// Stale duplicate; a cheaper route was queued after it.
			continue
		}
		closed[node.cell] = struct{}{}

		if node.cell == destination {
			return reconstructPath(parents, start, destination), true
		}

		for _, next := range node.cell.Neighbors() {
			if !InBounds(world, next) {
				continue
			}
			if _, occupied := world.OccupantAt(next); occupied {
				continue
			}
			if _, done := closed[next]; done {
				continue
			}

			tentative := node.g + 1
			if tentative > p.maxDistance {
				continue
			}
			if best, seen := gScore[next]; seen && tentative >= best {
				continue
			}

			gScore[next] = tentative
			parents[next] = node.cell
			seq++
			heap.Push(frontier, &pathNode{
				cell: next,
				g:    tentative,
				f:    tentative + next.ManhattanDistance(destination),
				seq:  seq,
			})
		}
	}

	return nil, false
}

func reconstructPath(parents map[Coordinate]Coordinate, start, destination Coordinate) Path {
	path := Path{}
	for c := destination; c != start; c = parents[c] {
		path = append(path, c)
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// pathNode is a frontier entry. seq preserves insertion order so that
// tie-breaking is deterministic.
type pathNode struct {
	cell Coordinate
	g    int
	f    int
	seq  int
}

type pathQueue []*pathNode

func (q pathQueue) Len() int { return len(q) }

func (q pathQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	if q[i].g != q[j].g {
		return q[i].g < q[j].g
	}
	return q[i].seq < q[j].seq
}

func (q pathQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pathQueue) Push(x interface{}) {
	*q = append(*q, x.(*pathNode))
}

func (q *pathQueue) Pop() interface{} {
	old := *q
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	*q = old[0 : n-1]
	return node
}
