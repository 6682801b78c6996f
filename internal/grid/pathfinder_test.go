package grid_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tactics-api/internal/grid"
)

// obstacle is a minimal occupant for carving walls into test worlds.
type obstacle struct {
	id string
}

func (o *obstacle) GetID() string   { return o.id }
func (o *obstacle) GetType() string { return "obstacle" }

type PathFinderTestSuite struct {
	suite.Suite

	world  *grid.SquareGrid
	finder *grid.PathFinder
}

func (s *PathFinderTestSuite) SetupTest() {
	world, err := grid.NewSquareGrid(5, 5)
	s.Require().NoError(err)

	s.world = world
	s.finder = grid.NewPathFinder(0)
}

func (s *PathFinderTestSuite) block(x, z int) {
	c := grid.Coordinate{X: x, Z: z}
	err := s.world.Place(&obstacle{id: fmt.Sprintf("rock-%d-%d", x, z)}, c)
	s.Require().NoError(err)
}

func (s *PathFinderTestSuite) TestSearchToSameCellReturnsEmptyPath() {
	start := grid.Coordinate{X: 2, Z: 2}

	path, ok := s.finder.Search(s.world, start, start)

	s.True(ok)
	s.NotNil(path)
	s.Empty(path)
}

func (s *PathFinderTestSuite) TestSearchStraightLine() {
	start := grid.Coordinate{X: 0, Z: 0}
	destination := grid.Coordinate{X: 0, Z: 3}

	path, ok := s.finder.Search(s.world, start, destination)

	s.Require().True(ok)
	s.Equal(grid.Path{
		{X: 0, Z: 1},
		{X: 0, Z: 2},
		{X: 0, Z: 3},
	}, path)
}

func (s *PathFinderTestSuite) TestSearchExcludesStartIncludesDestination() {
	start := grid.Coordinate{X: 1, Z: 1}
	destination := grid.Coordinate{X: 3, Z: 3}

	path, ok := s.finder.Search(s.world, start, destination)

	s.Require().True(ok)
	s.Require().NotEmpty(path)
	s.NotEqual(start, path[0])
	s.Equal(destination, path[len(path)-1])
}

func (s *PathFinderTestSuite) TestSearchPathsAreShortest() {
	start := grid.Coordinate{X: 0, Z: 0}

	for _, destination := range []grid.Coordinate{
		{X: 4, Z: 0},
		{X: 0, Z: 4},
		{X: 3, Z: 2},
		{X: 4, Z: 4},
	} {
		path, ok := s.finder.Search(s.world, start, destination)

		s.Require().True(ok, "destination %s should be reachable", destination)
		s.Len(path, start.ManhattanDistance(destination))
	}
}

func (s *PathFinderTestSuite) TestSearchRoutesAroundObstacles() {
	// Wall across x=2 except a gap at z=4.
	s.block(2, 0)
	s.block(2, 1)
	s.block(2, 2)
	s.block(2, 3)

	start := grid.Coordinate{X: 0, Z: 0}
	destination := grid.Coordinate{X: 4, Z: 0}

	path, ok := s.finder.Search(s.world, start, destination)

	s.Require().True(ok)
	s.Equal(destination, path[len(path)-1])
	for _, cell := range path {
		_, occupied := s.world.OccupantAt(cell)
		s.False(occupied, "path runs through occupied cell %s", cell)
	}
	// Detour through the gap: 4 across, 4 down, 4 back up.
	s.Len(path, 12)
}

func (s *PathFinderTestSuite) TestSearchEnclosedDestinationIsUnreachable() {
	destination := grid.Coordinate{X: 2, Z: 2}
	s.block(1, 2)
	s.block(3, 2)
	s.block(2, 1)
	s.block(2, 3)

	path, ok := s.finder.Search(s.world, grid.Coordinate{X: 0, Z: 0}, destination)

	s.False(ok)
	s.Nil(path)
}

func (s *PathFinderTestSuite) TestSearchOccupiedDestinationIsUnreachable() {
	destination := grid.Coordinate{X: 3, Z: 3}
	s.block(3, 3)

	_, ok := s.finder.Search(s.world, grid.Coordinate{X: 0, Z: 0}, destination)

	s.False(ok)
}

func (s *PathFinderTestSuite) TestSearchOutOfBoundsDestinationIsUnreachable() {
	_, ok := s.finder.Search(s.world, grid.Coordinate{X: 0, Z: 0}, grid.Coordinate{X: 7, Z: 0})

	s.False(ok)
}

func (s *PathFinderTestSuite) TestSearchBeyondBoundIsUnreachable() {
	world, err := grid.NewSquareGrid(30, 2)
	s.Require().NoError(err)

	// Manhattan distance 25 exceeds the default bound of 20.
	_, ok := s.finder.Search(world, grid.Coordinate{X: 0, Z: 0}, grid.Coordinate{X: 25, Z: 0})

	s.False(ok)
}

func (s *PathFinderTestSuite) TestSearchBoundAppliesToDetourLength() {
	// Destination is 3 steps away as the crow flies, but the wall forces a
	// 7-step detour, which a bound of 4 cannot cover.
	s.block(1, 0)
	s.block(1, 1)

	start := grid.Coordinate{X: 0, Z: 0}
	destination := grid.Coordinate{X: 3, Z: 0}

	_, ok := grid.NewPathFinder(4).Search(s.world, start, destination)
	s.False(ok)

	path, ok := grid.NewPathFinder(7).Search(s.world, start, destination)
	s.Require().True(ok)
	s.Len(path, 7)
}

func (s *PathFinderTestSuite) TestSearchIsDeterministic() {
	s.block(2, 2)
	start := grid.Coordinate{X: 0, Z: 0}
	destination := grid.Coordinate{X: 4, Z: 4}

	first, ok := s.finder.Search(s.world, start, destination)
	s.Require().True(ok)

	for i := 0; i < 5; i++ {
		again, okAgain := s.finder.Search(s.world, start, destination)
		s.Require().True(okAgain)
		s.Equal(first, again)
	}
}

func (s *PathFinderTestSuite) TestSearchNilWorld() {
	_, ok := s.finder.Search(nil, grid.Coordinate{}, grid.Coordinate{X: 1, Z: 0})

	s.False(ok)
}

func TestPathFinderSuite(t *testing.T) {
	suite.Run(t, new(PathFinderTestSuite))
}
