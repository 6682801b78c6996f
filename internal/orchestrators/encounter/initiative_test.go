package encounter

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tactics-api/internal/errors"
)

// scriptedRoller returns rolls from a fixed script, repeating the last
// entry once the script runs out.
type scriptedRoller struct {
	rolls []int
	calls int
	err   error
}

func (r *scriptedRoller) Roll(_ int) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if len(r.rolls) == 0 {
		return 1, nil
	}
	i := r.calls
	if i >= len(r.rolls) {
		i = len(r.rolls) - 1
	}
	r.calls++
	return r.rolls[i], nil
}

func (r *scriptedRoller) RollN(count, size int) ([]int, error) {
	out := make([]int, 0, count)
	for i := 0; i < count; i++ {
		roll, err := r.Roll(size)
		if err != nil {
			return nil, err
		}
		out = append(out, roll)
	}
	return out, nil
}

type InitiativeTestSuite struct {
	suite.Suite
}

func (s *InitiativeTestSuite) TestRollsOrderHighestFirst() {
	roller := &scriptedRoller{rolls: []int{5, 18, 12}}

	entries, err := rollInitiative(roller, []string{"cmb_a", "cmb_b", "cmb_c"})
	s.Require().NoError(err)

	s.Require().Len(entries, 3)
	s.Equal("cmb_b", entries[0].ID)
	s.Equal(18, entries[0].Roll)
	s.Equal("cmb_c", entries[1].ID)
	s.Equal("cmb_a", entries[2].ID)
}

func (s *InitiativeTestSuite) TestTiedRollsKeepListOrder() {
	roller := &scriptedRoller{rolls: []int{10, 10, 10}}

	entries, err := rollInitiative(roller, []string{"cmb_a", "cmb_b", "cmb_c"})
	s.Require().NoError(err)

	s.Equal("cmb_a", entries[0].ID)
	s.Equal("cmb_b", entries[1].ID)
	s.Equal("cmb_c", entries[2].ID)
}

func (s *InitiativeTestSuite) TestRollerErrorSurfaces() {
	roller := &scriptedRoller{err: errors.Unavailable("dice service down")}

	_, err := rollInitiative(roller, []string{"cmb_a"})
	s.Require().Error(err)
	s.True(errors.IsUnavailable(err))
}

func (s *InitiativeTestSuite) TestTrackerWrapsIntoNewRound() {
	tracker := newInitiativeTracker([]string{"cmb_a", "cmb_b", "cmb_c"})

	s.Equal("cmb_a", tracker.Current())
	s.Equal(1, tracker.Round())

	s.Equal("cmb_b", tracker.Next())
	s.Equal("cmb_c", tracker.Next())
	s.Equal(1, tracker.Round())

	s.Equal("cmb_a", tracker.Next())
	s.Equal(2, tracker.Round())
}

func (s *InitiativeTestSuite) TestRemoveBeforeCurrentKeepsPlace() {
	tracker := newInitiativeTracker([]string{"cmb_a", "cmb_b", "cmb_c"})
	tracker.Next()

	tracker.Remove("cmb_a")

	s.Equal("cmb_b", tracker.Current())
	s.Equal("cmb_c", tracker.Next())
	s.Equal("cmb_b", tracker.Next())
	s.Equal(2, tracker.Round())
}

func (s *InitiativeTestSuite) TestRemoveCurrentAdvancesToNext() {
	tracker := newInitiativeTracker([]string{"cmb_a", "cmb_b", "cmb_c"})

	tracker.Remove("cmb_a")

	s.Equal("cmb_b", tracker.Current())
	s.Equal(2, tracker.Len())
}

func (s *InitiativeTestSuite) TestRemoveLastEntryWrapsCurrent() {
	tracker := newInitiativeTracker([]string{"cmb_a", "cmb_b"})
	tracker.Next()

	tracker.Remove("cmb_b")

	s.Equal("cmb_a", tracker.Current())
}

func (s *InitiativeTestSuite) TestRemoveUnknownIsNoOp() {
	tracker := newInitiativeTracker([]string{"cmb_a", "cmb_b"})

	tracker.Remove("cmb_ghost")

	s.Equal([]string{"cmb_a", "cmb_b"}, tracker.Order())
	s.Equal("cmb_a", tracker.Current())
}

func (s *InitiativeTestSuite) TestOrderReturnsACopy() {
	tracker := newInitiativeTracker([]string{"cmb_a", "cmb_b"})

	order := tracker.Order()
	order[0] = "cmb_imposter"

	s.Equal("cmb_a", tracker.Current())
}

func (s *InitiativeTestSuite) TestEmptyTracker() {
	tracker := newInitiativeTracker(nil)

	s.Equal("", tracker.Current())
	s.Equal("", tracker.Next())
	s.Equal(0, tracker.Len())
}

func TestInitiativeTestSuite(t *testing.T) {
	suite.Run(t, new(InitiativeTestSuite))
}
