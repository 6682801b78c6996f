package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tactics-api/internal/engine"
	"github.com/KirkDiggler/tactics-api/internal/errors"
	"github.com/KirkDiggler/tactics-api/internal/grid"
)

// stubActor implements the minimal Actor surface.
type stubActor struct {
	id     string
	pos    *grid.Coordinate
	damage []int
}

func (a *stubActor) GetID() string   { return a.id }
func (a *stubActor) GetType() string { return "stub" }

func (a *stubActor) Position() (grid.Coordinate, bool) {
	if a.pos == nil {
		return grid.Coordinate{}, false
	}
	return *a.pos, true
}

func (a *stubActor) SetPosition(c grid.Coordinate) { a.pos = &c }
func (a *stubActor) Hit(amount int)                { a.damage = append(a.damage, amount) }

// decidingActor adds the ActionRequester capability, handing out a scripted
// queue of actions.
type decidingActor struct {
	stubActor

	queue      []engine.Action
	requests   int
	requestErr error
}

func (a *decidingActor) RequestAction(_ context.Context) (engine.Action, error) {
	if a.requestErr != nil {
		return nil, a.requestErr
	}
	if a.requests >= len(a.queue) {
		return nil, nil
	}
	action := a.queue[a.requests]
	a.requests++
	return action, nil
}

// scriptedAction records calls into a shared journal so ordering can be
// asserted.
type scriptedAction struct {
	name       string
	decision   *engine.Decision
	canErr     error
	performErr error
	journal    *[]string
}

func (a *scriptedAction) Name() string { return a.name }

func (a *scriptedAction) CanPerform(_ context.Context) (*engine.Decision, error) {
	if a.journal != nil {
		*a.journal = append(*a.journal, "validate:"+a.name)
	}
	return a.decision, a.canErr
}

func (a *scriptedAction) Perform(_ context.Context) error {
	if a.journal != nil {
		*a.journal = append(*a.journal, "perform:"+a.name)
	}
	return a.performErr
}

type TurnControllerTestSuite struct {
	suite.Suite

	ctx        context.Context
	controller *engine.TurnController
	journal    []string
}

func (s *TurnControllerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.journal = nil

	controller, err := engine.NewTurnController(&engine.TurnControllerConfig{
		Fallback: func(_ engine.Actor) engine.Action {
			return &scriptedAction{name: "wait", decision: engine.Allow(), journal: &s.journal}
		},
	})
	s.Require().NoError(err)
	s.controller = controller
}

func (s *TurnControllerTestSuite) TestValidationPrecedesExecution() {
	action := &scriptedAction{name: "move", decision: engine.Allow(), journal: &s.journal}
	actor := &decidingActor{
		stubActor: stubActor{id: "actor-1"},
		queue:     []engine.Action{action},
	}

	result, err := s.controller.RunTurn(s.ctx, actor)

	s.Require().NoError(err)
	s.Equal("move", result.Action)
	s.Equal([]string{"validate:move", "perform:move"}, s.journal)
	s.Empty(result.Rejections)
	s.False(result.Forced)
}

func (s *TurnControllerTestSuite) TestRejectedActionNeverExecutes() {
	rejected := &scriptedAction{name: "ranged_attack", decision: engine.Deny("Target is too far away."), journal: &s.journal}
	accepted := &scriptedAction{name: "move", decision: engine.Allow(), journal: &s.journal}
	actor := &decidingActor{
		stubActor: stubActor{id: "actor-1"},
		queue:     []engine.Action{rejected, accepted},
	}

	result, err := s.controller.RunTurn(s.ctx, actor)

	s.Require().NoError(err)
	s.Equal("move", result.Action)
	s.Equal([]string{"Target is too far away."}, result.Rejections)
	s.Equal([]string{"validate:ranged_attack", "validate:move", "perform:move"}, s.journal)
}

func (s *TurnControllerTestSuite) TestTooManyRejectionsForcesFallback() {
	denied := func() engine.Action {
		return &scriptedAction{name: "move", decision: engine.Deny("Destination is unreachable."), journal: &s.journal}
	}
	actor := &decidingActor{
		stubActor: stubActor{id: "actor-1"},
		queue:     []engine.Action{denied(), denied(), denied(), denied()},
	}

	result, err := s.controller.RunTurn(s.ctx, actor)

	s.Require().NoError(err)
	s.True(result.Forced)
	s.Equal("wait", result.Action)
	s.Len(result.Rejections, 3)
	// The fallback still goes through validation before executing.
	s.Equal([]string{
		"validate:move",
		"validate:move",
		"validate:move",
		"validate:wait",
		"perform:wait",
	}, s.journal)
}

func (s *TurnControllerTestSuite) TestActorWithoutRequesterPasses() {
	actor := &stubActor{id: "actor-1"}

	result, err := s.controller.RunTurn(s.ctx, actor)

	s.Require().NoError(err)
	s.True(result.Passed)
	s.Empty(result.Action)
}

func (s *TurnControllerTestSuite) TestNilActionPasses() {
	actor := &decidingActor{stubActor: stubActor{id: "actor-1"}}

	result, err := s.controller.RunTurn(s.ctx, actor)

	s.Require().NoError(err)
	s.True(result.Passed)
	s.False(result.Forced)
}

func (s *TurnControllerTestSuite) TestRequestErrorAbortsTurn() {
	actor := &decidingActor{
		stubActor:  stubActor{id: "actor-1"},
		requestErr: errors.Unavailable("session closed"),
	}

	result, err := s.controller.RunTurn(s.ctx, actor)

	s.Require().Error(err)
	s.Nil(result)
}

func (s *TurnControllerTestSuite) TestValidationErrorAbortsTurn() {
	action := &scriptedAction{name: "move", canErr: errors.Canceled("context canceled"), journal: &s.journal}
	actor := &decidingActor{
		stubActor: stubActor{id: "actor-1"},
		queue:     []engine.Action{action},
	}

	_, err := s.controller.RunTurn(s.ctx, actor)

	s.Require().Error(err)
	s.NotContains(s.journal, "perform:move")
}

func (s *TurnControllerTestSuite) TestNilDecisionIsInternalError() {
	action := &scriptedAction{name: "move", journal: &s.journal}
	actor := &decidingActor{
		stubActor: stubActor{id: "actor-1"},
		queue:     []engine.Action{action},
	}

	_, err := s.controller.RunTurn(s.ctx, actor)

	s.Require().Error(err)
	s.Equal(errors.CodeInternal, errors.GetCode(err))
}

func (s *TurnControllerTestSuite) TestNilActorRejected() {
	_, err := s.controller.RunTurn(s.ctx, nil)

	s.Require().Error(err)
	s.Equal(errors.CodeInvalidArgument, errors.GetCode(err))
}

func (s *TurnControllerTestSuite) TestConfigRequiresFallback() {
	_, err := engine.NewTurnController(&engine.TurnControllerConfig{})

	s.Require().Error(err)
	s.Equal(errors.CodeInvalidArgument, errors.GetCode(err))
}

func TestTurnControllerSuite(t *testing.T) {
	suite.Run(t, new(TurnControllerTestSuite))
}
