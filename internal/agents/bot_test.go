package agents_test

import (
	"context"
	"testing"

	"github.com/KirkDiggler/rpg-toolkit/events"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tactics-api/internal/agents"
	"github.com/KirkDiggler/tactics-api/internal/cues"
	"github.com/KirkDiggler/tactics-api/internal/engine"
	"github.com/KirkDiggler/tactics-api/internal/engine/actions"
	"github.com/KirkDiggler/tactics-api/internal/entities"
	"github.com/KirkDiggler/tactics-api/internal/grid"
)

type fixedRoller struct {
	result int
}

func (r *fixedRoller) Roll(_ int) (int, error) { return r.result, nil }

func (r *fixedRoller) RollN(count, _ int) ([]int, error) {
	rolls := make([]int, count)
	for i := range rolls {
		rolls[i] = r.result
	}
	return rolls, nil
}

type BotTestSuite struct {
	suite.Suite

	ctx     context.Context
	world   *grid.SquareGrid
	factory *actions.Factory

	bot   *agents.Bot
	enemy *entities.Combatant
}

func (s *BotTestSuite) SetupTest() {
	s.ctx = context.Background()

	world, err := grid.NewSquareGrid(10, 10)
	s.Require().NoError(err)
	s.world = world

	s.factory, err = actions.NewFactory(&actions.Config{
		EncounterID: "enc_1",
		World:       world,
		PathFinder:  grid.NewPathFinder(0),
		Roller:      &fixedRoller{result: 2},
		Timeline:    cues.Instant(),
		EventBus:    events.NewBus(),
	})
	s.Require().NoError(err)

	combatant, err := entities.NewCombatant(&entities.CombatantConfig{
		ID:    "cmb_bot",
		Name:  "Skeleton",
		Kind:  entities.KindMonster,
		MaxHP: 10,
	})
	s.Require().NoError(err)

	s.bot, err = agents.NewBot(&agents.BotConfig{
		Combatant:  combatant,
		World:      world,
		PathFinder: grid.NewPathFinder(0),
		Factory:    s.factory,
	})
	s.Require().NoError(err)

	s.enemy, err = entities.NewCombatant(&entities.CombatantConfig{
		ID:    "cmb_hero",
		Name:  "Hero",
		Kind:  entities.KindPlayer,
		MaxHP: 12,
	})
	s.Require().NoError(err)

	s.bot.SetOpponent(s.enemy)
	s.enemy.SetOpponent(s.bot)
}

func (s *BotTestSuite) place(actor engine.Actor, x, z int) {
	c := grid.Coordinate{X: x, Z: z}
	s.Require().NoError(s.world.Place(actor, c))
	actor.SetPosition(c)
}

func (s *BotTestSuite) request() engine.Action {
	action, err := s.bot.RequestAction(s.ctx)
	s.Require().NoError(err)
	return action
}

func (s *BotTestSuite) perform(action engine.Action) {
	decision, err := action.CanPerform(s.ctx)
	s.Require().NoError(err)
	s.Require().True(decision.Allowed, "bot action rejected: %q", decision.Reason)
	s.Require().NoError(action.Perform(s.ctx))
}

func (s *BotTestSuite) TestMeleeWhenAdjacent() {
	s.place(s.bot, 2, 2)
	s.place(s.enemy, 2, 3)

	action := s.request()
	s.Require().NotNil(action)
	s.Equal("melee_attack", action.Name())

	target, err := s.bot.SelectTarget(s.ctx)
	s.Require().NoError(err)
	s.Equal("cmb_hero", target.GetID())

	s.perform(action)
	s.Equal(6, s.enemy.HP()) // 12 - (4 + roll of 2)
}

func (s *BotTestSuite) TestRangedAtExactFive() {
	s.place(s.bot, 2, 2)
	s.place(s.enemy, 5, 6) // distance 5.0

	action := s.request()
	s.Require().NotNil(action)
	s.Equal("ranged_attack", action.Name())
}

func (s *BotTestSuite) TestRangedBeatsMeleeOnDiagonal() {
	s.place(s.bot, 2, 2)
	s.place(s.enemy, 3, 3) // sqrt(2), too far for melee

	action := s.request()
	s.Require().NotNil(action)
	s.Equal("ranged_attack", action.Name())
}

func (s *BotTestSuite) TestMovesTowardDistantOpponent() {
	s.place(s.bot, 0, 0)
	s.place(s.enemy, 0, 7)

	action := s.request()
	s.Require().NotNil(action)
	s.Equal("move", action.Name())

	s.perform(action)

	pos, _ := s.bot.Position()
	s.Equal(grid.Coordinate{X: 0, Z: 6}, pos)

	// Now adjacent: the policy switches to melee.
	next := s.request()
	s.Require().NotNil(next)
	s.Equal("melee_attack", next.Name())
}

func (s *BotTestSuite) TestApproachPrefersShortestPath() {
	s.place(s.bot, 0, 3)
	s.place(s.enemy, 7, 3)

	action := s.request()
	s.Require().NotNil(action)
	s.Equal("move", action.Name())

	s.perform(action)

	pos, _ := s.bot.Position()
	s.Equal(grid.Coordinate{X: 6, Z: 3}, pos)
}

func (s *BotTestSuite) TestWaitsWhenOpponentEnclosed() {
	s.place(s.bot, 0, 0)
	s.place(s.enemy, 0, 7)
	s.place(&basicEntity{id: "rock-1"}, 1, 7)
	s.place(&basicEntity{id: "rock-2"}, 0, 6)
	s.place(&basicEntity{id: "rock-3"}, 0, 8)

	action := s.request()
	s.Require().NotNil(action)
	s.Equal("wait", action.Name())
}

func (s *BotTestSuite) TestWaitsWhenOpponentOffGrid() {
	s.place(s.bot, 0, 0)
	s.enemy.SetPosition(grid.Coordinate{X: 0, Z: 1})
	s.enemy.ClearPosition()

	action := s.request()
	s.Require().NotNil(action)
	s.Equal("wait", action.Name())
}

func (s *BotTestSuite) TestPassesWithoutOpponent() {
	s.place(s.bot, 0, 0)
	s.bot.SetOpponent(nil)

	action, err := s.bot.RequestAction(s.ctx)
	s.Require().NoError(err)
	s.Nil(action)
}

func (s *BotTestSuite) TestBotRunsThroughTurnController() {
	s.place(s.bot, 2, 2)
	s.place(s.enemy, 2, 3)

	controller, err := engine.NewTurnController(&engine.TurnControllerConfig{
		MaxAttempts: 3,
		Fallback:    actions.NewWait,
	})
	s.Require().NoError(err)

	result, err := controller.RunTurn(s.ctx, s.bot)
	s.Require().NoError(err)
	s.Equal("cmb_bot", result.ActorID)
	s.Equal("melee_attack", result.Action)
	s.False(result.Forced)
	s.False(result.Passed)
	s.Empty(result.Rejections)
	s.Equal(6, s.enemy.HP())
}

// basicEntity blocks a cell without being an actor.
type basicEntity struct {
	id string
}

func (e *basicEntity) GetID() string   { return e.id }
func (e *basicEntity) GetType() string { return "obstacle" }

func (e *basicEntity) Position() (grid.Coordinate, bool) { return grid.Coordinate{}, false }
func (e *basicEntity) SetPosition(_ grid.Coordinate)     {}
func (e *basicEntity) Hit(_ int)                         {}

func TestBotTestSuite(t *testing.T) {
	suite.Run(t, new(BotTestSuite))
}
