// Package encounter orchestrates tactical skirmishes: it assembles the
// grid, rolls initiative, runs turns through the engine, and persists a
// snapshot after every change.
package encounter

//go:generate mockgen -destination=mock/mock_service.go -package=encountermock github.com/KirkDiggler/tactics-api/internal/orchestrators/encounter Service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/tactics-api/internal/agents"
	"github.com/KirkDiggler/tactics-api/internal/cues"
	"github.com/KirkDiggler/tactics-api/internal/engine"
	"github.com/KirkDiggler/tactics-api/internal/engine/actions"
	"github.com/KirkDiggler/tactics-api/internal/entities"
	"github.com/KirkDiggler/tactics-api/internal/errors"
	"github.com/KirkDiggler/tactics-api/internal/grid"
	"github.com/KirkDiggler/tactics-api/internal/pkg/idgen"
	"github.com/KirkDiggler/tactics-api/internal/repositories/encounters"
)

// Service defines the encounter orchestration operations
type Service interface {
	// CreateEncounter assembles a grid, places the combatants, rolls
	// initiative, and persists the opening snapshot.
	CreateEncounter(ctx context.Context, input *CreateEncounterInput) (*CreateEncounterOutput, error)

	// ExecuteTurn runs one full turn for whichever combatant is up.
	ExecuteTurn(ctx context.Context, input *ExecuteTurnInput) (*ExecuteTurnOutput, error)

	// GetEncounter returns the last persisted snapshot.
	GetEncounter(ctx context.Context, input *GetEncounterInput) (*GetEncounterOutput, error)

	// EndEncounter tears the encounter down and deletes its snapshot.
	EndEncounter(ctx context.Context, input *EndEncounterInput) (*EndEncounterOutput, error)

	// BindActor swaps the default controller of a combatant for a caller
	// supplied one, typically a connected player session.
	BindActor(ctx context.Context, input *BindActorInput) (*BindActorOutput, error)
}

// Config holds the dependencies for the encounter orchestrator
type Config struct {
	Repository           encounters.Repository
	EventBus             events.EventBus
	Timeline             cues.Timeline
	Roller               dice.Roller
	IDGenerator          idgen.Generator
	CombatantIDGenerator idgen.Generator
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config is required")
	}

	vb := errors.NewValidationBuilder()

	if c.Repository == nil {
		vb.RequiredField("Repository")
	}
	if c.EventBus == nil {
		vb.RequiredField("EventBus")
	}
	if c.Timeline == nil {
		vb.RequiredField("Timeline")
	}
	if c.Roller == nil {
		vb.RequiredField("Roller")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.CombatantIDGenerator == nil {
		vb.RequiredField("CombatantIDGenerator")
	}

	return vb.Build()
}

type orchestrator struct {
	repo       encounters.Repository
	bus        events.EventBus
	timeline   cues.Timeline
	roller     dice.Roller
	encIDs     idgen.Generator
	cmbIDs     idgen.Generator
	finder     *grid.PathFinder
	controller *engine.TurnController

	mu   sync.RWMutex
	live map[string]*liveEncounter
}

// liveEncounter holds the working state of one running encounter. Its lock
// serializes turns; the repository only ever sees snapshots taken under it.
type liveEncounter struct {
	mu sync.Mutex

	id         string
	world      *grid.SquareGrid
	factory    *actions.Factory
	tracker    *initiativeTracker
	roster     []*entities.Combatant
	byID       map[string]*entities.Combatant
	actors     map[string]engine.Actor
	initiative []encounters.InitiativeEntry
	status     encounters.Status
	createdAt  time.Time
}

// NewOrchestrator creates a new encounter orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	controller, err := engine.NewTurnController(&engine.TurnControllerConfig{
		Fallback: actions.NewWait,
	})
	if err != nil {
		return nil, errors.Wrap(err, "building turn controller")
	}

	return &orchestrator{
		repo:       cfg.Repository,
		bus:        cfg.EventBus,
		timeline:   cfg.Timeline,
		roller:     cfg.Roller,
		encIDs:     cfg.IDGenerator,
		cmbIDs:     cfg.CombatantIDGenerator,
		finder:     grid.NewPathFinder(0),
		controller: controller,
		live:       make(map[string]*liveEncounter),
	}, nil
}

const defaultGridSize = 10

// CreateEncounter assembles a grid, places the combatants, rolls initiative,
// and persists the opening snapshot.
func (o *orchestrator) CreateEncounter(ctx context.Context, input *CreateEncounterInput) (*CreateEncounterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if len(input.Combatants) < 2 {
		return nil, errors.InvalidArgument("an encounter needs at least two combatants")
	}
	for _, spec := range input.Combatants {
		switch spec.Controller {
		case "", ControllerBot, ControllerExternal:
		default:
			return nil, errors.InvalidArgumentf("unknown controller %q", spec.Controller)
		}
	}

	width, height := input.GridWidth, input.GridHeight
	if width == 0 {
		width = defaultGridSize
	}
	if height == 0 {
		height = defaultGridSize
	}

	world, err := grid.NewSquareGrid(width, height)
	if err != nil {
		return nil, errors.Wrap(err, "building grid")
	}

	encounterID := o.encIDs.Generate()

	factory, err := actions.NewFactory(&actions.Config{
		EncounterID: encounterID,
		World:       world,
		PathFinder:  o.finder,
		Roller:      o.roller,
		Timeline:    o.timeline,
		EventBus:    o.bus,
	})
	if err != nil {
		return nil, errors.Wrap(err, "building action factory")
	}

	enc := &liveEncounter{
		id:      encounterID,
		world:   world,
		factory: factory,
		byID:    make(map[string]*entities.Combatant),
		actors:  make(map[string]engine.Actor),
		status:  encounters.StatusActive,
	}

	combatantIDs := make([]string, 0, len(input.Combatants))
	for _, spec := range input.Combatants {
		combatant, err := entities.NewCombatant(&entities.CombatantConfig{
			ID:    o.cmbIDs.Generate(),
			Name:  spec.Name,
			Kind:  spec.Kind,
			MaxHP: spec.MaxHP,
		})
		if err != nil {
			return nil, err
		}

		if err := world.Place(combatant, spec.Position); err != nil {
			return nil, errors.Wrapf(err, "placing %s", spec.Name)
		}
		combatant.SetPosition(spec.Position)

		enc.roster = append(enc.roster, combatant)
		enc.byID[combatant.GetID()] = combatant
		combatantIDs = append(combatantIDs, combatant.GetID())

		if spec.Controller == ControllerExternal {
			// Until a session binds in, the combatant passes its turns.
			enc.actors[combatant.GetID()] = combatant
			continue
		}

		bot, err := agents.NewBot(&agents.BotConfig{
			Combatant:  combatant,
			World:      world,
			PathFinder: o.finder,
			Factory:    factory,
		})
		if err != nil {
			return nil, errors.Wrap(err, "building bot")
		}
		enc.actors[combatant.GetID()] = bot
	}

	if !twoSided(enc.roster) {
		return nil, errors.InvalidArgument("an encounter needs combatants on both sides")
	}
	pairOpponents(enc.roster)

	enc.initiative, err = rollInitiative(o.roller, combatantIDs)
	if err != nil {
		return nil, err
	}
	order := make([]string, 0, len(enc.initiative))
	for _, entry := range enc.initiative {
		order = append(order, entry.ID)
	}
	enc.tracker = newInitiativeTracker(order)

	saved, err := o.repo.Save(ctx, &encounters.SaveInput{Snapshot: enc.snapshot()})
	if err != nil {
		return nil, errors.Wrap(err, "persisting encounter")
	}
	enc.createdAt = saved.Snapshot.CreatedAt

	o.mu.Lock()
	o.live[encounterID] = enc
	o.mu.Unlock()

	slog.Info("encounter created",
		"encounter_id", encounterID,
		"grid_width", width,
		"grid_height", height,
		"combatants", len(enc.roster),
		"first_up", enc.tracker.Current(),
	)

	return &CreateEncounterOutput{
		EncounterID:  encounterID,
		Snapshot:     saved.Snapshot,
		CombatantIDs: combatantIDs,
	}, nil
}

// ExecuteTurn runs one full turn for whichever combatant is up.
func (o *orchestrator) ExecuteTurn(ctx context.Context, input *ExecuteTurnInput) (*ExecuteTurnOutput, error) {
	if input == nil || input.EncounterID == "" {
		return nil, errors.InvalidArgument("encounter ID is required")
	}

	enc, ok := o.getLive(input.EncounterID)
	if !ok {
		return nil, errors.NotFoundf("encounter %s not found", input.EncounterID)
	}

	enc.mu.Lock()
	defer enc.mu.Unlock()

	if enc.status != encounters.StatusActive {
		return nil, errors.FailedPreconditionf("encounter %s is already complete", enc.id)
	}

	activeID := enc.tracker.Current()
	actor, ok := enc.actors[activeID]
	if !ok {
		return nil, errors.Internalf("no actor bound for combatant %s", activeID)
	}

	result, err := o.controller.RunTurn(ctx, actor)
	if err != nil {
		return nil, errors.Wrapf(err, "running turn for %s", activeID)
	}

	if removed := enc.removeDefeated(); removed > 0 {
		pairOpponents(enc.roster)
	}
	if !twoSided(enc.roster) {
		enc.status = encounters.StatusComplete
	}

	if enc.status == encounters.StatusActive && enc.tracker.Current() == activeID {
		enc.tracker.Next()
	}

	snapshot := enc.snapshot()
	if saved, err := o.repo.Save(ctx, &encounters.SaveInput{Snapshot: snapshot}); err != nil {
		// The turn already happened; live state stays authoritative.
		slog.Warn("failed to persist encounter snapshot",
			"encounter_id", enc.id,
			"error", err,
		)
	} else {
		snapshot = saved.Snapshot
	}

	slog.Info("turn executed",
		"encounter_id", enc.id,
		"actor_id", result.ActorID,
		"action", result.Action,
		"forced", result.Forced,
		"passed", result.Passed,
		"round", enc.tracker.Round(),
		"status", enc.status,
	)

	return &ExecuteTurnOutput{
		Result:   result,
		Status:   enc.status,
		Snapshot: snapshot,
	}, nil
}

// GetEncounter returns the last persisted snapshot.
func (o *orchestrator) GetEncounter(ctx context.Context, input *GetEncounterInput) (*GetEncounterOutput, error) {
	if input == nil || input.EncounterID == "" {
		return nil, errors.InvalidArgument("encounter ID is required")
	}

	// Turns persist before they return, so the repository is current.
	out, err := o.repo.Get(ctx, &encounters.GetInput{EncounterID: input.EncounterID})
	if err != nil {
		return nil, err
	}

	return &GetEncounterOutput{Snapshot: out.Snapshot}, nil
}

// EndEncounter tears the encounter down and deletes its snapshot.
func (o *orchestrator) EndEncounter(ctx context.Context, input *EndEncounterInput) (*EndEncounterOutput, error) {
	if input == nil || input.EncounterID == "" {
		return nil, errors.InvalidArgument("encounter ID is required")
	}

	o.mu.Lock()
	_, hadLive := o.live[input.EncounterID]
	delete(o.live, input.EncounterID)
	o.mu.Unlock()

	if _, err := o.repo.Delete(ctx, &encounters.DeleteInput{EncounterID: input.EncounterID}); err != nil {
		// A live encounter whose snapshot already expired still ends
		// cleanly.
		if !hadLive || !errors.IsNotFound(err) {
			return nil, err
		}
	}

	slog.Info("encounter ended", "encounter_id", input.EncounterID)

	return &EndEncounterOutput{Success: true}, nil
}

// BindActor swaps the default controller of a combatant for a caller
// supplied one.
func (o *orchestrator) BindActor(ctx context.Context, input *BindActorInput) (*BindActorOutput, error) {
	if input == nil || input.EncounterID == "" || input.CombatantID == "" {
		return nil, errors.InvalidArgument("encounter ID and combatant ID are required")
	}
	if input.Bind == nil {
		return nil, errors.InvalidArgument("bind function is required")
	}

	enc, ok := o.getLive(input.EncounterID)
	if !ok {
		return nil, errors.NotFoundf("encounter %s not found", input.EncounterID)
	}

	enc.mu.Lock()
	defer enc.mu.Unlock()

	combatant, ok := enc.byID[input.CombatantID]
	if !ok {
		return nil, errors.NotFoundf("combatant %s not found in encounter %s", input.CombatantID, enc.id)
	}

	actor, err := input.Bind(&Binding{
		Combatant: combatant,
		World:     enc.world,
		Factory:   enc.factory,
		Lookup: func(id string) (engine.Actor, bool) {
			a, ok := enc.actors[id]
			return a, ok
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "binding actor")
	}
	if actor == nil {
		return nil, errors.InvalidArgument("bind returned no actor")
	}

	enc.actors[input.CombatantID] = actor

	slog.Info("actor bound",
		"encounter_id", enc.id,
		"combatant_id", input.CombatantID,
	)

	return &BindActorOutput{Actor: actor}, nil
}

func (o *orchestrator) getLive(id string) (*liveEncounter, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	enc, ok := o.live[id]
	return enc, ok
}

// removeDefeated takes downed combatants off the grid and out of the turn
// order, and reports how many it removed. Caller holds the encounter lock.
func (e *liveEncounter) removeDefeated() int {
	removed := 0
	for _, combatant := range e.roster {
		if !combatant.Defeated() {
			continue
		}
		if _, placed := combatant.Position(); !placed {
			continue
		}

		if err := e.world.Remove(combatant); err != nil && !errors.IsNotFound(err) {
			slog.Warn("failed to clear defeated combatant",
				"encounter_id", e.id,
				"combatant_id", combatant.GetID(),
				"error", err,
			)
		}
		combatant.ClearPosition()
		e.tracker.Remove(combatant.GetID())
		removed++

		slog.Info("combatant defeated",
			"encounter_id", e.id,
			"combatant_id", combatant.GetID(),
			"name", combatant.Name(),
		)
	}
	return removed
}

// snapshot captures the encounter for persistence. Caller holds the
// encounter lock.
func (e *liveEncounter) snapshot() *encounters.EncounterSnapshot {
	combatants := make([]encounters.CombatantState, 0, len(e.roster))
	for _, c := range e.roster {
		state := encounters.CombatantState{
			ID:       c.GetID(),
			Name:     c.Name(),
			Kind:     string(c.Kind()),
			HP:       c.HP(),
			MaxHP:    c.MaxHP(),
			Facing:   string(c.Facing()),
			Defeated: c.Defeated(),
		}
		if pos, ok := c.Position(); ok {
			p := pos
			state.Position = &p
		}
		if opponent := c.Opponent(); opponent != nil {
			state.OpponentID = opponent.GetID()
		}
		combatants = append(combatants, state)
	}

	activeID := ""
	if e.status == encounters.StatusActive {
		activeID = e.tracker.Current()
	}

	return &encounters.EncounterSnapshot{
		ID:         e.id,
		Status:     e.status,
		Round:      e.tracker.Round(),
		GridWidth:  e.world.Width(),
		GridHeight: e.world.Height(),
		Combatants: combatants,
		Initiative: e.initiative,
		ActiveID:   activeID,
		CreatedAt:  e.createdAt,
	}
}

// twoSided reports whether both kinds still have a conscious combatant.
func twoSided(roster []*entities.Combatant) bool {
	players, monsters := 0, 0
	for _, c := range roster {
		if c.Defeated() {
			continue
		}
		switch c.Kind() {
		case entities.KindPlayer:
			players++
		case entities.KindMonster:
			monsters++
		}
	}
	return players > 0 && monsters > 0
}

// pairOpponents points every conscious combatant at its nearest standing
// enemy, ties broken by roster order. Combatants with nobody left to
// fight get a nil opponent.
func pairOpponents(roster []*entities.Combatant) {
	for _, c := range roster {
		pos, placed := c.Position()
		if c.Defeated() || !placed {
			c.SetOpponent(nil)
			continue
		}

		var nearest *entities.Combatant
		var nearestDist float64
		for _, enemy := range roster {
			if enemy.Kind() == c.Kind() || enemy.Defeated() {
				continue
			}
			enemyPos, ok := enemy.Position()
			if !ok {
				continue
			}
			dist := pos.DistanceTo(enemyPos)
			if nearest == nil || dist < nearestDist {
				nearest = enemy
				nearestDist = dist
			}
		}

		if nearest == nil {
			c.SetOpponent(nil)
			continue
		}
		c.SetOpponent(nearest)
	}
}
