package encounter

import (
	"github.com/KirkDiggler/tactics-api/internal/engine"
	"github.com/KirkDiggler/tactics-api/internal/engine/actions"
	"github.com/KirkDiggler/tactics-api/internal/entities"
	"github.com/KirkDiggler/tactics-api/internal/grid"
	"github.com/KirkDiggler/tactics-api/internal/repositories/encounters"
)

// ControllerKind says who drives a combatant.
type ControllerKind string

// Controller kinds.
const (
	// ControllerBot hands the combatant to the built-in agent.
	ControllerBot ControllerKind = "bot"

	// ControllerExternal leaves the combatant waiting for BindActor; until
	// bound, its turns pass.
	ControllerExternal ControllerKind = "external"
)

// CombatantSpec describes one combatant to create. An empty Controller
// defaults to ControllerBot.
type CombatantSpec struct {
	Name       string
	Kind       entities.CombatantKind
	MaxHP      int
	Position   grid.Coordinate
	Controller ControllerKind
}

// CreateEncounterInput defines the request for creating an encounter.
// Zero grid dimensions default to 10x10.
type CreateEncounterInput struct {
	GridWidth  int
	GridHeight int
	Combatants []CombatantSpec
}

// CreateEncounterOutput defines the response for creating an encounter
type CreateEncounterOutput struct {
	EncounterID string
	Snapshot    *encounters.EncounterSnapshot

	// CombatantIDs are the generated IDs, in the order the combatants
	// were listed.
	CombatantIDs []string
}

// ExecuteTurnInput defines the request for running the active combatant's turn
type ExecuteTurnInput struct {
	EncounterID string
}

// ExecuteTurnOutput defines the response for running a turn
type ExecuteTurnOutput struct {
	Result   *engine.TurnResult
	Status   encounters.Status
	Snapshot *encounters.EncounterSnapshot
}

// GetEncounterInput defines the request for fetching an encounter snapshot
type GetEncounterInput struct {
	EncounterID string
}

// GetEncounterOutput defines the response for fetching an encounter snapshot
type GetEncounterOutput struct {
	Snapshot *encounters.EncounterSnapshot
}

// EndEncounterInput defines the request for ending an encounter
type EndEncounterInput struct {
	EncounterID string
}

// EndEncounterOutput defines the response for ending an encounter
type EndEncounterOutput struct {
	Success bool
}

// Binding hands an external controller the pieces it needs to drive a
// combatant: the combatant itself, the battlefield, the action factory,
// and a resolver for other actors in the encounter.
//
// Lookup is only safe to call while the bound actor's own turn is
// executing; it reads live state without extra locking.
type Binding struct {
	Combatant *entities.Combatant
	World     actions.Arena
	Factory   *actions.Factory
	Lookup    func(id string) (engine.Actor, bool)
}

// BindActorInput defines the request for attaching a controller to a
// combatant
type BindActorInput struct {
	EncounterID string
	CombatantID string

	// Bind builds the actor that will take this combatant's turns,
	// typically a player session wrapping the combatant.
	Bind func(binding *Binding) (engine.Actor, error)
}

// BindActorOutput defines the response for attaching a controller
type BindActorOutput struct {
	Actor engine.Actor
}
