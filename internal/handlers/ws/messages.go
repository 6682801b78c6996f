package ws

import (
	"encoding/json"

	"github.com/KirkDiggler/tactics-api/internal/engine"
	"github.com/KirkDiggler/tactics-api/internal/errors"
	"github.com/KirkDiggler/tactics-api/internal/repositories/encounters"
)

// Client to server message types.
const (
	TypeJoin    = "join"
	TypeStart   = "start"
	TypeAction  = "action"
	TypeTarget  = "target"
	TypeSquare  = "square"
	TypeCueDone = "cue_done"
	TypeQuit    = "quit"
)

// Server to client message types.
const (
	TypeWelcome      = "welcome"
	TypeState        = "state"
	TypePromptAction = "prompt_action"
	TypePromptTarget = "prompt_target"
	TypePromptSquare = "prompt_square"
	TypeCue          = "cue"
	TypeAnimation    = "animation"
	TypeDamage       = "damage"
	TypeTurn         = "turn"
	TypeError        = "error"
	TypeOver         = "over"
)

// ActionPass is the action name a client sends to skip its turn.
const ActionPass = "pass"

// Envelope frames every message on the socket in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope wraps a payload for sending. A nil payload produces an
// envelope with only a type.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	env := Envelope{Type: msgType}
	if payload == nil {
		return env, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, errors.Wrapf(err, "encoding %s payload", msgType)
	}
	env.Payload = raw
	return env, nil
}

// JoinPayload introduces the player.
type JoinPayload struct {
	PlayerName string `json:"player_name"`
}

// StartPayload requests a fresh solo encounter against a bot. Zero grid
// dimensions default to 10x10.
type StartPayload struct {
	GridWidth   int    `json:"grid_width,omitempty"`
	GridHeight  int    `json:"grid_height,omitempty"`
	MonsterName string `json:"monster_name,omitempty"`
}

// ActionPayload answers a prompt_action with an action name, or
// ActionPass to skip the turn.
type ActionPayload struct {
	Name string `json:"name"`
}

// TargetPayload answers a prompt_target with an entity ID.
type TargetPayload struct {
	EntityID string `json:"entity_id"`
}

// SquarePayload answers a prompt_square with a destination cell.
type SquarePayload struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// CueDonePayload reports that the client finished presenting a cue, so
// execution can continue without waiting out the cue's duration.
type CueDonePayload struct {
	CueID string `json:"cue_id"`
}

// WelcomePayload acknowledges a join.
type WelcomePayload struct {
	SessionID  string `json:"session_id"`
	PlayerName string `json:"player_name"`
}

// StatePayload carries a full encounter snapshot. You identifies the
// combatant this client controls.
type StatePayload struct {
	You      string                        `json:"you,omitempty"`
	Snapshot *encounters.EncounterSnapshot `json:"snapshot"`
}

// PromptActionPayload asks the client to pick its next action.
type PromptActionPayload struct {
	CombatantID string   `json:"combatant_id"`
	Actions     []string `json:"actions"`
}

// PromptTargetPayload asks the client to pick a target entity.
type PromptTargetPayload struct {
	CombatantID string `json:"combatant_id"`
}

// PromptSquarePayload asks the client to pick a destination cell.
type PromptSquarePayload struct {
	CombatantID string `json:"combatant_id"`
}

// CuePayload mirrors an animation cue from the event bus. Answering with
// cue_done before DurationMS elapses resumes execution early.
type CuePayload struct {
	CueID      string `json:"cue_id"`
	Kind       string `json:"kind"`
	Animation  string `json:"animation"`
	SourceID   string `json:"source_id,omitempty"`
	TargetID   string `json:"target_id,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// AnimationPayload tells the client to play a clip on an entity.
type AnimationPayload struct {
	EntityID  string `json:"entity_id"`
	Animation string `json:"animation"`
	Loop      bool   `json:"loop"`
}

// DamagePayload mirrors an applied-damage event from the bus.
type DamagePayload struct {
	SourceID string `json:"source_id,omitempty"`
	TargetID string `json:"target_id,omitempty"`
	Action   string `json:"action"`
	Amount   int    `json:"amount"`
}

// TurnPayload reports a resolved turn.
type TurnPayload struct {
	Result   *engine.TurnResult            `json:"result"`
	Status   encounters.Status             `json:"status"`
	Snapshot *encounters.EncounterSnapshot `json:"snapshot"`
}

// ErrorPayload surfaces a failure the connection survives.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OverPayload announces the end of the fight.
type OverPayload struct {
	WinnerID   string                        `json:"winner_id,omitempty"`
	WinnerKind string                        `json:"winner_kind,omitempty"`
	Snapshot   *encounters.EncounterSnapshot `json:"snapshot"`
}
