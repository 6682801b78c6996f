// Package encounters stores encounter snapshots: the full serialized state
// of a skirmish, written after creation and after every turn.
package encounters

//go:generate mockgen -destination=mock/mock_repository.go -package=encountermock github.com/KirkDiggler/tactics-api/internal/repositories/encounters Repository

import (
	"context"
	"time"

	"github.com/KirkDiggler/tactics-api/internal/grid"
)

// Status is the lifecycle state of an encounter.
type Status string

// Encounter statuses.
const (
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
)

// Repository defines the storage interface for encounter snapshots.
// Save is an upsert: snapshots are whole documents, so there is no
// partial update.
type Repository interface {
	// Save stores a snapshot, stamping UpdatedAt (and CreatedAt on first save)
	Save(ctx context.Context, input *SaveInput) (*SaveOutput, error)

	// Get retrieves a snapshot by encounter ID
	Get(ctx context.Context, input *GetInput) (*GetOutput, error)

	// Delete removes a snapshot
	Delete(ctx context.Context, input *DeleteInput) (*DeleteOutput, error)
}

// EncounterSnapshot is the persisted view of an encounter: everything a
// client needs to render the battle and everything the server needs to
// report its state.
type EncounterSnapshot struct {
	ID         string            `json:"id"`
	Status     Status            `json:"status"`
	Round      int               `json:"round"`
	GridWidth  int               `json:"grid_width"`
	GridHeight int               `json:"grid_height"`
	Combatants []CombatantState  `json:"combatants"`
	Initiative []InitiativeEntry `json:"initiative"`

	// ActiveID is the combatant whose turn is next. Empty once complete.
	ActiveID string `json:"active_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CombatantState is one combatant's slice of the snapshot.
type CombatantState struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	HP    int    `json:"hp"`
	MaxHP int    `json:"max_hp"`

	// Position is nil when the combatant is off the grid (defeated).
	Position *grid.Coordinate `json:"position,omitempty"`

	Facing     string `json:"facing,omitempty"`
	OpponentID string `json:"opponent_id,omitempty"`
	Defeated   bool   `json:"defeated,omitempty"`
}

// InitiativeEntry records one combatant's place in the turn order.
type InitiativeEntry struct {
	ID   string `json:"id"`
	Roll int    `json:"roll"`
}

// Clone returns a deep copy so callers and the store never alias the same
// slices.
func (s *EncounterSnapshot) Clone() *EncounterSnapshot {
	if s == nil {
		return nil
	}

	out := *s
	out.Combatants = make([]CombatantState, len(s.Combatants))
	copy(out.Combatants, s.Combatants)
	for i := range out.Combatants {
		if pos := s.Combatants[i].Position; pos != nil {
			c := *pos
			out.Combatants[i].Position = &c
		}
	}
	out.Initiative = make([]InitiativeEntry, len(s.Initiative))
	copy(out.Initiative, s.Initiative)
	return &out
}

// SaveInput defines the request for saving a snapshot
type SaveInput struct {
	Snapshot *EncounterSnapshot
}

// SaveOutput returns the snapshot as stored, timestamps included
type SaveOutput struct {
	Snapshot *EncounterSnapshot
}

// GetInput defines the request for retrieving a snapshot
type GetInput struct {
	EncounterID string
}

// GetOutput defines the response for retrieving a snapshot
type GetOutput struct {
	Snapshot *EncounterSnapshot
}

// DeleteInput defines the request for deleting a snapshot
type DeleteInput struct {
	EncounterID string
}

// DeleteOutput defines the response for deleting a snapshot
type DeleteOutput struct {
	Success bool
}
