package encounters

import (
	"context"
	"sync"

	"github.com/KirkDiggler/tactics-api/internal/errors"
	"github.com/KirkDiggler/tactics-api/internal/pkg/clock"
)

// InMemoryRepository implements Repository using in-memory storage. It is
// the default when no Redis address is configured, and the workhorse in
// tests.
type InMemoryRepository struct {
	clock clock.Clock

	mu    sync.RWMutex
	store map[string]*EncounterSnapshot
}

// NewInMemory creates a new in-memory repository
func NewInMemory() *InMemoryRepository {
	return &InMemoryRepository{
		clock: clock.New(),
		store: make(map[string]*EncounterSnapshot),
	}
}

// Ensure InMemoryRepository implements Repository
var _ Repository = (*InMemoryRepository)(nil)

// Save upserts a snapshot
func (r *InMemoryRepository) Save(ctx context.Context, input *SaveInput) (*SaveOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument(errInputNil)
	}
	if input.Snapshot == nil {
		return nil, errors.InvalidArgument(errSnapshotNil)
	}
	if input.Snapshot.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDNone)
	}

	snapshot := input.Snapshot.Clone()
	now := r.clock.Now()
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}
	snapshot.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()

	r.store[snapshot.ID] = snapshot

	// Hand back a copy so the caller cannot reach into the store.
	return &SaveOutput{Snapshot: snapshot.Clone()}, nil
}

// Get retrieves a snapshot by encounter ID
func (r *InMemoryRepository) Get(ctx context.Context, input *GetInput) (*GetOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument(errInputNil)
	}
	if input.EncounterID == "" {
		return nil, errors.InvalidArgument(errEncounterIDNone)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, exists := r.store[input.EncounterID]
	if !exists {
		return nil, errors.NotFoundf("encounter %s not found", input.EncounterID)
	}

	return &GetOutput{Snapshot: snapshot.Clone()}, nil
}

// Delete removes a snapshot
func (r *InMemoryRepository) Delete(ctx context.Context, input *DeleteInput) (*DeleteOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument(errInputNil)
	}
	if input.EncounterID == "" {
		return nil, errors.InvalidArgument(errEncounterIDNone)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store[input.EncounterID]; !exists {
		return nil, errors.NotFoundf("encounter %s not found", input.EncounterID)
	}

	delete(r.store, input.EncounterID)

	return &DeleteOutput{Success: true}, nil
}
