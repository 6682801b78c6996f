package encounters

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/tactics-api/internal/errors"
	"github.com/KirkDiggler/tactics-api/internal/pkg/clock"
	redisclient "github.com/KirkDiggler/tactics-api/internal/redis"
)

const (
	// Key pattern: encounter:{encounter_id}
	encounterKeyPrefix = "encounter:"

	// DefaultTTL bounds how long an idle encounter survives. Encounters
	// are live-session working state, not long-term saves.
	DefaultTTL = 30 * time.Minute

	errInputNil        = "input is required"
	errSnapshotNil     = "snapshot cannot be nil"
	errEncounterIDNone = "encounter ID cannot be empty"
)

// Config holds the configuration for the Redis repository
type Config struct {
	Client redisclient.Client
	Clock  clock.Clock

	// TTL overrides DefaultTTL when positive.
	TTL time.Duration
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config is required")
	}
	if c.Client == nil {
		return errors.InvalidArgument("redis client is required")
	}
	if c.Clock == nil {
		return errors.InvalidArgument("clock is required")
	}
	return nil
}

type redisRepository struct {
	client redisclient.Client
	clock  clock.Clock
	ttl    time.Duration
}

// NewRedisRepository creates a new Redis repository for encounter snapshots
func NewRedisRepository(cfg *Config) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &redisRepository{
		client: cfg.Client,
		clock:  cfg.Clock,
		ttl:    ttl,
	}, nil
}

// Ensure redisRepository implements Repository
var _ Repository = (*redisRepository)(nil)

// Save upserts a snapshot and refreshes its TTL
func (r *redisRepository) Save(ctx context.Context, input *SaveInput) (*SaveOutput, error) {
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

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal snapshot")
	}

	key := buildKey(snapshot.ID)
	if err := r.client.Set(ctx, key, snapshotJSON, r.ttl).Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to store snapshot in Redis")
	}

	return &SaveOutput{
		Snapshot: snapshot,
	}, nil
}

// Get retrieves a snapshot by encounter ID
func (r *redisRepository) Get(ctx context.Context, input *GetInput) (*GetOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument(errInputNil)
	}
	if input.EncounterID == "" {
		return nil, errors.InvalidArgument(errEncounterIDNone)
	}

	key := buildKey(input.EncounterID)

	snapshotJSON, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("encounter %s not found", input.EncounterID)
		}
		return nil, errors.Wrapf(err, "failed to get snapshot from Redis")
	}

	var snapshot EncounterSnapshot
	if err := json.Unmarshal([]byte(snapshotJSON), &snapshot); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal snapshot")
	}

	return &GetOutput{
		Snapshot: &snapshot,
	}, nil
}

// Delete removes a snapshot
func (r *redisRepository) Delete(ctx context.Context, input *DeleteInput) (*DeleteOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument(errInputNil)
	}
	if input.EncounterID == "" {
		return nil, errors.InvalidArgument(errEncounterIDNone)
	}

	key := buildKey(input.EncounterID)

	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to delete snapshot from Redis")
	}
	if deleted == 0 {
		return nil, errors.NotFoundf("encounter %s not found", input.EncounterID)
	}

	return &DeleteOutput{Success: true}, nil
}

// buildKey creates the Redis key for an encounter snapshot
func buildKey(encounterID string) string {
	return encounterKeyPrefix + encounterID
}
