// Package cues synchronizes combat execution with presentation.
//
// Instead of sleeping through animation delays, actions emit a cue on the
// event bus and await a completion signal. A presentation layer that is
// watching (a connected client) completes the cue when its animation
// finishes; if nobody answers, the cue's default duration elapses and
// execution continues. Headless runs use the instant timeline and never
// wait at all.
package cues

import (
	"context"
	"sync"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/core"
	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/tactics-api/internal/errors"
	"github.com/KirkDiggler/tactics-api/internal/pkg/idgen"
)

// Event bus topics.
const (
	// TopicCue carries animation cues awaiting completion.
	TopicCue = "combat.cue"

	// TopicDamage announces applied damage.
	TopicDamage = "combat.damage"
)

// Event context keys.
const (
	KeyCueID       = "cue_id"
	KeyEncounterID = "encounter_id"
	KeyKind        = "kind"
	KeyAnimation   = "animation"
	KeyDurationMS  = "duration_ms"
	KeyAmount      = "amount"
	KeyAction      = "action"
)

// Default cue durations when no completion signal arrives.
const (
	DefaultAttackDuration = 500 * time.Millisecond
	DefaultStepDuration   = 250 * time.Millisecond
)

// Cue is a single presentation beat: an animation the world should show
// before execution continues.
type Cue struct {
	// ID is assigned by the timeline when empty.
	ID          string
	EncounterID string

	// Kind names the beat ("ranged_attack", "move_step").
	Kind string

	// Animation is the clip the presentation should play.
	Animation string

	Source core.Entity
	Target core.Entity

	// Duration bounds the wait when no completion arrives. Zero falls back
	// to DefaultAttackDuration.
	Duration time.Duration
}

// Timeline coordinates execution with presentation timing.
type Timeline interface {
	// Await publishes the cue and blocks until it completes, its duration
	// elapses, or ctx is canceled (the only error case).
	Await(ctx context.Context, cue Cue) error
}

// BusTimelineConfig holds the dependencies of the bus-backed timeline.
type BusTimelineConfig struct {
	EventBus    events.EventBus
	IDGenerator idgen.Generator
}

// Validate ensures the config is complete.
func (c *BusTimelineConfig) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config is required")
	}
	if c.EventBus == nil {
		return errors.InvalidArgument("event bus is required")
	}
	if c.IDGenerator == nil {
		return errors.InvalidArgument("ID generator is required")
	}
	return nil
}

// BusTimeline publishes cues on the event bus and waits for Complete calls.
// Safe for concurrent use across encounters.
type BusTimeline struct {
	bus   events.EventBus
	idGen idgen.Generator

	mu      sync.Mutex
	waiters map[string]chan struct{}
}

// NewBusTimeline creates a bus-backed timeline.
func NewBusTimeline(cfg *BusTimelineConfig) (*BusTimeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &BusTimeline{
		bus:     cfg.EventBus,
		idGen:   cfg.IDGenerator,
		waiters: make(map[string]chan struct{}),
	}, nil
}

// Await publishes the cue and blocks until Complete is called with the
// cue's ID, the duration elapses, or ctx is canceled.
func (t *BusTimeline) Await(ctx context.Context, cue Cue) error {
	if cue.ID == "" {
		cue.ID = t.idGen.Generate()
	}
	if cue.Duration <= 0 {
		cue.Duration = DefaultAttackDuration
	}

	// Register before publishing so a subscriber completing the cue from
	// inside the publish callback is not lost.
	done := make(chan struct{})
	t.mu.Lock()
	t.waiters[cue.ID] = done
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.waiters, cue.ID)
		t.mu.Unlock()
	}()

	if err := t.bus.Publish(ctx, newCueEvent(cue)); err != nil {
		return errors.Wrap(err, "publishing cue")
	}

	timer := time.NewTimer(cue.Duration)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Complete releases the waiter for a cue. It reports whether anything was
// still waiting on that ID.
func (t *BusTimeline) Complete(cueID string) bool {
	t.mu.Lock()
	done, ok := t.waiters[cueID]
	if ok {
		delete(t.waiters, cueID)
	}
	t.mu.Unlock()

	if ok {
		close(done)
	}
	return ok
}

func newCueEvent(cue Cue) events.Event {
	event := events.NewGameEvent(TopicCue, cue.Source, cue.Target)
	event.Context().Set(KeyCueID, cue.ID)
	event.Context().Set(KeyEncounterID, cue.EncounterID)
	event.Context().Set(KeyKind, cue.Kind)
	event.Context().Set(KeyAnimation, cue.Animation)
	event.Context().Set(KeyDurationMS, cue.Duration.Milliseconds())
	return event
}

// Instant returns a timeline that publishes nothing and never waits, for
// headless encounters and tests.
func Instant() Timeline {
	return instantTimeline{}
}

type instantTimeline struct{}

func (instantTimeline) Await(ctx context.Context, _ Cue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// PublishDamage announces applied damage on the bus. Subscribers (the
// gateway, journals) fan it out; combat state is already updated when this
// fires.
func PublishDamage(ctx context.Context, bus events.EventBus, encounterID, action string, source, target core.Entity, amount int) error {
	event := events.NewGameEvent(TopicDamage, source, target)
	event.Context().Set(KeyEncounterID, encounterID)
	event.Context().Set(KeyAction, action)
	event.Context().Set(KeyAmount, amount)
	return bus.Publish(ctx, event)
}
