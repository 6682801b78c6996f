package ws

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/tactics-api/internal/engine"
	"github.com/KirkDiggler/tactics-api/internal/engine/actions"
	"github.com/KirkDiggler/tactics-api/internal/entities"
	"github.com/KirkDiggler/tactics-api/internal/errors"
	"github.com/KirkDiggler/tactics-api/internal/grid"
)

// PlayerSession drives a combatant from the far side of a WebSocket
// connection. It exposes the same optional capabilities a bot does, but
// resolves each one by prompting the client and blocking on the reply.
type PlayerSession struct {
	*entities.Combatant

	factory *actions.Factory
	lookup  func(id string) (engine.Actor, bool)
	send    func(Envelope)

	actionCh chan string
	targetCh chan string
	squareCh chan grid.Coordinate
}

var _ engine.Actor = (*PlayerSession)(nil)
var _ engine.ActionRequester = (*PlayerSession)(nil)
var _ engine.TargetSelector = (*PlayerSession)(nil)
var _ engine.Animator = (*PlayerSession)(nil)

// PlayerSessionConfig wires a session to its combatant and connection.
type PlayerSessionConfig struct {
	Combatant *entities.Combatant
	Factory   *actions.Factory
	Lookup    func(id string) (engine.Actor, bool)
	Send      func(Envelope)
}

// Validate ensures all dependencies are set.
func (c *PlayerSessionConfig) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config is required")
	}

	vb := errors.NewValidationBuilder()
	if c.Combatant == nil {
		vb.RequiredField("Combatant")
	}
	if c.Factory == nil {
		vb.RequiredField("Factory")
	}
	if c.Lookup == nil {
		vb.RequiredField("Lookup")
	}
	if c.Send == nil {
		vb.RequiredField("Send")
	}
	return vb.Build()
}

// NewPlayerSession creates a session for one connected player.
func NewPlayerSession(cfg *PlayerSessionConfig) (*PlayerSession, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &PlayerSession{
		Combatant: cfg.Combatant,
		factory:   cfg.Factory,
		lookup:    cfg.Lookup,
		send:      cfg.Send,
		actionCh:  make(chan string, 1),
		targetCh:  make(chan string, 1),
		squareCh:  make(chan grid.Coordinate, 1),
	}, nil
}

// DeliverAction feeds an action reply to a waiting RequestAction. Replies
// may arrive slightly ahead of their prompt; one is buffered per channel.
func (s *PlayerSession) DeliverAction(name string) {
	select {
	case s.actionCh <- name:
	default:
	}
}

// DeliverTarget feeds a target reply to a waiting SelectTarget.
func (s *PlayerSession) DeliverTarget(entityID string) {
	select {
	case s.targetCh <- entityID:
	default:
	}
}

// DeliverSquare feeds a square reply to a waiting SelectSquare.
func (s *PlayerSession) DeliverSquare(c grid.Coordinate) {
	select {
	case s.squareCh <- c:
	default:
	}
}

// RequestAction prompts the client and blocks until it picks an action.
// ActionPass (or an empty name) passes the turn. An unknown name gets an
// error envelope and another chance rather than burning the turn.
func (s *PlayerSession) RequestAction(ctx context.Context) (engine.Action, error) {
	s.push(TypePromptAction, &PromptActionPayload{
		CombatantID: s.GetID(),
		Actions:     s.factory.Names(),
	})

	for {
		select {
		case name := <-s.actionCh:
			if name == "" || name == ActionPass {
				return nil, nil
			}

			action, err := s.factory.ByName(name, s)
			if err != nil {
				s.pushError(err)
				continue
			}
			return action, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// SelectTarget prompts the client for an entity. An empty or unknown ID
// resolves to no target, which the pending action then rejects.
func (s *PlayerSession) SelectTarget(ctx context.Context) (engine.Actor, error) {
	s.push(TypePromptTarget, &PromptTargetPayload{CombatantID: s.GetID()})

	select {
	case id := <-s.targetCh:
		if id == "" {
			return nil, nil
		}
		actor, ok := s.lookup(id)
		if !ok {
			return nil, nil
		}
		return actor, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SelectSquare prompts the client for a destination cell.
func (s *PlayerSession) SelectSquare(ctx context.Context) (*grid.Coordinate, error) {
	s.push(TypePromptSquare, &PromptSquarePayload{CombatantID: s.GetID()})

	select {
	case c := <-s.squareCh:
		return &c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PlayAnimation forwards a clip change to the client.
func (s *PlayerSession) PlayAnimation(name string, loop bool) {
	s.push(TypeAnimation, &AnimationPayload{
		EntityID:  s.GetID(),
		Animation: name,
		Loop:      loop,
	})
}

func (s *PlayerSession) push(msgType string, payload any) {
	env, err := NewEnvelope(msgType, payload)
	if err != nil {
		slog.Warn("failed to encode message", "type", msgType, "error", err)
		return
	}
	s.send(env)
}

func (s *PlayerSession) pushError(err error) {
	s.push(TypeError, &ErrorPayload{
		Code:    errors.GetCode(err).String(),
		Message: errors.GetMessage(err),
	})
}
