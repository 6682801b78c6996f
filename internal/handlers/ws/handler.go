// Package ws exposes encounters over a WebSocket connection. Every frame
// is a JSON Envelope; the client answers prompts to drive its combatant
// and acknowledges cues to keep presentation and execution in step.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/tactics-api/internal/cues"
	"github.com/KirkDiggler/tactics-api/internal/engine"
	"github.com/KirkDiggler/tactics-api/internal/entities"
	"github.com/KirkDiggler/tactics-api/internal/errors"
	"github.com/KirkDiggler/tactics-api/internal/grid"
	"github.com/KirkDiggler/tactics-api/internal/orchestrators/encounter"
	"github.com/KirkDiggler/tactics-api/internal/pkg/idgen"
	"github.com/KirkDiggler/tactics-api/internal/repositories/encounters"
)

const (
	// writeWait is how long a single write may take.
	writeWait = 10 * time.Second

	// pongWait is how long we wait for a pong before dropping the peer.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames. Client messages are tiny.
	maxMessageSize = 1024

	// sendBuffer is the per-client outbound queue depth.
	sendBuffer = 256
)

const (
	defaultGridWidth  = 10
	defaultGridHeight = 10
	defaultPlayerHP   = 12
	defaultMonsterHP  = 10
	defaultPlayerName = "Adventurer"
	defaultMonster    = "Skeleton"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// CueCompleter ends a cue's wait early once the client has shown it.
// *cues.BusTimeline satisfies this.
type CueCompleter interface {
	Complete(cueID string) bool
}

// HandlerConfig wires the gateway to the encounter service and bus.
type HandlerConfig struct {
	Service     encounter.Service
	EventBus    events.EventBus
	Completer   CueCompleter
	IDGenerator idgen.Generator
}

// Validate ensures all dependencies are set.
func (c *HandlerConfig) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config is required")
	}

	vb := errors.NewValidationBuilder()
	if c.Service == nil {
		vb.RequiredField("Service")
	}
	if c.EventBus == nil {
		vb.RequiredField("EventBus")
	}
	if c.Completer == nil {
		vb.RequiredField("Completer")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	return vb.Build()
}

// Handler upgrades HTTP requests and speaks the envelope protocol.
type Handler struct {
	service   encounter.Service
	bus       events.EventBus
	completer CueCompleter
	idGen     idgen.Generator
}

// NewHandler creates a WebSocket gateway handler.
func NewHandler(cfg *HandlerConfig) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &Handler{
		service:   cfg.Service,
		bus:       cfg.EventBus,
		completer: cfg.Completer,
		idGen:     cfg.IDGenerator,
	}, nil
}

// ServeHTTP upgrades the connection and serves it until it drops.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newClient(h, conn)
	go c.writePump()
	c.readPump()
}

// client is one connected player. The read pump dispatches inbound
// messages, the write pump owns the connection's writes, and an
// encounter goroutine drives turns while a fight is running.
type client struct {
	handler *Handler
	conn    *websocket.Conn
	send    chan Envelope
	closeC  chan int
	done    chan struct{}

	sessionID  string
	playerName string

	mu          sync.Mutex
	encounterID string
	combatantID string
	session     *PlayerSession
	subIDs      []string
	cancelLoop  context.CancelFunc
}

func newClient(h *Handler, conn *websocket.Conn) *client {
	return &client{
		handler: h,
		conn:    conn,
		send:    make(chan Envelope, sendBuffer),
		closeC:  make(chan int, 1),
		done:    make(chan struct{}),
	}
}

func (c *client) readPump() {
	defer func() {
		c.teardown()
		close(c.done)
		slog.Info("client disconnected", "session_id", c.sessionID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "session_id", c.sessionID, "error", err)
			}
			return
		}
		c.dispatch(env)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case code := <-c.closeC:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.flushPending()
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""))
			return
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.flushPending()
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flushPending drains whatever is queued before a close frame goes out.
func (c *client) flushPending() {
	for {
		select {
		case env := <-c.send:
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *client) dispatch(env Envelope) {
	switch env.Type {
	case TypeJoin:
		c.handleJoin(env.Payload)
	case TypeStart:
		c.handleStart(env.Payload)
	case TypeAction:
		var p ActionPayload
		if !c.decode(env.Payload, &p) {
			return
		}
		c.withSession(func(s *PlayerSession) { s.DeliverAction(p.Name) })
	case TypeTarget:
		var p TargetPayload
		if !c.decode(env.Payload, &p) {
			return
		}
		c.withSession(func(s *PlayerSession) { s.DeliverTarget(p.EntityID) })
	case TypeSquare:
		var p SquarePayload
		if !c.decode(env.Payload, &p) {
			return
		}
		c.withSession(func(s *PlayerSession) {
			s.DeliverSquare(grid.Coordinate{X: p.X, Z: p.Z})
		})
	case TypeCueDone:
		var p CueDonePayload
		if !c.decode(env.Payload, &p) {
			return
		}
		c.handler.completer.Complete(p.CueID)
	case TypeQuit:
		c.handleQuit()
	default:
		c.pushError(errors.InvalidArgumentf("unknown message type %q", env.Type))
	}
}

func (c *client) handleJoin(raw json.RawMessage) {
	var p JoinPayload
	if !c.decode(raw, &p) {
		return
	}

	if c.sessionID == "" {
		c.sessionID = c.handler.idGen.Generate()
	}
	c.playerName = strings.TrimSpace(p.PlayerName)
	if c.playerName == "" {
		c.playerName = defaultPlayerName
	}

	c.push(TypeWelcome, &WelcomePayload{SessionID: c.sessionID, PlayerName: c.playerName})
	slog.Info("player joined", "session_id", c.sessionID, "player", c.playerName)
}

func (c *client) handleStart(raw json.RawMessage) {
	var p StartPayload
	if !c.decode(raw, &p) {
		return
	}

	if c.sessionID == "" {
		c.pushError(errors.FailedPrecondition("join before starting an encounter"))
		return
	}

	c.mu.Lock()
	running := c.encounterID != ""
	c.mu.Unlock()
	if running {
		c.pushError(errors.FailedPrecondition("an encounter is already running"))
		return
	}

	width := p.GridWidth
	if width <= 0 {
		width = defaultGridWidth
	}
	height := p.GridHeight
	if height <= 0 {
		height = defaultGridHeight
	}
	monsterName := strings.TrimSpace(p.MonsterName)
	if monsterName == "" {
		monsterName = defaultMonster
	}

	ctx := context.Background()
	created, err := c.handler.service.CreateEncounter(ctx, &encounter.CreateEncounterInput{
		GridWidth:  width,
		GridHeight: height,
		Combatants: []encounter.CombatantSpec{
			{
				Name:       c.playerName,
				Kind:       entities.KindPlayer,
				MaxHP:      defaultPlayerHP,
				Position:   grid.Coordinate{X: 1, Z: height / 2},
				Controller: encounter.ControllerExternal,
			},
			{
				Name:       monsterName,
				Kind:       entities.KindMonster,
				MaxHP:      defaultMonsterHP,
				Position:   grid.Coordinate{X: width - 2, Z: height / 2},
				Controller: encounter.ControllerBot,
			},
		},
	})
	if err != nil {
		c.pushError(err)
		return
	}

	playerID := created.CombatantIDs[0]
	var session *PlayerSession
	_, err = c.handler.service.BindActor(ctx, &encounter.BindActorInput{
		EncounterID: created.EncounterID,
		CombatantID: playerID,
		Bind: func(b *encounter.Binding) (engine.Actor, error) {
			s, bindErr := NewPlayerSession(&PlayerSessionConfig{
				Combatant: b.Combatant,
				Factory:   b.Factory,
				Lookup:    b.Lookup,
				Send:      c.enqueue,
			})
			if bindErr != nil {
				return nil, bindErr
			}
			session = s
			return s, nil
		},
	})
	if err != nil {
		c.pushError(err)
		if _, endErr := c.handler.service.EndEncounter(ctx, &encounter.EndEncounterInput{EncounterID: created.EncounterID}); endErr != nil {
			slog.Warn("failed to end encounter after bind failure", "encounter_id", created.EncounterID, "error", endErr)
		}
		return
	}

	subIDs := c.subscribe(created.EncounterID)

	loopCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.encounterID = created.EncounterID
	c.combatantID = playerID
	c.session = session
	c.subIDs = subIDs
	c.cancelLoop = cancel
	c.mu.Unlock()

	c.push(TypeState, &StatePayload{You: playerID, Snapshot: created.Snapshot})
	slog.Info("encounter started",
		"session_id", c.sessionID,
		"encounter_id", created.EncounterID,
		"player_id", playerID,
	)

	go c.runEncounter(loopCtx, created.EncounterID)
}

// subscribe forwards this encounter's cue and damage events to the
// client. Handlers run inside Publish on the executing goroutine, so
// they only enqueue.
func (c *client) subscribe(encounterID string) []string {
	cueSub := c.handler.bus.SubscribeFunc(cues.TopicCue, 0, func(_ context.Context, e events.Event) error {
		if !eventFor(e, encounterID) {
			return nil
		}
		c.push(TypeCue, cuePayloadFrom(e))
		return nil
	})
	damageSub := c.handler.bus.SubscribeFunc(cues.TopicDamage, 0, func(_ context.Context, e events.Event) error {
		if !eventFor(e, encounterID) {
			return nil
		}
		c.push(TypeDamage, damagePayloadFrom(e))
		return nil
	})
	return []string{cueSub, damageSub}
}

// runEncounter drives turns until the fight resolves or the connection
// goes away. ExecuteTurn blocks on the player's own prompts, so one
// sequential loop is enough.
func (c *client) runEncounter(ctx context.Context, encounterID string) {
	for {
		out, err := c.handler.service.ExecuteTurn(ctx, &encounter.ExecuteTurnInput{EncounterID: encounterID})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("turn execution failed", "encounter_id", encounterID, "error", err)
			c.pushError(err)
			c.closeWith(err)
			return
		}

		c.push(TypeTurn, &TurnPayload{Result: out.Result, Status: out.Status, Snapshot: out.Snapshot})

		if out.Status != encounters.StatusActive {
			winnerID, winnerKind := winner(out.Snapshot)
			c.push(TypeOver, &OverPayload{
				WinnerID:   winnerID,
				WinnerKind: winnerKind,
				Snapshot:   out.Snapshot,
			})
			c.finishEncounter(encounterID)
			return
		}
	}
}

func (c *client) handleQuit() {
	c.mu.Lock()
	encounterID := c.encounterID
	c.mu.Unlock()

	if encounterID == "" {
		c.pushError(errors.FailedPrecondition("no encounter to quit"))
		return
	}

	c.finishEncounter(encounterID)
	slog.Info("player quit encounter", "session_id", c.sessionID, "encounter_id", encounterID)
}

// finishEncounter detaches the client from its encounter and releases it
// on the service. Safe to call from either the read pump or the
// encounter loop; whichever arrives second finds nothing to do.
func (c *client) finishEncounter(encounterID string) {
	c.mu.Lock()
	if c.encounterID != encounterID {
		c.mu.Unlock()
		return
	}
	cancel := c.cancelLoop
	subs := c.subIDs
	c.encounterID = ""
	c.combatantID = ""
	c.session = nil
	c.subIDs = nil
	c.cancelLoop = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, id := range subs {
		if err := c.handler.bus.Unsubscribe(id); err != nil {
			slog.Warn("failed to unsubscribe", "subscription_id", id, "error", err)
		}
	}

	if _, err := c.handler.service.EndEncounter(context.Background(), &encounter.EndEncounterInput{EncounterID: encounterID}); err != nil && !errors.IsNotFound(err) {
		slog.Warn("failed to end encounter", "encounter_id", encounterID, "error", err)
	}
}

// teardown releases any running encounter when the connection drops.
func (c *client) teardown() {
	c.mu.Lock()
	encounterID := c.encounterID
	c.mu.Unlock()

	if encounterID != "" {
		c.finishEncounter(encounterID)
	}
}

func (c *client) withSession(fn func(*PlayerSession)) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		c.pushError(errors.FailedPrecondition("no encounter in progress"))
		return
	}
	fn(session)
}

func (c *client) decode(raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.pushError(errors.InvalidArgument("malformed payload"))
		return false
	}
	return true
}

// enqueue hands an envelope to the write pump without blocking. A client
// that cannot keep up loses presentation messages, not the connection.
func (c *client) enqueue(env Envelope) {
	select {
	case c.send <- env:
	default:
		slog.Warn("send buffer full, dropping message", "session_id", c.sessionID, "type", env.Type)
	}
}

func (c *client) push(msgType string, payload any) {
	env, err := NewEnvelope(msgType, payload)
	if err != nil {
		slog.Warn("failed to encode message", "type", msgType, "error", err)
		return
	}
	c.enqueue(env)
}

func (c *client) pushError(err error) {
	c.push(TypeError, &ErrorPayload{
		Code:    errors.GetCode(err).String(),
		Message: errors.GetMessage(err),
	})
}

// closeWith asks the write pump to close the connection with a close
// code matching the error.
func (c *client) closeWith(err error) {
	select {
	case c.closeC <- errors.WSCloseCode(err):
	default:
	}
}

func eventFor(e events.Event, encounterID string) bool {
	v, ok := e.Context().Get(cues.KeyEncounterID)
	return ok && v == encounterID
}

func cuePayloadFrom(e events.Event) *CuePayload {
	p := &CuePayload{}
	if v, ok := e.Context().Get(cues.KeyCueID); ok {
		p.CueID, _ = v.(string)
	}
	if v, ok := e.Context().Get(cues.KeyKind); ok {
		p.Kind, _ = v.(string)
	}
	if v, ok := e.Context().Get(cues.KeyAnimation); ok {
		p.Animation, _ = v.(string)
	}
	if v, ok := e.Context().Get(cues.KeyDurationMS); ok {
		p.DurationMS, _ = v.(int64)
	}
	if src := e.Source(); src != nil {
		p.SourceID = src.GetID()
	}
	if tgt := e.Target(); tgt != nil {
		p.TargetID = tgt.GetID()
	}
	return p
}

func damagePayloadFrom(e events.Event) *DamagePayload {
	p := &DamagePayload{}
	if v, ok := e.Context().Get(cues.KeyAction); ok {
		p.Action, _ = v.(string)
	}
	if v, ok := e.Context().Get(cues.KeyAmount); ok {
		p.Amount, _ = v.(int)
	}
	if src := e.Source(); src != nil {
		p.SourceID = src.GetID()
	}
	if tgt := e.Target(); tgt != nil {
		p.TargetID = tgt.GetID()
	}
	return p
}

// winner reports the first combatant still standing. Complete encounters
// have exactly one side left.
func winner(snapshot *encounters.EncounterSnapshot) (string, string) {
	if snapshot == nil {
		return "", ""
	}
	for _, combatant := range snapshot.Combatants {
		if !combatant.Defeated {
			return combatant.ID, combatant.Kind
		}
	}
	return "", ""
}
