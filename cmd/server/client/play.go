package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/KirkDiggler/tactics-api/internal/handlers/ws"
	"github.com/KirkDiggler/tactics-api/internal/repositories/encounters"
)

var (
	playerName  string
	monsterName string
	gridWidth   int
	gridHeight  int
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Fight a skirmish from the terminal",
	Long:  `Play connects to the server, starts a solo encounter against a bot, and drives your combatant from stdin.`,
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playerName, "name", "Adventurer", "your combatant's name")
	playCmd.Flags().StringVar(&monsterName, "monster", "Skeleton", "opponent's name")
	playCmd.Flags().IntVar(&gridWidth, "width", 10, "grid width")
	playCmd.Flags().IntVar(&gridHeight, "height", 10, "grid height")
}

func runPlay(_ *cobra.Command, _ []string) error {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, resp, err := dialer.Dial(serverURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", serverURL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() {
		_ = conn.Close()
	}()

	game := &table{
		conn:  conn,
		stdin: bufio.NewScanner(os.Stdin),
		names: make(map[string]string),
	}
	return game.run()
}

// table plays the whole protocol on one goroutine. The server asks one
// question at a time, so reads and stdin prompts alternate cleanly.
type table struct {
	conn  *websocket.Conn
	stdin *bufio.Scanner

	you   string
	names map[string]string
}

func (t *table) run() error {
	if err := t.send(ws.TypeJoin, &ws.JoinPayload{PlayerName: playerName}); err != nil {
		return err
	}

	for {
		var env ws.Envelope
		if err := t.conn.ReadJSON(&env); err != nil {
			return fmt.Errorf("connection lost: %w", err)
		}

		done, err := t.handle(env)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (t *table) handle(env ws.Envelope) (bool, error) {
	switch env.Type {
	case ws.TypeWelcome:
		var p ws.WelcomePayload
		if err := decode(env, &p); err != nil {
			return false, err
		}
		fmt.Printf("Welcome, %s (session %s)\n", p.PlayerName, p.SessionID)
		return false, t.send(ws.TypeStart, &ws.StartPayload{
			GridWidth:   gridWidth,
			GridHeight:  gridHeight,
			MonsterName: monsterName,
		})

	case ws.TypeState:
		var p ws.StatePayload
		if err := decode(env, &p); err != nil {
			return false, err
		}
		t.you = p.You
		t.printRoster(p.Snapshot)

	case ws.TypePromptAction:
		var p ws.PromptActionPayload
		if err := decode(env, &p); err != nil {
			return false, err
		}
		fmt.Printf("Your move. Options: %s, %s\n", strings.Join(p.Actions, ", "), ws.ActionPass)
		name, err := t.prompt("action> ")
		if err != nil {
			return false, err
		}
		return false, t.send(ws.TypeAction, &ws.ActionPayload{Name: name})

	case ws.TypePromptTarget:
		for id, name := range t.names {
			if id != t.you {
				fmt.Printf("Target %s with id %s\n", name, id)
			}
		}
		id, err := t.prompt("target id> ")
		if err != nil {
			return false, err
		}
		return false, t.send(ws.TypeTarget, &ws.TargetPayload{EntityID: id})

	case ws.TypePromptSquare:
		square, err := t.promptSquare()
		if err != nil {
			return false, err
		}
		return false, t.send(ws.TypeSquare, square)

	case ws.TypeCue:
		var p ws.CuePayload
		if err := decode(env, &p); err != nil {
			return false, err
		}
		fmt.Printf("  * %s plays %s\n", t.name(p.SourceID), p.Animation)
		// No animations to wait out in a terminal.
		return false, t.send(ws.TypeCueDone, &ws.CueDonePayload{CueID: p.CueID})

	case ws.TypeDamage:
		var p ws.DamagePayload
		if err := decode(env, &p); err != nil {
			return false, err
		}
		fmt.Printf("  * %s hits %s for %d\n", t.name(p.SourceID), t.name(p.TargetID), p.Amount)

	case ws.TypeTurn:
		var p ws.TurnPayload
		if err := decode(env, &p); err != nil {
			return false, err
		}
		t.printTurn(&p)

	case ws.TypeOver:
		var p ws.OverPayload
		if err := decode(env, &p); err != nil {
			return false, err
		}
		if p.WinnerID == t.you {
			fmt.Println("\nVictory!")
		} else {
			fmt.Printf("\nDefeat. %s wins.\n", t.name(p.WinnerID))
		}
		return true, nil

	case ws.TypeError:
		var p ws.ErrorPayload
		if err := decode(env, &p); err != nil {
			return false, err
		}
		fmt.Printf("! %s (%s)\n", p.Message, p.Code)

	case ws.TypeAnimation:
		// Idle and walk loops are noise in a text client.
	}

	return false, nil
}

func (t *table) printRoster(snapshot *encounters.EncounterSnapshot) {
	if snapshot == nil {
		return
	}
	fmt.Printf("\nEncounter %s, round %d\n", snapshot.ID, snapshot.Round)
	for _, combatant := range snapshot.Combatants {
		t.names[combatant.ID] = combatant.Name
		marker := " "
		if combatant.ID == t.you {
			marker = ">"
		}
		position := "off the grid"
		if combatant.Position != nil {
			position = combatant.Position.String()
		}
		fmt.Printf("%s %s [%s] HP %d/%d at %s\n",
			marker, combatant.Name, combatant.ID, combatant.HP, combatant.MaxHP, position)
	}
	fmt.Println()
}

func (t *table) printTurn(turn *ws.TurnPayload) {
	if turn.Result != nil {
		actor := t.name(turn.Result.ActorID)
		switch {
		case turn.Result.Passed:
			fmt.Printf("-- %s passes\n", actor)
		case turn.Result.Forced:
			fmt.Printf("-- %s hesitates and %ss\n", actor, turn.Result.Action)
		default:
			fmt.Printf("-- %s resolves %s\n", actor, turn.Result.Action)
		}
		for _, rejection := range turn.Result.Rejections {
			fmt.Printf("   rejected: %s\n", rejection)
		}
	}
	t.printRoster(turn.Snapshot)
}

func (t *table) name(id string) string {
	if name, ok := t.names[id]; ok {
		return name
	}
	return id
}

func (t *table) prompt(label string) (string, error) {
	fmt.Print(label)
	if !t.stdin.Scan() {
		return "", fmt.Errorf("stdin closed")
	}
	return strings.TrimSpace(t.stdin.Text()), nil
}

func (t *table) promptSquare() (*ws.SquarePayload, error) {
	for {
		line, err := t.prompt("square (x z)> ")
		if err != nil {
			return nil, err
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			fmt.Println("enter two numbers, like: 4 7")
			continue
		}
		x, errX := strconv.Atoi(fields[0])
		z, errZ := strconv.Atoi(fields[1])
		if errX != nil || errZ != nil {
			fmt.Println("enter two numbers, like: 4 7")
			continue
		}
		return &ws.SquarePayload{X: x, Z: z}, nil
	}
}

func (t *table) send(msgType string, payload any) error {
	env, err := ws.NewEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return t.conn.WriteJSON(env)
}

func decode(env ws.Envelope, v any) error {
	if len(env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", env.Type, err)
	}
	return nil
}
