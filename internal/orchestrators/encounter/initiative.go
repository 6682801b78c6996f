package encounter

import (
	"sort"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/KirkDiggler/tactics-api/internal/errors"
	"github.com/KirkDiggler/tactics-api/internal/repositories/encounters"
)

// rollInitiative rolls a d20 for each combatant and orders them highest
// first. Equal rolls keep the order the combatants were listed in.
func rollInitiative(roller dice.Roller, ids []string) ([]encounters.InitiativeEntry, error) {
	entries := make([]encounters.InitiativeEntry, 0, len(ids))
	for _, id := range ids {
		roll, err := roller.Roll(20)
		if err != nil {
			return nil, errors.Wrapf(err, "rolling initiative for %s", id)
		}
		entries = append(entries, encounters.InitiativeEntry{ID: id, Roll: roll})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Roll > entries[j].Roll
	})

	return entries, nil
}

// initiativeTracker walks the turn order of one encounter. It is not
// safe for concurrent use; callers hold the encounter lock.
type initiativeTracker struct {
	order []string
	index int
	round int
}

func newInitiativeTracker(order []string) *initiativeTracker {
	return &initiativeTracker{
		order: order,
		round: 1,
	}
}

// Current returns the combatant whose turn it is, or "" when the order
// is empty.
func (t *initiativeTracker) Current() string {
	if len(t.order) == 0 {
		return ""
	}
	return t.order[t.index]
}

// Next advances to the following combatant and returns it. Wrapping past
// the end of the order starts a new round.
func (t *initiativeTracker) Next() string {
	if len(t.order) == 0 {
		return ""
	}
	t.index++
	if t.index >= len(t.order) {
		t.index = 0
		t.round++
	}
	return t.order[t.index]
}

// Round starts at 1 and increments each time the order wraps.
func (t *initiativeTracker) Round() int {
	return t.round
}

func (t *initiativeTracker) Len() int {
	return len(t.order)
}

// Order returns a copy of the remaining turn order.
func (t *initiativeTracker) Order() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Remove drops a combatant from the order. The current position keeps
// pointing at the same upcoming combatant.
func (t *initiativeTracker) Remove(id string) {
	for i, existing := range t.order {
		if existing != id {
			continue
		}
		t.order = append(t.order[:i], t.order[i+1:]...)
		if i < t.index {
			t.index--
		}
		if t.index >= len(t.order) {
			t.index = 0
		}
		return
	}
}
