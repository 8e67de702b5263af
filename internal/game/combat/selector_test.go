package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/combatsim/internal/game/action"
	"github.com/cory-johannsen/combatsim/internal/game/combat"
	"github.com/cory-johannsen/combatsim/internal/game/effect"
)

var basic = &action.Definition{Name: "strike", Type: action.TypeAttack, BaseValue: 5}

func comboAction(name string) *action.Definition {
	return &action.Definition{Name: name, Type: action.TypeAttack, BaseValue: 8, IsCombo: true}
}

func newFighter(name string, hp int, seq ...*action.Definition) *combat.Combatant {
	return combat.NewCombatant(combat.Snapshot{
		Name:         name,
		MaxHealth:    hp,
		Stats:        combat.Stats{Strength: 5},
		BasicAttack:  basic,
		ComboActions: seq,
	})
}

func situation(actor, target *combat.Combatant, total int) combat.Situation {
	return combat.Situation{Actor: actor, Target: target, Turn: 3, TotalRoll: total}
}

type mapConditions map[string]bool

func (m mapConditions) Evaluate(name string, _ combat.Situation) (bool, bool) {
	v, ok := m[name]
	return v, ok
}

func TestSelectAction_MissResetsCombo(t *testing.T) {
	a := newFighter("a", 50, comboAction("c1"), comboAction("c2"))
	d := newFighter("d", 50)
	a.Combo.Slot, a.Combo.Count = 1, 3

	sel := combat.NewSelector(nil).SelectAction(combat.Outcome{Kind: combat.Miss}, situation(a, d, 3), &a.Combo, a.Pool())

	assert.Nil(t, sel.Action)
	assert.Equal(t, 0, a.Combo.Slot)
	assert.Equal(t, 0, a.Combo.Count)
}

func TestSelectAction_HitUsesBasicAttack(t *testing.T) {
	a := newFighter("a", 50, comboAction("c1"))
	d := newFighter("d", 50)
	a.Combo.Slot = 0

	sel := combat.NewSelector(nil).SelectAction(combat.Outcome{Kind: combat.Hit, Multiplier: 1}, situation(a, d, 10), &a.Combo, a.Pool())

	assert.Same(t, basic, sel.Action)
	assert.Equal(t, -1, sel.Slot)
	assert.False(t, sel.FromSequence)
}

func TestSelectAction_CriticalStartsAtSlotZero(t *testing.T) {
	c1, c2 := comboAction("c1"), comboAction("c2")
	a := newFighter("a", 50, c1, c2)
	d := newFighter("d", 50)

	total, out := combat.ResolveRoll(20, 0, action.RollModifiers{}, fixedSrc{})
	sel := combat.NewSelector(nil).SelectAction(out, situation(a, d, total), &a.Combo, a.Pool())

	require.Equal(t, combat.CriticalHit, out.Kind)
	assert.Same(t, c1, sel.Action)
	assert.Equal(t, 0, sel.Slot)
	assert.Equal(t, 2.0, out.Multiplier)
}

func TestSelectAction_EmptySequenceFallsBack(t *testing.T) {
	a := newFighter("a", 50)
	d := newFighter("d", 50)
	sel := combat.NewSelector(nil).SelectAction(combat.Outcome{Kind: combat.Combo, Multiplier: 1}, situation(a, d, 15), &a.Combo, a.Pool())
	assert.Same(t, basic, sel.Action)
}

func TestSelectAction_SilencedFallsBack(t *testing.T) {
	a := newFighter("a", 50, comboAction("c1"))
	d := newFighter("d", 50)
	effect.NewEngine(effect.DefaultConfig()).ApplyKind(a, effect.Silence, 2)

	sel := combat.NewSelector(nil).SelectAction(combat.Outcome{Kind: combat.Combo, Multiplier: 1}, situation(a, d, 15), &a.Combo, a.Pool())
	assert.Same(t, basic, sel.Action)
}

func TestSelectAction_BuiltinConditionGates(t *testing.T) {
	finisher := comboAction("finisher")
	finisher.Triggers.Conditions = []string{"target_below_30"}
	opener := comboAction("opener")
	a := newFighter("a", 50, finisher, opener)
	d := newFighter("d", 100)
	out := combat.Outcome{Kind: combat.Combo, Multiplier: 1}
	sel := combat.NewSelector(nil)

	got := sel.SelectAction(out, situation(a, d, 15), &a.Combo, a.Pool())
	assert.Same(t, opener, got.Action, "finisher is gated while the target is healthy")

	d.TakeDamage(80)
	got = sel.SelectAction(out, situation(a, d, 15), &a.Combo, a.Pool())
	assert.Same(t, finisher, got.Action)
}

func TestSelectAction_CustomConditions(t *testing.T) {
	gated := comboAction("gated")
	gated.Triggers.Conditions = []string{"moon_is_full"}
	fallback := comboAction("fallback")
	a := newFighter("a", 50, gated, fallback)
	d := newFighter("d", 50)
	out := combat.Outcome{Kind: combat.Combo, Multiplier: 1}

	got := combat.NewSelector(mapConditions{"moon_is_full": true}).SelectAction(out, situation(a, d, 15), &a.Combo, a.Pool())
	assert.Same(t, gated, got.Action)

	got = combat.NewSelector(nil).SelectAction(out, situation(a, d, 15), &a.Combo, a.Pool())
	assert.Same(t, fallback, got.Action, "unknown conditions are false")
}

func TestSelectAction_ExactRollWinsOutright(t *testing.T) {
	normal := comboAction("normal")
	lucky := comboAction("lucky")
	lucky.Triggers.ExactRollValue = 17
	a := newFighter("a", 50, normal, lucky)
	d := newFighter("d", 50)
	out := combat.Outcome{Kind: combat.Combo, Multiplier: 1}
	sel := combat.NewSelector(nil)

	got := sel.SelectAction(out, situation(a, d, 17), &a.Combo, a.Pool())
	assert.Same(t, lucky, got.Action)
	assert.Equal(t, 1, got.Slot)

	a.Combo.Slot = 1
	got = sel.SelectAction(out, situation(a, d, 16), &a.Combo, a.Pool())
	assert.Same(t, normal, got.Action, "exact-roll actions are skipped on other totals")
}

func TestSelectAction_RequiredTag(t *testing.T) {
	tagged := comboAction("tagged")
	tagged.Triggers.RequiredTag = "berserker"
	plain := comboAction("plain")
	d := newFighter("d", 50)
	out := combat.Outcome{Kind: combat.Combo, Multiplier: 1}

	a := newFighter("a", 50, tagged, plain)
	got := combat.NewSelector(nil).SelectAction(out, situation(a, d, 15), &a.Combo, a.Pool())
	assert.Same(t, plain, got.Action)

	b := combat.NewCombatant(combat.Snapshot{Name: "b", MaxHealth: 50, Tags: []string{"berserker"}, BasicAttack: basic, ComboActions: []*action.Definition{tagged, plain}})
	got = combat.NewSelector(nil).SelectAction(out, situation(b, d, 15), &b.Combo, b.Pool())
	assert.Same(t, tagged, got.Action)
}

func TestSelectAction_SlotGate(t *testing.T) {
	late := comboAction("late")
	late.Routing.TriggerOnlyInSlot = 2
	first := comboAction("first")
	a := newFighter("a", 50, late, first)
	d := newFighter("d", 50)
	out := combat.Outcome{Kind: combat.Combo, Multiplier: 1}
	sel := combat.NewSelector(nil)

	got := sel.SelectAction(out, situation(a, d, 15), &a.Combo, a.Pool())
	assert.Same(t, first, got.Action)
}

func TestSelectAction_DisabledSlotSkipped(t *testing.T) {
	c1, c2 := comboAction("c1"), comboAction("c2")
	a := newFighter("a", 50, c1, c2)
	d := newFighter("d", 50)
	a.Combo.Disable(0)

	got := combat.NewSelector(nil).SelectAction(combat.Outcome{Kind: combat.Combo, Multiplier: 1}, situation(a, d, 15), &a.Combo, a.Pool())
	assert.Same(t, c2, got.Action)
}

func TestSelectAction_AllSlotsDisabledFallsBackToBasic(t *testing.T) {
	exact := comboAction("lucky")
	exact.Triggers.ExactRollValue = 15
	a := newFighter("a", 50, comboAction("c1"), exact, comboAction("c3"))
	d := newFighter("d", 50)
	for i := range a.Pool().Sequence {
		a.Combo.Disable(i)
	}
	a.Combo.Slot = 2
	sel := combat.NewSelector(nil)

	for _, out := range []combat.Outcome{
		{Kind: combat.Combo, Multiplier: 1},
		{Kind: combat.CriticalHit, Multiplier: combat.CriticalMultiplier},
	} {
		got := sel.SelectAction(out, situation(a, d, 15), &a.Combo, a.Pool())
		assert.Equal(t, combat.Selection{Action: basic, Slot: -1}, got, out.Kind.String())
	}
	assert.Same(t, basic, sel.Peek(a, &a.Combo))
}

func TestPeek_FollowsPointer(t *testing.T) {
	c1, c2 := comboAction("c1"), comboAction("c2")
	a := newFighter("a", 50, c1, c2)
	sel := combat.NewSelector(nil)

	assert.Same(t, c1, sel.Peek(a, &a.Combo))
	a.Combo.Slot = 1
	assert.Same(t, c2, sel.Peek(a, &a.Combo))
	assert.Same(t, basic, sel.Peek(newFighter("b", 10), &combat.ComboState{}))
}

func TestPropertySelectAction_NilIffMiss(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 4).Draw(t, "n")
		seq := make([]*action.Definition, n)
		for i := range seq {
			seq[i] = comboAction("c")
		}
		a := newFighter("a", 50, seq...)
		d := newFighter("d", 50)
		if n > 0 {
			a.Combo.Slot = rapid.IntRange(0, n-1).Draw(t, "slot")
		}
		kind := combat.OutcomeKind(rapid.IntRange(0, 3).Draw(t, "kind"))

		sel := combat.NewSelector(nil).SelectAction(combat.Outcome{Kind: kind}, situation(a, d, 15), &a.Combo, a.Pool())
		if (sel.Action == nil) != (kind == combat.Miss) {
			t.Fatalf("kind %s selected %v", kind, sel.Action)
		}
	})
}
