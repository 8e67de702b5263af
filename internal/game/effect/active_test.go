package effect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/combatsim/internal/game/action"
	"github.com/cory-johannsen/combatsim/internal/game/effect"
)

type dummy struct {
	hp int
	st *effect.State
}

func newDummy(hp int) *dummy { return &dummy{hp: hp, st: effect.NewState()} }

func (d *dummy) Name() string            { return "dummy" }
func (d *dummy) Effects() *effect.State { return d.st }
func (d *dummy) TakeDamage(n int) int {
	if n > d.hp {
		n = d.hp
	}
	d.hp -= n
	return n
}

func engine() *effect.Engine { return effect.NewEngine(effect.DefaultConfig()) }

func TestApply_PoisonDecaysOneStackPerTick(t *testing.T) {
	e := engine()
	d := newDummy(100)
	def := &action.Definition{Name: "fang", Effects: action.StatusEffects{Poison: true}}

	applied := e.Apply(def, d)
	assert.Equal(t, []string{"poison"}, applied)
	assert.Equal(t, 1, d.st.Stacks(effect.Poison))

	for i := 0; i < 3; i++ {
		e.Tick(d)
	}
	assert.Equal(t, 0, d.st.Stacks(effect.Poison))
	assert.False(t, d.st.Has(effect.Poison))
	// One tick at one stack, then nothing left to tick.
	assert.Equal(t, 96, d.hp)
}

func TestTick_StackDamageScalesWithStacks(t *testing.T) {
	e := engine()
	d := newDummy(100)
	def := &action.Definition{Name: "flame", Effects: action.StatusEffects{Burn: true, Stacks: 3}}
	e.Apply(def, d)

	notes := e.Tick(d)
	require.Len(t, notes, 1)
	assert.Equal(t, effect.Burn, notes[0].Kind)
	assert.Equal(t, 9, notes[0].Damage)
	assert.False(t, notes[0].Expired)
	assert.Equal(t, 2, d.st.Stacks(effect.Burn))

	e.Tick(d)
	notes = e.Tick(d)
	require.Len(t, notes, 1)
	assert.Equal(t, 3, notes[0].Damage)
	assert.True(t, notes[0].Expired)
	assert.Equal(t, 100-9-6-3, d.hp)
}

func TestApply_StacksAccumulate(t *testing.T) {
	e := engine()
	d := newDummy(100)
	def := &action.Definition{Name: "fang", Effects: action.StatusEffects{Poison: true, Stacks: 2}}
	e.Apply(def, d)
	e.Apply(def, d)
	assert.Equal(t, 4, d.st.Stacks(effect.Poison))
}

func TestApply_StacksCapped(t *testing.T) {
	e := effect.NewEngine(effect.Config{MaxStacks: 5})
	d := newDummy(100)
	def := &action.Definition{Name: "fang", Effects: action.StatusEffects{Bleed: true, Stacks: 4}}
	e.Apply(def, d)
	e.Apply(def, d)
	assert.Equal(t, 5, d.st.Stacks(effect.Bleed))
}

func TestApply_TimedDefaultsAndOverrides(t *testing.T) {
	e := engine()
	d := newDummy(100)
	e.Apply(&action.Definition{Name: "hex", Effects: action.StatusEffects{Weaken: true, Slow: true}}, d)
	assert.Equal(t, 3, d.st.Remaining(effect.Weaken))
	assert.Equal(t, 3, d.st.Remaining(effect.Slow))

	e.Apply(&action.Definition{Name: "long-hex", Effects: action.StatusEffects{Weaken: true, Duration: 5}}, d)
	assert.Equal(t, 5, d.st.Remaining(effect.Weaken))

	// Re-applying a shorter duration never shortens the effect.
	e.Apply(&action.Definition{Name: "hex", Effects: action.StatusEffects{Weaken: true}}, d)
	assert.Equal(t, 5, d.st.Remaining(effect.Weaken))

	e.Apply(&action.Definition{Name: "bash", Effects: action.StatusEffects{Stun: true}, Advanced: action.Advanced{StunDuration: 2}}, d)
	assert.Equal(t, 2, d.st.Remaining(effect.Stun))
	assert.True(t, effect.IsStunned(d.st))
}

func TestApply_MultipleEffectsApplyIndependently(t *testing.T) {
	e := engine()
	d := newDummy(100)
	def := &action.Definition{Name: "storm", Effects: action.StatusEffects{Burn: true, Stun: true, Expose: true}}
	applied := e.Apply(def, d)
	assert.Equal(t, []string{"burn", "stun", "expose"}, applied)
	assert.ElementsMatch(t, []effect.Kind{effect.Burn, effect.Stun, effect.Expose}, d.st.ActiveKinds())
}

func TestApply_CleanseRemovesNegativesOnly(t *testing.T) {
	e := engine()
	d := newDummy(100)
	e.Apply(&action.Definition{Name: "hex", Effects: action.StatusEffects{Poison: true, Weaken: true, Harden: true}}, d)

	applied := e.Apply(&action.Definition{Name: "purify", Effects: action.StatusEffects{Cleanse: true, Focus: true}}, d)
	assert.Equal(t, []string{"cleanse", "focus"}, applied)
	assert.False(t, d.st.Has(effect.Poison))
	assert.False(t, d.st.Has(effect.Weaken))
	assert.True(t, d.st.Has(effect.Harden))
	assert.True(t, d.st.Has(effect.Focus))
}

func TestTick_TimedExpiryNotification(t *testing.T) {
	e := engine()
	d := newDummy(100)
	e.Apply(&action.Definition{Name: "hex", Effects: action.StatusEffects{Silence: true, Duration: 1}}, d)
	notes := e.Tick(d)
	require.Len(t, notes, 1)
	assert.Equal(t, effect.Notification{Kind: effect.Silence, Expired: true}, notes[0])
	assert.Equal(t, "silence wears off", notes[0].String())
}

func TestPropertyApplyThenTick_DecrementsDurationByOne(t *testing.T) {
	timed := []effect.Kind{}
	for _, k := range effect.Kinds() {
		if !effect.Lookup(k).Stacking {
			timed = append(timed, k)
		}
	}
	rapid.Check(t, func(rt *rapid.T) {
		dur := rapid.IntRange(0, 10).Draw(rt, "duration")
		k := rapid.SampledFrom(timed).Draw(rt, "kind")
		e := engine()
		d := newDummy(100)
		e.ApplyKind(d, k, max(dur, 1))
		before := d.st.Remaining(k)
		e.Tick(d)
		after := d.st.Remaining(k)
		assert.Equal(rt, before-1, after)
		assert.GreaterOrEqual(rt, after, 0)
	})
}

func TestPropertyTick_CountersNeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		e := engine()
		d := newDummy(rapid.IntRange(0, 200).Draw(rt, "hp"))
		for _, k := range effect.Kinds() {
			if rapid.Bool().Draw(rt, "on") {
				e.ApplyKind(d, k, rapid.IntRange(1, 6).Draw(rt, "amount"))
			}
		}
		ticks := rapid.IntRange(0, 12).Draw(rt, "ticks")
		for i := 0; i < ticks; i++ {
			e.Tick(d)
		}
		for _, k := range effect.Kinds() {
			got := d.st.Get(k)
			assert.GreaterOrEqual(rt, got.Stacks, 0)
			assert.GreaterOrEqual(rt, got.RemainingTurns, 0)
		}
		assert.GreaterOrEqual(rt, d.hp, 0)
	})
}

func TestModifiers(t *testing.T) {
	e := engine()
	st := effect.NewState()
	assert.Equal(t, 1.0, e.IncomingDamageMultiplier(st))
	assert.Equal(t, 4, e.EffectiveArmor(st, 4))

	st.Set(effect.Weaken, effect.Entry{RemainingTurns: 2})
	assert.InDelta(t, 1.5, e.IncomingDamageMultiplier(st), 1e-9)

	st.Set(effect.Fortify, effect.Entry{RemainingTurns: 2})
	st.Set(effect.Expose, effect.Entry{RemainingTurns: 2})
	assert.Equal(t, 3, e.EffectiveArmor(st, 4))

	st.Set(effect.Pierce, effect.Entry{RemainingTurns: 1})
	assert.Equal(t, 0, e.EffectiveArmor(st, 4))

	st.Set(effect.Focus, effect.Entry{RemainingTurns: 1})
	assert.Equal(t, 2, e.RollBonus(st))
	assert.Equal(t, 1.0, e.LengthMultiplier(st))
}
