package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/combatsim/internal/game/action"
)

func testCombatant() *Combatant {
	return NewCombatant(Snapshot{Name: "t", MaxHealth: 20, Stats: Stats{Strength: 3}})
}

func TestNewCombatant_Defaults(t *testing.T) {
	c := testCombatant()
	assert.Equal(t, 20, c.Health())
	assert.Same(t, DefaultBasicAttack, c.Pool().Basic)
	assert.Equal(t, 1.0, c.speed)
	assert.Equal(t, 1.0, c.comboAmp)
}

func TestBonus_TurnsCountOwnTurnsOnly(t *testing.T) {
	c := testCombatant()
	c.AddBonus(Bonus{Key: BonusRoll, Value: 2, Turns: 1})
	assert.Equal(t, 2.0, c.Bonus(BonusRoll))

	c.beginTurn()
	assert.Equal(t, 2.0, c.Bonus(BonusRoll))
	c.endTurn()
	assert.Zero(t, c.Bonus(BonusRoll))
}

func TestBonus_AddedMidTurnSurvivesThatTurn(t *testing.T) {
	c := testCombatant()
	c.beginTurn()
	c.AddBonus(Bonus{Key: string(StatStrength), Value: 4, Turns: 1})
	c.endTurn()
	assert.Equal(t, 7, c.Stat(StatStrength))

	c.beginTurn()
	c.endTurn()
	assert.Equal(t, 3, c.Stat(StatStrength))
}

func TestBonus_Decay(t *testing.T) {
	c := testCombatant()
	c.AddBonus(Bonus{Key: BonusExtraDamage, Value: 6, Decay: 2})
	want := []float64{4, 2, 0}
	for _, w := range want {
		c.beginTurn()
		c.endTurn()
		assert.Equal(t, w, c.Bonus(BonusExtraDamage))
	}
}

func TestBonus_SameSourceRefreshes(t *testing.T) {
	c := testCombatant()
	for i := 0; i < 5; i++ {
		c.beginTurn()
		c.AddBonus(Bonus{Key: BonusExtraDamage, Value: 3, Source: "rage"})
		c.AddBonus(Bonus{Key: BonusDamageReduction, Value: 10, Source: "rage"})
		c.endTurn()
	}
	assert.Equal(t, 3.0, c.Bonus(BonusExtraDamage))
	assert.Equal(t, 10.0, c.Bonus(BonusDamageReduction))

	c.AddBonus(Bonus{Key: BonusExtraDamage, Value: 2, Source: "whetstone"})
	c.AddBonus(Bonus{Key: BonusExtraDamage, Value: 1})
	c.AddBonus(Bonus{Key: BonusExtraDamage, Value: 1})
	assert.Equal(t, 7.0, c.Bonus(BonusExtraDamage), "other sources and unsourced bonuses still stack")
}

func TestCooldown(t *testing.T) {
	c := testCombatant()
	act := &action.Definition{Name: "big", Cooldown: 1}
	c.startCooldown(act)
	require.True(t, c.OnCooldown(act))

	c.beginTurn()
	assert.True(t, c.OnCooldown(act), "blocked for the next own turn")
	c.endTurn()

	c.beginTurn()
	assert.False(t, c.OnCooldown(act))
}

func TestTrackAction_GrantsGroupBonus(t *testing.T) {
	c := testCombatant()
	setup := &action.Definition{Name: "setup", Type: action.TypeBuff, AttackBonuses: []action.AttackBonusGroup{{
		Keyword:       action.KeywordAttack,
		RequiredCount: 2,
		Bonuses:       []action.StatBonus{{Type: action.BonusHit, Value: 3}, {Type: action.BonusAccuracy, Value: 1}},
	}}}
	strike := &action.Definition{Name: "strike", Type: action.TypeAttack}
	guard := &action.Definition{Name: "guard", Type: action.TypeBuff}

	c.trackAction(setup)
	c.trackAction(guard)
	c.trackAction(strike)
	assert.Zero(t, c.Bonus(action.BonusHit))

	c.trackAction(strike)
	assert.Equal(t, 3.0, c.Bonus(action.BonusHit))
	assert.Equal(t, 1.0, c.Bonus(BonusRoll))
}

func TestTakeDamageAndHealClamp(t *testing.T) {
	c := testCombatant()
	assert.Equal(t, 20, c.TakeDamage(50))
	assert.True(t, c.IsDead())
	assert.Zero(t, c.TakeDamage(-3))
	assert.Equal(t, 20, c.Heal(40))
	assert.Equal(t, 20, c.Health())
}
