package combat

import (
	"math"

	"github.com/cory-johannsen/combatsim/internal/game/action"
	"github.com/cory-johannsen/combatsim/internal/game/effect"
)

// Damage is the breakdown of one damage computation.
type Damage struct {
	// Raw is the pre-mitigation damage; self-damage is a percentage of it.
	Raw float64
	// Final is the damage to apply to the defender.
	Final int
}

// DamageCalculator computes damage and healing for executed actions.
type DamageCalculator struct {
	effects *effect.Engine
}

// NewDamageCalculator creates a DamageCalculator that reads status effect
// modifiers from effects.
//
// Precondition: effects must be non-nil.
func NewDamageCalculator(effects *effect.Engine) *DamageCalculator {
	return &DamageCalculator{effects: effects}
}

// StatFor returns the stat that scales actions of type t: Strength for
// attacks, Intelligence for spells, Technique for heals, buffs and debuffs.
func StatFor(t action.Type) StatType {
	switch t {
	case action.TypeSpell:
		return StatIntelligence
	case action.TypeHeal, action.TypeBuff, action.TypeDebuff:
		return StatTechnique
	default:
		return StatStrength
	}
}

// CalculateDamage returns the damage act deals from attacker to defender.
// See Compute for the formula.
//
// Postcondition: Result >= 0.
func (c *DamageCalculator) CalculateDamage(attacker, defender *Combatant, act *action.Definition, comboMultiplier, critMultiplier float64, armor, baseValue int) int {
	return c.Compute(attacker, defender, act, comboMultiplier, critMultiplier, armor, baseValue).Final
}

// Compute performs the damage pipeline:
//
//	raw   = (baseValue + stat) * damageMultiplier * combo * crit * multiHitShare
//	raw  *= outgoing status multiplier, and the conditional multiplier when gated
//	final = max(raw - armor, 0) * incoming status multiplier
//	final = (final + attacker extra damage) * (1 - defender damage reduction)
//
// Negative multipliers are treated as zero.
//
// Postcondition: Final >= 0 and Raw >= 0.
func (c *DamageCalculator) Compute(attacker, defender *Combatant, act *action.Definition, comboMultiplier, critMultiplier float64, armor, baseValue int) Damage {
	adv := act.Advanced

	raw := float64(baseValue + attacker.Stat(StatFor(act.Type)))
	raw *= nonNegative(act.EffectiveDamageMultiplier())
	raw *= nonNegative(comboMultiplier)
	raw *= nonNegative(critMultiplier)
	if adv.MultiHitCount > 1 && adv.MultiHitDamagePercent > 0 {
		raw *= adv.MultiHitDamagePercent
	}
	raw *= c.effects.OutgoingDamageMultiplier(attacker.Effects())
	if conditionalApplies(attacker, defender, adv) {
		raw *= nonNegative(adv.ConditionalDamageMultiplier)
	}
	raw = math.Max(raw, 0)

	final := math.Max(raw-float64(max(armor, 0)), 0)
	final *= c.effects.IncomingDamageMultiplier(defender.Effects())
	final += math.Max(attacker.Bonus(BonusExtraDamage), 0)

	reduction := math.Min(math.Max(defender.Bonus(BonusDamageReduction), 0), 100)
	final *= 1 - reduction/100

	return Damage{Raw: raw, Final: int(math.Floor(final))}
}

// CalculateHealing returns the health an action restores to its actor:
// Advanced.HealAmount when set, otherwise the scaled base value for heal
// actions, otherwise zero.
//
// Postcondition: Result >= 0.
func (c *DamageCalculator) CalculateHealing(actor *Combatant, act *action.Definition, critMultiplier float64) int {
	if act.Advanced.HealAmount > 0 {
		return act.Advanced.HealAmount
	}
	if act.Type != action.TypeHeal {
		return 0
	}
	amount := float64(act.BaseValue+actor.Stat(StatTechnique)) * act.EffectiveDamageMultiplier() * nonNegative(critMultiplier)
	return max(int(math.Floor(amount)), 0)
}

// SelfDamage returns the damage an action inflicts on its own actor, as
// SelfDamagePercent of the raw damage dealt.
//
// Postcondition: Result >= 0.
func SelfDamage(act *action.Definition, raw float64) int {
	pct := act.Advanced.SelfDamagePercent
	if pct <= 0 || raw <= 0 {
		return 0
	}
	return int(math.Floor(raw * pct / 100))
}

// conditionalApplies reports whether the conditional multiplier's gates hold.
// At least one gate must be configured, and every configured gate must hold.
func conditionalApplies(attacker, defender *Combatant, adv action.Advanced) bool {
	if adv.ConditionalDamageMultiplier == 0 {
		return false
	}
	gated := false
	if adv.HealthThreshold > 0 {
		gated = true
		if defender.HealthFraction() > adv.HealthThreshold {
			return false
		}
	}
	if adv.StatThreshold > 0 {
		gated = true
		if attacker.Stat(StatType(adv.StatThresholdType)) < adv.StatThreshold {
			return false
		}
	}
	return gated
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
