package combat

import (
	"fmt"
	"math"
	"strings"

	"github.com/cory-johannsen/combatsim/internal/game/action"
	"github.com/cory-johannsen/combatsim/internal/game/dice"
	"github.com/cory-johannsen/combatsim/internal/game/effect"
)

// TurnEvent records what happened during one turn.
type TurnEvent struct {
	Turn       int
	Actor      string
	Target     string
	Skipped    bool
	SkipReason string

	BaseRoll  int
	TotalRoll int
	Outcome   Outcome

	Action     string // empty when nothing executed
	Slot       int    // combo slot, -1 for the basic attack
	Hits       int
	SelfAttack bool

	Damage     int
	Healing    int
	SelfDamage int
	Reflected  int
	Effects    []string
	// Ticks lists status-effect notifications from the end of the turn.
	Ticks []string

	Narrative string
	// Cost is the scheduling time the turn consumed.
	Cost float64

	executed *action.Definition
}

// takeTurn runs one turn for actor against target: stun and skip checks,
// roll, selection, execution, and combo advancement. Status effects are
// ticked by the caller.
//
// Precondition: neither combatant is dead.
func (e *encounter) takeTurn(actor, target *Combatant) (ev TurnEvent) {
	ev = TurnEvent{Turn: e.turn, Actor: actor.Name(), Target: target.Name(), Slot: -1}
	actor.beginTurn()
	defer func() {
		ev.Cost = e.cost(actor, ev.executed)
		actor.endTurn()
	}()

	if effect.IsStunned(actor.Effects()) {
		ev.Skipped, ev.SkipReason = true, "stunned"
		ev.Narrative = fmt.Sprintf("%s is stunned and loses the turn.", actor.Name())
		return ev
	}
	if actor.skipNext {
		actor.skipNext = false
		ev.Skipped, ev.SkipReason = true, "recovering"
		ev.Narrative = fmt.Sprintf("%s is recovering and loses the turn.", actor.Name())
		return ev
	}

	pending := e.selector.Peek(actor, &actor.Combo)
	mods := pending.Roll
	mods.HitThresholdAdjustment -= int(actor.Bonus(action.BonusHit))
	mods.ComboThresholdAdjustment -= int(actor.Bonus(action.BonusCombo))
	mods.CriticalThresholdAdjustment -= int(actor.Bonus(action.BonusCrit))

	bonus := actor.rollBonus +
		int(actor.Bonus(BonusRoll)) +
		e.sim.effects.RollBonus(actor.Effects()) +
		actor.Combo.consumeBonus()

	ev.BaseRoll = e.roller.D20()
	total, out := e.resolver.Resolve(ev.BaseRoll, bonus, mods)
	if actor.guaranteeNext {
		actor.guaranteeNext = false
		if out.Kind == Miss || out.Kind == Hit {
			out = Outcome{Kind: Combo, Multiplier: 1.0, Natural: out.Natural}
		}
	}
	ev.TotalRoll, ev.Outcome = total, out

	sit := Situation{Actor: actor, Target: target, Turn: e.turn, TotalRoll: total}
	sel := e.selector.SelectAction(out, sit, &actor.Combo, actor.Pool())
	if sel.Action == nil {
		verb := "misses"
		if out.Fumble {
			verb = "fumbles"
		}
		ev.Narrative = fmt.Sprintf("%s %s %s (roll %d).", actor.Name(), verb, target.Name(), total)
		return ev
	}

	e.execute(&ev, actor, target, sel, out)
	actor.Combo.Advance(sel, len(actor.Pool().Sequence), e.src)
	ev.Narrative = narrate(ev)
	return ev
}

func (e *encounter) execute(ev *TurnEvent, actor, target *Combatant, sel Selection, out Outcome) {
	act := sel.Action
	adv := act.Advanced
	ev.Action, ev.Slot, ev.executed = act.Name, sel.Slot, act

	comboMult := 1.0
	if sel.FromSequence {
		amp := actor.comboAmp
		if adv.ComboAmplifierMultiplier > 0 {
			amp *= adv.ComboAmplifierMultiplier
		}
		comboMult = math.Pow(amp, float64(sel.Slot))
	}

	victim := target
	if adv.SelfAttackChance > 0 && dice.Chance(e.src, adv.SelfAttackChance) {
		victim = actor
		ev.SelfAttack = true
	}

	e.land(ev, actor, victim, act, comboMult, out.Multiplier)
	if adv.RepeatLastAction && actor.lastAction != nil && actor.lastAction != act && !target.IsDead() {
		e.land(ev, actor, target, actor.lastAction, 1.0, out.Multiplier)
	}
	applyAdvanced(actor, target, act)

	actor.trackAction(act)
	actor.startCooldown(act)
	actor.lastAction = act
}

// land applies healing, damage and status effects of act.
func (e *encounter) land(ev *TurnEvent, actor, victim *Combatant, act *action.Definition, comboMult, critMult float64) {
	if act.Type == action.TypeHeal || act.Advanced.HealAmount > 0 {
		ev.Healing += actor.Heal(e.sim.damage.CalculateHealing(actor, act, critMult))
	}

	if dealsDamage(act) {
		raw := 0.0
		for i := 0; i < act.Advanced.HitCount() && !victim.IsDead(); i++ {
			armor := e.sim.effects.EffectiveArmor(victim.Effects(), victim.Armor())
			d := e.sim.damage.Compute(actor, victim, act, comboMult, critMult, armor, act.BaseValue)
			raw += d.Raw
			dealt := victim.TakeDamage(d.Final)
			ev.Hits++
			if victim == actor {
				ev.SelfDamage += dealt
				continue
			}
			ev.Damage += dealt
			actor.damageDealt += dealt
			if f := e.sim.effects.ReflectFraction(victim.Effects()); f > 0 && dealt > 0 {
				back := actor.TakeDamage(int(float64(dealt) * f))
				ev.Reflected += back
				victim.damageDealt += back
			}
		}
		ev.SelfDamage += actor.TakeDamage(SelfDamage(act, raw))
	}

	recipient := victim
	if act.TargetsSelf() || act.Type == action.TypeHeal {
		recipient = actor
	}
	ev.Effects = append(ev.Effects, e.sim.effects.Apply(act, recipient)...)
	if act.Advanced.StunDuration > 0 && !act.Effects.Stun {
		e.sim.effects.ApplyKind(victim, effect.Stun, act.Advanced.StunDuration)
		ev.Effects = append(ev.Effects, effect.Stun.String())
	}
}

// applyAdvanced records the timed and one-shot side effects of act. Using
// act again refreshes the bonuses it granted rather than stacking them.
func applyAdvanced(actor, target *Combatant, act *action.Definition) {
	adv := act.Advanced
	if adv.RollBonus != 0 {
		actor.AddBonus(Bonus{Key: BonusRoll, Value: float64(adv.RollBonus), Turns: max(adv.RollBonusDuration, 1), Source: act.Name})
	}
	if adv.StatBonus != 0 {
		actor.AddBonus(Bonus{Key: adv.StatBonusType, Value: float64(adv.StatBonus), Turns: max(adv.StatBonusDuration, 1), Source: act.Name})
	}
	if adv.EnemyRollPenalty != 0 {
		target.AddBonus(Bonus{Key: BonusRoll, Value: -float64(adv.EnemyRollPenalty), Turns: max(adv.EnemyRollPenaltyDuration, 1), Source: act.Name})
	}
	if adv.ExtraDamage > 0 {
		actor.AddBonus(Bonus{Key: BonusExtraDamage, Value: float64(adv.ExtraDamage), Decay: float64(adv.ExtraDamageDecay), Source: act.Name})
	}
	if adv.DamageReduction > 0 {
		actor.AddBonus(Bonus{Key: BonusDamageReduction, Value: float64(adv.DamageReduction), Decay: float64(adv.DamageReductionDecay), Source: act.Name})
	}
	if adv.LengthReduction > 0 {
		actor.AddBonus(Bonus{Key: BonusLengthReduction, Value: adv.LengthReduction, Turns: max(adv.LengthReductionDuration, 1), Source: act.Name})
	}
	if adv.SkipNextTurn {
		actor.skipNext = true
	}
	if adv.GuaranteeNextSuccess {
		actor.guaranteeNext = true
	}
	if adv.ResetEnemyCombo {
		target.Combo.Reset()
	}
}

// cost returns the time actor spends on act, or on an idle turn when act is
// nil, before the actor's end-of-turn bonuses expire. A length reduction
// granted during the turn first applies to the next one.
func (e *encounter) cost(actor *Combatant, act *action.Definition) float64 {
	length := 1.0
	if act != nil {
		length = act.EffectiveLength()
	}
	reduction := math.Min(math.Max(actor.armedBonus(BonusLengthReduction), 0), MaxLengthReduction)
	return actor.speed * length * e.sim.effects.LengthMultiplier(actor.Effects()) * (1 - reduction)
}

func dealsDamage(act *action.Definition) bool {
	return act.Type == action.TypeAttack || act.Type == action.TypeSpell
}

func narrate(ev TurnEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s uses %s (%s, roll %d)", ev.Actor, ev.Action, ev.Outcome, ev.TotalRoll)
	switch {
	case ev.SelfAttack:
		fmt.Fprintf(&b, " but strikes itself for %d", ev.SelfDamage)
	case ev.Damage > 0:
		fmt.Fprintf(&b, " dealing %d to %s", ev.Damage, ev.Target)
	}
	if ev.Healing > 0 {
		fmt.Fprintf(&b, ", healing %d", ev.Healing)
	}
	if len(ev.Effects) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(ev.Effects, ", "))
	}
	b.WriteString(".")
	return b.String()
}
