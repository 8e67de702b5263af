package combat

import (
	"math"

	"github.com/cory-johannsen/combatsim/internal/game/action"
	"github.com/cory-johannsen/combatsim/internal/game/dice"
)

// MaxExplosions bounds how many times an exploding die may re-roll.
const MaxExplosions = 10

// CriticalMultiplier is the damage multiplier carried by a critical hit.
const CriticalMultiplier = 2.0

// OutcomeKind is the classified result of a roll.
type OutcomeKind int

const (
	Miss OutcomeKind = iota
	Hit
	Combo
	CriticalHit
)

// String returns a human-readable outcome label.
func (k OutcomeKind) String() string {
	switch k {
	case Miss:
		return "miss"
	case Hit:
		return "hit"
	case Combo:
		return "combo"
	case CriticalHit:
		return "critical hit"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one roll resolution.
//
// Invariant: Multiplier is 0 for Miss, 1.0 for Hit and Combo, and
// CriticalMultiplier for CriticalHit. Fumble is only ever set on Miss.
type Outcome struct {
	Kind       OutcomeKind
	Multiplier float64
	// Fumble marks a critical miss. It is advisory and never changes resolution.
	Fumble bool
	// Natural is the effective die value before bonuses.
	Natural int
}

// TriggersCombo reports whether the outcome selects from the combo sequence.
func (o Outcome) TriggersCombo() bool { return o.Kind == Combo || o.Kind == CriticalHit }

// Lands reports whether an action executes.
func (o Outcome) Lands() bool { return o.Kind != Miss }

// String renders the outcome, marking fumbles.
func (o Outcome) String() string {
	if o.Fumble {
		return "critical miss"
	}
	return o.Kind.String()
}

// Thresholds are the classification cut-offs. Hit and Combo compare against
// the total roll; Critical and CriticalMiss compare against the natural die.
// CriticalMiss of 0 disables fumbles.
type Thresholds struct {
	Hit          int
	Combo        int
	Critical     int
	CriticalMiss int
}

// DefaultThresholds returns Miss below 6, Hit 6-13, Combo from 14, and a
// critical on a natural 20.
func DefaultThresholds() Thresholds {
	return Thresholds{Hit: 6, Combo: 14, Critical: dice.D20}
}

// With applies an action's overrides and adjustments. An override replaces
// the threshold and suppresses the matching adjustment.
func (t Thresholds) With(m action.RollModifiers) Thresholds {
	pick := func(def, override, adj int) int {
		if override != 0 {
			return override
		}
		return def + adj
	}
	return Thresholds{
		Hit:          pick(t.Hit, m.HitThresholdOverride, m.HitThresholdAdjustment),
		Combo:        pick(t.Combo, m.ComboThresholdOverride, m.ComboThresholdAdjustment),
		Critical:     pick(t.Critical, m.CriticalThresholdOverride, m.CriticalThresholdAdjustment),
		CriticalMiss: pick(t.CriticalMiss, m.CriticalMissThresholdOverride, m.CriticalMissThresholdAdjustment),
	}
}

// Classify maps a total roll and natural die onto an Outcome. The total is
// never clamped, so very negative totals classify as Miss.
//
// Postcondition: natural >= t.Critical always yields CriticalHit.
func Classify(total, natural int, t Thresholds) Outcome {
	switch {
	case natural >= t.Critical:
		return Outcome{Kind: CriticalHit, Multiplier: CriticalMultiplier, Natural: natural}
	case t.CriticalMiss > 0 && natural <= t.CriticalMiss:
		return Outcome{Kind: Miss, Fumble: true, Natural: natural}
	case total < t.Hit:
		return Outcome{Kind: Miss, Natural: natural}
	case total < t.Combo:
		return Outcome{Kind: Hit, Multiplier: 1.0, Natural: natural}
	default:
		return Outcome{Kind: Combo, Multiplier: 1.0, Natural: natural}
	}
}

// RollResolver turns a base d20 plus bonuses and per-action modifiers into
// an Outcome. Extra dice for multiple-dice, exploding and reroll modifiers
// are drawn from its Source.
type RollResolver struct {
	src        dice.Source
	thresholds Thresholds
}

// NewRollResolver creates a RollResolver with base thresholds t.
// Zero fields of t fall back to DefaultThresholds.
//
// Precondition: src must be non-nil.
func NewRollResolver(src dice.Source, t Thresholds) *RollResolver {
	def := DefaultThresholds()
	if t.Hit == 0 {
		t.Hit = def.Hit
	}
	if t.Combo == 0 {
		t.Combo = def.Combo
	}
	if t.Critical == 0 {
		t.Critical = def.Critical
	}
	return &RollResolver{src: src, thresholds: t}
}

// Thresholds returns the resolver's base thresholds.
func (r *RollResolver) Thresholds() Thresholds { return r.thresholds }

// Resolve computes the total roll and its Outcome.
//
// The effective die starts at baseRoll. With MultipleDiceCount > 1 the
// remaining dice are rolled and combined by MultipleDiceMode. An exploding
// die at or above its threshold adds further rolls, at most MaxExplosions.
// When AllowReroll is set and the total would miss, one reroll happens with
// probability RerollChance and the higher die is kept. Additive and then
// Multiplier adjust the die before rollBonus is added.
//
// Precondition: baseRoll in [1, 20].
// Postcondition: A natural 20 on the effective die yields CriticalHit unless
// an override raises the critical threshold above 20.
func (r *RollResolver) Resolve(baseRoll, rollBonus int, mods action.RollModifiers) (int, Outcome) {
	t := r.thresholds.With(mods)

	die, natural := r.combine(baseRoll, mods)

	if mods.ExplodingDice {
		threshold := mods.EffectiveExplodingThreshold()
		last := natural
		for i := 0; i < MaxExplosions && last >= threshold; i++ {
			last = dice.RollD20(r.src)
			die += last
		}
	}

	total := adjust(die, mods) + rollBonus
	if mods.AllowReroll && total < t.Hit && dice.Chance(r.src, mods.RerollChance) {
		again := dice.RollD20(r.src)
		if again > die {
			die = again
			natural = again
			total = adjust(die, mods) + rollBonus
		}
	}

	return total, Classify(total, natural, t)
}

func (r *RollResolver) combine(baseRoll int, mods action.RollModifiers) (die, natural int) {
	if mods.MultipleDiceCount <= 1 {
		return baseRoll, baseRoll
	}
	extra := dice.Roll(dice.Pool(mods.MultipleDiceCount-1, "sum"), r.src).Dice
	all := append([]int{baseRoll}, extra...)
	switch mods.MultipleDiceMode {
	case action.DiceBest:
		best := all[0]
		for _, d := range all[1:] {
			best = max(best, d)
		}
		return best, best
	case action.DiceWorst:
		worst := all[0]
		for _, d := range all[1:] {
			worst = min(worst, d)
		}
		return worst, worst
	default:
		sum := 0
		for _, d := range all {
			sum += d
		}
		return sum, baseRoll
	}
}

func adjust(die int, mods action.RollModifiers) int {
	return int(math.Floor(float64(die+mods.Additive) * mods.EffectiveMultiplier()))
}

// ResolveRoll resolves a roll with default thresholds, drawing any extra dice
// from src.
func ResolveRoll(baseRoll, rollBonus int, mods action.RollModifiers, src dice.Source) (int, Outcome) {
	return NewRollResolver(src, DefaultThresholds()).Resolve(baseRoll, rollBonus, mods)
}
