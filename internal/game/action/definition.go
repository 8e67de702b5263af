// Package action defines the declarative action schema consumed by the combat
// resolver. Definitions are loaded once and shared read-only by every
// combatant that can perform them.
package action

import "fmt"

// Type classifies what an action does when it resolves.
type Type int

const (
	TypeAttack Type = iota
	TypeHeal
	TypeBuff
	TypeDebuff
	TypeInteract
	TypeMove
	TypeUseItem
	TypeSpell
)

var typeNames = map[Type]string{
	TypeAttack:   "attack",
	TypeHeal:     "heal",
	TypeBuff:     "buff",
	TypeDebuff:   "debuff",
	TypeInteract: "interact",
	TypeMove:     "move",
	TypeUseItem:  "use_item",
	TypeSpell:    "spell",
}

// String returns the lower-case catalog name of t.
func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseType converts a catalog name into a Type.
//
// Postcondition: Returns the matching Type, or an error for unknown names.
func ParseType(s string) (Type, error) {
	for t, n := range typeNames {
		if n == s {
			return t, nil
		}
	}
	return TypeAttack, fmt.Errorf("unknown action type %q", s)
}

// TargetType selects who receives an action's effects.
type TargetType int

const (
	TargetSingle TargetType = iota
	TargetSelf
	TargetArea
	TargetEnvironment
)

var targetNames = map[TargetType]string{
	TargetSingle:      "single",
	TargetSelf:        "self",
	TargetArea:        "area",
	TargetEnvironment: "environment",
}

// String returns the lower-case catalog name of t.
func (t TargetType) String() string {
	if n, ok := targetNames[t]; ok {
		return n
	}
	return fmt.Sprintf("target(%d)", int(t))
}

// ParseTargetType converts a catalog name into a TargetType.
func ParseTargetType(s string) (TargetType, error) {
	for t, n := range targetNames {
		if n == s {
			return t, nil
		}
	}
	return TargetSingle, fmt.Errorf("unknown target type %q", s)
}

// DiceMode selects how multiple d20s are combined into one effective die.
type DiceMode int

const (
	DiceSum DiceMode = iota
	DiceBest
	DiceWorst
)

// ParseDiceMode converts "sum", "best" or "worst" into a DiceMode.
func ParseDiceMode(s string) (DiceMode, error) {
	switch s {
	case "", "sum":
		return DiceSum, nil
	case "best":
		return DiceBest, nil
	case "worst":
		return DiceWorst, nil
	}
	return DiceSum, fmt.Errorf("unknown dice mode %q", s)
}

// RollModifiers alters how the d20 roll for an action is produced and classified.
// Zero values mean "use the default" for every field.
type RollModifiers struct {
	Additive   int
	Multiplier float64 // 0 is treated as 1.0

	MultipleDiceCount int // <= 1 rolls a single die
	MultipleDiceMode  DiceMode

	ExplodingDice          bool
	ExplodingDiceThreshold int // 0 is treated as 20

	AllowReroll  bool
	RerollChance float64 // probability in [0, 1]

	// Overrides replace a threshold outright; 0 means no override.
	HitThresholdOverride          int
	ComboThresholdOverride        int
	CriticalThresholdOverride     int
	CriticalMissThresholdOverride int

	// Adjustments shift a threshold relative to its default. Ignored when
	// the matching override is set.
	HitThresholdAdjustment          int
	ComboThresholdAdjustment        int
	CriticalThresholdAdjustment     int
	CriticalMissThresholdAdjustment int
}

// EffectiveMultiplier returns Multiplier, or 1.0 when unset.
func (m RollModifiers) EffectiveMultiplier() float64 {
	if m.Multiplier == 0 {
		return 1.0
	}
	return m.Multiplier
}

// EffectiveExplodingThreshold returns ExplodingDiceThreshold, or 20 when unset.
func (m RollModifiers) EffectiveExplodingThreshold() int {
	if m.ExplodingDiceThreshold <= 0 {
		return 20
	}
	return m.ExplodingDiceThreshold
}

// Triggers gate whether an action is eligible for selection.
type Triggers struct {
	// Conditions are named predicates that must all be true.
	Conditions []string
	// ExactRollValue restricts firing to one exact total roll; 0 disables.
	ExactRollValue int
	// RequiredTag must be carried by the actor; empty disables.
	RequiredTag string
}

// Advanced holds the less common mechanical knobs of an action.
type Advanced struct {
	MultiHitCount         int
	MultiHitDamagePercent float64 // fraction of full damage per hit; 0 is treated as 1.0
	ExtraAttacks          int

	SelfDamagePercent float64 // percent of raw damage dealt
	SelfAttackChance  float64 // probability in [0, 1]

	RollBonus         int
	RollBonusDuration int
	StatBonus         int
	StatBonusType     string
	StatBonusDuration int

	SkipNextTurn         bool
	GuaranteeNextSuccess bool
	RepeatLastAction     bool

	HealAmount int

	// HealthThreshold gates ConditionalDamageMultiplier on the target's health
	// fraction being at or below this value; 0 disables.
	HealthThreshold float64
	// StatThreshold gates ConditionalDamageMultiplier on the actor's
	// StatThresholdType being at or above this value; 0 disables.
	StatThreshold               int
	StatThresholdType           string
	ConditionalDamageMultiplier float64

	ComboAmplifierMultiplier float64 // 0 is treated as 1.0

	EnemyRollPenalty         int
	EnemyRollPenaltyDuration int

	ExtraDamage          int
	ExtraDamageDecay     int
	DamageReduction      int // percent of incoming damage
	DamageReductionDecay int

	ResetEnemyCombo bool

	StunDuration int

	LengthReduction         float64 // fraction removed from action length
	LengthReductionDuration int
}

// HitCount returns the total number of damage applications for one execution.
//
// Postcondition: Result >= 1.
func (a Advanced) HitCount() int {
	n := a.MultiHitCount
	if n < 1 {
		n = 1
	}
	if a.ExtraAttacks > 0 {
		n += a.ExtraAttacks
	}
	return n
}

// StatusEffects lists the status effects an action inflicts when it lands.
type StatusEffects struct {
	Bleed         bool
	Poison        bool
	Burn          bool
	Weaken        bool
	Slow          bool
	Stun          bool
	Vulnerability bool
	Harden        bool
	Expose        bool
	Silence       bool
	Pierce        bool
	StatDrain     bool
	Fortify       bool
	Focus         bool
	Cleanse       bool
	Reflect       bool

	// Duration overrides the default duration of timed effects; 0 keeps the default.
	Duration int
	// Stacks is the number of stacks added to stacking effects; 0 adds one.
	Stacks int
}

// Any reports whether at least one effect flag is set.
func (s StatusEffects) Any() bool {
	return s.Bleed || s.Poison || s.Burn || s.Weaken || s.Slow || s.Stun ||
		s.Vulnerability || s.Harden || s.Expose || s.Silence || s.Pierce ||
		s.StatDrain || s.Fortify || s.Focus || s.Cleanse || s.Reflect
}

// Keywords counted by AttackBonusGroup.
const (
	KeywordAction = "ACTION"
	KeywordAttack = "ATTACK"
)

// Bonus types granted by AttackBonusGroup. Stat names are also accepted.
const (
	BonusAccuracy = "ACCURACY"
	BonusHit      = "HIT"
	BonusCombo    = "COMBO"
	BonusCrit     = "CRIT"
)

// StatBonus is one (type, value) pair granted by an AttackBonusGroup.
type StatBonus struct {
	Type  string
	Value int
}

// AttackBonusGroup grants Bonuses once RequiredCount actions (KeywordAction)
// or attacks (KeywordAttack) have been performed after this action.
type AttackBonusGroup struct {
	Keyword       string
	RequiredCount int
	Bonuses       []StatBonus
}

// Definition is one immutable action. It is shared by pointer and must not
// be mutated after loading.
type Definition struct {
	Name             string
	Type             Type
	Target           TargetType
	BaseValue        int
	DamageMultiplier float64 // 0 is treated as 1.0
	Length           float64 // scheduling cost; 0 is treated as 1.0
	Cooldown         int

	IsCombo            bool
	ComboOrder         int
	ComboBonusAmount   int
	ComboBonusDuration int

	Roll          RollModifiers
	Triggers      Triggers
	Routing       ComboRouting
	Advanced      Advanced
	Effects       StatusEffects
	AttackBonuses []AttackBonusGroup
}

// EffectiveDamageMultiplier returns DamageMultiplier, or 1.0 when unset.
func (d *Definition) EffectiveDamageMultiplier() float64 {
	if d.DamageMultiplier == 0 {
		return 1.0
	}
	return d.DamageMultiplier
}

// EffectiveLength returns Length, or 1.0 when unset.
func (d *Definition) EffectiveLength() float64 {
	if d.Length <= 0 {
		return 1.0
	}
	return d.Length
}

// TargetsSelf reports whether the action's effects land on the actor.
func (d *Definition) TargetsSelf() bool {
	return d.Target == TargetSelf || (d.Type == TypeBuff && d.Target != TargetArea)
}
