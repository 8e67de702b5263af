package action

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownAction is returned when a catalog lookup names no action.
var ErrUnknownAction = errors.New("unknown action")

// ErrInvalidDefinition wraps every catalog validation failure.
var ErrInvalidDefinition = errors.New("invalid action definition")

// Catalog holds validated Definitions keyed by name.
type Catalog struct {
	defs map[string]*Definition
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string]*Definition)}
}

// Register adds def, overwriting any existing entry with the same name.
//
// Precondition: def must not be nil and def.Name must not be empty.
func (c *Catalog) Register(def *Definition) {
	c.defs[def.Name] = def
}

// Get returns the Definition named name.
//
// Postcondition: Returns the definition, or ErrUnknownAction.
func (c *Catalog) Get(name string) (*Definition, error) {
	d, ok := c.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return d, nil
}

// Len returns the number of registered definitions.
func (c *Catalog) Len() int { return len(c.defs) }

// All returns every Definition sorted by name.
func (c *Catalog) All() []*Definition {
	out := make([]*Definition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ComboSequence returns the combo actions among names ordered by ComboOrder,
// then by name.
//
// Postcondition: Returns an error wrapping ErrUnknownAction for unknown names.
func (c *Catalog) ComboSequence(names []string) ([]*Definition, error) {
	out := make([]*Definition, 0, len(names))
	for _, n := range names {
		d, err := c.Get(n)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ComboOrder != out[j].ComboOrder {
			return out[i].ComboOrder < out[j].ComboOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// catalogFile is the on-disk layout of one action catalog file.
type catalogFile struct {
	Actions []actionYAML `yaml:"actions"`
}

type rollYAML struct {
	Additive               int     `yaml:"additive"`
	Multiplier             float64 `yaml:"multiplier"`
	MultipleDiceCount      int     `yaml:"multiple_dice_count"`
	MultipleDiceMode       string  `yaml:"multiple_dice_mode"`
	ExplodingDice          bool    `yaml:"exploding_dice"`
	ExplodingDiceThreshold int     `yaml:"exploding_dice_threshold"`
	AllowReroll            bool    `yaml:"allow_reroll"`
	RerollChance           float64 `yaml:"reroll_chance"`

	HitOverride          int `yaml:"hit_threshold_override"`
	ComboOverride        int `yaml:"combo_threshold_override"`
	CriticalOverride     int `yaml:"critical_threshold_override"`
	CriticalMissOverride int `yaml:"critical_miss_threshold_override"`

	HitAdjustment          int `yaml:"hit_threshold_adjustment"`
	ComboAdjustment        int `yaml:"combo_threshold_adjustment"`
	CriticalAdjustment     int `yaml:"critical_threshold_adjustment"`
	CriticalMissAdjustment int `yaml:"critical_miss_threshold_adjustment"`
}

type triggersYAML struct {
	Conditions     []string `yaml:"conditions"`
	ExactRollValue int      `yaml:"exact_roll_value"`
	RequiredTag    string   `yaml:"required_tag"`
}

type routingYAML struct {
	Action            string `yaml:"action"`
	JumpToSlot        int    `yaml:"jump_to_slot"` // one-based
	TriggerOnlyInSlot int    `yaml:"trigger_only_in_slot"`
}

type advancedYAML struct {
	MultiHitCount               int     `yaml:"multi_hit_count"`
	MultiHitDamagePercent       float64 `yaml:"multi_hit_damage_percent"`
	ExtraAttacks                int     `yaml:"extra_attacks"`
	SelfDamagePercent           float64 `yaml:"self_damage_percent"`
	SelfAttackChance            float64 `yaml:"self_attack_chance"`
	RollBonus                   int     `yaml:"roll_bonus"`
	RollBonusDuration           int     `yaml:"roll_bonus_duration"`
	StatBonus                   int     `yaml:"stat_bonus"`
	StatBonusType               string  `yaml:"stat_bonus_type"`
	StatBonusDuration           int     `yaml:"stat_bonus_duration"`
	SkipNextTurn                bool    `yaml:"skip_next_turn"`
	GuaranteeNextSuccess        bool    `yaml:"guarantee_next_success"`
	RepeatLastAction            bool    `yaml:"repeat_last_action"`
	HealAmount                  int     `yaml:"heal_amount"`
	HealthThreshold             float64 `yaml:"health_threshold"`
	StatThreshold               int     `yaml:"stat_threshold"`
	StatThresholdType           string  `yaml:"stat_threshold_type"`
	ConditionalDamageMultiplier float64 `yaml:"conditional_damage_multiplier"`
	ComboAmplifierMultiplier    float64 `yaml:"combo_amplifier_multiplier"`
	EnemyRollPenalty            int     `yaml:"enemy_roll_penalty"`
	EnemyRollPenaltyDuration    int     `yaml:"enemy_roll_penalty_duration"`
	ExtraDamage                 int     `yaml:"extra_damage"`
	ExtraDamageDecay            int     `yaml:"extra_damage_decay"`
	DamageReduction             int     `yaml:"damage_reduction"`
	DamageReductionDecay        int     `yaml:"damage_reduction_decay"`
	ResetEnemyCombo             bool    `yaml:"reset_enemy_combo"`
	StunDuration                int     `yaml:"stun_duration"`
	LengthReduction             float64 `yaml:"length_reduction"`
	LengthReductionDuration     int     `yaml:"length_reduction_duration"`
}

type bonusYAML struct {
	Type  string `yaml:"type"`
	Value int    `yaml:"value"`
}

type bonusGroupYAML struct {
	Keyword       string      `yaml:"keyword"`
	RequiredCount int         `yaml:"required_count"`
	Bonuses       []bonusYAML `yaml:"bonuses"`
}

type actionYAML struct {
	Name               string           `yaml:"name"`
	Type               string           `yaml:"type"`
	Target             string           `yaml:"target"`
	BaseValue          int              `yaml:"base_value"`
	DamageMultiplier   float64          `yaml:"damage_multiplier"`
	Length             float64          `yaml:"length"`
	Cooldown           int              `yaml:"cooldown"`
	IsCombo            bool             `yaml:"combo"`
	ComboOrder         int              `yaml:"combo_order"`
	ComboBonusAmount   int              `yaml:"combo_bonus_amount"`
	ComboBonusDuration int              `yaml:"combo_bonus_duration"`
	Roll               rollYAML         `yaml:"roll"`
	Triggers           triggersYAML     `yaml:"triggers"`
	Routing            routingYAML      `yaml:"routing"`
	Advanced           advancedYAML     `yaml:"advanced"`
	Effects            []string         `yaml:"effects"`
	EffectDuration     int              `yaml:"effect_duration"`
	EffectStacks       int              `yaml:"effect_stacks"`
	AttackBonuses      []bonusGroupYAML `yaml:"attack_bonuses"`
}

// LoadDirectory reads every *.yaml file in dir and returns a validated Catalog.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Catalog, or an error naming the first file
// that fails to parse or validate.
func LoadDirectory(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading action dir %q: %w", dir, err)
	}
	cat := NewCatalog()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		defs, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		for _, d := range defs {
			if _, dup := cat.defs[d.Name]; dup {
				return nil, fmt.Errorf("%w: %q defined twice (second in %q)", ErrInvalidDefinition, d.Name, path)
			}
			cat.Register(d)
		}
	}
	return cat, nil
}

// Parse decodes one catalog document and validates every action in it.
//
// Postcondition: Returns the definitions in document order, or an error.
func Parse(data []byte) ([]*Definition, error) {
	var f catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	out := make([]*Definition, 0, len(f.Actions))
	for i := range f.Actions {
		d, err := f.Actions[i].toDefinition()
		if err != nil {
			return nil, err
		}
		if err := Validate(d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (y *actionYAML) toDefinition() (*Definition, error) {
	typ, err := ParseType(orDefault(y.Type, "attack"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, y.Name, err)
	}
	target, err := ParseTargetType(orDefault(y.Target, "single"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, y.Name, err)
	}
	mode, err := ParseDiceMode(y.Roll.MultipleDiceMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, y.Name, err)
	}
	kind, err := ParseRoutingKind(y.Routing.Action)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, y.Name, err)
	}
	routing := RoutingAction{Kind: kind}
	if kind == RouteJumpToSlot {
		routing = JumpToSlot(y.Routing.JumpToSlot - 1)
	}
	effects, err := parseEffects(y.Effects)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, y.Name, err)
	}
	effects.Duration = y.EffectDuration
	effects.Stacks = y.EffectStacks

	groups := make([]AttackBonusGroup, 0, len(y.AttackBonuses))
	for _, g := range y.AttackBonuses {
		bonuses := make([]StatBonus, 0, len(g.Bonuses))
		for _, b := range g.Bonuses {
			bonuses = append(bonuses, StatBonus{Type: strings.ToUpper(b.Type), Value: b.Value})
		}
		groups = append(groups, AttackBonusGroup{
			Keyword:       strings.ToUpper(g.Keyword),
			RequiredCount: g.RequiredCount,
			Bonuses:       bonuses,
		})
	}

	a := y.Advanced
	return &Definition{
		Name:               y.Name,
		Type:               typ,
		Target:             target,
		BaseValue:          y.BaseValue,
		DamageMultiplier:   y.DamageMultiplier,
		Length:             y.Length,
		Cooldown:           y.Cooldown,
		IsCombo:            y.IsCombo,
		ComboOrder:         y.ComboOrder,
		ComboBonusAmount:   y.ComboBonusAmount,
		ComboBonusDuration: y.ComboBonusDuration,
		Roll: RollModifiers{
			Additive:                        y.Roll.Additive,
			Multiplier:                      y.Roll.Multiplier,
			MultipleDiceCount:               y.Roll.MultipleDiceCount,
			MultipleDiceMode:                mode,
			ExplodingDice:                   y.Roll.ExplodingDice,
			ExplodingDiceThreshold:          y.Roll.ExplodingDiceThreshold,
			AllowReroll:                     y.Roll.AllowReroll,
			RerollChance:                    y.Roll.RerollChance,
			HitThresholdOverride:            y.Roll.HitOverride,
			ComboThresholdOverride:          y.Roll.ComboOverride,
			CriticalThresholdOverride:       y.Roll.CriticalOverride,
			CriticalMissThresholdOverride:   y.Roll.CriticalMissOverride,
			HitThresholdAdjustment:          y.Roll.HitAdjustment,
			ComboThresholdAdjustment:        y.Roll.ComboAdjustment,
			CriticalThresholdAdjustment:     y.Roll.CriticalAdjustment,
			CriticalMissThresholdAdjustment: y.Roll.CriticalMissAdjustment,
		},
		Triggers: Triggers{
			Conditions:     y.Triggers.Conditions,
			ExactRollValue: y.Triggers.ExactRollValue,
			RequiredTag:    y.Triggers.RequiredTag,
		},
		Routing: ComboRouting{Action: routing, TriggerOnlyInSlot: y.Routing.TriggerOnlyInSlot},
		Advanced: Advanced{
			MultiHitCount:               a.MultiHitCount,
			MultiHitDamagePercent:       a.MultiHitDamagePercent,
			ExtraAttacks:                a.ExtraAttacks,
			SelfDamagePercent:           a.SelfDamagePercent,
			SelfAttackChance:            a.SelfAttackChance,
			RollBonus:                   a.RollBonus,
			RollBonusDuration:           a.RollBonusDuration,
			StatBonus:                   a.StatBonus,
			StatBonusType:               strings.ToUpper(a.StatBonusType),
			StatBonusDuration:           a.StatBonusDuration,
			SkipNextTurn:                a.SkipNextTurn,
			GuaranteeNextSuccess:        a.GuaranteeNextSuccess,
			RepeatLastAction:            a.RepeatLastAction,
			HealAmount:                  a.HealAmount,
			HealthThreshold:             a.HealthThreshold,
			StatThreshold:               a.StatThreshold,
			StatThresholdType:           strings.ToUpper(a.StatThresholdType),
			ConditionalDamageMultiplier: a.ConditionalDamageMultiplier,
			ComboAmplifierMultiplier:    a.ComboAmplifierMultiplier,
			EnemyRollPenalty:            a.EnemyRollPenalty,
			EnemyRollPenaltyDuration:    a.EnemyRollPenaltyDuration,
			ExtraDamage:                 a.ExtraDamage,
			ExtraDamageDecay:            a.ExtraDamageDecay,
			DamageReduction:             a.DamageReduction,
			DamageReductionDecay:        a.DamageReductionDecay,
			ResetEnemyCombo:             a.ResetEnemyCombo,
			StunDuration:                a.StunDuration,
			LengthReduction:             a.LengthReduction,
			LengthReductionDuration:     a.LengthReductionDuration,
		},
		Effects:       effects,
		AttackBonuses: groups,
	}, nil
}

func parseEffects(names []string) (StatusEffects, error) {
	var s StatusEffects
	flags := map[string]*bool{
		"bleed":         &s.Bleed,
		"poison":        &s.Poison,
		"burn":          &s.Burn,
		"weaken":        &s.Weaken,
		"slow":          &s.Slow,
		"stun":          &s.Stun,
		"vulnerability": &s.Vulnerability,
		"harden":        &s.Harden,
		"expose":        &s.Expose,
		"silence":       &s.Silence,
		"pierce":        &s.Pierce,
		"stat_drain":    &s.StatDrain,
		"fortify":       &s.Fortify,
		"focus":         &s.Focus,
		"cleanse":       &s.Cleanse,
		"reflect":       &s.Reflect,
	}
	for _, n := range names {
		p, ok := flags[strings.ToLower(n)]
		if !ok {
			return s, fmt.Errorf("unknown status effect %q", n)
		}
		*p = true
	}
	return s, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Validate checks every invariant of d and reports all violations at once.
//
// Postcondition: Returns nil, or an error wrapping ErrInvalidDefinition.
func Validate(d *Definition) error {
	if d == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}
	var errs []string
	if d.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if d.DamageMultiplier < 0 {
		errs = append(errs, fmt.Sprintf("damage_multiplier must be >= 0, got %g", d.DamageMultiplier))
	}
	if d.Length < 0 {
		errs = append(errs, fmt.Sprintf("length must be >= 0, got %g", d.Length))
	}
	if d.Cooldown < 0 {
		errs = append(errs, fmt.Sprintf("cooldown must be >= 0, got %d", d.Cooldown))
	}
	if d.ComboBonusAmount < 0 || d.ComboBonusDuration < 0 {
		errs = append(errs, "combo_bonus_amount and combo_bonus_duration must be >= 0")
	}

	r := d.Roll
	if r.Multiplier < 0 {
		errs = append(errs, fmt.Sprintf("roll.multiplier must be >= 0, got %g", r.Multiplier))
	}
	if r.MultipleDiceCount < 0 {
		errs = append(errs, fmt.Sprintf("roll.multiple_dice_count must be >= 0, got %d", r.MultipleDiceCount))
	}
	if r.ExplodingDice && r.ExplodingDiceThreshold == 1 {
		errs = append(errs, "roll.exploding_dice_threshold of 1 explodes on every roll")
	}
	if r.RerollChance < 0 || r.RerollChance > 1 {
		errs = append(errs, fmt.Sprintf("roll.reroll_chance must be in [0, 1], got %g", r.RerollChance))
	}

	if d.Routing.Action.Kind == RouteJumpToSlot && d.Routing.Action.Slot < 0 {
		errs = append(errs, "routing.jump_to_slot must be >= 1")
	}
	if d.Routing.TriggerOnlyInSlot < 0 {
		errs = append(errs, "routing.trigger_only_in_slot must be >= 0")
	}
	if d.Triggers.ExactRollValue < 0 {
		errs = append(errs, "triggers.exact_roll_value must be >= 0")
	}

	a := d.Advanced
	if a.MultiHitCount < 0 {
		errs = append(errs, fmt.Sprintf("advanced.multi_hit_count must be >= 0, got %d", a.MultiHitCount))
	}
	if a.ExtraAttacks < 0 {
		errs = append(errs, fmt.Sprintf("advanced.extra_attacks must be >= 0, got %d", a.ExtraAttacks))
	}
	if a.MultiHitDamagePercent < 0 {
		errs = append(errs, "advanced.multi_hit_damage_percent must be >= 0")
	}
	if a.SelfDamagePercent < 0 || a.SelfDamagePercent > 100 {
		errs = append(errs, fmt.Sprintf("advanced.self_damage_percent must be in [0, 100], got %g", a.SelfDamagePercent))
	}
	if a.SelfAttackChance < 0 || a.SelfAttackChance > 1 {
		errs = append(errs, fmt.Sprintf("advanced.self_attack_chance must be in [0, 1], got %g", a.SelfAttackChance))
	}
	if a.HealAmount < 0 {
		errs = append(errs, "advanced.heal_amount must be >= 0")
	}
	if a.HealthThreshold < 0 || a.HealthThreshold > 1 {
		errs = append(errs, fmt.Sprintf("advanced.health_threshold must be in [0, 1], got %g", a.HealthThreshold))
	}
	if a.DamageReduction < 0 || a.DamageReduction > 100 {
		errs = append(errs, fmt.Sprintf("advanced.damage_reduction must be in [0, 100], got %d", a.DamageReduction))
	}
	if a.LengthReduction < 0 || a.LengthReduction >= 1 {
		errs = append(errs, fmt.Sprintf("advanced.length_reduction must be in [0, 1), got %g", a.LengthReduction))
	}
	if a.StunDuration < 0 || a.RollBonusDuration < 0 || a.StatBonusDuration < 0 ||
		a.EnemyRollPenaltyDuration < 0 || a.LengthReductionDuration < 0 {
		errs = append(errs, "advanced durations must be >= 0")
	}
	if a.StatBonus != 0 && a.StatBonusType == "" {
		errs = append(errs, "advanced.stat_bonus_type is required when stat_bonus is set")
	}
	if a.StatThreshold != 0 && a.StatThresholdType == "" {
		errs = append(errs, "advanced.stat_threshold_type is required when stat_threshold is set")
	}

	for i, g := range d.AttackBonuses {
		if g.Keyword != KeywordAction && g.Keyword != KeywordAttack {
			errs = append(errs, fmt.Sprintf("attack_bonuses[%d].keyword must be ACTION or ATTACK, got %q", i, g.Keyword))
		}
		if g.RequiredCount < 1 {
			errs = append(errs, fmt.Sprintf("attack_bonuses[%d].required_count must be >= 1", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrInvalidDefinition, d.Name, strings.Join(errs, "; "))
	}
	return nil
}
