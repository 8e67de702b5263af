// Package combat resolves single combat turns and drives one-on-one combat
// simulations used for balance tuning.
package combat

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/combatsim/internal/game/action"
	"github.com/cory-johannsen/combatsim/internal/game/effect"
)

// ErrNoBasicAttack is returned by Snapshot.Validate when no basic attack is set.
var ErrNoBasicAttack = errors.New("combatant has no basic attack")

// StatType names one of the four core stats.
type StatType string

const (
	StatStrength     StatType = "STRENGTH"
	StatAgility      StatType = "AGILITY"
	StatTechnique    StatType = "TECHNIQUE"
	StatIntelligence StatType = "INTELLIGENCE"
)

// Timed bonus keys beyond the core stats.
const (
	BonusRoll            = "ROLL"
	BonusExtraDamage     = "EXTRA_DAMAGE"
	BonusDamageReduction = "DAMAGE_REDUCTION"
	BonusLengthReduction = "LENGTH_REDUCTION"
)

// Stats holds an entity's core stats.
type Stats struct {
	Strength     int
	Agility      int
	Technique    int
	Intelligence int
}

// Get returns the stat named t, or 0 for unknown names.
func (s Stats) Get(t StatType) int {
	switch t {
	case StatStrength:
		return s.Strength
	case StatAgility:
		return s.Agility
	case StatTechnique:
		return s.Technique
	case StatIntelligence:
		return s.Intelligence
	}
	return 0
}

// Snapshot is the read-only description of an entity entering combat. It is
// supplied by the character/enemy model and never mutated by a simulation.
type Snapshot struct {
	Name      string
	Stats     Stats
	MaxHealth int
	// Health is the starting health; 0 starts at MaxHealth.
	Health int
	Armor  int
	// Speed is the base time cost of one action for speed scheduling; 0 is 1.0.
	Speed float64
	// ComboAmplifier is the per-slot damage growth of combo actions; 0 is 1.0.
	ComboAmplifier float64
	RollBonus      int
	Tags           []string

	BasicAttack  *action.Definition
	ComboActions []*action.Definition // ordered combo sequence
}

// Validate checks the snapshot invariants.
//
// Postcondition: Returns nil, ErrNoBasicAttack, or an error describing the
// first violation.
func (s Snapshot) Validate() error {
	if s.Name == "" {
		return errors.New("combatant name must not be empty")
	}
	if s.MaxHealth <= 0 {
		return fmt.Errorf("combatant %q: max health must be > 0, got %d", s.Name, s.MaxHealth)
	}
	if s.Health < 0 || s.Health > s.MaxHealth {
		return fmt.Errorf("combatant %q: health must be in [0, %d], got %d", s.Name, s.MaxHealth, s.Health)
	}
	if s.Armor < 0 {
		return fmt.Errorf("combatant %q: armor must be >= 0, got %d", s.Name, s.Armor)
	}
	if s.BasicAttack == nil {
		return fmt.Errorf("combatant %q: %w", s.Name, ErrNoBasicAttack)
	}
	return nil
}

// DefaultBasicAttack is used for snapshots that carry no basic attack.
var DefaultBasicAttack = &action.Definition{Name: "attack", Type: action.TypeAttack}

// Bonus is a timed or decaying modifier owned by one combatant.
// Turns > 0 counts down once per owner turn; Decay > 0 shrinks Value once per
// owner turn. A bonus with neither lasts the whole encounter.
type Bonus struct {
	Key   string
	Value float64
	Turns int
	Decay float64
	// Source names the action that granted the bonus. A bonus with the same
	// Source and Key replaces the earlier one instead of stacking with it.
	Source string
	armed  bool
}

type pendingGroup struct {
	group action.AttackBonusGroup
	count int
}

// Combatant is the mutable, per-encounter state of one entity.
// It is owned by a single simulation and is not safe for concurrent use.
type Combatant struct {
	name      string
	stats     Stats
	maxHealth int
	health    int
	armor     int
	speed     float64
	comboAmp  float64
	rollBonus int
	tags      map[string]bool

	pool    Pool
	effects *effect.State

	// Combo is the entity's combo progress.
	Combo ComboState

	bonuses []*Bonus
	groups  []pendingGroup

	skipNext      bool
	guaranteeNext bool
	lastAction    *action.Definition
	cooldowns     map[string]int

	nextActionTime float64
	damageDealt    int
}

// NewCombatant builds fresh encounter state from s. Slices in s are copied.
//
// Postcondition: Health() == s.Health, or s.MaxHealth when s.Health is 0.
func NewCombatant(s Snapshot) *Combatant {
	c := &Combatant{
		name:      s.Name,
		stats:     s.Stats,
		maxHealth: s.MaxHealth,
		health:    s.Health,
		armor:     s.Armor,
		speed:     s.Speed,
		comboAmp:  s.ComboAmplifier,
		rollBonus: s.RollBonus,
		tags:      make(map[string]bool, len(s.Tags)),
		effects:   effect.NewState(),
	}
	if c.health == 0 {
		c.health = c.maxHealth
	}
	if c.speed <= 0 {
		c.speed = 1.0
	}
	if c.comboAmp <= 0 {
		c.comboAmp = 1.0
	}
	for _, t := range s.Tags {
		c.tags[t] = true
	}
	c.pool = Pool{Basic: s.BasicAttack, Sequence: append([]*action.Definition(nil), s.ComboActions...)}
	if c.pool.Basic == nil {
		c.pool.Basic = DefaultBasicAttack
	}
	return c
}

// Name returns the combatant's name.
func (c *Combatant) Name() string { return c.name }

// Health returns current health.
func (c *Combatant) Health() int { return c.health }

// MaxHealth returns maximum health.
func (c *Combatant) MaxHealth() int { return c.maxHealth }

// HealthFraction returns current health as a fraction of maximum.
//
// Postcondition: Result is in [0, 1].
func (c *Combatant) HealthFraction() float64 {
	if c.maxHealth <= 0 {
		return 0
	}
	return float64(c.health) / float64(c.maxHealth)
}

// IsDead reports whether health has reached zero.
func (c *Combatant) IsDead() bool { return c.health <= 0 }

// Armor returns base armor before status effects.
func (c *Combatant) Armor() int { return c.armor }

// HasTag reports whether the combatant carries tag.
func (c *Combatant) HasTag(tag string) bool { return c.tags[tag] }

// Tags returns the combatant's tags in sorted order.
func (c *Combatant) Tags() []string {
	out := make([]string, 0, len(c.tags))
	for t := range c.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Effects returns the combatant's status effects.
func (c *Combatant) Effects() *effect.State { return c.effects }

// Pool returns the actions available to the combatant.
func (c *Combatant) Pool() Pool { return c.pool }

// DamageDealt returns the total damage this combatant has inflicted.
func (c *Combatant) DamageDealt() int { return c.damageDealt }

// Stat returns base stat t plus active bonuses to it.
func (c *Combatant) Stat(t StatType) int {
	return c.stats.Get(t) + int(c.Bonus(string(t)))
}

// TakeDamage reduces health by n, flooring at zero.
//
// Postcondition: Returns the damage actually removed; Health() >= 0.
func (c *Combatant) TakeDamage(n int) int {
	if n <= 0 {
		return 0
	}
	if n > c.health {
		n = c.health
	}
	c.health -= n
	return n
}

// Heal raises health by n, capped at MaxHealth.
//
// Postcondition: Returns the health actually restored; Health() <= MaxHealth().
func (c *Combatant) Heal(n int) int {
	if n <= 0 {
		return 0
	}
	if c.health+n > c.maxHealth {
		n = c.maxHealth - c.health
	}
	c.health += n
	return n
}

// AddBonus attaches a timed or decaying bonus. Bonuses added during a turn
// start counting down at the end of the owner's next turn.
func (c *Combatant) AddBonus(b Bonus) {
	b.armed = false
	if b.Source != "" {
		for i, old := range c.bonuses {
			if old.Source == b.Source && old.Key == b.Key {
				c.bonuses[i] = &b
				return
			}
		}
	}
	c.bonuses = append(c.bonuses, &b)
}

// Bonus sums the active bonuses for key.
func (c *Combatant) Bonus(key string) float64 {
	total := 0.0
	for _, b := range c.bonuses {
		if b.Key == key {
			total += b.Value
		}
	}
	return total
}

// armedBonus is Bonus restricted to bonuses in place when the owner's
// current turn began.
func (c *Combatant) armedBonus(key string) float64 {
	total := 0.0
	for _, b := range c.bonuses {
		if b.armed && b.Key == key {
			total += b.Value
		}
	}
	return total
}

// beginTurn arms every bonus present at the start of the owner's turn and
// counts down cooldowns.
func (c *Combatant) beginTurn() {
	for _, b := range c.bonuses {
		b.armed = true
	}
	for name, n := range c.cooldowns {
		if n <= 1 {
			delete(c.cooldowns, name)
			continue
		}
		c.cooldowns[name] = n - 1
	}
}

// startCooldown blocks act for its Cooldown following own turns.
func (c *Combatant) startCooldown(act *action.Definition) {
	if act.Cooldown <= 0 {
		return
	}
	if c.cooldowns == nil {
		c.cooldowns = make(map[string]int)
	}
	c.cooldowns[act.Name] = act.Cooldown + 1
}

// OnCooldown reports whether act is still cooling down.
func (c *Combatant) OnCooldown(act *action.Definition) bool {
	return c.cooldowns[act.Name] > 0
}

// endTurn counts down armed bonuses and drops exhausted ones.
func (c *Combatant) endTurn() {
	kept := c.bonuses[:0]
	for _, b := range c.bonuses {
		if b.armed {
			if b.Turns > 0 {
				b.Turns--
				if b.Turns == 0 {
					continue
				}
			}
			if b.Decay > 0 {
				b.Value -= b.Decay
				if b.Value <= 0 {
					continue
				}
			}
		}
		kept = append(kept, b)
	}
	c.bonuses = kept
}

// trackAction advances pending attack-bonus groups for an executed action and
// registers the action's own groups afterwards.
func (c *Combatant) trackAction(act *action.Definition) {
	isAttack := act.Type == action.TypeAttack || act.Type == action.TypeSpell
	kept := c.groups[:0]
	for _, g := range c.groups {
		if g.group.Keyword == action.KeywordAction || isAttack {
			g.count++
		}
		if g.count >= g.group.RequiredCount {
			for _, b := range g.group.Bonuses {
				key := b.Type
				if key == action.BonusAccuracy {
					key = BonusRoll
				}
				c.AddBonus(Bonus{Key: key, Value: float64(b.Value), Turns: 1})
			}
			continue
		}
		kept = append(kept, g)
	}
	c.groups = kept
	for _, g := range act.AttackBonuses {
		c.groups = append(c.groups, pendingGroup{group: g})
	}
}
