package effect

import (
	"fmt"

	"github.com/cory-johannsen/combatsim/internal/game/action"
)

// Entry is the live counter pair for one Kind on one entity.
//
// Invariant: Stacks >= 0 and RemainingTurns >= 0; the entry is active iff
// either is positive.
type Entry struct {
	Stacks         int
	RemainingTurns int
}

// Active reports whether the entry currently has any effect.
func (e Entry) Active() bool { return e.Stacks > 0 || e.RemainingTurns > 0 }

// State tracks every status effect applied to one entity.
// It is not safe for concurrent use; each simulated combat owns its own.
type State struct {
	entries [numKinds]Entry
}

// NewState returns an empty State.
func NewState() *State { return &State{} }

// Get returns the counters for k.
func (s *State) Get(k Kind) Entry { return s.entries[k] }

// Has reports whether k is active.
func (s *State) Has(k Kind) bool { return s.entries[k].Active() }

// Stacks returns the stack count of k.
func (s *State) Stacks(k Kind) int { return s.entries[k].Stacks }

// Remaining returns the turns left on k.
func (s *State) Remaining(k Kind) int { return s.entries[k].RemainingTurns }

// Set overwrites the counters for k, clamping negatives to zero.
func (s *State) Set(k Kind, e Entry) {
	s.entries[k] = Entry{Stacks: max(e.Stacks, 0), RemainingTurns: max(e.RemainingTurns, 0)}
}

// Clear removes every effect.
func (s *State) Clear() { s.entries = [numKinds]Entry{} }

// ActiveKinds lists active Kinds in declaration order.
func (s *State) ActiveKinds() []Kind {
	var out []Kind
	for k, e := range s.entries {
		if e.Active() {
			out = append(out, Kind(k))
		}
	}
	return out
}

// Target is an entity that can carry status effects and take damage from them.
type Target interface {
	Name() string
	Effects() *State
	// TakeDamage reduces health by n and returns the damage actually applied.
	TakeDamage(n int) int
}

// Engine applies and advances status effects with one Config.
// It holds no per-entity state and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine. Zero fields of cfg fall back to DefaultConfig.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = def.DefaultDuration
	}
	if cfg.StackDecay <= 0 {
		cfg.StackDecay = def.StackDecay
	}
	if cfg.WeakenMultiplier == 0 {
		cfg.WeakenMultiplier = def.WeakenMultiplier
	}
	if cfg.VulnerabilityMultiplier == 0 {
		cfg.VulnerabilityMultiplier = def.VulnerabilityMultiplier
	}
	if cfg.HardenMultiplier == 0 {
		cfg.HardenMultiplier = def.HardenMultiplier
	}
	if cfg.StatDrainMultiplier == 0 {
		cfg.StatDrainMultiplier = def.StatDrainMultiplier
	}
	if cfg.SlowMultiplier == 0 {
		cfg.SlowMultiplier = def.SlowMultiplier
	}
	return &Engine{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Apply inflicts every status effect flagged on def onto target and returns
// the names of the effects applied, in declaration order. Cleanse runs first
// so an action can cleanse and buff in one step.
//
// Stacking effects add def.Effects.Stacks (minimum 1) to the existing count,
// capped at MaxStacks. Timed effects set the remaining turns to the larger of
// the current value and the action's duration. Stun uses
// def.Advanced.StunDuration when set.
//
// Precondition: def and target must be non-nil.
// Postcondition: Every returned Kind name is active on target.
func (e *Engine) Apply(def *action.Definition, target Target) []string {
	st := target.Effects()
	var applied []string

	if def.Effects.Cleanse {
		e.Cleanse(st)
		applied = append(applied, "cleanse")
	}

	for _, k := range KindsFor(def.Effects) {
		ent := st.entries[k]
		if defs[k].Stacking {
			n := def.Effects.Stacks
			if n < 1 {
				n = 1
			}
			ent.Stacks += n
			if e.cfg.MaxStacks > 0 && ent.Stacks > e.cfg.MaxStacks {
				ent.Stacks = e.cfg.MaxStacks
			}
		} else {
			ent.RemainingTurns = max(ent.RemainingTurns, e.duration(def, k))
		}
		st.entries[k] = ent
		applied = append(applied, k.String())
	}
	return applied
}

// ApplyKind inflicts a single effect outside of an action, e.g. from a script.
//
// Precondition: amount > 0.
func (e *Engine) ApplyKind(target Target, k Kind, amount int) {
	st := target.Effects()
	ent := st.entries[k]
	if defs[k].Stacking {
		ent.Stacks += amount
		if e.cfg.MaxStacks > 0 && ent.Stacks > e.cfg.MaxStacks {
			ent.Stacks = e.cfg.MaxStacks
		}
	} else {
		ent.RemainingTurns = max(ent.RemainingTurns, amount)
	}
	st.entries[k] = ent
}

func (e *Engine) duration(def *action.Definition, k Kind) int {
	if k == Stun && def.Advanced.StunDuration > 0 {
		return def.Advanced.StunDuration
	}
	if def.Effects.Duration > 0 {
		return def.Effects.Duration
	}
	return e.cfg.DefaultDuration
}

// Cleanse removes every negative effect from st.
func (e *Engine) Cleanse(st *State) {
	for k := range st.entries {
		if defs[k].Negative {
			st.entries[k] = Entry{}
		}
	}
}

// Notification describes one thing that happened during Tick.
type Notification struct {
	Kind    Kind
	Damage  int  // damage dealt by a stacking effect
	Expired bool // the effect ended on this tick
}

// String renders the notification for logs and narrative output.
func (n Notification) String() string {
	switch {
	case n.Damage > 0 && n.Expired:
		return fmt.Sprintf("%s deals %d damage and fades", n.Kind, n.Damage)
	case n.Damage > 0:
		return fmt.Sprintf("%s deals %d damage", n.Kind, n.Damage)
	case n.Expired:
		return fmt.Sprintf("%s wears off", n.Kind)
	default:
		return fmt.Sprintf("%s ticks", n.Kind)
	}
}

// Tick advances target's effects by one turn. Stacking effects deal
// damage-per-stack times current stacks, then lose StackDecay stacks. Timed
// effects lose one turn and clear at zero.
//
// Postcondition: No counter is negative; every Expired notification names a
// Kind that is no longer active.
func (e *Engine) Tick(target Target) []Notification {
	st := target.Effects()
	var out []Notification
	for k := range st.entries {
		ent := st.entries[k]
		if !ent.Active() {
			continue
		}
		kind := Kind(k)
		if defs[k].Stacking {
			dmg := target.TakeDamage(e.cfg.damagePerStack(kind) * ent.Stacks)
			ent.Stacks = max(ent.Stacks-e.cfg.StackDecay, 0)
			st.entries[k] = ent
			out = append(out, Notification{Kind: kind, Damage: dmg, Expired: !ent.Active()})
			continue
		}
		ent.RemainingTurns--
		if ent.RemainingTurns <= 0 {
			ent.RemainingTurns = 0
		}
		st.entries[k] = ent
		if !ent.Active() {
			out = append(out, Notification{Kind: kind, Expired: true})
		}
	}
	return out
}
