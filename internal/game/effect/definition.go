// Package effect implements the status-effect model: stacking damage-over-time
// effects and timed conditions, keyed by Kind.
package effect

import (
	"fmt"

	"github.com/cory-johannsen/combatsim/internal/game/action"
)

// Kind identifies one status effect.
type Kind int

const (
	Bleed Kind = iota
	Poison
	Burn
	Weaken
	Slow
	Stun
	Vulnerability
	Harden
	Expose
	Silence
	Pierce
	StatDrain
	Fortify
	Focus
	Reflect
	numKinds
)

// Def is the static description of a Kind.
type Def struct {
	Kind     Kind
	Name     string
	Stacking bool // stack-counted damage over time; otherwise duration-counted
	Negative bool // removed by cleanse
}

var defs = [numKinds]Def{
	Bleed:         {Bleed, "bleed", true, true},
	Poison:        {Poison, "poison", true, true},
	Burn:          {Burn, "burn", true, true},
	Weaken:        {Weaken, "weaken", false, true},
	Slow:          {Slow, "slow", false, true},
	Stun:          {Stun, "stun", false, true},
	Vulnerability: {Vulnerability, "vulnerability", false, true},
	Harden:        {Harden, "harden", false, false},
	Expose:        {Expose, "expose", false, true},
	Silence:       {Silence, "silence", false, true},
	Pierce:        {Pierce, "pierce", false, true},
	StatDrain:     {StatDrain, "stat_drain", false, true},
	Fortify:       {Fortify, "fortify", false, false},
	Focus:         {Focus, "focus", false, false},
	Reflect:       {Reflect, "reflect", false, false},
}

// Lookup returns the Def for k.
//
// Precondition: k is a declared Kind.
func Lookup(k Kind) Def {
	if k < 0 || k >= numKinds {
		panic(fmt.Sprintf("effect: unknown kind %d", int(k)))
	}
	return defs[k]
}

// String returns the effect's catalog name.
func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return defs[k].Name
}

// Kinds returns every declared Kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// KindsFor lists the Kinds flagged on s in declaration order. Cleanse is not
// a Kind and is reported by s.Cleanse alone.
func KindsFor(s action.StatusEffects) []Kind {
	flags := [numKinds]bool{
		Bleed:         s.Bleed,
		Poison:        s.Poison,
		Burn:          s.Burn,
		Weaken:        s.Weaken,
		Slow:          s.Slow,
		Stun:          s.Stun,
		Vulnerability: s.Vulnerability,
		Harden:        s.Harden,
		Expose:        s.Expose,
		Silence:       s.Silence,
		Pierce:        s.Pierce,
		StatDrain:     s.StatDrain,
		Fortify:       s.Fortify,
		Focus:         s.Focus,
		Reflect:       s.Reflect,
	}
	var out []Kind
	for k, on := range flags {
		if on {
			out = append(out, Kind(k))
		}
	}
	return out
}

// Config holds the tunable numbers of the effect model.
type Config struct {
	DefaultDuration         int // turns for timed effects
	MaxStacks               int // cap for stacking effects; 0 is uncapped
	StackDecay              int // stacks removed per tick
	BleedDamagePerStack     int
	PoisonDamagePerStack    int
	BurnDamagePerStack      int
	WeakenMultiplier        float64 // incoming damage multiplier while weakened
	VulnerabilityMultiplier float64
	HardenMultiplier        float64
	StatDrainMultiplier     float64 // outgoing damage multiplier while drained
	SlowMultiplier          float64 // action length multiplier while slowed
	FortifyArmor            int
	FocusRollBonus          int
	ReflectFraction         float64
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		DefaultDuration:         3,
		MaxStacks:               10,
		StackDecay:              1,
		BleedDamagePerStack:     2,
		PoisonDamagePerStack:    4,
		BurnDamagePerStack:      3,
		WeakenMultiplier:        1.5,
		VulnerabilityMultiplier: 1.25,
		HardenMultiplier:        0.75,
		StatDrainMultiplier:     0.8,
		SlowMultiplier:          1.5,
		FortifyArmor:            3,
		FocusRollBonus:          2,
		ReflectFraction:         0.25,
	}
}

func (c Config) damagePerStack(k Kind) int {
	switch k {
	case Bleed:
		return c.BleedDamagePerStack
	case Poison:
		return c.PoisonDamagePerStack
	case Burn:
		return c.BurnDamagePerStack
	}
	return 0
}
