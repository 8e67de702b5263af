// Package simulation runs batches of one-on-one combats, aggregates their
// results and analyzes the aggregate for balance problems.
package simulation

import (
	"fmt"

	"github.com/cory-johannsen/combatsim/internal/config"
	"github.com/cory-johannsen/combatsim/internal/game/combat"
	"github.com/cory-johannsen/combatsim/internal/game/effect"
	"github.com/cory-johannsen/combatsim/internal/scripting"
)

// NewCombatConfig converts the loaded configuration into the combat
// engine's configuration.
//
// Precondition: cfg passed config.Validate.
// Postcondition: Returns a Config with a non-nil Scheduler, or an error for
// an unknown scheduler name.
func NewCombatConfig(cfg config.Config) (combat.Config, error) {
	sched, err := combat.NewScheduler(cfg.Simulation.Scheduler)
	if err != nil {
		return combat.Config{}, fmt.Errorf("simulation: %w", err)
	}

	effects := effect.DefaultConfig()
	effects.DefaultDuration = cfg.Combat.EffectDuration
	effects.MaxStacks = cfg.Combat.MaxStacks
	effects.BleedDamagePerStack = cfg.Combat.BleedDamage
	effects.PoisonDamagePerStack = cfg.Combat.PoisonDamage
	effects.BurnDamagePerStack = cfg.Combat.BurnDamage
	effects.WeakenMultiplier = cfg.Combat.WeakenMultiplier
	effects.VulnerabilityMultiplier = cfg.Combat.VulnerabilityMult

	return combat.Config{
		MaxTurns: cfg.Simulation.MaxTurns,
		Thresholds: combat.Thresholds{
			Hit:          cfg.Combat.HitThreshold,
			Combo:        cfg.Combat.ComboThreshold,
			Critical:     cfg.Combat.CriticalThreshold,
			CriticalMiss: cfg.Combat.CriticalMissThreshold,
		},
		Scheduler: sched,
		Effects:   effects,
		Mode:      combat.SimulationMode{Quiet: cfg.Simulation.Quiet},
	}, nil
}

// LuaConditions resolves trigger conditions through condition scripts.
// Each combat gets its own script session through ForEncounter, so script
// state never leaks between combats. It is safe for concurrent use because
// scripting.Manager is.
type LuaConditions struct {
	mgr *scripting.Manager
}

// NewLuaConditions wraps mgr. A nil mgr knows no conditions.
func NewLuaConditions(mgr *scripting.Manager) *LuaConditions {
	return &LuaConditions{mgr: mgr}
}

// Evaluate implements combat.ConditionEvaluator outside any combat; every
// call sees freshly loaded scripts.
func (l *LuaConditions) Evaluate(name string, sit combat.Situation) (bool, bool) {
	if l == nil || l.mgr == nil {
		return false, false
	}
	return l.mgr.Evaluate(name, conditionContext(sit))
}

// ForEncounter implements combat.EncounterScoped.
func (l *LuaConditions) ForEncounter() (combat.ConditionEvaluator, func(), error) {
	if l == nil || l.mgr == nil {
		return l, func() {}, nil
	}
	sess, err := l.mgr.NewSession()
	if err != nil {
		return nil, nil, fmt.Errorf("simulation: starting script session: %w", err)
	}
	return luaSession{sess: sess}, sess.Close, nil
}

// luaSession evaluates conditions for a single combat.
type luaSession struct {
	sess *scripting.Session
}

func (s luaSession) Evaluate(name string, sit combat.Situation) (bool, bool) {
	return s.sess.Evaluate(name, conditionContext(sit))
}

func conditionContext(sit combat.Situation) scripting.ConditionContext {
	return scripting.ConditionContext{
		Turn:      sit.Turn,
		TotalRoll: sit.TotalRoll,
		Actor:     combatantInfo(sit.Actor),
		Target:    combatantInfo(sit.Target),
	}
}

func combatantInfo(c *combat.Combatant) scripting.CombatantInfo {
	if c == nil {
		return scripting.CombatantInfo{}
	}
	kinds := c.Effects().ActiveKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return scripting.CombatantInfo{
		Name:      c.Name(),
		Health:    c.Health(),
		MaxHealth: c.MaxHealth(),
		Armor:     c.Armor(),
		ComboSlot: c.Combo.Slot,
		Effects:   names,
		Tags:      c.Tags(),
	}
}
