package simulation_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/combatsim/internal/config"
	"github.com/cory-johannsen/combatsim/internal/game/action"
	"github.com/cory-johannsen/combatsim/internal/game/combat"
	"github.com/cory-johannsen/combatsim/internal/game/effect"
	"github.com/cory-johannsen/combatsim/internal/scripting"
	"github.com/cory-johannsen/combatsim/internal/simulation"
)

func loadScripts(t *testing.T, src string) *scripting.Manager {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conditions.lua"), []byte(src), 0644))
	mgr := scripting.NewManager(0, nil)
	t.Cleanup(mgr.Close)
	require.NoError(t, mgr.LoadDir(dir))
	return mgr
}

func TestNewCombatConfig_MapsSections(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Simulation.Scheduler = "speed"
	cfg.Simulation.MaxTurns = 250
	cfg.Simulation.Quiet = false
	cfg.Combat.HitThreshold = 5
	cfg.Combat.CriticalMissThreshold = 1
	cfg.Combat.PoisonDamage = 7
	cfg.Combat.EffectDuration = 4

	cc, err := simulation.NewCombatConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 250, cc.MaxTurns)
	assert.Equal(t, "speed", cc.Scheduler.Name())
	assert.False(t, cc.Mode.Quiet)
	assert.Equal(t, combat.Thresholds{Hit: 5, Combo: 14, Critical: 20, CriticalMiss: 1}, cc.Thresholds)
	assert.Equal(t, 7, cc.Effects.PoisonDamagePerStack)
	assert.Equal(t, 4, cc.Effects.DefaultDuration)
	assert.Equal(t, effect.DefaultConfig().FocusRollBonus, cc.Effects.FocusRollBonus, "unconfigured effect knobs keep their defaults")
}

func TestNewCombatConfig_UnknownScheduler(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Simulation.Scheduler = "initiative"
	_, err = simulation.NewCombatConfig(cfg)
	assert.ErrorIs(t, err, combat.ErrUnknownScheduler)
}

func TestLuaConditions_PassesCombatantState(t *testing.T) {
	mgr := loadScripts(t, `
		function condition_setup(ctx)
			return ctx.turn == 3
				and ctx.total_roll == 17
				and ctx.actor.name == "hero"
				and ctx.actor.tags.berserker == true
				and ctx.actor.combo_slot == 2
				and ctx.target.health == 30
				and ctx.target.max_health == 40
				and ctx.target.armor == 2
				and engine.has_effect(ctx.target, "poison")
		end
	`)
	hero := combat.NewCombatant(combat.Snapshot{Name: "hero", MaxHealth: 50, Tags: []string{"berserker"}})
	hero.Combo.Slot = 2
	wolf := combat.NewCombatant(combat.Snapshot{Name: "wolf", MaxHealth: 40, Health: 30, Armor: 2})
	wolf.Effects().Set(effect.Poison, effect.Entry{Stacks: 2})

	conds := simulation.NewLuaConditions(mgr)
	v, known := conds.Evaluate("setup", combat.Situation{Actor: hero, Target: wolf, Turn: 3, TotalRoll: 17})
	assert.True(t, known)
	assert.True(t, v)
}

func TestLuaConditions_NilManager(t *testing.T) {
	v, known := simulation.NewLuaConditions(nil).Evaluate("anything", combat.Situation{})
	assert.False(t, v)
	assert.False(t, known)
}

func TestLuaConditions_GateActionSelection(t *testing.T) {
	mgr := loadScripts(t, `
		function condition_never(ctx) return false end
		function condition_always(ctx) return true end
	`)
	gated := &action.Definition{Name: "forbidden", Type: action.TypeAttack, BaseValue: 50, IsCombo: true,
		Triggers: action.Triggers{Conditions: []string{"never"}}}
	open := &action.Definition{Name: "allowed", Type: action.TypeAttack, BaseValue: 5, IsCombo: true,
		Triggers: action.Triggers{Conditions: []string{"always"}}}
	hero := combat.Snapshot{Name: "hero", MaxHealth: 30,
		BasicAttack: &action.Definition{Name: "jab", Type: action.TypeAttack, BaseValue: 1}, ComboActions: []*action.Definition{gated, open}}
	wolf := combat.Snapshot{Name: "wolf", MaxHealth: 30,
		BasicAttack: &action.Definition{Name: "bite", Type: action.TypeAttack, BaseValue: 1}}

	cfg := combat.DefaultConfig()
	cfg.Thresholds = alwaysCombo
	cfg.Mode = combat.SimulationMode{Quiet: true, RecordEvents: true}
	sim := combat.NewSimulator(cfg, simulation.NewLuaConditions(mgr), nil)

	res := sim.SimulateCombat(hero, wolf, 11)
	require.NotEmpty(t, res.Events)
	for _, ev := range res.Events {
		assert.NotEqual(t, "forbidden", ev.Action)
		if ev.Actor == "hero" && !ev.Skipped {
			assert.Equal(t, "allowed", ev.Action)
		}
	}
}

func TestLuaConditions_ScriptStateResetsPerCombat(t *testing.T) {
	mgr := loadScripts(t, `
		calls = 0
		function condition_first_three(ctx)
			calls = calls + 1
			return calls <= 3
		end
	`)
	opener := &action.Definition{Name: "opener", Type: action.TypeAttack, BaseValue: 2, IsCombo: true,
		Triggers: action.Triggers{Conditions: []string{"first_three"}}}
	hero := combat.Snapshot{Name: "hero", MaxHealth: 60,
		BasicAttack: &action.Definition{Name: "jab", Type: action.TypeAttack, BaseValue: 1}, ComboActions: []*action.Definition{opener}}
	wolf := combat.Snapshot{Name: "wolf", MaxHealth: 60,
		BasicAttack: &action.Definition{Name: "bite", Type: action.TypeAttack, BaseValue: 1}}

	cfg := combat.DefaultConfig()
	cfg.Thresholds = alwaysCombo
	cfg.MaxTurns = 20
	cfg.Mode = combat.SimulationMode{Quiet: true, RecordEvents: true}
	sim := combat.NewSimulator(cfg, simulation.NewLuaConditions(mgr), nil)

	first := sim.SimulateCombat(hero, wolf, 5)
	second := sim.SimulateCombat(hero, wolf, 5)
	require.NoError(t, first.Err)
	assert.Equal(t, first, second)

	openers := 0
	for _, ev := range second.Events {
		if ev.Action == "opener" {
			openers++
		}
	}
	assert.Equal(t, 3, openers, "each combat starts with fresh script globals")
}

func TestLuaConditions_ForEncounterWithoutScripts(t *testing.T) {
	eval, release, err := simulation.NewLuaConditions(nil).ForEncounter()
	require.NoError(t, err)
	defer release()
	v, known := eval.Evaluate("anything", combat.Situation{})
	assert.False(t, v)
	assert.False(t, known)
}
