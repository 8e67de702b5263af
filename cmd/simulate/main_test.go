package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/combatsim/internal/config"
	"github.com/cory-johannsen/combatsim/internal/game/action"
	"github.com/cory-johannsen/combatsim/internal/game/combat"
	"github.com/cory-johannsen/combatsim/internal/game/roster"
)

func shippedConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("../../configs/simulate.yaml")
	require.NoError(t, err)
	cfg.Content.ActionsDir = "../../content/actions"
	cfg.Content.CombatantsDir = "../../content/combatants"
	cfg.Scripting.Dir = "../../content/scripts"
	return cfg
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitIDs(" a, ,b ,"))
	assert.Empty(t, splitIDs(""))
}

func TestApplyOverrides(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	applyOverrides(&cfg, "duelist", "dire_wolf", 50, 7, 3, "speed", true)
	assert.Equal(t, "duelist", cfg.Simulation.Attacker)
	assert.Equal(t, "dire_wolf", cfg.Simulation.Defender)
	assert.Equal(t, 50, cfg.Simulation.Runs)
	assert.Equal(t, uint64(7), cfg.Simulation.Seed)
	assert.Equal(t, 3, cfg.Simulation.Workers)
	assert.Equal(t, "speed", cfg.Simulation.Scheduler)
	assert.False(t, cfg.Simulation.Quiet)
	assert.Equal(t, "debug", cfg.Logging.Level)

	before := cfg
	applyOverrides(&cfg, "", "", 0, 0, 0, "", false)
	assert.Equal(t, before, cfg, "zero flags leave the config untouched")
}

func TestShippedContentLoads(t *testing.T) {
	cfg := shippedConfig(t)
	require.NoError(t, cfg.Validate())

	cat, err := action.LoadDirectory(cfg.Content.ActionsDir)
	require.NoError(t, err)
	r, err := roster.LoadDirectory(cfg.Content.CombatantsDir)
	require.NoError(t, err)

	matchups, err := resolveMatchups(cfg.Simulation, r, cat)
	require.NoError(t, err)
	assert.Len(t, matchups, 6)
	for _, m := range matchups {
		assert.NoError(t, m.Attacker.Validate())
		assert.NoError(t, m.Defender.Validate())
	}
}

func TestWarnUnknownConditions(t *testing.T) {
	cfg := shippedConfig(t)
	cat, err := action.LoadDirectory(cfg.Content.ActionsDir)
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	scripted := []string{"target_bleeding", "berserk", "target_burning"}
	assert.Zero(t, warnUnknownConditions(zap.New(core), cat, scripted))
	assert.Zero(t, logs.Len())

	n := warnUnknownConditions(zap.New(core), cat, nil)
	assert.Equal(t, 3, n, "scripted conditions are unknown without scripts")
	assert.Equal(t, 3, logs.FilterMessage("action references unknown condition").Len())
}

func TestResolveMatchupsErrors(t *testing.T) {
	cfg := shippedConfig(t)
	cat, err := action.LoadDirectory(cfg.Content.ActionsDir)
	require.NoError(t, err)
	r, err := roster.LoadDirectory(cfg.Content.CombatantsDir)
	require.NoError(t, err)

	sc := cfg.Simulation
	sc.Attacker = ""
	_, err = resolveMatchups(sc, r, cat)
	assert.ErrorContains(t, err, "must name combatants")

	sc.Attacker = "nobody"
	_, err = resolveMatchups(sc, r, cat)
	assert.ErrorIs(t, err, roster.ErrUnknownCombatant)
}

func TestRunShippedMatchup(t *testing.T) {
	cfg := shippedConfig(t)
	cfg.Simulation.Attacker = "duelist"
	cfg.Simulation.Defender = "dire_wolf"
	cfg.Simulation.Runs = 20
	cfg.Simulation.Seed = 42
	cfg.Simulation.Workers = 2

	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, run(context.Background(), cfg, zap.New(core)))
	assert.Equal(t, 1, logs.FilterMessage("content loaded").Len())
	assert.Equal(t, 1, logs.FilterMessage("batch finished").Len())
	assert.Equal(t, 1, logs.FilterMessage("releasing resource").Len(), "the script manager is closed")
}

func TestRunReleasesScriptsOnSetupError(t *testing.T) {
	cfg := shippedConfig(t)
	cfg.Simulation.Attacker = "duelist"
	cfg.Simulation.Defender = "dire_wolf"
	cfg.Simulation.Scheduler = "initiative"

	core, logs := observer.New(zap.InfoLevel)
	err := run(context.Background(), cfg, zap.New(core))
	assert.ErrorIs(t, err, combat.ErrUnknownScheduler)
	assert.Equal(t, 1, logs.FilterMessage("condition scripts loaded").Len())
	assert.Equal(t, 1, logs.FilterMessage("releasing resource").Len())
	assert.Zero(t, logs.FilterMessage("starting job").Len())
}

func TestRunUnknownCombatantLoadsNoScripts(t *testing.T) {
	cfg := shippedConfig(t)
	cfg.Simulation.Attacker = "nobody"
	cfg.Simulation.Defender = "dire_wolf"

	core, logs := observer.New(zap.InfoLevel)
	require.Error(t, run(context.Background(), cfg, zap.New(core)))
	assert.Zero(t, logs.FilterMessage("condition scripts loaded").Len())
	assert.Zero(t, logs.FilterMessage("releasing resource").Len())
}
