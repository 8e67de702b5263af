package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/combatsim/internal/scripting"
)

func newTestManager(t testing.TB, limit int) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	mgr := scripting.NewManager(limit, zap.New(core))
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

func ctxWith(actorHP, targetHP int) scripting.ConditionContext {
	return scripting.ConditionContext{
		Turn:      4,
		TotalRoll: 15,
		Actor:     scripting.CombatantInfo{Name: "hero", Health: actorHP, MaxHealth: 100, Tags: []string{"berserker"}},
		Target:    scripting.CombatantInfo{Name: "wolf", Health: targetHP, MaxHealth: 100, Effects: []string{"poison"}},
	}
}

func TestManager_LoadDir_DiscoversConditions(t *testing.T) {
	mgr, logs := newTestManager(t, 0)
	dir := writeTempLua(t, "conds.lua", `
		function condition_bloodied(ctx) return ctx.actor.health < 50 end
		function condition_late(ctx) return ctx.turn > 10 end
		function helper() return 1 end
	`)
	require.NoError(t, mgr.LoadDir(dir))
	assert.Equal(t, []string{"bloodied", "late"}, mgr.Conditions())
	assert.Equal(t, 1, logs.FilterMessage("condition scripts loaded").Len())
}

func TestManager_LoadDir_LexicographicOrder(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`threshold = 10`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`
		threshold = threshold + 5
		function condition_roll_high(ctx) return ctx.total_roll >= threshold end
	`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`not lua`), 0644))
	require.NoError(t, mgr.LoadDir(dir))

	v, known := mgr.Evaluate("roll_high", ctxWith(100, 100))
	assert.True(t, known)
	assert.True(t, v)
}

func TestManager_LoadDir_Errors(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	assert.Error(t, mgr.LoadDir(filepath.Join(t.TempDir(), "missing")))

	bad := writeTempLua(t, "bad.lua", `function condition_x(ctx) return end end`)
	assert.Error(t, mgr.LoadDir(bad))
	assert.Empty(t, mgr.Conditions())
}

func TestManager_Evaluate_ReadsContext(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := writeTempLua(t, "conds.lua", `
		function condition_target_weak(ctx) return engine.health_fraction(ctx.target) <= 0.25 end
		function condition_target_poisoned(ctx) return engine.has_effect(ctx.target, "poison") end
		function condition_is_berserker(ctx) return ctx.actor.tags.berserker == true end
	`)
	require.NoError(t, mgr.LoadDir(dir))

	v, known := mgr.Evaluate("target_weak", ctxWith(100, 20))
	assert.True(t, known)
	assert.True(t, v)
	v, _ = mgr.Evaluate("target_weak", ctxWith(100, 80))
	assert.False(t, v)

	v, _ = mgr.Evaluate("target_poisoned", ctxWith(100, 80))
	assert.True(t, v)
	v, _ = mgr.Evaluate("is_berserker", ctxWith(100, 80))
	assert.True(t, v)
}

func TestManager_Evaluate_Unknown(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	v, known := mgr.Evaluate("anything", ctxWith(1, 1))
	assert.False(t, v)
	assert.False(t, known)
}

func TestManager_Evaluate_RuntimeErrorLogsWarn(t *testing.T) {
	mgr, logs := newTestManager(t, 0)
	dir := writeTempLua(t, "conds.lua", `
		function condition_broken(ctx) error("boom") end
		function condition_fine(ctx) return true end
	`)
	require.NoError(t, mgr.LoadDir(dir))

	v, known := mgr.Evaluate("broken", ctxWith(1, 1))
	assert.True(t, known)
	assert.False(t, v)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())

	v, _ = mgr.Evaluate("fine", ctxWith(1, 1))
	assert.True(t, v, "the VM stays usable after an error")
}

func TestManager_Evaluate_InstructionBudgetIsPerCall(t *testing.T) {
	mgr, _ := newTestManager(t, 200)
	dir := writeTempLua(t, "conds.lua", `
		function condition_spin(ctx) while true do end end
		function condition_cheap(ctx) return ctx.turn == 4 end
	`)
	require.NoError(t, mgr.LoadDir(dir))

	v, known := mgr.Evaluate("spin", ctxWith(1, 1))
	assert.True(t, known)
	assert.False(t, v)

	for i := 0; i < 100; i++ {
		v, _ = mgr.Evaluate("cheap", ctxWith(1, 1))
		require.True(t, v, "call %d", i)
	}
}

func TestManager_Evaluate_ScriptStateDoesNotPersist(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := writeTempLua(t, "conds.lua", `
		calls = 0
		function condition_first_call(ctx)
			calls = calls + 1
			return calls == 1
		end
	`)
	require.NoError(t, mgr.LoadDir(dir))

	for i := 0; i < 3; i++ {
		v, known := mgr.Evaluate("first_call", ctxWith(1, 1))
		require.True(t, known)
		assert.True(t, v, "call %d", i)
	}
}

func TestSession_StateIsScopedToSession(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := writeTempLua(t, "conds.lua", `
		local seen = 0
		function condition_fresh(ctx)
			seen = seen + 1
			return seen <= 2
		end
	`)
	require.NoError(t, mgr.LoadDir(dir))

	run := func() []bool {
		sess, err := mgr.NewSession()
		require.NoError(t, err)
		defer sess.Close()
		var out []bool
		for i := 0; i < 4; i++ {
			v, known := sess.Evaluate("fresh", ctxWith(1, 1))
			require.True(t, known)
			out = append(out, v)
		}
		return out
	}
	assert.Equal(t, []bool{true, true, false, false}, run())
	assert.Equal(t, []bool{true, true, false, false}, run(), "a new session replays the scripts")
}

func TestSession_OutlivesManagerClose(t *testing.T) {
	core, _ := observer.New(zap.DebugLevel)
	mgr := scripting.NewManager(0, zap.New(core))
	dir := writeTempLua(t, "conds.lua", `function condition_yes(ctx) return true end`)
	require.NoError(t, mgr.LoadDir(dir))

	sess, err := mgr.NewSession()
	require.NoError(t, err)
	defer sess.Close()
	mgr.Close()

	v, known := sess.Evaluate("yes", ctxWith(1, 1))
	assert.True(t, known)
	assert.True(t, v)
	_, known = mgr.Evaluate("yes", ctxWith(1, 1))
	assert.False(t, known)
}

func TestManager_Evaluate_Concurrent(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := writeTempLua(t, "conds.lua", `function condition_hurt(ctx) return ctx.actor.health < ctx.actor.max_health end`)
	require.NoError(t, mgr.LoadDir(dir))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(hp int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				v, _ := mgr.Evaluate("hurt", ctxWith(hp, 100))
				assert.Equal(t, hp < 100, v)
			}
		}(95 + i)
	}
	wg.Wait()
}

func TestPropertyManager_InfiniteLoopAlwaysStops(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(10, 500).Draw(t, "limit")
		mgr := scripting.NewManager(limit, nil)
		defer mgr.Close()
		dir, err := os.MkdirTemp("", "cond")
		if err != nil {
			t.Fatalf("temp dir: %v", err)
		}
		defer os.RemoveAll(dir)
		if err := os.WriteFile(filepath.Join(dir, "spin.lua"), []byte(`function condition_spin(ctx) while true do end end`), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := mgr.LoadDir(dir); err != nil {
			t.Fatalf("load: %v", err)
		}
		if v, known := mgr.Evaluate("spin", scripting.ConditionContext{}); v || !known {
			t.Fatalf("limit=%d: got (%v, %v)", limit, v, known)
		}
	})
}
