package action_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/combatsim/internal/game/action"
)

const sampleCatalog = `
actions:
  - name: strike
    type: attack
    base_value: 2
  - name: venom-fang
    type: attack
    combo: true
    combo_order: 2
    damage_multiplier: 1.5
    effects: [poison, weaken]
    effect_duration: 4
    routing:
      action: jump_to_slot
      jump_to_slot: 1
  - name: opener
    type: attack
    combo: true
    combo_order: 1
    roll:
      multiple_dice_count: 2
      multiple_dice_mode: best
      critical_miss_threshold_override: 2
    triggers:
      required_tag: rogue
      conditions: [target_below_50]
    attack_bonuses:
      - keyword: attack
        required_count: 2
        bonuses:
          - type: accuracy
            value: 3
`

func TestParse_DecodesGroupedFields(t *testing.T) {
	defs, err := action.Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, defs, 3)

	fang := defs[1]
	assert.Equal(t, "venom-fang", fang.Name)
	assert.True(t, fang.IsCombo)
	assert.True(t, fang.Effects.Poison)
	assert.True(t, fang.Effects.Weaken)
	assert.False(t, fang.Effects.Burn)
	assert.Equal(t, 4, fang.Effects.Duration)
	assert.Equal(t, action.JumpToSlot(0), fang.Routing.Action)

	opener := defs[2]
	assert.Equal(t, action.DiceBest, opener.Roll.MultipleDiceMode)
	assert.Equal(t, 2, opener.Roll.MultipleDiceCount)
	assert.Equal(t, 2, opener.Roll.CriticalMissThresholdOverride)
	assert.Equal(t, "rogue", opener.Triggers.RequiredTag)
	assert.Equal(t, []string{"target_below_50"}, opener.Triggers.Conditions)
	require.Len(t, opener.AttackBonuses, 1)
	assert.Equal(t, action.KeywordAttack, opener.AttackBonuses[0].Keyword)
	assert.Equal(t, action.StatBonus{Type: action.BonusAccuracy, Value: 3}, opener.AttackBonuses[0].Bonuses[0])
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := action.Parse([]byte("actions:\n  - name: x\n    colour: red\n"))
	require.Error(t, err)
}

func TestParse_RejectsUnknownEffect(t *testing.T) {
	_, err := action.Parse([]byte("actions:\n  - name: x\n    effects: [frostbite]\n"))
	require.ErrorIs(t, err, action.ErrInvalidDefinition)
}

func TestValidate_AggregatesViolations(t *testing.T) {
	d := &action.Definition{
		Name:     "broken",
		Advanced: action.Advanced{MultiHitCount: -1, SelfDamagePercent: 150},
		Roll:     action.RollModifiers{RerollChance: 2},
	}
	err := action.Validate(d)
	require.ErrorIs(t, err, action.ErrInvalidDefinition)
	assert.Contains(t, err.Error(), "multi_hit_count")
	assert.Contains(t, err.Error(), "self_damage_percent")
	assert.Contains(t, err.Error(), "reroll_chance")
}

func TestValidate_AcceptsZeroValue(t *testing.T) {
	assert.NoError(t, action.Validate(&action.Definition{Name: "plain"}))
}

func TestLoadDirectory_BuildsCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core.yaml"), []byte(sampleCatalog), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	cat, err := action.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, cat.Len())

	_, err = cat.Get("missing")
	require.ErrorIs(t, err, action.ErrUnknownAction)

	seq, err := cat.ComboSequence([]string{"venom-fang", "opener"})
	require.NoError(t, err)
	require.Len(t, seq, 2)
	assert.Equal(t, "opener", seq[0].Name)
	assert.Equal(t, "venom-fang", seq[1].Name)
}

func TestLoadDirectory_RejectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	doc := []byte("actions:\n  - name: strike\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), doc, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), doc, 0o644))

	_, err := action.LoadDirectory(dir)
	require.ErrorIs(t, err, action.ErrInvalidDefinition)
}

func TestAdvanced_HitCount(t *testing.T) {
	assert.Equal(t, 1, action.Advanced{}.HitCount())
	assert.Equal(t, 3, action.Advanced{MultiHitCount: 3}.HitCount())
	assert.Equal(t, 4, action.Advanced{MultiHitCount: 2, ExtraAttacks: 2}.HitCount())
}

func TestComboRouting_AllowedInSlot(t *testing.T) {
	assert.True(t, action.ComboRouting{}.AllowedInSlot(5))
	gated := action.ComboRouting{TriggerOnlyInSlot: 2}
	assert.True(t, gated.AllowedInSlot(1))
	assert.False(t, gated.AllowedInSlot(0))
}
