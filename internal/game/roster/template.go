// Package roster loads combatant templates and turns them into combat
// snapshots by resolving their action names against an action catalog.
package roster

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/combatsim/internal/game/action"
	"github.com/cory-johannsen/combatsim/internal/game/combat"
)

// ErrUnknownCombatant is returned when a roster lookup names no template.
var ErrUnknownCombatant = errors.New("unknown combatant")

// Stats holds the four core stats of a template.
type Stats struct {
	Strength     int `yaml:"strength"`
	Agility      int `yaml:"agility"`
	Technique    int `yaml:"technique"`
	Intelligence int `yaml:"intelligence"`
}

// Template defines a reusable combatant loaded from YAML.
type Template struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	MaxHealth   int    `yaml:"max_health"`
	// Health is the starting health; 0 starts at max_health.
	Health         int      `yaml:"health"`
	Armor          int      `yaml:"armor"`
	Speed          float64  `yaml:"speed"`
	ComboAmplifier float64  `yaml:"combo_amplifier"`
	RollBonus      int      `yaml:"roll_bonus"`
	Stats          Stats    `yaml:"stats"`
	Tags           []string `yaml:"tags"`
	// BasicAttack names the catalog action used on a plain hit.
	BasicAttack string `yaml:"basic_attack"`
	// Combo names the catalog actions of the combo sequence. They are
	// ordered by combo_order, then name.
	Combo []string `yaml:"combo"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil, or an error describing the first violation.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("combatant template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("combatant template %q: name must not be empty", t.ID)
	}
	if t.MaxHealth < 1 {
		return fmt.Errorf("combatant template %q: max_health must be >= 1", t.ID)
	}
	if t.Health < 0 || t.Health > t.MaxHealth {
		return fmt.Errorf("combatant template %q: health must be in [0, max_health]", t.ID)
	}
	if t.Armor < 0 {
		return fmt.Errorf("combatant template %q: armor must be >= 0", t.ID)
	}
	if t.Speed < 0 || t.ComboAmplifier < 0 {
		return fmt.Errorf("combatant template %q: speed and combo_amplifier must be >= 0", t.ID)
	}
	if t.BasicAttack == "" {
		return fmt.Errorf("combatant template %q: basic_attack must not be empty", t.ID)
	}
	return nil
}

// Snapshot resolves t's actions against cat.
//
// Postcondition: Returns a Snapshot passing combat.Snapshot.Validate, or an
// error wrapping action.ErrUnknownAction.
func (t *Template) Snapshot(cat *action.Catalog) (combat.Snapshot, error) {
	basic, err := cat.Get(t.BasicAttack)
	if err != nil {
		return combat.Snapshot{}, fmt.Errorf("combatant %q: basic attack: %w", t.ID, err)
	}
	seq, err := cat.ComboSequence(t.Combo)
	if err != nil {
		return combat.Snapshot{}, fmt.Errorf("combatant %q: combo: %w", t.ID, err)
	}
	return combat.Snapshot{
		Name: t.Name,
		Stats: combat.Stats{
			Strength:     t.Stats.Strength,
			Agility:      t.Stats.Agility,
			Technique:    t.Stats.Technique,
			Intelligence: t.Stats.Intelligence,
		},
		MaxHealth:      t.MaxHealth,
		Health:         t.Health,
		Armor:          t.Armor,
		Speed:          t.Speed,
		ComboAmplifier: t.ComboAmplifier,
		RollBonus:      t.RollBonus,
		Tags:           append([]string(nil), t.Tags...),
		BasicAttack:    basic,
		ComboActions:   seq,
	}, nil
}

// LoadTemplateFromBytes parses a single combatant template from raw YAML.
// Unknown keys are rejected.
//
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// Roster holds validated templates keyed by ID.
type Roster struct {
	templates map[string]*Template
}

// NewRoster creates an empty Roster.
func NewRoster() *Roster {
	return &Roster{templates: make(map[string]*Template)}
}

// Add registers t.
//
// Postcondition: Returns an error if a template with t.ID already exists.
func (r *Roster) Add(t *Template) error {
	if _, dup := r.templates[t.ID]; dup {
		return fmt.Errorf("combatant template %q defined twice", t.ID)
	}
	r.templates[t.ID] = t
	return nil
}

// Get returns the template with id.
func (r *Roster) Get(id string) (*Template, error) {
	t, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCombatant, id)
	}
	return t, nil
}

// IDs returns every template ID, sorted.
func (r *Roster) IDs() []string {
	out := make([]string, 0, len(r.templates))
	for id := range r.templates {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Snapshot looks up id and resolves it against cat.
func (r *Roster) Snapshot(id string, cat *action.Catalog) (combat.Snapshot, error) {
	t, err := r.Get(id)
	if err != nil {
		return combat.Snapshot{}, err
	}
	return t.Snapshot(cat)
}

// LoadDirectory reads all *.yaml files in dir into a Roster.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a Roster or an error on the first parse, validate,
// or duplicate-ID failure.
func LoadDirectory(dir string) (*Roster, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading combatant dir %q: %w", dir, err)
	}

	r := NewRoster()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if err := r.Add(tmpl); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return r, nil
}
