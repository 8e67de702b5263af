// Package config provides Viper-based configuration loading for the combat
// simulator.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SimulationConfig controls a batch run.
type SimulationConfig struct {
	// Runs is the number of combats in a batch.
	Runs int `mapstructure:"runs"`
	// Workers bounds concurrent combats; 0 uses GOMAXPROCS.
	Workers int `mapstructure:"workers"`
	// Seed is the base seed; run i uses Seed+i. 0 draws a random base seed.
	Seed uint64 `mapstructure:"seed"`
	// MaxTurns is the per-combat safety cap.
	MaxTurns int `mapstructure:"max_turns"`
	// Scheduler is "alternating" or "speed".
	Scheduler string `mapstructure:"scheduler"`
	// Quiet suppresses per-turn debug output.
	Quiet bool `mapstructure:"quiet"`
	// Attacker and Defender name combatants in the roster.
	Attacker string `mapstructure:"attacker"`
	Defender string `mapstructure:"defender"`
}

// ContentConfig locates the YAML content the simulator loads.
type ContentConfig struct {
	ActionsDir    string `mapstructure:"actions_dir"`
	CombatantsDir string `mapstructure:"combatants_dir"`
}

// CombatConfig tunes roll classification and status effects.
type CombatConfig struct {
	HitThreshold          int     `mapstructure:"hit_threshold"`
	ComboThreshold        int     `mapstructure:"combo_threshold"`
	CriticalThreshold     int     `mapstructure:"critical_threshold"`
	CriticalMissThreshold int     `mapstructure:"critical_miss_threshold"`
	BleedDamage           int     `mapstructure:"bleed_damage"`
	PoisonDamage          int     `mapstructure:"poison_damage"`
	BurnDamage            int     `mapstructure:"burn_damage"`
	MaxStacks             int     `mapstructure:"max_stacks"`
	EffectDuration        int     `mapstructure:"effect_duration"`
	WeakenMultiplier      float64 `mapstructure:"weaken_multiplier"`
	VulnerabilityMult     float64 `mapstructure:"vulnerability_multiplier"`
}

// AnalysisConfig holds the balance targets a batch is judged against.
type AnalysisConfig struct {
	MinWinRate          float64 `mapstructure:"min_win_rate"`
	MaxWinRate          float64 `mapstructure:"max_win_rate"`
	MinTurns            float64 `mapstructure:"min_turns"`
	MaxTurns            float64 `mapstructure:"max_turns"`
	PhaseImbalanceRatio float64 `mapstructure:"phase_imbalance_ratio"`
}

// ScriptingConfig locates Lua condition scripts.
type ScriptingConfig struct {
	// Dir holds *.lua condition scripts; empty disables scripting.
	Dir string `mapstructure:"dir"`
	// InstructionLimit bounds opcodes per condition call; 0 uses the default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// DatabaseConfig holds PostgreSQL connection settings for the batch archive.
type DatabaseConfig struct {
	// Enabled turns archiving on; the remaining fields are only validated when set.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Content    ContentConfig    `mapstructure:"content"`
	Combat     CombatConfig     `mapstructure:"combat"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Scripting  ScriptingConfig  `mapstructure:"scripting"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateSimulation(c.Simulation),
		validateContent(c.Content),
		validateCombat(c.Combat),
		validateAnalysis(c.Analysis),
		validateScripting(c.Scripting),
		validateLogging(c.Logging),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.Runs < 1 {
		errs = append(errs, fmt.Sprintf("simulation.runs must be >= 1, got %d", s.Runs))
	}
	if s.Workers < 0 {
		errs = append(errs, fmt.Sprintf("simulation.workers must be >= 0, got %d", s.Workers))
	}
	if s.MaxTurns < 1 {
		errs = append(errs, fmt.Sprintf("simulation.max_turns must be >= 1, got %d", s.MaxTurns))
	}
	validSchedulers := map[string]bool{"alternating": true, "speed": true}
	if !validSchedulers[s.Scheduler] {
		errs = append(errs, fmt.Sprintf("simulation.scheduler must be one of [alternating, speed], got %q", s.Scheduler))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	if c.ActionsDir == "" {
		return errors.New("content.actions_dir must not be empty")
	}
	if c.CombatantsDir == "" {
		return errors.New("content.combatants_dir must not be empty")
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.HitThreshold >= c.ComboThreshold {
		errs = append(errs, fmt.Sprintf("combat.hit_threshold (%d) must be below combat.combo_threshold (%d)", c.HitThreshold, c.ComboThreshold))
	}
	if c.CriticalThreshold < 1 || c.CriticalThreshold > 20 {
		errs = append(errs, fmt.Sprintf("combat.critical_threshold must be 1-20, got %d", c.CriticalThreshold))
	}
	if c.CriticalMissThreshold < 0 || c.CriticalMissThreshold >= c.CriticalThreshold {
		errs = append(errs, fmt.Sprintf("combat.critical_miss_threshold must be >= 0 and below the critical threshold, got %d", c.CriticalMissThreshold))
	}
	for name, v := range map[string]int{
		"bleed_damage":    c.BleedDamage,
		"poison_damage":   c.PoisonDamage,
		"burn_damage":     c.BurnDamage,
		"max_stacks":      c.MaxStacks,
		"effect_duration": c.EffectDuration,
	} {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("combat.%s must be >= 0, got %d", name, v))
		}
	}
	if c.WeakenMultiplier < 0 || c.VulnerabilityMult < 0 {
		errs = append(errs, "combat multipliers must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateAnalysis(a AnalysisConfig) error {
	var errs []string
	if a.MinWinRate < 0 || a.MaxWinRate > 1 || a.MinWinRate > a.MaxWinRate {
		errs = append(errs, fmt.Sprintf("analysis win-rate band must satisfy 0 <= min <= max <= 1, got [%g, %g]", a.MinWinRate, a.MaxWinRate))
	}
	if a.MinTurns < 0 || a.MinTurns > a.MaxTurns {
		errs = append(errs, fmt.Sprintf("analysis turn band must satisfy 0 <= min <= max, got [%g, %g]", a.MinTurns, a.MaxTurns))
	}
	if a.PhaseImbalanceRatio < 1 {
		errs = append(errs, fmt.Sprintf("analysis.phase_imbalance_ratio must be >= 1, got %g", a.PhaseImbalanceRatio))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateScripting(s ScriptingConfig) error {
	if s.InstructionLimit < 0 {
		return fmt.Errorf("scripting.instruction_limit must be >= 0, got %d", s.InstructionLimit)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path loads defaults and
// environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// New returns a Viper instance with defaults and COMBATSIM_ environment
// overrides installed, ready for flag binding or file reading.
//
// Postcondition: Returns a non-nil Viper.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("COMBATSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("simulation.runs", 1000)
	v.SetDefault("simulation.workers", 0)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.max_turns", 1000)
	v.SetDefault("simulation.scheduler", "alternating")
	v.SetDefault("simulation.quiet", true)
	v.SetDefault("simulation.attacker", "")
	v.SetDefault("simulation.defender", "")

	v.SetDefault("content.actions_dir", "content/actions")
	v.SetDefault("content.combatants_dir", "content/combatants")

	v.SetDefault("combat.hit_threshold", 6)
	v.SetDefault("combat.combo_threshold", 14)
	v.SetDefault("combat.critical_threshold", 20)
	v.SetDefault("combat.critical_miss_threshold", 0)
	v.SetDefault("combat.bleed_damage", 2)
	v.SetDefault("combat.poison_damage", 4)
	v.SetDefault("combat.burn_damage", 3)
	v.SetDefault("combat.max_stacks", 10)
	v.SetDefault("combat.effect_duration", 3)
	v.SetDefault("combat.weaken_multiplier", 1.5)
	v.SetDefault("combat.vulnerability_multiplier", 1.25)

	v.SetDefault("analysis.min_win_rate", 0.5)
	v.SetDefault("analysis.max_win_rate", 0.9)
	v.SetDefault("analysis.min_turns", 6)
	v.SetDefault("analysis.max_turns", 14)
	v.SetDefault("analysis.phase_imbalance_ratio", 2)

	v.SetDefault("scripting.dir", "")
	v.SetDefault("scripting.instruction_limit", 100000)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "combatsim")
	v.SetDefault("database.password", "combatsim")
	v.SetDefault("database.name", "combatsim")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
