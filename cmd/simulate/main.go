// Package main provides the balance simulation binary: it loads actions and
// combatants, runs batches of one-on-one combats and reports balance issues.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combatsim/internal/config"
	"github.com/cory-johannsen/combatsim/internal/game/action"
	"github.com/cory-johannsen/combatsim/internal/game/combat"
	"github.com/cory-johannsen/combatsim/internal/game/roster"
	"github.com/cory-johannsen/combatsim/internal/observability"
	"github.com/cory-johannsen/combatsim/internal/scripting"
	"github.com/cory-johannsen/combatsim/internal/server"
	"github.com/cory-johannsen/combatsim/internal/simulation"
	"github.com/cory-johannsen/combatsim/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/simulate.yaml", "path to configuration file")
	attackers := flag.String("attacker", "", "comma-separated attacker IDs; overrides simulation.attacker")
	defenders := flag.String("defender", "", "comma-separated defender IDs; overrides simulation.defender")
	runs := flag.Int("runs", 0, "runs per matchup; overrides simulation.runs")
	seed := flag.Uint64("seed", 0, "base seed; overrides simulation.seed")
	workers := flag.Int("workers", 0, "worker goroutines; overrides simulation.workers")
	scheduler := flag.String("scheduler", "", "alternating or speed; overrides simulation.scheduler")
	verbose := flag.Bool("verbose", false, "log every turn at debug level")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	applyOverrides(&cfg, *attackers, *defenders, *runs, *seed, *workers, *scheduler, *verbose)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("validating config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("simulation failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		os.Exit(1)
	}
	logger.Info("simulation complete", zap.Duration("elapsed", time.Since(start)))
}

func applyOverrides(cfg *config.Config, attackers, defenders string, runs int, seed uint64, workers int, scheduler string, verbose bool) {
	if attackers != "" {
		cfg.Simulation.Attacker = attackers
	}
	if defenders != "" {
		cfg.Simulation.Defender = defenders
	}
	if runs > 0 {
		cfg.Simulation.Runs = runs
	}
	if seed != 0 {
		cfg.Simulation.Seed = seed
	}
	if workers > 0 {
		cfg.Simulation.Workers = workers
	}
	if scheduler != "" {
		cfg.Simulation.Scheduler = scheduler
	}
	if verbose {
		cfg.Simulation.Quiet = false
		cfg.Logging.Level = "debug"
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	lc := server.NewLifecycle(logger, 1)
	defer lc.Close()

	loadStart := time.Now()
	catalog, err := action.LoadDirectory(cfg.Content.ActionsDir)
	if err != nil {
		return fmt.Errorf("loading actions: %w", err)
	}
	combatants, err := roster.LoadDirectory(cfg.Content.CombatantsDir)
	if err != nil {
		return fmt.Errorf("loading combatants: %w", err)
	}
	logger.Info("content loaded",
		zap.Int("actions", catalog.Len()),
		zap.Strings("combatants", combatants.IDs()),
		zap.Duration("elapsed", time.Since(loadStart)),
	)

	matchups, err := resolveMatchups(cfg.Simulation, combatants, catalog)
	if err != nil {
		return err
	}

	var conds combat.ConditionEvaluator
	var scripted []string
	if cfg.Scripting.Dir != "" {
		mgr := scripting.NewManager(cfg.Scripting.InstructionLimit, logger)
		if err := mgr.LoadDir(cfg.Scripting.Dir); err != nil {
			return fmt.Errorf("loading condition scripts: %w", err)
		}
		lc.OnShutdown("condition scripts", mgr.Close)
		conds = simulation.NewLuaConditions(mgr)
		scripted = mgr.Conditions()
	}
	warnUnknownConditions(logger, catalog, scripted)

	combatCfg, err := simulation.NewCombatConfig(cfg)
	if err != nil {
		return err
	}
	sim := combat.NewSimulator(combatCfg, conds, observability.CombatLogger(logger, cfg.Simulation.Quiet))
	runner := simulation.NewRunner(sim, logger)
	analyzer := simulation.NewAnalyzer(cfg.Analysis)

	var repo *postgres.BatchRepository
	if cfg.Database.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		lc.OnShutdown("database", pool.Close)
		repo = postgres.NewBatchRepository(pool.DB())
	}

	batchCfg := simulation.BatchConfig{
		Runs:    cfg.Simulation.Runs,
		Workers: cfg.Simulation.Workers,
		Seed:    cfg.Simulation.Seed,
	}
	for _, m := range matchups {
		name := fmt.Sprintf("%s vs %s", m.Attacker.Name, m.Defender.Name)
		lc.Add(name, server.JobFunc(func(ctx context.Context) error {
			b, err := runner.Run(ctx, m, batchCfg)
			if err != nil {
				return err
			}
			analysis := analyzer.Analyze(b.Summary)
			if err := simulation.WriteReport(os.Stdout, name, analysis); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			if repo != nil {
				if err := repo.Save(ctx, b); err != nil {
					return fmt.Errorf("archiving batch: %w", err)
				}
				logger.Info("batch archived", zap.String("batch", b.ID.String()))
			}
			return nil
		}))
	}
	return lc.Run(ctx)
}

// resolveMatchups pairs every configured attacker with every configured
// defender.
func resolveMatchups(sc config.SimulationConfig, r *roster.Roster, cat *action.Catalog) ([]simulation.Matchup, error) {
	attackers := splitIDs(sc.Attacker)
	defenders := splitIDs(sc.Defender)
	if len(attackers) == 0 || len(defenders) == 0 {
		return nil, fmt.Errorf("simulation.attacker and simulation.defender must name combatants (known: %s)",
			strings.Join(r.IDs(), ", "))
	}
	var out []simulation.Matchup
	for _, a := range attackers {
		atk, err := r.Snapshot(a, cat)
		if err != nil {
			return nil, err
		}
		for _, d := range defenders {
			def, err := r.Snapshot(d, cat)
			if err != nil {
				return nil, err
			}
			out = append(out, simulation.Matchup{Attacker: atk, Defender: def})
		}
	}
	return out, nil
}

// warnUnknownConditions logs every trigger condition that is neither built in
// nor defined by a script. Such triggers never hold.
func warnUnknownConditions(logger *zap.Logger, cat *action.Catalog, scripted []string) int {
	known := make(map[string]bool, len(scripted))
	for _, name := range scripted {
		known[name] = true
	}
	unknown := 0
	for _, def := range cat.All() {
		for _, name := range def.Triggers.Conditions {
			if combat.IsBuiltinCondition(name) || known[name] {
				continue
			}
			unknown++
			logger.Warn("action references unknown condition",
				zap.String("action", def.Name),
				zap.String("condition", name),
			)
		}
	}
	return unknown
}

func splitIDs(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
