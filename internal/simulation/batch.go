package simulation

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/combatsim/internal/game/combat"
	"github.com/cory-johannsen/combatsim/internal/game/dice"
	"github.com/cory-johannsen/combatsim/internal/observability"
)

// Matchup is the pair of combatants a batch repeats.
type Matchup struct {
	Attacker combat.Snapshot
	Defender combat.Snapshot
}

// BatchConfig controls one batch run.
type BatchConfig struct {
	Runs int
	// Workers bounds concurrency; 0 uses GOMAXPROCS.
	Workers int
	// Seed is the base seed; run i uses Seed+i. 0 draws a fresh seed.
	Seed uint64
	// KeepResults retains every per-run Result in Batch.Results.
	KeepResults bool
}

// Batch is the outcome of one batch run.
type Batch struct {
	ID        uuid.UUID
	Attacker  string
	Defender  string
	Seed      uint64
	Workers   int
	Summary   Summary
	Results   []combat.Result
	StartedAt time.Time
	Duration  time.Duration
}

// Runner executes batches on a shared Simulator.
type Runner struct {
	sim    *combat.Simulator
	logger *zap.Logger
}

// NewRunner creates a Runner.
//
// Precondition: sim must be non-nil. A nil logger discards output.
func NewRunner(sim *combat.Simulator, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{sim: sim, logger: logger}
}

// Run simulates m cfg.Runs times across a bounded worker pool. Each worker
// accumulates its own totals; they are merged after every worker finishes.
// Cancellation is checked between combats, never inside one.
//
// Precondition: cfg.Runs >= 1.
// Postcondition: On success Summary.Runs == cfg.Runs and the Summary does
// not depend on cfg.Workers.
func (r *Runner) Run(ctx context.Context, m Matchup, cfg BatchConfig) (*Batch, error) {
	if cfg.Runs < 1 {
		return nil, fmt.Errorf("simulation: runs must be >= 1, got %d", cfg.Runs)
	}
	for _, s := range []combat.Snapshot{m.Attacker, m.Defender} {
		if err := s.Validate(); err != nil && !errors.Is(err, combat.ErrNoBasicAttack) {
			return nil, fmt.Errorf("simulation: %w", err)
		}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, cfg.Runs)
	seed := cfg.Seed
	if seed == 0 {
		seed = dice.NewSeed()
	}

	b := &Batch{
		ID:        uuid.New(),
		Attacker:  m.Attacker.Name,
		Defender:  m.Defender.Name,
		Seed:      seed,
		Workers:   workers,
		StartedAt: time.Now(),
	}
	logger := r.logger.With(zap.String("batch", b.ID.String()))
	logger.Info("batch started",
		zap.String("attacker", b.Attacker),
		zap.String("defender", b.Defender),
		zap.Int("runs", cfg.Runs),
		zap.Int("workers", workers),
		zap.Uint64("seed", seed),
	)

	if cfg.KeepResults {
		b.Results = make([]combat.Result, cfg.Runs)
	}
	accs := make([]Accumulator, workers)
	progress := observability.NewProgress(logger, "batch progress", cfg.Runs, 0)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := w; i < cfg.Runs; i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				res := r.runOne(logger, m, seed+uint64(i))
				accs[w].Add(res)
				if b.Results != nil {
					b.Results[i] = res
				}
				progress.Done()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn("batch aborted", zap.Int64("completed", progress.Completed()), zap.Error(err))
		return nil, fmt.Errorf("simulation: batch aborted after %d runs: %w", progress.Completed(), err)
	}

	var total Accumulator
	for i := range accs {
		total.Merge(&accs[i])
	}
	b.Summary = total.Summary()
	b.Duration = time.Since(b.StartedAt)
	logger.Info("batch finished",
		zap.Float64("win_rate", b.Summary.WinRate),
		zap.Float64("avg_turns", b.Summary.AvgTurns),
		zap.Int("inconclusive", b.Summary.Inconclusive),
		zap.Duration("elapsed", b.Duration),
	)
	return b, nil
}

// runOne simulates a single combat. A panic degrades to an Inconclusive
// result instead of failing the batch.
func (r *Runner) runOne(logger *zap.Logger, m Matchup, seed uint64) (res combat.Result) {
	defer func() {
		if p := recover(); p != nil {
			logger.Warn("combat panicked", zap.Uint64("seed", seed), zap.Any("panic", p))
			res = combat.Result{
				Seed:         seed,
				Inconclusive: true,
				Err:          fmt.Errorf("combat panicked: %v", p),
			}
		}
	}()
	return r.sim.SimulateCombat(m.Attacker, m.Defender, seed)
}
