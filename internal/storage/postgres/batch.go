package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/combatsim/internal/simulation"
)

// ErrBatchNotFound is returned when a batch lookup yields no results.
var ErrBatchNotFound = errors.New("batch not found")

// ErrBatchExists is returned when a batch ID has already been archived.
var ErrBatchExists = errors.New("batch already archived")

// BatchRepository archives batch summaries. Per-run results are never
// stored.
type BatchRepository struct {
	db *pgxpool.Pool
}

// NewBatchRepository creates a BatchRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBatchRepository(db *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{db: db}
}

const batchColumns = `id, attacker, defender, seed, workers,
	runs, attacker_wins, defender_wins, inconclusive, win_rate,
	avg_turns, stddev_turns, min_turns, max_turns,
	avg_phase1, avg_phase2, avg_phase3,
	avg_attacker_damage, avg_defender_damage,
	fast_wins, target_wins, slow_wins,
	started_at, duration_ms`

// Save inserts b's summary.
//
// Precondition: b must be non-nil with Summary.Runs >= 1.
// Postcondition: Returns nil, ErrBatchExists for a duplicate ID, or a
// wrapped database error.
func (r *BatchRepository) Save(ctx context.Context, b *simulation.Batch) error {
	s := b.Summary
	// seed is a uint64 stored bit-for-bit in a BIGINT.
	tag, err := r.db.Exec(ctx,
		`INSERT INTO batches (`+batchColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		         $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		 ON CONFLICT (id) DO NOTHING`,
		b.ID.String(), b.Attacker, b.Defender, int64(b.Seed), b.Workers,
		s.Runs, s.AttackerWins, s.DefenderWins, s.Inconclusive, s.WinRate,
		s.AvgTurns, s.StdDevTurns, s.MinTurns, s.MaxTurns,
		s.AvgPhase1, s.AvgPhase2, s.AvgPhase3,
		s.AvgAttackerDamage, s.AvgDefenderDamage,
		s.FastWins, s.TargetWins, s.SlowWins,
		b.StartedAt, b.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting batch %s: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrBatchExists, b.ID)
	}
	return nil
}

// Get returns the archived batch with id. Results is always empty.
//
// Postcondition: Returns the batch, or ErrBatchNotFound.
func (r *BatchRepository) Get(ctx context.Context, id uuid.UUID) (*simulation.Batch, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE id = $1`, id.String())
	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying batch %s: %w", id, err)
	}
	return b, nil
}

// ListByMatchup returns up to limit batches for attacker vs defender,
// newest first.
//
// Precondition: limit >= 1.
func (r *BatchRepository) ListByMatchup(ctx context.Context, attacker, defender string, limit int) ([]*simulation.Batch, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+batchColumns+` FROM batches
		 WHERE attacker = $1 AND defender = $2
		 ORDER BY created_at DESC, started_at DESC
		 LIMIT $3`,
		attacker, defender, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	var out []*simulation.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning batch: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	return out, nil
}

func scanBatch(row pgx.Row) (*simulation.Batch, error) {
	var (
		b          simulation.Batch
		id         string
		seed       int64
		durationMS int64
	)
	s := &b.Summary
	err := row.Scan(
		&id, &b.Attacker, &b.Defender, &seed, &b.Workers,
		&s.Runs, &s.AttackerWins, &s.DefenderWins, &s.Inconclusive, &s.WinRate,
		&s.AvgTurns, &s.StdDevTurns, &s.MinTurns, &s.MaxTurns,
		&s.AvgPhase1, &s.AvgPhase2, &s.AvgPhase3,
		&s.AvgAttackerDamage, &s.AvgDefenderDamage,
		&s.FastWins, &s.TargetWins, &s.SlowWins,
		&b.StartedAt, &durationMS,
	)
	if err != nil {
		return nil, err
	}
	if b.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing batch id %q: %w", id, err)
	}
	b.Seed = uint64(seed)
	b.Duration = time.Duration(durationMS) * time.Millisecond
	return &b, nil
}
