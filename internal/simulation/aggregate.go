package simulation

import (
	"math"

	"github.com/cory-johannsen/combatsim/internal/game/combat"
)

// Turn-count bucket edges for attacker wins.
const (
	FastWinTurns = 6
	SlowWinTurns = 14
)

// Summary aggregates a batch of combat results.
//
// Invariant: AttackerWins + DefenderWins + Inconclusive == Runs.
// FastWins + TargetWins + SlowWins == AttackerWins.
type Summary struct {
	Runs         int
	AttackerWins int
	DefenderWins int
	Inconclusive int
	WinRate      float64 // attacker wins / runs

	AvgTurns    float64
	StdDevTurns float64
	MinTurns    int
	MaxTurns    int

	// Phase averages cover attacker wins only.
	AvgPhase1 float64
	AvgPhase2 float64
	AvgPhase3 float64

	AvgAttackerDamage float64
	AvgDefenderDamage float64

	FastWins   int // won in at most FastWinTurns
	TargetWins int
	SlowWins   int // won in more than SlowWinTurns
}

// Accumulator collects running totals for a Summary. A worker owns one
// Accumulator; Merge combines them once every worker has finished.
// The zero value is ready to use.
type Accumulator struct {
	runs, attackerWins, defenderWins, inconclusive int

	turns, turnsSq     float64
	minTurns, maxTurns int

	phase1, phase2, phase3   float64
	attackerDmg, defenderDmg float64

	fast, target, slow int
}

// Add folds one result into the totals.
func (a *Accumulator) Add(r combat.Result) {
	if a.runs == 0 || r.Turns < a.minTurns {
		a.minTurns = r.Turns
	}
	if r.Turns > a.maxTurns {
		a.maxTurns = r.Turns
	}
	a.runs++
	t := float64(r.Turns)
	a.turns += t
	a.turnsSq += t * t
	a.attackerDmg += float64(r.AttackerDamage)
	a.defenderDmg += float64(r.DefenderDamage)

	switch {
	case r.Inconclusive:
		a.inconclusive++
	case r.AttackerWon():
		a.attackerWins++
		a.phase1 += float64(r.Phase1Turns)
		a.phase2 += float64(r.Phase2Turns)
		a.phase3 += float64(r.Phase3Turns)
		switch {
		case r.Turns <= FastWinTurns:
			a.fast++
		case r.Turns <= SlowWinTurns:
			a.target++
		default:
			a.slow++
		}
	default:
		a.defenderWins++
	}
}

// Merge adds o's totals into a.
func (a *Accumulator) Merge(o *Accumulator) {
	if o == nil || o.runs == 0 {
		return
	}
	if a.runs == 0 || o.minTurns < a.minTurns {
		a.minTurns = o.minTurns
	}
	if o.maxTurns > a.maxTurns {
		a.maxTurns = o.maxTurns
	}
	a.runs += o.runs
	a.attackerWins += o.attackerWins
	a.defenderWins += o.defenderWins
	a.inconclusive += o.inconclusive
	a.turns += o.turns
	a.turnsSq += o.turnsSq
	a.phase1 += o.phase1
	a.phase2 += o.phase2
	a.phase3 += o.phase3
	a.attackerDmg += o.attackerDmg
	a.defenderDmg += o.defenderDmg
	a.fast += o.fast
	a.target += o.target
	a.slow += o.slow
}

// Summary computes the aggregate. An empty accumulator yields a zero Summary.
func (a *Accumulator) Summary() Summary {
	if a.runs == 0 {
		return Summary{}
	}
	n := float64(a.runs)
	mean := a.turns / n
	// Population variance; clamp rounding noise below zero.
	variance := math.Max(a.turnsSq/n-mean*mean, 0)

	s := Summary{
		Runs:              a.runs,
		AttackerWins:      a.attackerWins,
		DefenderWins:      a.defenderWins,
		Inconclusive:      a.inconclusive,
		WinRate:           float64(a.attackerWins) / n,
		AvgTurns:          mean,
		StdDevTurns:       math.Sqrt(variance),
		MinTurns:          a.minTurns,
		MaxTurns:          a.maxTurns,
		AvgAttackerDamage: a.attackerDmg / n,
		AvgDefenderDamage: a.defenderDmg / n,
		FastWins:          a.fast,
		TargetWins:        a.target,
		SlowWins:          a.slow,
	}
	if a.attackerWins > 0 {
		w := float64(a.attackerWins)
		s.AvgPhase1 = a.phase1 / w
		s.AvgPhase2 = a.phase2 / w
		s.AvgPhase3 = a.phase3 / w
	}
	return s
}

// Aggregate summarizes results in one pass.
func Aggregate(results []combat.Result) Summary {
	var acc Accumulator
	for _, r := range results {
		acc.Add(r)
	}
	return acc.Summary()
}
