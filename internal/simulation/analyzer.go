package simulation

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/cory-johannsen/combatsim/internal/config"
)

// Severity ranks an Issue.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "info"
	}
}

// Issue is one balance problem detected in a Summary.
type Issue struct {
	Code       string
	Severity   Severity
	Message    string
	Suggestion string
}

// Tuning multipliers suggested by an Analysis. Only keys with a
// recommendation are present.
const (
	TuneAttackerDamage = "attacker_damage_multiplier"
	TuneDefenderDamage = "defender_damage_multiplier"
	TuneDefenderHealth = "defender_health_multiplier"
)

// DefaultAdjustment is the step size of suggested tuning multipliers.
const DefaultAdjustment = 1.1

// Analysis is the balance verdict for one batch.
type Analysis struct {
	Summary Summary
	Issues  []Issue
	Tuning  map[string]float64
}

// Balanced reports whether no warning or critical issue was found.
func (a Analysis) Balanced() bool {
	for _, is := range a.Issues {
		if is.Severity >= SeverityWarning {
			return false
		}
	}
	return true
}

// Analyzer checks a Summary against target bands.
type Analyzer struct {
	bands      config.AnalysisConfig
	adjustment float64
}

// NewAnalyzer creates an Analyzer using bands as targets.
//
// Precondition: bands passed config validation.
func NewAnalyzer(bands config.AnalysisConfig) *Analyzer {
	return &Analyzer{bands: bands, adjustment: DefaultAdjustment}
}

// Analyze inspects s and returns the detected issues and tuning hints.
//
// Postcondition: Issues is in a stable order: win rate, duration, phases,
// win distribution, inconclusive runs.
func (a *Analyzer) Analyze(s Summary) Analysis {
	out := Analysis{Summary: s, Tuning: map[string]float64{}}
	if s.Runs == 0 {
		out.Issues = append(out.Issues, Issue{
			Code:     "no_runs",
			Severity: SeverityCritical,
			Message:  "batch produced no results",
		})
		return out
	}
	b := a.bands

	switch {
	case s.WinRate < b.MinWinRate:
		out.Issues = append(out.Issues, Issue{
			Code:       "win_rate_low",
			Severity:   SeverityCritical,
			Message:    fmt.Sprintf("attacker is losing too often (win rate %.0f%% < %.0f%%)", 100*s.WinRate, 100*b.MinWinRate),
			Suggestion: "increase attacker damage or reduce defender health or damage",
		})
		out.Tuning[TuneAttackerDamage] = a.adjustment
		out.Tuning[TuneDefenderDamage] = 1 / a.adjustment
	case s.WinRate > b.MaxWinRate:
		out.Issues = append(out.Issues, Issue{
			Code:       "win_rate_high",
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("attacker is winning too reliably (win rate %.0f%% > %.0f%%)", 100*s.WinRate, 100*b.MaxWinRate),
			Suggestion: "increase defender damage or reduce attacker damage",
		})
		out.Tuning[TuneAttackerDamage] = 1 / a.adjustment
		out.Tuning[TuneDefenderDamage] = a.adjustment
	}

	switch {
	case s.AvgTurns < b.MinTurns:
		out.Issues = append(out.Issues, Issue{
			Code:       "combat_too_short",
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("combats are too short (avg %.1f < %g turns)", s.AvgTurns, b.MinTurns),
			Suggestion: "increase defender health or armor, or reduce attacker damage",
		})
		out.Tuning[TuneDefenderHealth] = a.adjustment
	case s.AvgTurns > b.MaxTurns:
		out.Issues = append(out.Issues, Issue{
			Code:       "combat_too_long",
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("combats are too long (avg %.1f > %g turns)", s.AvgTurns, b.MaxTurns),
			Suggestion: "increase attacker damage or reduce defender health",
		})
		out.Tuning[TuneDefenderHealth] = 1 / a.adjustment
	}

	if s.AttackerWins > 0 && phasesImbalanced(s, b.PhaseImbalanceRatio) {
		out.Issues = append(out.Issues, Issue{
			Code:     "phase_imbalance",
			Severity: SeverityInfo,
			Message: fmt.Sprintf("phase distribution is unbalanced (%.1f | %.1f | %.1f)",
				s.AvgPhase1, s.AvgPhase2, s.AvgPhase3),
			Suggestion: "adjust defender scaling or attacker progression to balance phases",
		})
	}

	if s.AttackerWins > 0 {
		if s.FastWins == 0 {
			out.Issues = append(out.Issues, Issue{
				Code:       "no_fast_wins",
				Severity:   SeverityInfo,
				Message:    fmt.Sprintf("no run won in %d turns or fewer", FastWinTurns),
				Suggestion: "look for mechanical interactions that could enable faster kills",
			})
		}
		if float64(s.TargetWins) < 0.5*float64(s.AttackerWins) {
			out.Issues = append(out.Issues, Issue{
				Code:       "few_target_wins",
				Severity:   SeverityInfo,
				Message:    fmt.Sprintf("fewer than half of the wins took %d-%d turns", FastWinTurns+1, SlowWinTurns),
				Suggestion: "adjust balance to push more wins toward the target range",
			})
		}
	}

	if s.Inconclusive > 0 {
		out.Issues = append(out.Issues, Issue{
			Code:       "inconclusive_runs",
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("%d of %d runs hit the turn cap", s.Inconclusive, s.Runs),
			Suggestion: "check for healing or mitigation that outpaces damage",
		})
	}
	return out
}

// phasesImbalanced reports whether the longest average phase exceeds the
// shortest by more than ratio. A zero-length phase next to a non-zero one is
// always imbalanced.
func phasesImbalanced(s Summary, ratio float64) bool {
	hi := math.Max(s.AvgPhase1, math.Max(s.AvgPhase2, s.AvgPhase3))
	lo := math.Min(s.AvgPhase1, math.Min(s.AvgPhase2, s.AvgPhase3))
	if hi == 0 {
		return false
	}
	if lo == 0 {
		return true
	}
	return hi/lo > ratio
}

// WriteReport renders a human-readable analysis to w.
func WriteReport(w io.Writer, title string, a Analysis) error {
	s := a.Summary
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s ===\n\n", title)
	fmt.Fprintf(&sb, "Runs:            %d\n", s.Runs)
	fmt.Fprintf(&sb, "Win rate:        %.1f%% (%d/%d, %d inconclusive)\n", 100*s.WinRate, s.AttackerWins, s.Runs, s.Inconclusive)
	fmt.Fprintf(&sb, "Turns:           avg %.1f  sd %.2f  min %d  max %d\n", s.AvgTurns, s.StdDevTurns, s.MinTurns, s.MaxTurns)
	fmt.Fprintf(&sb, "Phases:          %.1f | %.1f | %.1f\n", s.AvgPhase1, s.AvgPhase2, s.AvgPhase3)
	fmt.Fprintf(&sb, "Damage:          attacker %.1f  defender %.1f\n", s.AvgAttackerDamage, s.AvgDefenderDamage)
	fmt.Fprintf(&sb, "Wins by length:  <=%d: %d  %d-%d: %d  >%d: %d\n",
		FastWinTurns, s.FastWins, FastWinTurns+1, SlowWinTurns, s.TargetWins, SlowWinTurns, s.SlowWins)

	if len(a.Issues) > 0 {
		sb.WriteString("\nISSUES:\n")
		for _, is := range a.Issues {
			fmt.Fprintf(&sb, "  [%s] %s\n", is.Severity, is.Message)
			if is.Suggestion != "" {
				fmt.Fprintf(&sb, "      -> %s\n", is.Suggestion)
			}
		}
	}
	if len(a.Tuning) > 0 {
		sb.WriteString("\nTUNING:\n")
		for _, k := range []string{TuneAttackerDamage, TuneDefenderDamage, TuneDefenderHealth} {
			if v, ok := a.Tuning[k]; ok {
				fmt.Fprintf(&sb, "  %s = %.3f\n", k, v)
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
