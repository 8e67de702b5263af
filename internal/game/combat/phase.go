package combat

// Phase boundaries as fractions of the defender's maximum health.
const (
	PhaseTwoThreshold   = 0.66
	PhaseThreeThreshold = 0.33
)

// Phases is the number of turns a combat spent in each health phase.
//
// Invariant: One + Two + Three equals the length of the trace it was
// derived from.
type Phases struct {
	One   int
	Two   int
	Three int
}

// DetectPhases derives phase turn counts from a per-turn trace of the
// defender's health fraction. Phase two begins on the first turn whose
// fraction is at or below PhaseTwoThreshold; phase three on the first turn at
// or below PhaseThreeThreshold. A crossing that never happens contributes no
// turns, and its span stays with the previous phase.
//
// Postcondition: All counts are >= 0 and sum to len(trace).
func DetectPhases(trace []float64) Phases {
	n := len(trace)
	two, three := n, n
	for i, f := range trace {
		if two == n && f <= PhaseTwoThreshold {
			two = i
		}
		if f <= PhaseThreeThreshold {
			three = i
			break
		}
	}
	if three < two {
		two = three
	}
	return Phases{One: two, Two: three - two, Three: n - three}
}
