// Package dice provides randomness sources and dice expressions for the
// combat resolver. Every roll in a simulated encounter flows through a Source
// so that a seeded Source reproduces an encounter exactly.
package dice

import (
	"fmt"
	"strings"
)

// D20 is the number of faces on the attack die.
const D20 = 20

// RollResult records one evaluated dice expression.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string // e.g. "2d20kh1+3"
	Dice       []int  // kept die results, in roll order
	Dropped    []int  // results discarded by kh/kl selection
	Modifier   int
}

// Total returns the sum of the kept dice plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String renders the roll as "2d20kh1+3 → [17] (dropped [4]) +3 = 20".
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s → %v", r.Expression, r.Dice)
	if len(r.Dropped) > 0 {
		fmt.Fprintf(&b, " (dropped %v)", r.Dropped)
	}
	fmt.Fprintf(&b, " %+d = %d", r.Modifier, r.Total())
	return b.String()
}

// Source is the randomness provider for every roll.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// RollD20 returns a single d20 result in [1, 20] drawn from src.
func RollD20(src Source) int {
	return src.Intn(D20) + 1
}

// Chance reports true with probability p drawn from src. Values of p outside
// [0, 1] are clamped.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	const resolution = 10_000
	return src.Intn(resolution) < int(p*resolution)
}
