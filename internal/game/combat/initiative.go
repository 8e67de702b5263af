package combat

import (
	"errors"
	"fmt"
)

// MaxLengthReduction caps the fraction of action length a bonus may remove.
const MaxLengthReduction = 0.9

// ErrUnknownScheduler is returned by NewScheduler for unrecognised names.
var ErrUnknownScheduler = errors.New("unknown scheduler")

// Scheduler decides which combatant acts on each turn.
// Implementations hold no per-encounter state and are safe to share
// between concurrent simulations.
type Scheduler interface {
	// Name identifies the scheduler in configuration.
	Name() string
	// Next returns the actor and its target for turn (one-based).
	Next(attacker, defender *Combatant, turn int) (actor, target *Combatant)
	// Acted records that actor spent cost time units on its turn.
	Acted(actor *Combatant, cost float64)
}

// AlternatingScheduler lets the attacker act on odd turns and the defender
// on even turns.
type AlternatingScheduler struct{}

// Name returns "alternating".
func (AlternatingScheduler) Name() string { return "alternating" }

// Next implements Scheduler.
func (AlternatingScheduler) Next(attacker, defender *Combatant, turn int) (*Combatant, *Combatant) {
	if turn%2 == 1 {
		return attacker, defender
	}
	return defender, attacker
}

// Acted implements Scheduler; turn cost does not affect alternation.
func (AlternatingScheduler) Acted(*Combatant, float64) {}

// SpeedScheduler lets the combatant with the lowest accumulated action time
// act next. Ties go to the attacker. Each turn advances the actor's time by
// its speed scaled by the executed action's length, Slow, and length
// reduction bonuses.
type SpeedScheduler struct{}

// Name returns "speed".
func (SpeedScheduler) Name() string { return "speed" }

// Next implements Scheduler.
func (SpeedScheduler) Next(attacker, defender *Combatant, _ int) (*Combatant, *Combatant) {
	if defender.nextActionTime < attacker.nextActionTime {
		return defender, attacker
	}
	return attacker, defender
}

// Acted implements Scheduler.
//
// Postcondition: actor's next action time grows by max(cost, 0).
func (SpeedScheduler) Acted(actor *Combatant, cost float64) {
	if cost > 0 {
		actor.nextActionTime += cost
	}
}

// NewScheduler returns the scheduler registered under name. An empty name
// selects the alternating scheduler.
//
// Postcondition: Returns a non-nil Scheduler, or an error wrapping
// ErrUnknownScheduler.
func NewScheduler(name string) (Scheduler, error) {
	switch name {
	case "", "alternating":
		return AlternatingScheduler{}, nil
	case "speed":
		return SpeedScheduler{}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownScheduler, name)
}
