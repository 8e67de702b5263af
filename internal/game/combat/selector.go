package combat

import (
	"github.com/cory-johannsen/combatsim/internal/game/action"
	"github.com/cory-johannsen/combatsim/internal/game/effect"
)

// Pool is the set of actions one entity can choose from.
type Pool struct {
	Basic    *action.Definition
	Sequence []*action.Definition // ordered combo actions
}

// Situation is the context trigger conditions are evaluated against.
type Situation struct {
	Actor     *Combatant
	Target    *Combatant
	Turn      int
	TotalRoll int
}

// ConditionEvaluator resolves named trigger conditions that are not built in.
type ConditionEvaluator interface {
	// Evaluate returns the condition's value and whether name is known.
	Evaluate(name string, sit Situation) (value bool, known bool)
}

// EncounterScoped is implemented by evaluators whose state must not carry
// over from one combat to the next. SimulateCombat calls ForEncounter once
// per combat, evaluates through the returned evaluator and calls release
// when the combat ends.
type EncounterScoped interface {
	ForEncounter() (eval ConditionEvaluator, release func(), err error)
}

// builtinConditions are always available to Triggers.Conditions.
var builtinConditions = map[string]func(Situation) bool{
	"target_below_30": func(s Situation) bool { return s.Target != nil && s.Target.HealthFraction() < 0.30 },
	"target_below_50": func(s Situation) bool { return s.Target != nil && s.Target.HealthFraction() < 0.50 },
	"self_below_50":   func(s Situation) bool { return s.Actor != nil && s.Actor.HealthFraction() < 0.50 },
	"target_stunned":  func(s Situation) bool { return s.Target != nil && effect.IsStunned(s.Target.Effects()) },
	"target_poisoned": func(s Situation) bool { return s.Target != nil && s.Target.Effects().Has(effect.Poison) },
	"first_turn":      func(s Situation) bool { return s.Turn <= 2 },
}

// IsBuiltinCondition reports whether name is resolved without a ConditionEvaluator.
func IsBuiltinCondition(name string) bool {
	_, ok := builtinConditions[name]
	return ok
}

// Selection is the action chosen for one turn.
type Selection struct {
	// Action is nil when nothing executes (a miss).
	Action *action.Definition
	// Slot is the sequence index of Action, or -1 for the basic attack.
	Slot int
	// FromSequence is true when Action came from the combo sequence.
	FromSequence bool
}

// Selector maps outcomes onto actions. It is stateless apart from its
// condition evaluator and is safe for concurrent use if that evaluator is.
type Selector struct {
	conditions ConditionEvaluator
}

// NewSelector creates a Selector. cond may be nil, in which case only
// built-in conditions are known.
func NewSelector(cond ConditionEvaluator) *Selector {
	return &Selector{conditions: cond}
}

// SelectAction picks the action sit.Actor executes for outcome out.
//
// Miss selects nothing and resets state. Hit selects the basic attack and
// leaves state alone. Combo and CriticalHit select from the sequence
// starting at state.Slot: an eligible action whose ExactRollValue equals the
// total roll wins outright; otherwise the first eligible slot in order,
// skipping disabled, slot-gated, cooling-down and exact-roll actions. With
// no eligible sequence action, or while silenced, the basic attack is used.
//
// Precondition: sit.Actor must be non-nil; pool.Basic must be non-nil.
// Postcondition: Returns Selection{Action: nil} iff out.Kind == Miss.
func (s *Selector) SelectAction(out Outcome, sit Situation, state *ComboState, pool Pool) Selection {
	basic := Selection{Action: pool.Basic, Slot: -1}
	switch {
	case out.Kind == Miss:
		state.Reset()
		return Selection{Slot: -1}
	case !out.TriggersCombo():
		return basic
	case len(pool.Sequence) == 0 || effect.IsSilenced(sit.Actor.Effects()):
		return basic
	}

	n := len(pool.Sequence)
	slot := clampSlot(state.Slot, n)

	for i, a := range pool.Sequence {
		if a.Triggers.ExactRollValue != 0 && a.Triggers.ExactRollValue == sit.TotalRoll &&
			s.eligible(a, i, slot, state, sit) {
			return Selection{Action: a, Slot: i, FromSequence: true}
		}
	}

	for step := 0; step < n; step++ {
		i := (slot + step) % n
		a := pool.Sequence[i]
		if a.Triggers.ExactRollValue != 0 {
			continue
		}
		if s.eligible(a, i, slot, state, sit) {
			return Selection{Action: a, Slot: i, FromSequence: true}
		}
	}
	return basic
}

// Peek returns the action whose roll modifiers govern the next roll: the
// action at the combo pointer, or the basic attack when the sequence is
// empty or the actor is silenced.
func (s *Selector) Peek(actor *Combatant, state *ComboState) *action.Definition {
	pool := actor.Pool()
	if len(pool.Sequence) == 0 || effect.IsSilenced(actor.Effects()) {
		return pool.Basic
	}
	i := clampSlot(state.Slot, len(pool.Sequence))
	if state.IsDisabled(i) {
		return pool.Basic
	}
	return pool.Sequence[i]
}

func (s *Selector) eligible(a *action.Definition, idx, slot int, state *ComboState, sit Situation) bool {
	if state.IsDisabled(idx) {
		return false
	}
	if !a.Routing.AllowedInSlot(slot) || sit.Actor.OnCooldown(a) {
		return false
	}
	if tag := a.Triggers.RequiredTag; tag != "" && !sit.Actor.HasTag(tag) {
		return false
	}
	for _, name := range a.Triggers.Conditions {
		if !s.holds(name, sit) {
			return false
		}
	}
	return true
}

func (s *Selector) holds(name string, sit Situation) bool {
	if fn, ok := builtinConditions[name]; ok {
		return fn(sit)
	}
	if s.conditions != nil {
		if v, known := s.conditions.Evaluate(name, sit); known {
			return v
		}
	}
	return false
}
