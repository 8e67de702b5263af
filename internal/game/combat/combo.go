package combat

import (
	"github.com/cory-johannsen/combatsim/internal/game/action"
	"github.com/cory-johannsen/combatsim/internal/game/dice"
)

// ComboState is one entity's progress through its combo sequence.
//
// Invariant: Slot >= 0 and Count >= 0. Disabled slots persist across resets
// for the remainder of the encounter.
type ComboState struct {
	// Slot is the zero-based index of the next combo action.
	Slot int
	// Count is the number of consecutive combo actions executed.
	Count int
	// BonusAmount is added to the entity's next BonusRolls rolls.
	BonusAmount int
	BonusRolls  int

	disabled map[int]bool
}

// Reset breaks the combo: the pointer returns to slot 0 and the count clears.
func (s *ComboState) Reset() {
	s.Slot = 0
	s.Count = 0
}

// Disable marks slot unusable for the rest of the encounter.
func (s *ComboState) Disable(slot int) {
	if s.disabled == nil {
		s.disabled = make(map[int]bool)
	}
	s.disabled[slot] = true
}

// IsDisabled reports whether slot has been disabled.
func (s *ComboState) IsDisabled(slot int) bool { return s.disabled[slot] }

// consumeBonus returns the pending combo roll bonus and counts one use.
func (s *ComboState) consumeBonus() int {
	if s.BonusRolls <= 0 {
		return 0
	}
	s.BonusRolls--
	amt := s.BonusAmount
	if s.BonusRolls == 0 {
		s.BonusAmount = 0
	}
	return amt
}

// Advance moves the combo pointer after sel executed, following the routing
// of the executed action. Basic-attack selections leave the pointer alone.
// A jump outside the sequence is clamped into range; natural advancement
// wraps to slot 0 after the last slot.
//
// Precondition: sel came from SelectAction against a pool with n sequence
// actions; src is used only for RouteRandomAction.
// Postcondition: 0 <= s.Slot < max(n, 1).
func (s *ComboState) Advance(sel Selection, n int, src dice.Source) {
	if sel.Action == nil {
		return
	}
	if sel.Action.ComboBonusAmount > 0 && sel.Action.ComboBonusDuration > 0 {
		s.BonusAmount = sel.Action.ComboBonusAmount
		s.BonusRolls = sel.Action.ComboBonusDuration
	}
	if !sel.FromSequence || n == 0 {
		return
	}
	s.Count++

	r := sel.Action.Routing.Action
	switch r.Kind {
	case action.RouteJumpToSlot:
		s.Slot = clampSlot(r.Slot, n)
	case action.RouteSkipNext:
		s.Slot = (sel.Slot + 2) % n
	case action.RouteRepeatPrevious:
		s.Slot = sel.Slot
	case action.RouteLoopToStart:
		s.Slot = 0
	case action.RouteStopEarly:
		s.Reset()
	case action.RouteDisableSlot:
		s.Disable(sel.Slot)
		s.Slot = (sel.Slot + 1) % n
	case action.RouteRandomAction:
		var open []int
		for i := 0; i < n; i++ {
			if !s.IsDisabled(i) {
				open = append(open, i)
			}
		}
		s.Slot = 0
		if len(open) > 0 {
			s.Slot = open[src.Intn(len(open))]
		}
	default:
		s.Slot = (sel.Slot + 1) % n
	}
}

func clampSlot(slot, n int) int {
	if slot < 0 {
		return 0
	}
	if slot >= n {
		return n - 1
	}
	return slot
}
