package action

import "fmt"

// RoutingKind enumerates how a combo sequence advances after an action.
type RoutingKind int

const (
	// RouteNext advances to the following slot, wrapping at the end.
	RouteNext RoutingKind = iota
	RouteJumpToSlot
	RouteSkipNext
	RouteRepeatPrevious
	RouteLoopToStart
	RouteStopEarly
	RouteDisableSlot
	RouteRandomAction
)

var routingNames = map[RoutingKind]string{
	RouteNext:           "next",
	RouteJumpToSlot:     "jump_to_slot",
	RouteSkipNext:       "skip_next",
	RouteRepeatPrevious: "repeat_previous",
	RouteLoopToStart:    "loop_to_start",
	RouteStopEarly:      "stop_early",
	RouteDisableSlot:    "disable_slot",
	RouteRandomAction:   "random_action",
}

// String returns the catalog name of k.
func (k RoutingKind) String() string {
	if n, ok := routingNames[k]; ok {
		return n
	}
	return fmt.Sprintf("routing(%d)", int(k))
}

// ParseRoutingKind converts a catalog name into a RoutingKind.
func ParseRoutingKind(s string) (RoutingKind, error) {
	if s == "" {
		return RouteNext, nil
	}
	for k, n := range routingNames {
		if n == s {
			return k, nil
		}
	}
	return RouteNext, fmt.Errorf("unknown combo routing %q", s)
}

// RoutingAction is a tagged variant: exactly one routing behaviour, with Slot
// meaningful only for RouteJumpToSlot (zero-based).
type RoutingAction struct {
	Kind RoutingKind
	Slot int
}

// JumpToSlot returns a routing that moves the combo pointer to slot.
func JumpToSlot(slot int) RoutingAction {
	return RoutingAction{Kind: RouteJumpToSlot, Slot: slot}
}

// Route returns a routing of kind k with no associated data.
//
// Precondition: k != RouteJumpToSlot.
func Route(k RoutingKind) RoutingAction {
	return RoutingAction{Kind: k}
}

// String renders the routing, including the slot for jumps.
func (r RoutingAction) String() string {
	if r.Kind == RouteJumpToSlot {
		return fmt.Sprintf("%s(%d)", r.Kind, r.Slot)
	}
	return r.Kind.String()
}

// ComboRouting couples the post-execution routing with an optional slot gate.
type ComboRouting struct {
	Action RoutingAction
	// TriggerOnlyInSlot is one-based; 0 allows the action in every slot.
	TriggerOnlyInSlot int
}

// AllowedInSlot reports whether the gate permits selection while the combo
// pointer is at the zero-based slot.
func (r ComboRouting) AllowedInSlot(slot int) bool {
	return r.TriggerOnlyInSlot == 0 || r.TriggerOnlyInSlot == slot+1
}
