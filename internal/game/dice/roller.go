package dice

import "sort"

// Roll evaluates expr against src.
//
// Precondition: expr satisfies the Expression invariant; src must be non-nil.
// Postcondition: len(result.Dice) equals the kept count; dropped dice are
// reported in result.Dropped.
func Roll(expr Expression, src Source) RollResult {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = src.Intn(expr.Sides) + 1
	}

	keep := 0
	switch {
	case expr.KeepHighest > 0:
		keep = expr.KeepHighest
	case expr.KeepLowest > 0:
		keep = expr.KeepLowest
	}
	if keep == 0 {
		return RollResult{Expression: expr.Raw, Dice: rolled, Modifier: expr.Modifier}
	}

	order := make([]int, len(rolled))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if expr.KeepLowest > 0 {
			return rolled[order[a]] < rolled[order[b]]
		}
		return rolled[order[a]] > rolled[order[b]]
	})
	kept := make(map[int]bool, keep)
	for _, idx := range order[:keep] {
		kept[idx] = true
	}

	res := RollResult{Expression: expr.Raw, Modifier: expr.Modifier}
	for i, v := range rolled {
		if kept[i] {
			res.Dice = append(res.Dice, v)
		} else {
			res.Dropped = append(res.Dropped, v)
		}
	}
	return res
}

// RollExpr parses expr and rolls it against src.
func RollExpr(expr string, src Source) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return Roll(e, src), nil
}

// MustParse parses expr and panics on error. Intended for package-level values.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}
