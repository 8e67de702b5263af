package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression is a parsed dice expression ready to be rolled.
//
// Invariant: Count >= 1, Sides >= 2, and at most one of KeepHighest and
// KeepLowest is non-zero.
type Expression struct {
	Raw         string
	Count       int
	Sides       int
	Modifier    int
	KeepHighest int // keep only the N highest dice (e.g. 2d20kh1)
	KeepLowest  int // keep only the N lowest dice (e.g. 2d20kl1)
}

// Pool returns the expression for count d20s, optionally keeping only the
// best or worst single die. Count below 1 is raised to 1.
//
// Postcondition: The result satisfies the Expression invariant.
func Pool(count int, keep string) Expression {
	if count < 1 {
		count = 1
	}
	e := Expression{Count: count, Sides: D20}
	if count > 1 {
		switch keep {
		case "best":
			e.KeepHighest = 1
		case "worst":
			e.KeepLowest = 1
		}
	}
	e.Raw = e.canonical()
	return e
}

func (e Expression) canonical() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dd%d", e.Count, e.Sides)
	if e.KeepHighest > 0 {
		fmt.Fprintf(&b, "kh%d", e.KeepHighest)
	}
	if e.KeepLowest > 0 {
		fmt.Fprintf(&b, "kl%d", e.KeepLowest)
	}
	if e.Modifier != 0 {
		fmt.Fprintf(&b, "%+d", e.Modifier)
	}
	return b.String()
}

// Parse parses a dice expression. Supported forms: "d20", "2d6", "2d6+3",
// "4d8-2", "4d6kh3", "2d20kl1-1".
//
// Postcondition: Returns an Expression satisfying its invariant, or an error.
func Parse(expr string) (Expression, error) {
	if expr == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	s := strings.ToLower(strings.TrimSpace(expr))

	dIdx := strings.Index(s, "d")
	if dIdx < 0 {
		return Expression{}, fmt.Errorf("dice: missing 'd' in expression %q", expr)
	}

	count := 1
	if dIdx > 0 {
		n, err := strconv.Atoi(s[:dIdx])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", expr, err)
		}
		if n <= 0 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", expr)
		}
		count = n
	}

	rest, mod, err := splitModifier(s[dIdx+1:])
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", expr, err)
	}

	out := Expression{Raw: expr, Count: count, Modifier: mod}
	sidesStr := rest
	for _, k := range []struct {
		tag  string
		into *int
	}{{"kh", &out.KeepHighest}, {"kl", &out.KeepLowest}} {
		idx := strings.Index(rest, k.tag)
		if idx < 0 {
			continue
		}
		if out.KeepHighest > 0 || out.KeepLowest > 0 {
			return Expression{}, fmt.Errorf("dice: kh and kl are exclusive in %q", expr)
		}
		n, err := strconv.Atoi(rest[idx+2:])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid %s value in %q: %w", k.tag, expr, err)
		}
		if n <= 0 || n >= count {
			return Expression{}, fmt.Errorf("dice: %s value %d must be > 0 and < count %d in %q", k.tag, n, count, expr)
		}
		*k.into = n
		sidesStr = rest[:idx]
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", expr, err)
	}
	if sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", expr)
	}
	out.Sides = sides
	return out, nil
}

// splitModifier separates a trailing "+N" or "-N" from s.
func splitModifier(s string) (string, int, error) {
	for i := 1; i < len(s); i++ {
		if s[i] == '+' || s[i] == '-' {
			m, err := strconv.Atoi(s[i:])
			return s[:i], m, err
		}
	}
	return s, 0, nil
}
