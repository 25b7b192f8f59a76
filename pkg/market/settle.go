package market

import (
	"math"

	"github.com/shopspring/decimal"
)

// Outcome is the settled result of a wager.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeVoid Outcome = "void"
)

// Settlement is the graded result of one wager: an outcome plus the payout
// owed back to the bankroll (stake × odd on a win, the stake on a void, zero
// on a loss).
type Settlement struct {
	Outcome Outcome
	Payout  decimal.Decimal
}

var one = decimal.NewFromInt(1)

// Evaluate grades a classified market against a final score. winner is the
// externally supplied result indicator; SideNone lets it be derived from the
// goals. ok is false when the wager cannot be settled at all (unknown market,
// missing stake) — callers must not touch settlement fields in that case,
// which is distinct from a resolved void.
func Evaluate(m Market, goalsHome, goalsAway int, winner Side, stake, odd decimal.Decimal) (Settlement, bool) {
	if m.Kind == KindUnknown || !stake.GreaterThan(decimal.Zero) {
		return Settlement{}, false
	}

	out := grade(m, goalsHome, goalsAway, winner)
	if out == "" {
		return Settlement{}, false
	}
	return Settlement{Outcome: out, Payout: payout(out, stake, odd)}, true
}

// SettleSelection classifies a raw selection label and grades it in one step.
func SettleSelection(label, homeTeam, awayTeam string, goalsHome, goalsAway int, winner Side, stake, odd decimal.Decimal) (Settlement, bool) {
	return Evaluate(Classify(label, homeTeam, awayTeam), goalsHome, goalsAway, winner, stake, odd)
}

// payout computes the monetary return. Rounding to 2 decimal places happens
// here and nowhere earlier. An absent or invalid odd degrades to even money
// as a last resort; callers should reject missing odds upstream.
func payout(out Outcome, stake, odd decimal.Decimal) decimal.Decimal {
	switch out {
	case OutcomeWin:
		if !odd.GreaterThan(one) {
			odd = one
		}
		return stake.Mul(odd).Round(2)
	case OutcomeVoid:
		return stake.Round(2)
	default:
		return decimal.Zero
	}
}

func grade(m Market, h, a int, winner Side) Outcome {
	switch m.Kind {
	case KindDoubleChance:
		return gradeBool(gradeDoubleChance(m.Combo, h, a))

	case KindDrawNoBet:
		if h == a {
			return OutcomeVoid
		}
		return gradeBool(WinnerFromScore(h, a) == m.Side)

	case KindDraw:
		return gradeBool(h == a)

	case KindBTTS:
		both := h > 0 && a > 0
		if m.HasLine {
			if !both {
				return OutcomeLoss
			}
			return lineOutcome(float64(h+a), m.Line, Over)
		}
		return gradeBool(both != m.Negate)

	case KindOverUnder:
		v := h + a
		switch m.Scope {
		case ScopeHome:
			v = h
		case ScopeAway:
			v = a
		}
		return lineOutcome(float64(v), m.Line, m.Direction)

	case KindMoneyline:
		if winner == SideNone {
			winner = WinnerFromScore(h, a)
		}
		if m.Side != SideNone {
			return gradeBool(winner == m.Side)
		}
		// No side could be extracted from the label: match it against the
		// supplied result indicator instead.
		return gradeBool(hasToken(m.Label, string(winner)))
	}
	return ""
}

func gradeBool(won bool) Outcome {
	if won {
		return OutcomeWin
	}
	return OutcomeLoss
}

func gradeDoubleChance(combo string, h, a int) bool {
	switch combo {
	case "1x":
		return h >= a
	case "x2":
		return a >= h
	case "12":
		return h != a
	}
	return false
}

// lineOutcome decides a goal line. Integer lines push: landing exactly on the
// line returns the stake. Half-integer lines can never void — strictly beyond
// the line on the requested side wins, anything else loses.
func lineOutcome(value, line float64, dir Direction) Outcome {
	if value == line && line == math.Trunc(line) {
		return OutcomeVoid
	}
	over := value > line
	if (dir == Over) == over {
		return OutcomeWin
	}
	return OutcomeLoss
}
