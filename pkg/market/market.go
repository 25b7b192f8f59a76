// Package market classifies free-text wager selections into a closed
// catalogue of betting markets and settles them against final scores.
package market

// Kind identifies one market shape from the catalogue.
type Kind string

const (
	KindMoneyline    Kind = "MONEYLINE"
	KindDoubleChance Kind = "DOUBLE_CHANCE"
	KindDrawNoBet    Kind = "DRAW_NO_BET"
	KindDraw         Kind = "DRAW"
	KindBTTS         Kind = "BTTS"
	KindOverUnder    Kind = "OVER_UNDER"
	KindUnknown      Kind = "UNKNOWN"
)

// Side is a 1X2 side.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
	SideDraw Side = "draw"
	SideNone Side = ""
)

// Scope narrows a goal line to one team, or covers the match total.
type Scope string

const (
	ScopeTotal Scope = "total"
	ScopeHome  Scope = "home"
	ScopeAway  Scope = "away"
)

// Direction is the requested side of a goal line.
type Direction string

const (
	Over  Direction = "over"
	Under Direction = "under"
)

// Market is one classified selection with its extracted parameters.
// Kind decides which fields are meaningful.
type Market struct {
	Kind Kind

	// Moneyline / draw-no-bet side. SideNone on a moneyline means the label
	// carried no resolvable side and settlement falls back to the supplied
	// result indicator.
	Side Side

	// Double chance combination: "1x", "x2" or "12".
	Combo string

	// BTTS negation ("non" / "no" labels).
	Negate bool

	// Goal line, for over/under and combined BTTS+over selections.
	Line      float64
	HasLine   bool
	Scope     Scope
	Direction Direction

	// Canonical label the market was classified from.
	Label string
}

// WinnerFromScore derives the 1X2 side from a final score.
func WinnerFromScore(goalsHome, goalsAway int) Side {
	switch {
	case goalsHome > goalsAway:
		return SideHome
	case goalsAway > goalsHome:
		return SideAway
	default:
		return SideDraw
	}
}
