// Package odds turns a joint distribution over additional home/away goals
// into a fixed menu of market probabilities. It shares the market vocabulary
// the settlement engine consumes.
package odds

// Market keys of the aggregated menu.
const (
	MarketHome = "home"
	MarketDraw = "draw"
	MarketAway = "away"

	MarketOver05  = "over_0_5"
	MarketUnder05 = "under_0_5"
	MarketOver15  = "over_1_5"
	MarketUnder15 = "under_1_5"
	MarketOver25  = "over_2_5"
	MarketUnder25 = "under_2_5"
	MarketOver35  = "over_3_5"
	MarketUnder35 = "under_3_5"

	MarketBTTSYes    = "btts_yes"
	MarketBTTSNo     = "btts_no"
	MarketBTTSOver25 = "btts_over_2_5"

	MarketHomeOver15 = "home_over_1_5"
	MarketAwayOver15 = "away_over_1_5"

	MarketHomeWinBy2 = "home_win_by_2"
	MarketAwayWinBy2 = "away_win_by_2"

	MarketHTHome = "ht_home"
	MarketHTDraw = "ht_draw"
	MarketHTAway = "ht_away"
)

// totalLines are the asian-style total-goal lines of the menu, paired with
// their over/under keys.
var totalLines = []struct {
	line       float64
	over, under string
}{
	{0.5, MarketOver05, MarketUnder05},
	{1.5, MarketOver15, MarketUnder15},
	{2.5, MarketOver25, MarketUnder25},
	{3.5, MarketOver35, MarketUnder35},
}

// Aggregate walks every cell (i, j) of the joint matrix — the probability of
// i further home goals and j further away goals from the current score — and
// accumulates the cell's probability into every market the resulting final
// score satisfies. Unders and btts_no are complements of their positives by
// construction, so each pair sums to exactly 1 regardless of floating-point
// drift in the matrix.
func Aggregate(matrix [][]float64, currentHome, currentAway int) map[string]float64 {
	out := emptyMenu()

	for i, row := range matrix {
		for j, p := range row {
			if p == 0 {
				continue
			}
			h := currentHome + i
			a := currentAway + j
			total := h + a

			switch {
			case h > a:
				out[MarketHome] += p
			case a > h:
				out[MarketAway] += p
			default:
				out[MarketDraw] += p
			}

			for _, tl := range totalLines {
				if float64(total) > tl.line {
					out[tl.over] += p
				}
			}

			if h > 0 && a > 0 {
				out[MarketBTTSYes] += p
				if total > 2 {
					out[MarketBTTSOver25] += p
				}
			}
			if h > 1 {
				out[MarketHomeOver15] += p
			}
			if a > 1 {
				out[MarketAwayOver15] += p
			}
			if h-a >= 2 {
				out[MarketHomeWinBy2] += p
			}
			if a-h >= 2 {
				out[MarketAwayWinBy2] += p
			}
		}
	}

	for _, tl := range totalLines {
		out[tl.under] = 1 - out[tl.over]
	}
	out[MarketBTTSNo] = 1 - out[MarketBTTSYes]

	mirrorHalfTime(out)
	return out
}

// Baseline derives the degenerate menu from the current score treated as
// final: every market is exactly 0 or 1. It is a deterministic placeholder
// for when no goal matrix is available, not a forecast, and callers must keep
// it distinguishable from a matrix-derived estimate.
func Baseline(currentHome, currentAway int) map[string]float64 {
	return Aggregate([][]float64{{1}}, currentHome, currentAway)
}

// mirrorHalfTime publishes the full-time 1X2 values under the half-time keys.
// No separate half-time matrix is modeled; substitute a real one here without
// changing the menu contract.
func mirrorHalfTime(out map[string]float64) {
	out[MarketHTHome] = out[MarketHome]
	out[MarketHTDraw] = out[MarketDraw]
	out[MarketHTAway] = out[MarketAway]
}

func emptyMenu() map[string]float64 {
	out := make(map[string]float64, 24)
	for _, k := range []string{
		MarketHome, MarketDraw, MarketAway,
		MarketOver05, MarketUnder05, MarketOver15, MarketUnder15,
		MarketOver25, MarketUnder25, MarketOver35, MarketUnder35,
		MarketBTTSYes, MarketBTTSNo, MarketBTTSOver25,
		MarketHomeOver15, MarketAwayOver15,
		MarketHomeWinBy2, MarketAwayWinBy2,
		MarketHTHome, MarketHTDraw, MarketHTAway,
	} {
		out[k] = 0
	}
	return out
}
