// Package ledger implements the prediction ledger and settlement engine: a
// persisted record store keyed by (fixture_id, status_snapshot), wager
// attachment, settlement against final scores, and the running bankroll the
// settlement deltas fold into.
package ledger

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/betledger/pkg/normtext"
)

// PredictionRecord is one row of the persisted table. The same fixture may
// appear once per lifecycle stage (status snapshot); within one stage the row
// is idempotently updatable.
type PredictionRecord struct {
	FixtureID      string
	LeagueID       string
	Season         int
	HomeTeam       string
	AwayTeam       string
	FixtureDate    time.Time
	StatusSnapshot string

	// Forecast snapshot. Probabilities are proportions in [0, 1],
	// confidences percentages in [0, 100]. NaN means missing.
	ProbHome       float64
	ProbDraw       float64
	ProbAway       float64
	ProbOver25     float64
	ProbUnder25    float64
	MainPick       string
	MainConfidence float64

	// Engineered features, re-derived from the snapshot; never hand-edited.
	FeatureProbDiff float64 // prob_home - prob_away
	FeatureProbMax  float64 // max(prob_home, prob_draw, prob_away)
	FeatureOUDiff   float64 // prob_over_2_5 - prob_under_2_5
	FeatureConfNorm float64 // main_confidence / 100

	// Wager attachment; nullable as a group, keyed off BetSelection.
	BetSelection string
	BetBookmaker string
	BetOdd       decimal.Decimal
	BetStake     decimal.Decimal
	BetTimestamp time.Time
	BetNotes     string

	// Settlement outputs, derived.
	BetResult string // "win", "loss", "void" or ""
	BetReturn decimal.Decimal

	// Result snapshot.
	ResultStatus string
	ResultScore  string // "H-A"
	ResultWinner string // canonical "home", "away", "draw" or ""

	UpdatedAt time.Time
}

// HasBet reports whether a wager is attached with a positive stake.
func (r *PredictionRecord) HasBet() bool {
	return r.BetSelection != "" && r.BetStake.GreaterThan(decimal.Zero)
}

// HasCoreProbs reports whether the 1X2 probability snapshot is complete.
func (r *PredictionRecord) HasCoreProbs() bool {
	return !math.IsNaN(r.ProbHome) && !math.IsNaN(r.ProbDraw) && !math.IsNaN(r.ProbAway)
}

// DeriveFeatures recomputes the engineered feature columns from the
// probability snapshot. Missing inputs (NaN) propagate to the features.
func (r *PredictionRecord) DeriveFeatures() {
	r.FeatureProbDiff = r.ProbHome - r.ProbAway
	r.FeatureProbMax = math.Max(r.ProbHome, math.Max(r.ProbDraw, r.ProbAway))
	r.FeatureOUDiff = r.ProbOver25 - r.ProbUnder25
	r.FeatureConfNorm = r.MainConfidence / 100
}

// Key returns the normalized natural key. ok is false when the fixture id
// cannot be normalized; such rows can only be appended, never deduplicated.
func (r *PredictionRecord) Key() (string, bool) {
	id, ok := NormalizeFixtureID(r.FixtureID)
	if !ok {
		return "", false
	}
	return id + "|" + strings.TrimSpace(r.StatusSnapshot), true
}

// NormalizeFixtureID canonicalizes an external fixture id to its integer
// string form. Ids arrive as integers, integer strings or float-encoded
// strings ("1035043.0"); anything non-numeric cannot be normalized.
func NormalizeFixtureID(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < 0 {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}

// ParseScore parses "H-A" score text.
func ParseScore(s string) (int, int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	a, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return h, a, true
}

// CanonicalWinner maps the raw winner encodings seen in stored data — the
// side word, a localized word, a literal team name, or nothing at all — to
// the canonical token, deriving from the score when necessary.
func CanonicalWinner(raw, score, homeTeam, awayTeam string) string {
	n := normtext.Canonicalize(raw)
	switch n {
	case "home", "away", "draw":
		return n
	}

	if n != "" {
		switch n {
		case normtext.Normalize(homeTeam):
			return "home"
		case normtext.Normalize(awayTeam):
			return "away"
		}
	}

	if h, a, ok := ParseScore(score); ok {
		switch {
		case h > a:
			return "home"
		case a > h:
			return "away"
		default:
			return "draw"
		}
	}
	return ""
}

// FormatScore renders the canonical "H-A" score text.
func FormatScore(goalsHome, goalsAway int) string {
	return fmt.Sprintf("%d-%d", goalsHome, goalsAway)
}
