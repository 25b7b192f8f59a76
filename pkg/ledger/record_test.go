package ledger

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizeFixtureID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"1035043", "1035043", true},
		{"1035043.0", "1035043", true},
		{" 42 ", "42", true},
		{"0", "0", true},
		{"", "", false},
		{"abc", "", false},
		{"10.5", "", false},
		{"-3", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeFixtureID(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeFixtureID(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCanonicalWinner(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		score string
		want  string
	}{
		{"already canonical", "home", "", "home"},
		{"localized draw", "Nul", "", "draw"},
		{"home team name", "Lyon", "", "home"},
		{"away team accents", "Marseille", "", "away"},
		{"derived from score", "", "0-2", "away"},
		{"derived draw", "", "1-1", "draw"},
		{"nothing known", "", "", ""},
		{"unknown word no score", "postponed?", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalWinner(tt.raw, tt.score, "Lyon", "Marseille")
			if got != tt.want {
				t.Errorf("CanonicalWinner(%q, %q) = %q, want %q", tt.raw, tt.score, got, tt.want)
			}
		})
	}
}

func TestDeriveFeaturesMissingProbs(t *testing.T) {
	r := NewPredictionRecord()
	r.ProbHome = 0.5
	// prob_away stays NaN: every feature touching it must be NaN too, never a
	// silent zero.
	r.DeriveFeatures()
	if !math.IsNaN(r.FeatureProbDiff) {
		t.Errorf("feature_prob_diff = %v, want NaN", r.FeatureProbDiff)
	}
	if !math.IsNaN(r.FeatureProbMax) {
		t.Errorf("feature_prob_max = %v, want NaN", r.FeatureProbMax)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	rec := NewPredictionRecord()
	rec.FixtureID = "1035043"
	rec.LeagueID = "61"
	rec.Season = 2025
	rec.HomeTeam = "Lyon"
	rec.AwayTeam = "Marseille"
	rec.FixtureDate = time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)
	rec.StatusSnapshot = "NS"
	rec.ProbHome = 0.48
	rec.ProbDraw = 0.27
	rec.ProbAway = 0.25
	// Over/under probs deliberately missing.
	rec.MainPick = "home"
	rec.MainConfidence = 62
	rec.DeriveFeatures()
	rec.BetSelection = "Lyon Win"
	rec.BetBookmaker = "bookie"
	rec.BetOdd = decimal.NewFromFloat(2.1)
	rec.BetStake = decimal.NewFromFloat(3.33)
	rec.BetTimestamp = time.Date(2025, 8, 30, 12, 30, 0, 0, time.UTC)
	rec.BetResult = "win"
	rec.BetReturn = decimal.NewFromFloat(6.99)
	rec.ResultStatus = "FT"
	rec.ResultScore = "2-0"
	rec.ResultWinner = "home"
	rec.UpdatedAt = time.Now().UTC()

	var buf bytes.Buffer
	if err := writeTable(&buf, []*PredictionRecord{rec}); err != nil {
		t.Fatalf("writeTable: %v", err)
	}
	got, err := readTable(&buf)
	if err != nil {
		t.Fatalf("readTable: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rows = %d, want 1", len(got))
	}
	r := got[0]

	if r.FixtureID != "1035043" || r.Season != 2025 || r.StatusSnapshot != "NS" {
		t.Errorf("identity fields wrong: %+v", r)
	}
	if !r.FixtureDate.Equal(rec.FixtureDate) {
		t.Errorf("fixture_date = %v, want %v", r.FixtureDate, rec.FixtureDate)
	}
	if r.ProbHome != 0.48 || r.ProbDraw != 0.27 {
		t.Errorf("probs wrong: %v %v", r.ProbHome, r.ProbDraw)
	}
	if !math.IsNaN(r.ProbOver25) || !math.IsNaN(r.ProbUnder25) {
		t.Errorf("missing probs must stay missing, got %v %v", r.ProbOver25, r.ProbUnder25)
	}
	if !math.IsNaN(r.FeatureOUDiff) {
		t.Errorf("feature_ou_diff = %v, want NaN", r.FeatureOUDiff)
	}
	if !r.BetOdd.Equal(rec.BetOdd) || !r.BetStake.Equal(rec.BetStake) {
		t.Errorf("money fields drifted: %s %s", r.BetOdd, r.BetStake)
	}
	if r.BetResult != "win" || !r.BetReturn.Equal(decimal.NewFromFloat(6.99)) {
		t.Errorf("settlement fields wrong: %q %s", r.BetResult, r.BetReturn)
	}
	if r.ResultScore != "2-0" || r.ResultWinner != "home" {
		t.Errorf("result fields wrong: %q %q", r.ResultScore, r.ResultWinner)
	}
}

func TestReadTableRejectsForeignHeader(t *testing.T) {
	rec := NewPredictionRecord()
	rec.FixtureID = "7"
	rec.StatusSnapshot = "NS"

	var buf bytes.Buffer
	if err := writeTable(&buf, []*PredictionRecord{rec}); err != nil {
		t.Fatalf("writeTable: %v", err)
	}

	// Swapping two column names keeps the shape but breaks the contract.
	body := strings.Replace(buf.String(), "home_team,away_team", "away_team,home_team", 1)
	if _, err := readTable(strings.NewReader(body)); err == nil {
		t.Error("readTable accepted a reordered header")
	}

	// Same width, renamed column.
	body = strings.Replace(buf.String(), "bet_stake", "stake", 1)
	if _, err := readTable(strings.NewReader(body)); err == nil {
		t.Error("readTable accepted a renamed column")
	}
}

// Rows without a wager must keep every bet cell empty on the wire, not
// zero-filled.
func TestCodecNoBetEmitsEmptyCells(t *testing.T) {
	rec := NewPredictionRecord()
	rec.FixtureID = "7"
	rec.StatusSnapshot = "NS"

	var buf bytes.Buffer
	if err := writeTable(&buf, []*PredictionRecord{rec}); err != nil {
		t.Fatalf("writeTable: %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte(",0,0,")) {
		t.Errorf("betless row leaked zero-valued money cells:\n%s", buf.String())
	}

	got, err := readTable(&buf)
	if err != nil {
		t.Fatalf("readTable: %v", err)
	}
	if got[0].HasBet() {
		t.Error("betless row decoded as carrying a bet")
	}
	if got[0].BetResult != "" || !got[0].BetReturn.IsZero() {
		t.Errorf("betless row decoded settlement: %q %s", got[0].BetResult, got[0].BetReturn)
	}
}
