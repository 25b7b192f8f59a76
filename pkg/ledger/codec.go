package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Header is the wire contract of the persisted table. Field names, order and
// nullability (empty cell = null) must not change: existing stored data and
// the external training pipeline depend on them.
var Header = []string{
	"fixture_id",
	"league_id",
	"season",
	"home_team",
	"away_team",
	"fixture_date",
	"status_snapshot",
	"prob_home",
	"prob_draw",
	"prob_away",
	"prob_over_2_5",
	"prob_under_2_5",
	"main_pick",
	"main_confidence",
	"feature_prob_diff",
	"feature_prob_max",
	"feature_ou_diff",
	"feature_confidence_norm",
	"bet_selection",
	"bet_bookmaker",
	"bet_odd",
	"bet_stake",
	"bet_timestamp",
	"bet_notes",
	"bet_result",
	"bet_return",
	"result_status",
	"result_score",
	"result_winner",
	"updated_at",
}

const timeLayout = time.RFC3339Nano

// NewPredictionRecord returns a record with the nullable numeric fields
// initialized to missing.
func NewPredictionRecord() *PredictionRecord {
	nan := math.NaN()
	return &PredictionRecord{
		ProbHome:        nan,
		ProbDraw:        nan,
		ProbAway:        nan,
		ProbOver25:      nan,
		ProbUnder25:     nan,
		MainConfidence:  nan,
		FeatureProbDiff: nan,
		FeatureProbMax:  nan,
		FeatureOUDiff:   nan,
		FeatureConfNorm: nan,
	}
}

func (r *PredictionRecord) marshalRow() []string {
	betCell := func(s string) string {
		if r.BetSelection == "" {
			return ""
		}
		return s
	}

	season := ""
	if r.Season != 0 {
		season = strconv.Itoa(r.Season)
	}

	betReturn := ""
	if r.BetResult != "" {
		betReturn = r.BetReturn.StringFixed(2)
	}

	return []string{
		r.FixtureID,
		r.LeagueID,
		season,
		r.HomeTeam,
		r.AwayTeam,
		formatTime(r.FixtureDate),
		r.StatusSnapshot,
		formatFloat(r.ProbHome),
		formatFloat(r.ProbDraw),
		formatFloat(r.ProbAway),
		formatFloat(r.ProbOver25),
		formatFloat(r.ProbUnder25),
		r.MainPick,
		formatFloat(r.MainConfidence),
		formatFloat(r.FeatureProbDiff),
		formatFloat(r.FeatureProbMax),
		formatFloat(r.FeatureOUDiff),
		formatFloat(r.FeatureConfNorm),
		r.BetSelection,
		betCell(r.BetBookmaker),
		betCell(r.BetOdd.String()),
		betCell(r.BetStake.String()),
		betCell(formatTime(r.BetTimestamp)),
		betCell(r.BetNotes),
		r.BetResult,
		betReturn,
		r.ResultStatus,
		r.ResultScore,
		r.ResultWinner,
		formatTime(r.UpdatedAt),
	}
}

func unmarshalRow(row []string) (*PredictionRecord, error) {
	if len(row) != len(Header) {
		return nil, fmt.Errorf("row has %d fields, want %d", len(row), len(Header))
	}

	r := NewPredictionRecord()
	r.FixtureID = row[0]
	r.LeagueID = row[1]
	if row[2] != "" {
		season, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("season %q: %w", row[2], err)
		}
		r.Season = season
	}
	r.HomeTeam = row[3]
	r.AwayTeam = row[4]
	r.FixtureDate = parseTime(row[5])
	r.StatusSnapshot = row[6]
	r.ProbHome = parseFloatCell(row[7])
	r.ProbDraw = parseFloatCell(row[8])
	r.ProbAway = parseFloatCell(row[9])
	r.ProbOver25 = parseFloatCell(row[10])
	r.ProbUnder25 = parseFloatCell(row[11])
	r.MainPick = row[12]
	r.MainConfidence = parseFloatCell(row[13])
	r.FeatureProbDiff = parseFloatCell(row[14])
	r.FeatureProbMax = parseFloatCell(row[15])
	r.FeatureOUDiff = parseFloatCell(row[16])
	r.FeatureConfNorm = parseFloatCell(row[17])
	r.BetSelection = row[18]
	r.BetBookmaker = row[19]
	r.BetOdd = parseDecimalCell(row[20])
	r.BetStake = parseDecimalCell(row[21])
	r.BetTimestamp = parseTime(row[22])
	r.BetNotes = row[23]
	r.BetResult = row[24]
	r.BetReturn = parseDecimalCell(row[25])
	r.ResultStatus = row[26]
	r.ResultScore = row[27]
	r.ResultWinner = row[28]
	r.UpdatedAt = parseTime(row[29])
	return r, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloatCell(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseDecimalCell(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// readTable decodes the persisted table. A header-only or empty file yields
// no records.
func readTable(r io.Reader) ([]*PredictionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if err := validateHeader(rows[0]); err != nil {
		return nil, err
	}

	records := make([]*PredictionRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := unmarshalRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteDatasetCSV writes an exported dataset projection in the same wire
// format as the ledger itself.
func WriteDatasetCSV(w io.Writer, rows []PredictionRecord) error {
	ptrs := make([]*PredictionRecord, len(rows))
	for i := range rows {
		ptrs[i] = &rows[i]
	}
	return writeTable(w, ptrs)
}

// validateHeader rejects a table whose columns were renamed or reordered;
// decoding such a file would silently shift every field.
func validateHeader(got []string) error {
	if len(got) != len(Header) {
		return fmt.Errorf("header has %d columns, want %d", len(got), len(Header))
	}
	for i, name := range Header {
		if got[i] != name {
			return fmt.Errorf("header column %d is %q, want %q", i+1, got[i], name)
		}
	}
	return nil
}

// writeTable encodes the full table, header first.
func writeTable(w io.Writer, records []*PredictionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(rec.marshalRow()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
