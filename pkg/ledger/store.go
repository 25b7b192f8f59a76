package ledger

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phenomenon0/betledger/pkg/fixtures"
	"github.com/phenomenon0/betledger/pkg/market"
)

// negligible is the smallest bankroll delta worth forwarding; anything below
// is rounding dust.
var negligible = decimal.NewFromFloat(0.005)

// Store is the persisted prediction ledger. All mutating operations
// serialize behind one lock (single-writer) and rewrite the table atomically:
// temp file, fsync, rename. Concurrent readers of the exported projection see
// a consistent snapshot.
type Store struct {
	mu       sync.Mutex
	path     string
	records  []*PredictionRecord
	bankroll BankrollLedger
	metrics  *Metrics

	backfillBatch int
	lookupTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics attaches a metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithBackfillBatch caps external fixture lookups per normalization pass.
func WithBackfillBatch(n int) Option {
	return func(s *Store) {
		s.backfillBatch = n
	}
}

// WithLookupTimeout bounds each individual provider call.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lookupTimeout = d
	}
}

// Open loads the ledger from path, creating an empty one when the file does
// not exist yet. The bankroll may be nil, in which case settlement deltas are
// discarded (read-only tooling). An unreadable table is fatal: the ledger is
// unusable without it.
func Open(path string, bankroll BankrollLedger, opts ...Option) (*Store, error) {
	s := &Store{
		path:          path,
		bankroll:      bankroll,
		backfillBatch: 75,
		lookupTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	records, err := readTable(f)
	if err != nil {
		return nil, fmt.Errorf("loading ledger %s: %w", path, err)
	}
	s.records = records
	return s, nil
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Upsert writes one record. When a row with the same normalized
// (fixture_id, status_snapshot) exists it is overwritten field by field;
// otherwise the record is appended. A fixture id that cannot be normalized
// always appends — there is no key to dedupe against — and is logged as a
// data-quality condition, not an error.
func (s *Store) Upsert(rec *PredictionRecord) error {
	if rec == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *rec
	if id, ok := NormalizeFixtureID(c.FixtureID); ok {
		c.FixtureID = id
	}
	c.StatusSnapshot = strings.TrimSpace(c.StatusSnapshot)
	if !c.FixtureDate.IsZero() {
		c.FixtureDate = c.FixtureDate.UTC()
	}
	c.DeriveFeatures()
	c.UpdatedAt = time.Now().UTC()

	op := "append_unkeyed"
	if key, ok := c.Key(); ok {
		op = "insert"
		replaced := false
		for i, existing := range s.records {
			if k, ok := existing.Key(); ok && k == key {
				s.records[i] = &c
				replaced = true
				op = "overwrite"
				break
			}
		}
		if !replaced {
			s.records = append(s.records, &c)
		}
	} else {
		log.Printf("[LEDGER] fixture id %q not normalizable, appending without key", c.FixtureID)
		s.records = append(s.records, &c)
	}

	if s.metrics != nil {
		s.metrics.UpsertsTotal.WithLabelValues(op).Inc()
	}
	return s.save()
}

// Bet is a wager attachment.
type Bet struct {
	Selection string
	Bookmaker string
	Odd       decimal.Decimal
	Stake     decimal.Decimal
	PlacedAt  time.Time
	Notes     string
}

// RecordBet attaches (or replaces) a wager on the most recent row matching
// (fixture_id, status_snapshot). Any previously recorded payout fields are
// cleared — the wager just changed — and the previously committed stake is
// refunded through a bankroll delta of previous_stake − new_stake. Returns
// false when no matching row exists.
func (s *Store) RecordBet(fixtureID, statusSnapshot string, bet Bet) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bet.Stake.IsNegative() {
		log.Printf("[LEDGER] record bet: rejecting negative stake %s on fixture %q", bet.Stake, fixtureID)
		return false, nil
	}

	id, ok := NormalizeFixtureID(fixtureID)
	if !ok {
		log.Printf("[LEDGER] record bet: fixture id %q not normalizable", fixtureID)
		return false, nil
	}
	key := id + "|" + strings.TrimSpace(statusSnapshot)

	var target *PredictionRecord
	for _, r := range s.records {
		k, ok := r.Key()
		if !ok || k != key {
			continue
		}
		if target == nil || r.UpdatedAt.After(target.UpdatedAt) {
			target = r
		}
	}
	if target == nil {
		return false, nil
	}

	prevStake := decimal.Zero
	if target.BetSelection != "" {
		prevStake = target.BetStake
	}

	target.BetSelection = bet.Selection
	target.BetBookmaker = bet.Bookmaker
	target.BetOdd = bet.Odd
	target.BetStake = bet.Stake
	target.BetTimestamp = bet.PlacedAt
	if target.BetTimestamp.IsZero() {
		target.BetTimestamp = time.Now().UTC()
	}
	target.BetNotes = bet.Notes
	target.BetResult = ""
	target.BetReturn = decimal.Zero
	target.UpdatedAt = time.Now().UTC()

	s.applyDelta(prevStake.Sub(bet.Stake))

	if s.metrics != nil {
		s.metrics.BetsRecorded.Inc()
	}
	if err := s.save(); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateOutcome records a final (or updated) result on every snapshot row of
// the fixture and re-settles any attached wager. Only the signed difference
// between the previous payout and the recomputed one reaches the bankroll,
// so repeating the call with the same score is a bankroll no-op. Returns
// whether any row changed.
func (s *Store) UpdateOutcome(fixtureID, status string, goalsHome, goalsAway int, winner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := NormalizeFixtureID(fixtureID)
	if !ok {
		return false, nil
	}

	changed := false
	for _, r := range s.records {
		rid, ok := NormalizeFixtureID(r.FixtureID)
		if !ok || rid != id {
			continue
		}

		r.ResultStatus = status
		r.ResultScore = FormatScore(goalsHome, goalsAway)
		r.ResultWinner = CanonicalWinner(winner, r.ResultScore, r.HomeTeam, r.AwayTeam)
		r.UpdatedAt = time.Now().UTC()
		changed = true

		if !r.HasBet() || !fixtures.IsFinished(status) {
			continue
		}

		st, ok := market.SettleSelection(
			r.BetSelection, r.HomeTeam, r.AwayTeam,
			goalsHome, goalsAway, market.Side(r.ResultWinner),
			r.BetStake, r.BetOdd,
		)
		if !ok {
			// Unknown classification: not yet resolvable, which is not the
			// same as resolved void. Leave settlement fields alone.
			continue
		}

		prev := decimal.Zero
		if r.BetResult != "" {
			prev = r.BetReturn
		}
		r.BetResult = string(st.Outcome)
		r.BetReturn = st.Payout

		s.applyDelta(st.Payout.Sub(prev))

		if s.metrics != nil {
			s.metrics.SettlementsTotal.WithLabelValues(string(st.Outcome)).Inc()
		}
	}

	if !changed {
		return false, nil
	}
	if err := s.save(); err != nil {
		return true, err
	}
	return true, nil
}

// Normalize runs the full-table data-quality pass: engineered features are
// re-derived, winner tokens canonicalized, duplicate keys collapsed onto the
// most recently written row, and missing fixture dates backfilled from the
// provider — bounded per pass, each lookup under its own timeout, a failed
// lookup skipping only that row.
func (s *Store) Normalize(ctx context.Context, provider fixtures.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	passID := uuid.NewString()[:8]

	for _, r := range s.records {
		if id, ok := NormalizeFixtureID(r.FixtureID); ok {
			r.FixtureID = id
		}
		r.StatusSnapshot = strings.TrimSpace(r.StatusSnapshot)
		r.DeriveFeatures()
		r.ResultWinner = CanonicalWinner(r.ResultWinner, r.ResultScore, r.HomeTeam, r.AwayTeam)
	}

	before := len(s.records)
	s.dedupe()
	if dropped := before - len(s.records); dropped > 0 {
		log.Printf("[LEDGER] pass %s: dropped %d duplicate rows", passID, dropped)
	}

	s.backfillDates(ctx, provider, passID)

	if s.metrics != nil {
		s.metrics.NormalizeSeconds.Observe(time.Since(start).Seconds())
	}
	return s.save()
}

// dedupe keeps, per natural key, the most recently written row. Rows without
// a normalizable key are kept as-is.
func (s *Store) dedupe() {
	keep := make(map[string]*PredictionRecord, len(s.records))
	var order []string
	var unkeyed []*PredictionRecord

	for _, r := range s.records {
		key, ok := r.Key()
		if !ok {
			unkeyed = append(unkeyed, r)
			continue
		}
		cur, exists := keep[key]
		if !exists {
			keep[key] = r
			order = append(order, key)
			continue
		}
		if r.UpdatedAt.After(cur.UpdatedAt) {
			keep[key] = r
		}
	}

	out := make([]*PredictionRecord, 0, len(order)+len(unkeyed))
	for _, key := range order {
		out = append(out, keep[key])
	}
	out = append(out, unkeyed...)
	s.records = out
}

func (s *Store) backfillDates(ctx context.Context, provider fixtures.Provider, passID string) {
	if provider == nil {
		return
	}

	lookups := 0
	for _, r := range s.records {
		if lookups >= s.backfillBatch || ctx.Err() != nil {
			break
		}
		if !r.FixtureDate.IsZero() {
			continue
		}
		id, ok := NormalizeFixtureID(r.FixtureID)
		if !ok {
			continue
		}

		cctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
		detail, err := provider.FixtureByID(cctx, id)
		cancel()
		lookups++

		if err != nil {
			// Skip this row this pass; it is retried next pass.
			log.Printf("[LEDGER] pass %s: fixture %s lookup failed: %v", passID, id, err)
			if s.metrics != nil {
				s.metrics.BackfillFailures.Inc()
			}
			continue
		}
		if detail.Date.IsZero() {
			continue
		}

		r.FixtureDate = detail.Date.UTC()
		r.UpdatedAt = time.Now().UTC()
		if s.metrics != nil {
			s.metrics.DateBackfills.Inc()
		}
	}
}

// ExportOptions controls the dataset projection.
type ExportOptions struct {
	// DropMissingProbs drops rows whose 1X2 probability snapshot is
	// incomplete.
	DropMissingProbs bool
}

// ExportDataset returns the read-only projection consumed by the training
// pipeline, every engineered feature populated. It never mutates stored rows.
func (s *Store) ExportDataset(opts ExportOptions) []PredictionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]PredictionRecord, 0, len(s.records))
	for _, r := range s.records {
		if opts.DropMissingProbs && !r.HasCoreProbs() {
			continue
		}
		c := *r
		c.DeriveFeatures()
		out = append(out, c)
	}
	return out
}

// PendingFixtures returns the distinct fixture ids that carry a wager but no
// finished result yet; the sync loop polls the provider for exactly these.
func (s *Store) PendingFixtures() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var out []string
	for _, r := range s.records {
		if !r.HasBet() || fixtures.IsFinished(r.ResultStatus) {
			continue
		}
		id, ok := NormalizeFixtureID(r.FixtureID)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// FixtureRows returns copies of every snapshot row of one fixture.
func (s *Store) FixtureRows(fixtureID string) []PredictionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := NormalizeFixtureID(fixtureID)
	if !ok {
		return nil
	}

	var out []PredictionRecord
	for _, r := range s.records {
		if rid, ok := NormalizeFixtureID(r.FixtureID); ok && rid == id {
			out = append(out, *r)
		}
	}
	return out
}

func (s *Store) applyDelta(delta decimal.Decimal) {
	if s.bankroll == nil || delta.Abs().LessThan(negligible) {
		return
	}
	s.bankroll.ApplyDelta(delta)
	if s.metrics != nil {
		s.metrics.BankrollDeltas.Inc()
	}
}

// save rewrites the whole table atomically: temp file, fsync, rename.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := writeTable(f, s.records); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing ledger: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing ledger: %w", err)
	}
	return nil
}
