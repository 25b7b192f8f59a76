package ledger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// BankrollLedger is the downstream collaborator holding the running balance.
// It is mutated only through signed deltas; absolute overwrites are not part
// of the contract.
type BankrollLedger interface {
	ApplyDelta(delta decimal.Decimal)
}

// Bankroll is a file-backed BankrollLedger. Every delta is applied as an
// atomic read-modify-write under the lock and persisted with a
// write-temp-then-rename replacement.
type Bankroll struct {
	mu      sync.Mutex
	path    string
	balance decimal.Decimal
}

// OpenBankroll loads the balance from path, or starts from initial when the
// file does not exist yet. An empty path keeps the bankroll memory-only.
func OpenBankroll(path string, initial decimal.Decimal) (*Bankroll, error) {
	b := &Bankroll{path: path, balance: initial}

	if path == "" {
		return b, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading bankroll: %w", err)
	}

	balance, err := decimal.NewFromString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parsing bankroll %q: %w", strings.TrimSpace(string(data)), err)
	}
	b.balance = balance
	return b, nil
}

// ApplyDelta folds a signed payout or stake delta into the balance.
func (b *Bankroll) ApplyDelta(delta decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.balance = b.balance.Add(delta)
	if err := b.persist(); err != nil {
		// The in-memory balance stays authoritative; persistence is retried
		// on the next delta.
		log.Printf("[BANKROLL] persist failed: %v", err)
	}
}

// Balance returns the current running balance.
func (b *Bankroll) Balance() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance
}

func (b *Bankroll) persist() error {
	if b.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return err
	}

	tmp := b.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(b.balance.String() + "\n"); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}
