// ledgerd is the prediction ledger daemon. It keeps the ledger file
// normalized, polls the fixture provider for results on pending wagers,
// settles them against the bankroll and pushes activity to WebSocket
// subscribers.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/betledger/pkg/config"
	"github.com/phenomenon0/betledger/pkg/fixtures"
	"github.com/phenomenon0/betledger/pkg/ledger"
	"github.com/phenomenon0/betledger/pkg/notify"
	"github.com/phenomenon0/betledger/pkg/odds"
	"github.com/phenomenon0/betledger/pkg/stream"
)

var (
	configPath = flag.String("config", "", "Path to config file (YAML)")
	verbose    = flag.Bool("verbose", false, "Verbose logging")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("Starting prediction ledger daemon")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	d, err := newDaemon(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go d.hub.Run(ctx.Done())
	go d.startHTTP()
	go d.normalizeLoop(ctx)
	go d.syncLoop(ctx)

	log.Printf("Daemon running (ledger=%s, http=%s)", cfg.Ledger.Path, cfg.Server.Addr)
	log.Printf("WebSocket streaming available at ws://%s/ws", cfg.Server.Addr)

	<-sigCh
	log.Println("Shutting down...")
	cancel()
	log.Printf("Final bankroll: %s", d.bankroll.Balance().StringFixed(2))
}

type daemon struct {
	cfg      *config.Config
	store    *ledger.Store
	bankroll *ledger.Bankroll
	provider *fixtures.Client
	metrics  *ledger.Metrics
	hub      *stream.Hub
	notifier *notify.Notifier
}

func newDaemon(cfg *config.Config) (*daemon, error) {
	d := &daemon{
		cfg:     cfg,
		metrics: ledger.NewMetrics(),
		hub:     stream.NewHub(),
	}

	bankroll, err := ledger.OpenBankroll(cfg.Ledger.BankrollPath, decimal.NewFromFloat(cfg.Ledger.InitialBankroll))
	if err != nil {
		return nil, err
	}
	d.bankroll = bankroll

	store, err := ledger.Open(cfg.Ledger.Path, bankroll,
		ledger.WithMetrics(d.metrics),
		ledger.WithBackfillBatch(cfg.Ledger.BackfillBatch),
		ledger.WithLookupTimeout(cfg.Ledger.LookupTimeout),
	)
	if err != nil {
		return nil, err
	}
	d.store = store
	log.Printf("Ledger loaded: %d rows, bankroll %s", store.Len(), bankroll.Balance().StringFixed(2))

	d.provider = fixtures.NewClient(
		fixtures.WithBaseURL(cfg.Provider.BaseURL),
		fixtures.WithHTTPClient(&http.Client{Timeout: cfg.Provider.Timeout}),
		fixtures.WithRateLimit(cfg.Provider.RateLimit, cfg.Provider.Burst),
	)

	if cfg.Telegram.Enabled {
		notifier, err := notify.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		d.notifier = notifier
		log.Println("Telegram notifications enabled")
	}

	d.metrics.BankrollBalance.Set(bankroll.Balance().InexactFloat64())
	return d, nil
}

// normalizeLoop runs the data-quality pass on a fixed cadence, including one
// pass right at startup.
func (d *daemon) normalizeLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Ledger.NormalizeInterval)
	defer ticker.Stop()

	for {
		if err := d.store.Normalize(ctx, d.provider); err != nil {
			log.Printf("[NORMALIZE] pass failed: %v", err)
			d.hub.BroadcastError(err, "normalize")
		} else if *verbose {
			log.Printf("[NORMALIZE] pass complete, %d rows", d.store.Len())
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// syncLoop polls the provider for every fixture carrying an unsettled wager
// and applies results as they arrive.
func (d *daemon) syncLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Ledger.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.syncPending(ctx)
		}
	}
}

func (d *daemon) syncPending(ctx context.Context) {
	pending := d.store.PendingFixtures()
	if len(pending) == 0 {
		return
	}
	if *verbose {
		log.Printf("[SYNC] polling %d pending fixtures", len(pending))
	}

	for _, id := range pending {
		if ctx.Err() != nil {
			return
		}

		cctx, cancel := context.WithTimeout(ctx, d.cfg.Ledger.LookupTimeout)
		detail, err := d.provider.FixtureByID(cctx, id)
		cancel()
		if err != nil {
			log.Printf("[SYNC] fixture %s: %v", id, err)
			d.hub.BroadcastError(err, "sync")
			continue
		}
		if !detail.HasScore() {
			continue
		}

		if fixtures.IsFinished(detail.Status) {
			d.applyResult(id, detail)
			continue
		}

		// Live fixture with a known score: publish the theoretical fair-odds
		// menu for what remains of the match.
		d.hub.BroadcastStatus(id, detail.Status)
		d.hub.BroadcastOdds(stream.OddsEvent{
			FixtureID: id,
			Source:    "baseline",
			Score:     ledger.FormatScore(*detail.GoalsHome, *detail.GoalsAway),
			Markets:   odds.Baseline(*detail.GoalsHome, *detail.GoalsAway),
		})
	}
}

func (d *daemon) applyResult(id string, detail *fixtures.Detail) {
	changed, err := d.store.UpdateOutcome(id, detail.Status, *detail.GoalsHome, *detail.GoalsAway, detail.Winner)
	if err != nil {
		log.Printf("[SYNC] fixture %s: settle failed: %v", id, err)
		d.hub.BroadcastError(err, "settle")
		return
	}
	if !changed {
		return
	}

	score := ledger.FormatScore(*detail.GoalsHome, *detail.GoalsAway)
	log.Printf("[SYNC] fixture %s finished %s (%s)", id, score, detail.Status)
	d.hub.BroadcastStatus(id, detail.Status)

	balance := d.bankroll.Balance()
	d.metrics.BankrollBalance.Set(balance.InexactFloat64())
	d.hub.BroadcastBankroll(balance)

	for _, row := range d.store.FixtureRows(id) {
		if !row.HasBet() || row.BetResult == "" {
			continue
		}
		d.hub.BroadcastSettlement(stream.SettlementEvent{
			FixtureID: id,
			Selection: row.BetSelection,
			Outcome:   row.BetResult,
			Score:     score,
			Payout:    row.BetReturn,
		})
		if d.notifier == nil {
			continue
		}
		err := d.notifier.NotifySettlement(notify.Settlement{
			FixtureID: id,
			HomeTeam:  row.HomeTeam,
			AwayTeam:  row.AwayTeam,
			Selection: row.BetSelection,
			Outcome:   row.BetResult,
			Score:     score,
			Stake:     row.BetStake,
			Payout:    row.BetReturn,
		})
		if err != nil {
			log.Printf("[NOTIFY] fixture %s: %v", id, err)
		}
	}
}

func (d *daemon) startHTTP() {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"rows":      d.store.Len(),
			"pending":   len(d.store.PendingFixtures()),
			"bankroll":  d.bankroll.Balance(),
			"streaming": d.hub.ClientCount(),
		})
	})

	mux.Handle("/metrics", d.metrics.Handler())
	mux.HandleFunc("/ws", d.hub.ServeWS)

	if err := http.ListenAndServe(d.cfg.Server.Addr, mux); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
