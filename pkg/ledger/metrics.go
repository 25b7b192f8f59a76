package ledger

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the ledger and bankroll.
type Metrics struct {
	registry *prometheus.Registry

	UpsertsTotal     *prometheus.CounterVec
	BetsRecorded     prometheus.Counter
	SettlementsTotal *prometheus.CounterVec
	BankrollBalance  prometheus.Gauge
	BankrollDeltas   prometheus.Counter
	NormalizeSeconds prometheus.Histogram
	DateBackfills    prometheus.Counter
	BackfillFailures prometheus.Counter
}

// NewMetrics creates and registers the ledger metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		UpsertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "betledger_upserts_total",
				Help: "Upsert operations by disposition",
			},
			[]string{"op"}, // insert, overwrite, append_unkeyed
		),
		BetsRecorded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "betledger_bets_recorded_total",
				Help: "Wager attachments recorded",
			},
		),
		SettlementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "betledger_settlements_total",
				Help: "Settled wagers by outcome",
			},
			[]string{"outcome"},
		),
		BankrollBalance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "betledger_bankroll_balance",
				Help: "Current running bankroll balance",
			},
		),
		BankrollDeltas: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "betledger_bankroll_deltas_total",
				Help: "Signed deltas forwarded to the bankroll",
			},
		),
		NormalizeSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "betledger_normalize_seconds",
				Help:    "Duration of full-table normalization passes",
				Buckets: prometheus.DefBuckets,
			},
		),
		DateBackfills: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "betledger_date_backfills_total",
				Help: "Fixture dates filled from the provider",
			},
		),
		BackfillFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "betledger_backfill_failures_total",
				Help: "Fixture lookups skipped after provider errors",
			},
		),
	}

	registry.MustRegister(
		m.UpsertsTotal,
		m.BetsRecorded,
		m.SettlementsTotal,
		m.BankrollBalance,
		m.BankrollDeltas,
		m.NormalizeSeconds,
		m.DateBackfills,
		m.BackfillFailures,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
