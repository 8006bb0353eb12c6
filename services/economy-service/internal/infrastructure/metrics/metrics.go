package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the economy service collectors.
	Registry = prometheus.NewRegistry()

	purchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "economy",
			Subsystem: "shop",
			Name:      "purchases_total",
			Help:      "Purchase attempts by outcome.",
		},
		[]string{"item_id", "result"},
	)

	itemUses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "economy",
			Subsystem: "inventory",
			Name:      "item_uses_total",
			Help:      "Item use attempts by effect type and outcome.",
		},
		[]string{"effect", "result"},
	)

	awards = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "economy",
			Subsystem: "achievements",
			Name:      "awarded_total",
			Help:      "Achievements awarded.",
		},
		[]string{"achievement_id"},
	)

	evaluationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "economy",
			Subsystem: "achievements",
			Name:      "evaluation_failures_total",
			Help:      "Evaluations whose storage errors were collapsed to an empty result.",
		},
	)

	ledgerEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "economy",
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Committed ledger records by currency and direction.",
		},
		[]string{"currency", "direction"},
	)

	storeRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "economy",
			Subsystem: "store",
			Name:      "retries_total",
			Help:      "Transaction retries after transient store errors.",
		},
		[]string{"operation"},
	)

	ledgerMismatches = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "economy",
			Subsystem: "ledger",
			Name:      "audit_mismatches",
			Help:      "Balances that disagreed with their ledger in the last audit.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "economy",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "economy",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(
		purchases,
		itemUses,
		awards,
		evaluationFailures,
		ledgerEntries,
		storeRetries,
		ledgerMismatches,
		httpRequests,
		httpDuration,
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordPurchase(itemID, result string) {
	purchases.WithLabelValues(itemID, result).Inc()
}

func RecordItemUse(effect, result string) {
	itemUses.WithLabelValues(effect, result).Inc()
}

func RecordAward(achievementID string) {
	awards.WithLabelValues(achievementID).Inc()
}

func RecordEvaluationFailure() {
	evaluationFailures.Inc()
}

func RecordLedgerEntry(currency string, spending bool) {
	direction := "earn"
	if spending {
		direction = "spend"
	}
	ledgerEntries.WithLabelValues(currency, direction).Inc()
}

func RecordStoreRetry(operation string) {
	storeRetries.WithLabelValues(operation).Inc()
}

func SetLedgerMismatches(n int) {
	ledgerMismatches.Set(float64(n))
}

func RecordHTTPRequest(method, path string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
