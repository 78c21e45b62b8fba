// Package metrics defines Prometheus metrics for stocksentry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stocksentry"

// Evaluation metrics.
var (
	ItemsEvaluatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_evaluated_total",
		Help:      "Total number of item snapshots evaluated.",
	})

	ItemsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_skipped_total",
		Help:      "Total number of snapshots skipped (missing product or unavailable).",
	})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_duration_seconds",
		Help:      "Duration of batch evaluations in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Alert metrics.
var (
	StockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_alerts_total",
		Help:      "Total number of stock alerts dispatched.",
	})

	PriceChangeAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_change_alerts_total",
		Help:      "Total number of price-change alerts dispatched.",
	})

	NotifierFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifier_failures_total",
		Help:      "Total number of notifier send failures.",
	}, []string{"channel"})

	BasketCandidatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "basket_candidates_total",
		Help:      "Total number of items admitted to the basket candidate set.",
	})
)

// Broadcast metrics.
var (
	BroadcastListeners = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "broadcast_listeners",
		Help:      "Number of currently connected broadcast listeners.",
	})

	BroadcastSendsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_sends_total",
		Help:      "Total number of per-listener broadcast sends.",
	})

	BroadcastRejectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_rejects_total",
		Help:      "Total number of rejected broadcast upgrade attempts.",
	})
)
