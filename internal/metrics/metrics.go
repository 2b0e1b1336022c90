package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventtik_purchases_total",
			Help: "Purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	initiations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventtik_payment_initiations_total",
			Help: "Payment requests sent to the gateway",
		},
		[]string{"mode", "outcome"},
	)

	settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventtik_payment_settlements_total",
			Help: "Terminal payment transitions by reconciliation source",
		},
		[]string{"source", "outcome"},
	)

	reconcilerTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventtik_reconciler_timeouts_total",
			Help: "Tickets still pending after the reconciler exhausted its attempts",
		},
	)

	reconcilerActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventtik_reconciler_active",
			Help: "Tickets currently tracked by the reconciler",
		},
	)

	checkins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventtik_checkins_total",
			Help: "Scan and confirm results",
		},
		[]string{"result"},
	)

	anomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventtik_settlement_anomalies_total",
			Help: "Counter updates skipped while settling a real payment",
		},
		[]string{"kind"},
	)

	reminders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventtik_reminders_total",
			Help: "Scheduled reminder emails by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	gatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventtik_gateway_request_duration_seconds",
			Help:    "Latency of payment gateway calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func RecordPurchase(outcome string) { purchases.WithLabelValues(outcome).Inc() }

func RecordInitiation(mode, outcome string) { initiations.WithLabelValues(mode, outcome).Inc() }

func RecordSettlement(source, outcome string) { settlements.WithLabelValues(source, outcome).Inc() }

func RecordReconcilerTimeout() { reconcilerTimeouts.Inc() }

func ReconcilerStarted() { reconcilerActive.Inc() }

func ReconcilerStopped() { reconcilerActive.Dec() }

func RecordCheckIn(result string) { checkins.WithLabelValues(result).Inc() }

func RecordAnomaly(kind string) { anomalies.WithLabelValues(kind).Inc() }

func RecordReminder(kind, outcome string) { reminders.WithLabelValues(kind, outcome).Inc() }

// ObserveGateway records the latency of a gateway call started at start.
func ObserveGateway(operation string, start time.Time) {
	gatewayDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
