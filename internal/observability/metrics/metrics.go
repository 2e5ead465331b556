package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics carries the engine's prometheus instruments on a private
// registry so tests can build isolated instances.
type Metrics struct {
	Registry *prometheus.Registry

	PaymentsCreated   prometheus.Counter
	Verifications     *prometheus.CounterVec
	Materializations  *prometheus.CounterVec
	ReconcileSweeps   prometheus.Counter
	ReconcileRelinked prometheus.Counter
	ReconcileStuck    *prometheus.CounterVec
	SweepDuration     prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		PaymentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookpay_payments_created_total",
			Help: "Payment intents created.",
		}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookpay_payment_verifications_total",
			Help: "Verification calls by outcome.",
		}, []string{"outcome"}),
		Materializations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookpay_materializations_total",
			Help: "Booking materializations by outcome.",
		}, []string{"outcome"}),
		ReconcileSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookpay_reconcile_sweeps_total",
			Help: "Reconciliation sweeps started.",
		}),
		ReconcileRelinked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookpay_reconcile_relinked_total",
			Help: "Orphan payments repaired by the sweep.",
		}),
		ReconcileStuck: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookpay_reconcile_stuck_total",
			Help: "Payments the sweep could not repair, by reason.",
		}, []string{"reason"}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookpay_reconcile_sweep_duration_seconds",
			Help:    "Wall time of one reconciliation sweep.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		m.PaymentsCreated,
		m.Verifications,
		m.Materializations,
		m.ReconcileSweeps,
		m.ReconcileRelinked,
		m.ReconcileStuck,
		m.SweepDuration,
	)
	return m
}

var Module = fx.Module("metrics",
	fx.Provide(New),
)
