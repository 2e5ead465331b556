package reconciler

import (
	"context"
	"errors"
	"time"

	bookingdomain "github.com/slotworks/bookpay/internal/booking/domain"
	"github.com/slotworks/bookpay/internal/clock"
	gatewaydomain "github.com/slotworks/bookpay/internal/gateway/domain"
	"github.com/slotworks/bookpay/internal/intent"
	obsmetrics "github.com/slotworks/bookpay/internal/observability/metrics"
	paymentdomain "github.com/slotworks/bookpay/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Config     Config `optional:"true"`
	Payments   paymentdomain.Repository
	PaymentSvc paymentdomain.Service
	Locker     *Locker             `optional:"true"`
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

// Reconciler is the safety net behind the verify endpoint: it re-drives
// successful payments whose bookings never materialized, and settles
// payments stuck in pending past their useful age. Every repair path goes
// through the same VerifyAndMaterialize the online flow uses, so the sweep
// can never invent state the state machine would not.
type Reconciler struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	payments   paymentdomain.Repository
	paymentSvc paymentdomain.Service
	locker     *Locker
	metrics    *obsmetrics.Metrics
}

// Window restricts a sweep to payments created inside [From, To]. Nil
// bounds are open ends.
type Window struct {
	From *time.Time
	To   *time.Time
}

// StuckPayment is one payment the sweep could not repair this run.
type StuckPayment struct {
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

// Report summarizes one sweep.
type Report struct {
	Scanned        int            `json:"scanned"`
	Relinked       int            `json:"relinked"`
	VerifiedFailed int            `json:"verified_failed"`
	StillPending   int            `json:"still_pending"`
	Stuck          []StuckPayment `json:"stuck,omitempty"`
}

var ErrInvalidConfig = errors.New("reconciler: invalid configuration")

func New(p Params) (*Reconciler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Payments == nil || p.PaymentSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Reconciler{
		db:         p.DB,
		log:        p.Log.Named("reconciler"),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		payments:   p.Payments,
		paymentSvc: p.PaymentSvc,
		locker:     p.Locker,
		metrics:    p.Metrics,
	}, nil
}

// Reconcile runs one sweep and reports what it did. Callers holding no
// distributed lock (the HTTP trigger) run it directly; overlapping sweeps
// are safe because every mutation is guarded by conditional updates.
func (r *Reconciler) Reconcile(ctx context.Context, window Window) (Report, error) {
	start := r.clock.Now()
	if r.metrics != nil {
		r.metrics.ReconcileSweeps.Inc()
		defer func() {
			r.metrics.SweepDuration.Observe(time.Since(start).Seconds())
		}()
	}

	var report Report
	var sweepErr error

	if err := r.sweepOrphans(ctx, window, &report); err != nil {
		sweepErr = errors.Join(sweepErr, err)
	}
	if err := r.sweepStuckPending(ctx, &report); err != nil {
		sweepErr = errors.Join(sweepErr, err)
	}

	r.log.Info("reconcile sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("relinked", report.Relinked),
		zap.Int("verified_failed", report.VerifiedFailed),
		zap.Int("still_pending", report.StillPending),
		zap.Int("stuck", len(report.Stuck)),
		zap.Duration("took", time.Since(start)),
	)
	return report, sweepErr
}

// sweepOrphans repairs success payments whose booking link is missing:
// the crash window between status update and materialization.
func (r *Reconciler) sweepOrphans(ctx context.Context, window Window, report *Report) error {
	var jobErr error
	attempted := make(map[string]struct{})
	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		orphans, err := r.payments.ListOrphans(ctx, r.db, window.From, window.To, r.cfg.BatchSize)
		if err != nil {
			return errors.Join(jobErr, err)
		}
		if len(orphans) == 0 {
			return jobErr
		}

		repaired := 0
		for _, payment := range orphans {
			if _, done := attempted[payment.Reference]; done {
				continue
			}
			attempted[payment.Reference] = struct{}{}
			report.Scanned++
			result, err := r.paymentSvc.VerifyAndMaterialize(ctx, payment.Reference)
			if err != nil {
				r.markStuck(report, payment.Reference, err)
				jobErr = errors.Join(jobErr, err)
				continue
			}
			if len(result.BookingIDs) > 0 {
				repaired++
				report.Relinked++
				if r.metrics != nil {
					r.metrics.ReconcileRelinked.Inc()
				}
				r.log.Info("relinked orphan payment",
					zap.String("reference", payment.Reference),
					zap.Int("bookings", len(result.BookingIDs)),
				)
			}
		}
		if repaired == 0 {
			// Nothing in this batch moved; a retry now would re-fetch the
			// same stuck rows forever.
			return jobErr
		}
	}
}

// sweepStuckPending asks the gateway about pending payments older than
// PendingMaxAge. A successful answer also materializes bookings.
func (r *Reconciler) sweepStuckPending(ctx context.Context, report *Report) error {
	cutoff := r.clock.Now().Add(-r.cfg.PendingMaxAge)

	pendings, err := r.payments.ListStuckPending(ctx, r.db, cutoff, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	var jobErr error
	for _, payment := range pendings {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		report.Scanned++

		result, err := r.paymentSvc.VerifyAndMaterialize(ctx, payment.Reference)
		if err != nil {
			r.markStuck(report, payment.Reference, err)
			jobErr = errors.Join(jobErr, err)
			continue
		}

		switch result.Status {
		case paymentdomain.StatusSuccess:
			report.Relinked++
			if r.metrics != nil {
				r.metrics.ReconcileRelinked.Inc()
			}
		case paymentdomain.StatusFailed:
			report.VerifiedFailed++
			r.log.Info("stuck pending payment verified failed",
				zap.String("reference", payment.Reference),
			)
		default:
			// The gateway still has no terminal answer. Leave it for the
			// next sweep rather than guessing an outcome.
			report.StillPending++
		}
	}
	return jobErr
}

func (r *Reconciler) markStuck(report *Report, reference string, err error) {
	reason := classifyReason(err)
	report.Stuck = append(report.Stuck, StuckPayment{Reference: reference, Reason: reason})
	if r.metrics != nil {
		r.metrics.ReconcileStuck.WithLabelValues(reason).Inc()
	}
	r.log.Warn("payment left stuck after sweep",
		zap.String("reference", reference),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

func classifyReason(err error) string {
	switch {
	case errors.Is(err, intent.ErrMalformed):
		return "malformed_intent"
	case errors.Is(err, gatewaydomain.ErrUnavailable):
		return "gateway_unavailable"
	case errors.Is(err, paymentdomain.ErrLinkConflict):
		return "link_conflict"
	case errors.Is(err, bookingdomain.ErrSlotAlreadyBooked):
		return "slot_conflict"
	default:
		return "error"
	}
}

// RunForever drives periodic sweeps until the context is canceled. When a
// Locker is configured, replicas race for the sweep lock and losers skip
// the round.
func (r *Reconciler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.RunInterval)
	defer ticker.Stop()

	for {
		r.runOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Reconciler) runOnce(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, r.cfg.JobTimeout)
	defer cancel()

	if r.locker != nil {
		token, ok, err := r.locker.TryLock(ctx, sweepLockKey, r.cfg.JobTimeout)
		if err != nil {
			r.log.Warn("sweep lock unavailable", zap.Error(err))
			return
		}
		if !ok {
			return
		}
		defer func() {
			if err := r.locker.Release(ctx, sweepLockKey, token); err != nil {
				r.log.Warn("sweep lock release failed", zap.Error(err))
			}
		}()
	}

	if _, err := r.Reconcile(ctx, Window{}); err != nil {
		r.log.Warn("reconcile sweep finished with errors", zap.Error(err))
	}
}
