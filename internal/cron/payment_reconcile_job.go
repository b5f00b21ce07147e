package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/retailops-backend/internal/payments"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
)

const (
	defaultStaleAfter      = 2 * time.Minute
	defaultReconcileBatch  = 50
	defaultReconcileRounds = 5
)

type paymentReconciler interface {
	ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (payments.ReconcileReport, error)
}

type PaymentReconcileJobParams struct {
	Logger     *logger.Logger
	Payments   paymentReconciler
	StaleAfter time.Duration
	BatchSize  int
	MaxBatches int
}

// NewPaymentReconcileJob queries the gateway for attempts that never received
// a callback within StaleAfter.
func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	job := &paymentReconcileJob{
		logg:       params.Logger,
		payments:   params.Payments,
		staleAfter: params.StaleAfter,
		batch:      params.BatchSize,
		maxBatches: params.MaxBatches,
	}
	if job.staleAfter <= 0 {
		job.staleAfter = defaultStaleAfter
	}
	if job.batch <= 0 {
		job.batch = defaultReconcileBatch
	}
	if job.maxBatches <= 0 {
		job.maxBatches = defaultReconcileRounds
	}
	return job, nil
}

type paymentReconcileJob struct {
	logg       *logger.Logger
	payments   paymentReconciler
	staleAfter time.Duration
	batch      int
	maxBatches int
}

func (j *paymentReconcileJob) Name() string { return "payment-reconcile" }

// Run sweeps in batches. Polled attempts get last_polled_at bumped, so the
// next batch only sees attempts not yet touched in this run.
func (j *paymentReconcileJob) Run(ctx context.Context) error {
	var (
		total payments.ReconcileReport
		errs  error
	)
	for round := 0; round < j.maxBatches; round++ {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		report, err := j.payments.ReconcileStale(ctx, j.staleAfter, j.batch)
		errs = multierr.Append(errs, err)
		total.Checked += report.Checked
		total.Resolved += report.Resolved
		total.StillPending += report.StillPending
		total.Failed += report.Failed

		if report.Checked < j.batch || report.Failed == report.Checked {
			break
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"checked":       total.Checked,
		"resolved":      total.Resolved,
		"still_pending": total.StillPending,
		"failed":        total.Failed,
	}), "payment reconciliation complete")

	if errs != nil {
		return fmt.Errorf("payment reconcile: %w", errs)
	}
	return nil
}
