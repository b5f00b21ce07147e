package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/pkg/logger"
)

const (
	outboxRetentionJobName     = "outbox-retention"
	defaultOutboxRetentionDays = 30
	defaultOutboxAbandonAfter  = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPurger interface {
	PurgeBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, abandonedAfter int) (int64, error)
}

// OutboxRetentionJobParams configures the outbox purge. AbandonedAfter is the
// attempt count at which the publisher stops retrying a row; unpublished rows
// below it are never purged.
type OutboxRetentionJobParams struct {
	Logger         *logger.Logger
	DB             txRunner
	Repository     outboxPurger
	RetentionDays  int
	AbandonedAfter int
	Clock          func() time.Time
}

type outboxRetentionJob struct {
	logg           *logger.Logger
	db             txRunner
	purger         outboxPurger
	window         int
	abandonedAfter int
	clock          func() time.Time
}

func NewOutboxRetentionJob(p OutboxRetentionJobParams) (Job, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger required")
	case p.DB == nil:
		return nil, errors.New("db runner required")
	case p.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:           p.Logger,
		db:             p.DB,
		purger:         p.Repository,
		window:         defaultOutboxRetentionDays,
		abandonedAfter: defaultOutboxAbandonAfter,
		clock:          time.Now,
	}
	if p.RetentionDays > 0 {
		job.window = p.RetentionDays
	}
	if p.AbandonedAfter > 0 {
		job.abandonedAfter = p.AbandonedAfter
	}
	if p.Clock != nil {
		job.clock = p.Clock
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return outboxRetentionJobName }

func (j *outboxRetentionJob) cutoff() time.Time {
	return j.clock().UTC().AddDate(0, 0, -j.window)
}

// Run deletes published rows and abandoned rows older than the window.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.cutoff()
	var purged int64
	if err := j.db.WithTx(ctx, func(tx *gorm.DB) (err error) {
		purged, err = j.purger.PurgeBefore(ctx, tx, cutoff, j.abandonedAfter)
		return err
	}); err != nil {
		return fmt.Errorf("purge outbox before %s: %w", cutoff.Format(time.DateOnly), err)
	}

	ctx = j.logg.WithFields(ctx, map[string]any{
		"cutoff":          cutoff,
		"abandoned_after": j.abandonedAfter,
		"rows_purged":     purged,
	})
	if purged == 0 {
		j.logg.Debug(ctx, "outbox retention found nothing to purge")
		return nil
	}
	j.logg.Info(ctx, "outbox rows purged")
	return nil
}
