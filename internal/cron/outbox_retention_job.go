package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/floristeria-backend/pkg/logger"
)

const (
	defaultRetentionDays = 30
	publishedMinAttempts = 0
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publishedOutboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type deadLetterPurger interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Outbox        publishedOutboxPurger
	DeadLetters   deadLetterPurger
	RetentionDays int
}

// NewOutboxRetentionJob purges published outbox rows and DLQ entries older
// than the retention window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if params.DeadLetters == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = defaultRetentionDays
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		outbox:    params.Outbox,
		dlq:       params.DeadLetters,
		retention: time.Duration(days) * 24 * time.Hour,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	outbox    publishedOutboxPurger
	dlq       deadLetterPurger
	retention time.Duration
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run purges each table in its own transaction so one failing table does not
// block the other.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)

	var published, deadLettered int64
	outboxErr := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.outbox.DeletePublishedBefore(ctx, tx, cutoff, publishedMinAttempts)
		published = rows
		return err
	})
	if outboxErr != nil {
		outboxErr = fmt.Errorf("purge published outbox: %w", outboxErr)
	}
	dlqErr := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.dlq.DeleteFailedBefore(ctx, tx, cutoff)
		deadLettered = rows
		return err
	})
	if dlqErr != nil {
		dlqErr = fmt.Errorf("purge outbox dlq: %w", dlqErr)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":          cutoff,
		"outbox_deleted":  published,
		"dlq_deleted":     deadLettered,
		"retention_hours": int(j.retention.Hours()),
	})
	if err := multierr.Combine(outboxErr, dlqErr); err != nil {
		return err
	}
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
