package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type fakeOutboxPurger struct {
	cutoff      time.Time
	minAttempts int
	err         error
}

func (f *fakeOutboxPurger) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.cutoff = cutoff
	f.minAttempts = minAttemptCount
	return 7, f.err
}

type fakeDLQPurger struct {
	cutoff time.Time
	calls  int
	err    error
}

func (f *fakeDLQPurger) DeleteFailedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	f.calls++
	return 2, f.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newRetentionJob(t *testing.T, outbox *fakeOutboxPurger, dlq *fakeDLQPurger, days int) *outboxRetentionJob {
	t.Helper()
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:        testLogger(),
		DB:            passthroughTx{},
		Outbox:        outbox,
		DeadLetters:   dlq,
		RetentionDays: days,
	})
	require.NoError(t, err)
	concrete, ok := job.(*outboxRetentionJob)
	require.True(t, ok)
	return concrete
}

func TestOutboxRetentionUsesConfiguredWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	outbox := &fakeOutboxPurger{}
	dlq := &fakeDLQPurger{}
	job := newRetentionJob(t, outbox, dlq, 7)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	want := now.Add(-7 * 24 * time.Hour)
	assert.True(t, outbox.cutoff.Equal(want))
	assert.True(t, dlq.cutoff.Equal(want))
	assert.Equal(t, publishedMinAttempts, outbox.minAttempts)
	assert.Equal(t, "outbox-retention", job.Name())
}

func TestOutboxRetentionDefaultsWindow(t *testing.T) {
	job := newRetentionJob(t, &fakeOutboxPurger{}, &fakeDLQPurger{}, 0)
	assert.Equal(t, defaultRetentionDays*24*time.Hour, job.retention)
}

func TestOutboxRetentionCombinesErrors(t *testing.T) {
	outbox := &fakeOutboxPurger{err: errors.New("outbox locked")}
	dlq := &fakeDLQPurger{err: errors.New("dlq locked")}
	job := newRetentionJob(t, outbox, dlq, 1)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, 1, dlq.calls)
}

func TestOutboxRetentionPurgesDLQWhenOutboxFails(t *testing.T) {
	dlq := &fakeDLQPurger{}
	job := newRetentionJob(t, &fakeOutboxPurger{err: errors.New("boom")}, dlq, 1)

	err := job.Run(context.Background())
	assert.ErrorContains(t, err, "purge published outbox")
	assert.Equal(t, 1, dlq.calls)
}

func TestNewOutboxRetentionJobValidation(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{DB: passthroughTx{}, Outbox: &fakeOutboxPurger{}, DeadLetters: &fakeDLQPurger{}})
	assert.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger(), Outbox: &fakeOutboxPurger{}, DeadLetters: &fakeDLQPurger{}})
	assert.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger(), DB: passthroughTx{}, DeadLetters: &fakeDLQPurger{}})
	assert.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger(), DB: passthroughTx{}, Outbox: &fakeOutboxPurger{}})
	assert.Error(t, err)
}
