package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/retailops-backend/pkg/logger"
)

type fakeLock struct {
	held       bool
	acquireErr error
	releases   int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
	})
	require.NoError(t, err)
	return svc
}

func TestRunOnceRunsAllJobsAndJoinsFailures(t *testing.T) {
	ok := &testJob{name: "ok"}
	first := &testJob{name: "first", err: errors.New("boom")}
	second := &testJob{name: "second", err: errors.New("bang")}
	lock := &fakeLock{}
	svc := newTestService(t, lock, first, ok, second)

	err := svc.RunOnce(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "first: boom")
	require.Contains(t, err.Error(), "second: bang")
	require.Equal(t, 1, ok.runs)
	require.Equal(t, 1, first.runs)
	require.Equal(t, 1, second.runs)
	require.False(t, lock.held)
	require.Equal(t, 1, lock.releases)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "job"}
	lock := &fakeLock{held: true}
	svc := newTestService(t, lock, job)

	require.NoError(t, svc.RunOnce(context.Background()))
	require.Zero(t, job.runs)
	require.Zero(t, lock.releases)
}

func TestRunOnceLockError(t *testing.T) {
	job := &testJob{name: "job"}
	svc := newTestService(t, &fakeLock{acquireErr: errors.New("redis down")}, job)

	err := svc.RunOnce(context.Background())
	require.ErrorContains(t, err, "redis down")
	require.Zero(t, job.runs)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "job"}
	svc := newTestService(t, &fakeLock{}, job)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &fakeLock{}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.New(logger.Options{ServiceName: "cron-test"})})
	require.Error(t, err)

	svc := newTestService(t, &fakeLock{})
	require.Equal(t, defaultInterval, svc.interval)
}

func TestRunOnceStopsAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &cancellingJob{name: "first", cancel: cancel}
	second := &testJob{name: "second"}
	lock := &fakeLock{}
	svc := newTestService(t, lock, first, second)

	err := svc.RunOnce(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, second.runs)
	require.Equal(t, 1, lock.releases)
}

type cancellingJob struct {
	name   string
	cancel context.CancelFunc
}

func (c *cancellingJob) Name() string { return c.name }

func (c *cancellingJob) Run(context.Context) error {
	c.cancel()
	return nil
}
