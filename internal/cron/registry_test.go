package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	reconcile := &stubJob{name: "payment-reconcile"}
	retention := &stubJob{name: "outbox-retention"}
	registry := NewRegistry(reconcile, nil, retention)

	jobs := registry.Jobs()
	require.Equal(t, []Job{reconcile, retention}, jobs)

	jobs[0] = nil
	require.Equal(t, reconcile, registry.Jobs()[0])
}

func TestRegistryRejectsDuplicateAndBlankNames(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "payment-reconcile"})

	require.ErrorContains(t, registry.Register(&stubJob{name: "payment-reconcile"}), "already registered")
	require.Error(t, registry.Register(&stubJob{name: "  "}))
	require.Error(t, registry.Register(nil))
	require.Len(t, registry.Jobs(), 1)

	require.Panics(t, func() {
		NewRegistry(&stubJob{name: "a"}, &stubJob{name: "a"})
	})
}

func TestZeroRegistryAcceptsJobs(t *testing.T) {
	var registry Registry
	require.NoError(t, registry.Register(&stubJob{name: "outbox-retention"}))
	require.Len(t, registry.Jobs(), 1)
}
