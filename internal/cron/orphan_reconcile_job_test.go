package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/listing-qa-backend/internal/assessments"
)

type stubReconciler struct {
	result assessments.ReconcileResult
	err    error
	calls  int
}

func (s *stubReconciler) Reconcile(context.Context) (assessments.ReconcileResult, error) {
	s.calls++
	return s.result, s.err
}

func TestOrphanReconcileJobRunsReconciler(t *testing.T) {
	stub := &stubReconciler{result: assessments.ReconcileResult{Found: 2, Created: 1, Bypassed: 1}}
	job, err := NewOrphanReconcileJob(OrphanReconcileJobParams{Logger: testCronLogger(), Reconciler: stub})
	require.NoError(t, err)

	assert.Equal(t, "orphan-reconcile", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, stub.calls)
}

func TestOrphanReconcileJobWrapsFailure(t *testing.T) {
	stub := &stubReconciler{
		result: assessments.ReconcileResult{Found: 1, Failed: 1},
		err:    errors.New("listing 42: connection refused"),
	}
	job, err := NewOrphanReconcileJob(OrphanReconcileJobParams{Logger: testCronLogger(), Reconciler: stub})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orphan reconcile")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewOrphanReconcileJobRequiresReconciler(t *testing.T) {
	_, err := NewOrphanReconcileJob(OrphanReconcileJobParams{Logger: testCronLogger()})
	require.Error(t, err)
}
