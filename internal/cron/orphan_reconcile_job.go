package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/listing-qa-backend/internal/assessments"
	"github.com/angelmondragon/listing-qa-backend/pkg/logger"
)

type orphanReconciler interface {
	Reconcile(ctx context.Context) (assessments.ReconcileResult, error)
}

// OrphanReconcileJobParams configure the orphan listing sweep.
type OrphanReconcileJobParams struct {
	Logger     *logger.Logger
	Reconciler orphanReconciler
}

// NewOrphanReconcileJob creates assessments for listings that never received one.
func NewOrphanReconcileJob(params OrphanReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &orphanReconcileJob{logg: params.Logger, reconciler: params.Reconciler}, nil
}

type orphanReconcileJob struct {
	logg       *logger.Logger
	reconciler orphanReconciler
}

func (j *orphanReconcileJob) Name() string { return "orphan-reconcile" }

func (j *orphanReconcileJob) Run(ctx context.Context) error {
	result, err := j.reconciler.Reconcile(ctx)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"found":    result.Found,
		"created":  result.Created,
		"bypassed": result.Bypassed,
		"failed":   result.Failed,
	})
	if err != nil {
		return fmt.Errorf("orphan reconcile: %w", err)
	}
	if result.Found > 0 {
		j.logg.Info(logCtx, "cron.orphan_reconcile.converged")
	}
	return nil
}
