package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/multierr"

	"github.com/angelmondragon/listing-qa-backend/pkg/logger"
	"github.com/angelmondragon/listing-qa-backend/pkg/metrics"
)

type fakeLock struct {
	acquired bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.acquired = false
	f.releases++
	return nil
}

type testJob struct {
	name  string
	err   error
	panic bool
	runs  int
	ctx   context.Context
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(ctx context.Context) error {
	t.runs++
	t.ctx = ctx
	if t.panic {
		panic("nil map write")
	}
	return t.err
}

func testCronLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func mustRegistry(t *testing.T, jobs ...Job) *Registry {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return registry
}

func TestServiceRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	lock := &fakeLock{}
	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Logger:   testCronLogger(),
		Registry: mustRegistry(t, success, failure),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	err = service.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected failure to be reported")
	}
	if len(multierr.Errors(err)) != 1 {
		t.Fatalf("expected one error got %v", err)
	}
	if success.runs != 1 || failure.runs != 1 {
		t.Fatalf("expected each job to run once, got %d and %d", success.runs, failure.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released once, got %d", lock.releases)
	}
	if count, err := testutil.GatherAndCount(reg, "cron_job_runs_total"); err != nil || count != 2 {
		t.Fatalf("expected one series per outcome, got %d (%v)", count, err)
	}
}

func TestServiceRunOnceSkipsWhenLocked(t *testing.T) {
	job := &testJob{name: "orphan-reconcile"}
	service, err := NewService(ServiceParams{
		Logger:   testCronLogger(),
		Registry: mustRegistry(t, job),
		Lock:     &fakeLock{acquired: true},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job should not run while another instance holds the lock")
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "outbox-retention"}
	service, err := NewService(ServiceParams{
		Logger:   testCronLogger(),
		Registry: mustRegistry(t, job),
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected initial cycle to run once, got %d", job.runs)
	}
}

func TestServiceRecoversJobPanics(t *testing.T) {
	bad := &testJob{name: "explodes", panic: true}
	after := &testJob{name: "outbox-retention"}
	service, err := NewService(ServiceParams{
		Logger:   testCronLogger(),
		Registry: mustRegistry(t, bad, after),
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	err = service.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "explodes: panic: nil map write") {
		t.Fatalf("expected recovered panic, got %v", err)
	}
	if after.runs != 1 {
		t.Fatalf("jobs after a panic must still run, got %d", after.runs)
	}
}

func TestServiceRunJobByName(t *testing.T) {
	orphan := &testJob{name: "orphan-reconcile"}
	retention := &testJob{name: "outbox-retention"}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:     testCronLogger(),
		Registry:   mustRegistry(t, orphan, retention),
		Lock:       lock,
		JobTimeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.RunJob(context.Background(), "outbox-retention"); err != nil {
		t.Fatalf("run job: %v", err)
	}
	if retention.runs != 1 || orphan.runs != 0 {
		t.Fatalf("expected only the named job to run, got %d and %d", retention.runs, orphan.runs)
	}
	if _, ok := retention.ctx.Deadline(); !ok {
		t.Fatal("expected job context to carry the timeout")
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released once, got %d", lock.releases)
	}

	if err := service.RunJob(context.Background(), "missing"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("expected unknown job error, got %v", err)
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: testCronLogger()}); err == nil {
		t.Fatal("expected error without lock")
	}
}
