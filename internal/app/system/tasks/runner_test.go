package tasks_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/strataattend/internal/app/system/tasks"
	"go.uber.org/zap"
)

func TestRunner_RunsImmediatelyAndStops(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	ran := make(chan struct{}, 1)
	runner.Register(tasks.Job{
		Name:     "tick",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
	})
	runner.Start()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run at start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runner.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestRunner_RepeatsOnInterval(t *testing.T) {
	runner := tasks.New(zap.NewNop())
	var n atomic.Int32
	runner.Register(tasks.Job{
		Name:     "fast",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			n.Add(1)
			return errors.New("failures are logged, not fatal")
		},
	})
	runner.Start()

	deadline := time.Now().Add(2 * time.Second)
	for n.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	_ = runner.Stop(context.Background())
	if n.Load() < 3 {
		t.Errorf("job ran %d times, want >= 3", n.Load())
	}
}

func TestRunner_StopTimesOut(t *testing.T) {
	runner := tasks.New(zap.NewNop())
	entered := make(chan struct{})
	release := make(chan struct{})
	runner.Register(tasks.Job{
		Name:     "stuck",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			close(entered)
			<-release
			return nil
		},
	})
	runner.Start()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := runner.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop() error = %v, want DeadlineExceeded", err)
	}
	if got := runner.Running(); len(got) != 1 || got[0] != "stuck" {
		t.Errorf("Running() = %v", got)
	}
	close(release)
}

func TestRunner_RunOnce(t *testing.T) {
	runner := tasks.New(zap.NewNop())
	called := false
	runner.Register(tasks.Job{
		Name:     "manual",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			called = true
			return nil
		},
	})

	if err := runner.RunOnce(context.Background(), "manual"); err != nil || !called {
		t.Errorf("RunOnce() = %v, called = %v", err, called)
	}
	if err := runner.RunOnce(context.Background(), "nope"); !errors.Is(err, tasks.ErrUnknownJob) {
		t.Errorf("RunOnce(unknown) = %v, want ErrUnknownJob", err)
	}
}

func TestSpoolSweepJob(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "attendance-old.csv")
	fresh := filepath.Join(dir, "attendance-new.csv")
	other := filepath.Join(dir, "keep.txt")
	for _, p := range []string{stale, fresh, other} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-3 * time.Hour)
	for _, p := range []string{stale, other} {
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatal(err)
		}
	}

	job := tasks.SpoolSweepJob(dir, time.Hour, zap.NewNop())
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale spool file still present")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh spool file removed: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("non-spool file removed: %v", err)
	}
}

type fakePruner struct {
	cutoff time.Time
	n      int64
	err    error
}

func (f *fakePruner) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.n, f.err
}

func TestRetentionJob(t *testing.T) {
	p := &fakePruner{n: 4}
	job := tasks.RetentionJob("api-stats-retention", p, 90*24*time.Hour, zap.NewNop())
	if job.Interval != 24*time.Hour {
		t.Errorf("Interval = %v", job.Interval)
	}

	before := time.Now().UTC().Add(-90 * 24 * time.Hour)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if p.cutoff.Before(before.Add(-time.Second)) || p.cutoff.After(time.Now().UTC()) {
		t.Errorf("cutoff = %v, want about %v", p.cutoff, before)
	}

	p.err = errors.New("mongo down")
	if err := job.Run(context.Background()); err == nil {
		t.Error("Run() error = nil, want pruner error")
	}
}
