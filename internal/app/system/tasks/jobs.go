package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/strataattend/internal/app/system/report"
	"go.uber.org/zap"
)

// SpoolSweepJob removes export spool files older than maxAge from dir. Only
// exports interrupted by a crash leave files behind.
func SpoolSweepJob(dir string, maxAge time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "export-spool-sweep",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			n, err := report.SweepSpool(dir, time.Now().Add(-maxAge))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("removed stale export spool files",
					zap.String("dir", dir),
					zap.Int("removed", n))
			}
			return nil
		},
	}
}

// Pruner deletes records older than a cutoff.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob deletes records older than retention from store once a day.
func RetentionJob(name string, store Pruner, retention time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     name,
		Interval: 24 * time.Hour,
		Run: func(ctx context.Context) error {
			n, err := store.DeleteOlderThan(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("pruned old records",
					zap.String("job", name),
					zap.Int64("deleted", n))
			}
			return nil
		},
	}
}
