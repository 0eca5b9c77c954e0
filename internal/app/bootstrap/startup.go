// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"os"

	apistatsstore "github.com/dalemusser/strataattend/internal/app/store/apistats"
	ledgerstore "github.com/dalemusser/strataattend/internal/app/store/ledger"
	"github.com/dalemusser/strataattend/internal/app/system/tasks"
	"github.com/dalemusser/strataattend/internal/app/system/timeouts"
	"github.com/dalemusser/strataattend/internal/app/system/timezones"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// taskRunner is kept for Shutdown.
var taskRunner *tasks.Runner

// Startup is WAFFLE's startup hook. It runs after EnsureSchema and before
// BuildHandler, so failures here stop the process before it serves traffic.
//
// The embedded zone list is parsed first and the export deadline applied.
// After the spool directory exists, the background jobs start:
//   - spool-sweep: hourly, removes export files orphaned by a crash
//   - api-stats-retention: daily, drops stats buckets older than api_stats_retention
//   - ledger-retention: daily, only when the error ledger is enabled
//
// None of the jobs touch attendance records; day boundaries are derived at
// write time, so there is nothing to reset at midnight.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := timezones.Load(); err != nil {
		return fmt.Errorf("load time zones: %w", err)
	}

	timeouts.Configure(timeouts.Config{Export: appCfg.ExportTimeout})

	if appCfg.ExportDir != "" {
		if err := os.MkdirAll(appCfg.ExportDir, 0o750); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}

	taskRunner = tasks.New(logger)
	taskRunner.Register(tasks.SpoolSweepJob(appCfg.ExportDir, appCfg.ExportSpoolMaxAge, logger))
	taskRunner.Register(tasks.RetentionJob("api-stats-retention",
		apistatsstore.New(deps.MongoDatabase), appCfg.APIStatsRetention, logger))
	if appCfg.LedgerEnabled {
		taskRunner.Register(tasks.RetentionJob("ledger-retention",
			ledgerstore.New(deps.MongoDatabase), appCfg.LedgerRetention, logger))
	}
	taskRunner.Start()

	logger.Info("attendance service ready",
		zap.String("timezone", appCfg.AttendanceTimezone),
		zap.Bool("export_archive", appCfg.ExportArchive))
	return nil
}
