// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown is WAFFLE's shutdown hook.
//
// It runs after the HTTP server has stopped accepting requests and in-flight
// requests have drained, or the drain timeout has elapsed. ctx carries WAFFLE's
// shutdown deadline; every step below respects it.
//
// Order matters:
//   - API stats and ledger writes are flushed first, because they still need
//     the MongoDB client.
//   - The task runner is stopped next, so no sweep or retention job starts a
//     query against a closing client.
//   - MongoDB is disconnected last.
//
// Every step runs even if an earlier one fails. The first error is returned;
// WAFFLE logs it but still exits.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var firstErr error

	// Drain async writers. Both are nil when BuildHandler never ran.
	if statsRecorder != nil {
		statsRecorder.Wait()
	}
	if ledgerRecorder != nil {
		ledgerRecorder.Wait()
	}

	// Stop maintenance jobs; Stop waits for a running job up to ctx's deadline.
	if taskRunner != nil {
		logger.Info("stopping background task runner")
		if err := taskRunner.Stop(ctx); err != nil {
			logger.Warn("background task runner did not stop cleanly", zap.Error(err))
			firstErr = err
		}
	}

	// Disconnect MongoDB
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
