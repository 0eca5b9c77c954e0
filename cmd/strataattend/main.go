// Command strataattend serves the attendance API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dalemusser/strataattend/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, bootstrap.Hooks); err != nil {
		// waffle's logger is gone once Run returns; report through a fresh one.
		logger, lerr := zap.NewProduction()
		if lerr != nil {
			logger = zap.NewExample()
		}
		logger.Fatal("strataattend stopped", zap.String("app", bootstrap.Hooks.Name), zap.Error(err))
	}
}
