// Package timeouts holds the deadlines handlers apply to slow operations.
package timeouts

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults used until Configure is called.
const (
	DefaultPing   = 5 * time.Second
	DefaultQuery  = 10 * time.Second
	DefaultExport = 60 * time.Second
)

// Config holds timeout values. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration // health probes
	Query  time.Duration // single reads and writes
	Export time.Duration // building and sending a CSV export
}

var (
	mu  sync.RWMutex
	cur = Config{Ping: DefaultPing, Query: DefaultQuery, Export: DefaultExport}
)

// Ping returns the health-probe timeout.
func Ping() time.Duration { return Current().Ping }

// Query returns the timeout for single reads and writes.
func Query() time.Duration { return Current().Query }

// Export returns the CSV export timeout.
func Export() time.Duration { return Current().Export }

// Current returns the active configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// Configure replaces the non-zero values in cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		cur.Ping = cfg.Ping
	}
	if cfg.Query > 0 {
		cur.Query = cfg.Query
	}
	if cfg.Export > 0 {
		cur.Export = cfg.Export
	}
}

// Reset restores the defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cur = Config{Ping: DefaultPing, Query: DefaultQuery, Export: DefaultExport}
}

// WithTimeout derives a context with timeout. The returned cancel logs a
// warning when the deadline was what ended the operation.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout))
		}
		cancel()
	}
}
