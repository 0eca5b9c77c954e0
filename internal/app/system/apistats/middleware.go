// Package apistats provides middleware for tracking API request statistics.
//
// Each attendance API route group (check-in, alias, query, report, export) is
// wrapped with MiddlewareWithRecorder for its StatType. Every request adds one
// to the count of the current time bucket in api_stats, plus its latency and,
// for status >= 400, one error. Writes happen off the request goroutine so a
// slow or unavailable stats collection never delays a check-in.
package apistats

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/strataattend/internal/app/store/apistats"
	"go.uber.org/zap"
)

// Recorder writes request counters in the background.
//
// One Recorder is shared by every instrumented route. Its bucket duration is
// fixed at construction from the api_stats_bucket setting. Call Wait during
// shutdown so pending writes reach MongoDB before the client disconnects.
type Recorder struct {
	store          *apistats.Store
	logger         *zap.Logger
	bucketDuration time.Duration
	wg             sync.WaitGroup
}

// NewRecorder creates a new API stats recorder.
// A non-positive bucketDuration falls back to one hour.
func NewRecorder(store *apistats.Store, logger *zap.Logger, bucketDuration time.Duration) *Recorder {
	if bucketDuration <= 0 {
		bucketDuration = time.Hour
	}
	return &Recorder{
		store:          store,
		logger:         logger,
		bucketDuration: bucketDuration,
	}
}

// BucketDuration returns the bucket size used for new recordings.
func (r *Recorder) BucketDuration() time.Duration {
	return r.bucketDuration
}

// Record records a single API request's statistics asynchronously.
//
// The write gets its own 5 second context, detached from the request, so it
// completes even after the client has gone. Failures are logged and dropped.
func (r *Recorder) Record(statType apistats.StatType, durationMs int64, isError bool) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := r.store.Record(ctx, statType, r.bucketDuration, durationMs, isError); err != nil {
			r.logger.Error("failed to record API stats",
				zap.String("stat_type", string(statType)),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until in-flight recordings finish.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// MiddlewareWithRecorder returns HTTP middleware that counts requests as statType.
// Responses with status >= 400 count as errors. A nil recorder disables recording.
func MiddlewareWithRecorder(recorder *Recorder, statType apistats.StatType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWrapper{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			next.ServeHTTP(wrapped, r)
			recorder.Record(statType, time.Since(start).Milliseconds(), wrapped.statusCode >= 400)
		})
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code.
// A handler that never calls WriteHeader is recorded as 200.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWrapper) Write(b []byte) (int, error) {
	return rw.ResponseWriter.Write(b)
}

// Flush implements http.Flusher.
func (rw *responseWrapper) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
