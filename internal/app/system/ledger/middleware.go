// Package ledger records failed API requests to the ledger store.
//
// Handlers classify failures with SetError and tag the subject user with
// SetUserID; requests that end with status < 400 are not stored.
package ledger

import (
	"context"
	"net/http"
	"sync"
	"time"

	ledgerstore "github.com/dalemusser/strataattend/internal/app/store/ledger"
	"github.com/dalemusser/strataattend/internal/app/system/network"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey struct{}

// Error classes set by attendance handlers. Other failures are classed by status.
const (
	ClassValidation  = "validation"
	ClassAuth        = "auth"
	ClassInvalidCode = "invalid_code"
	ClassDuplicate   = "duplicate"
	ClassNotFound    = "not_found"
	ClassStorage     = "storage"
	ClassInternal    = "internal"
)

const storeTimeout = 5 * time.Second

// Recorder writes ledger entries asynchronously.
type Recorder struct {
	store  *ledgerstore.Store
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewRecorder creates a Recorder backed by store.
func NewRecorder(store *ledgerstore.Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Wait blocks until pending writes finish. Call during shutdown.
func (rc *Recorder) Wait() {
	rc.wg.Wait()
}

// Middleware tracks each request and stores an entry when it fails.
// A nil Recorder returns a pass-through middleware.
func (rc *Recorder) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rc == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := chimw.GetReqID(r.Context())
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", reqID)

			entry := &ledgerstore.Entry{
				RequestID: reqID,
				Method:    r.Method,
				Path:      r.URL.Path,
				Query:     r.URL.RawQuery,
				RemoteIP:  network.ClientIP(r),
			}
			r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, entry))

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			if sw.status < 400 {
				return
			}
			entry.StatusCode = sw.status
			if entry.ErrorClass == "" {
				entry.ErrorClass = classForStatus(sw.status)
			}
			entry.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0
			entry.CreatedAt = time.Now().UTC()
			rc.save(*entry)
		})
	}
}

func (rc *Recorder) save(e ledgerstore.Entry) {
	rc.wg.Add(1)
	go func() {
		defer rc.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := rc.store.Create(ctx, e); err != nil {
			rc.logger.Warn("failed to store ledger entry",
				zap.String("request_id", e.RequestID),
				zap.Error(err))
		}
	}()
}

// SetError classifies the current request's failure.
func SetError(ctx context.Context, class, message string) {
	if e, ok := ctx.Value(ctxKey{}).(*ledgerstore.Entry); ok {
		e.ErrorClass = class
		e.ErrorMessage = message
	}
}

// SetUserID records the chat user the current request concerns.
func SetUserID(ctx context.Context, userID int64) {
	if e, ok := ctx.Value(ctxKey{}).(*ledgerstore.Entry); ok {
		e.UserID = userID
	}
}

// RequestID returns the current request's ledger ID, or "".
func RequestID(ctx context.Context) string {
	if e, ok := ctx.Value(ctxKey{}).(*ledgerstore.Entry); ok {
		return e.RequestID
	}
	return ""
}

func classForStatus(code int) string {
	switch {
	case code == http.StatusBadRequest:
		return ClassValidation
	case code == http.StatusUnauthorized:
		return ClassAuth
	case code == http.StatusNotFound:
		return ClassNotFound
	case code >= 500:
		return ClassInternal
	default:
		return "client_error"
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.wroteHeader = true
	return sw.ResponseWriter.Write(b)
}

// Flush implements http.Flusher.
func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
