// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"os"

	"github.com/dalemusser/strataattend/internal/app/system/jsonutil"
	"github.com/dalemusser/strataattend/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Check is one dependency probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// MongoCheck pings the primary.
func MongoCheck(client *mongo.Client) Check {
	return Check{Name: "mongodb", Run: func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}}
}

// SpoolCheck verifies exports can create files in dir.
func SpoolCheck(dir string) Check {
	return Check{Name: "export_spool", Run: func(ctx context.Context) error {
		if dir == "" {
			dir = os.TempDir()
		}
		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		return os.Remove(name)
	}}
}

// Handler provides health check endpoints.
type Handler struct {
	checks []Check
	info   map[string]string
	logger *zap.Logger
}

// NewHandler creates a Handler running checks on every /health and /ready call.
func NewHandler(logger *zap.Logger, checks ...Check) *Handler {
	return &Handler{checks: checks, logger: logger}
}

// WithInfo adds static fields (timezone, version) to the /health response.
func (h *Handler) WithInfo(info map[string]string) *Handler {
	h.info = info
	return h
}

// Response is the /health body.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
	Info     map[string]string `json:"info,omitempty"`
}

// Routes mounts /, /ready and /live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the Kubernetes-style /ready, /readyz and /livez.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

// run executes every check and reports per-service status.
func (h *Handler) run(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()

	services := make(map[string]string, len(h.checks))
	ok := true
	for _, c := range h.checks {
		if err := c.Run(ctx); err != nil {
			ok = false
			services[c.Name] = "unavailable"
			h.logger.Warn("health check failed", zap.String("check", c.Name), zap.Error(err))
			continue
		}
		services[c.Name] = "ok"
	}
	return services, ok
}

// Check reports every dependency; 503 when any fails.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	services, ok := h.run(r.Context())
	resp := Response{Status: "ok", Services: services, Info: h.info}
	if !ok {
		resp.Status = "degraded"
		jsonutil.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	jsonutil.OK(w, resp)
}

// Ready is the readiness probe.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.run(r.Context()); !ok {
		jsonutil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	jsonutil.OK(w, map[string]string{"status": "ready"})
}

// Live is the liveness probe. It touches no dependency.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, map[string]string{"status": "alive"})
}
