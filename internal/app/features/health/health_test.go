package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/dalemusser/strataattend/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func failing(name string) Check {
	return Check{Name: name, Run: func(context.Context) error { return errors.New("down") }}
}

func TestCheck_AllHealthy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewHandler(zap.NewNop(), MongoCheck(db.Client()), SpoolCheck(t.TempDir())).
		WithInfo(map[string]string{"timezone": "Asia/Jakarta"})

	rec := testutil.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	rec.AssertStatus(t, http.StatusOK)

	var resp Response
	rec.DecodeJSON(t, &resp)
	if resp.Status != "ok" || resp.Services["mongodb"] != "ok" || resp.Services["export_spool"] != "ok" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Info["timezone"] != "Asia/Jakarta" {
		t.Errorf("info = %v", resp.Info)
	}
}

func TestCheck_Degraded(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	h := NewHandler(zap.NewNop(), SpoolCheck(missing), failing("mongodb"))

	rec := testutil.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	rec.AssertStatus(t, http.StatusServiceUnavailable)

	var resp Response
	rec.DecodeJSON(t, &resp)
	if resp.Status != "degraded" || resp.Services["export_spool"] != "unavailable" {
		t.Errorf("response = %+v", resp)
	}
}

func TestProbes(t *testing.T) {
	tests := []struct {
		name   string
		checks []Check
		path   string
		want   int
	}{
		{"ready", nil, "/ready", http.StatusOK},
		{"readyz alias", nil, "/readyz", http.StatusOK},
		{"not ready", []Check{failing("mongodb")}, "/ready", http.StatusServiceUnavailable},
		{"live ignores checks", []Check{failing("mongodb")}, "/livez", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			MountRootEndpoints(r, NewHandler(zap.NewNop(), tt.checks...))
			rec := testutil.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			rec.AssertStatus(t, tt.want)
		})
	}
}

func TestRoutes(t *testing.T) {
	router := Routes(NewHandler(zap.NewNop()))
	for _, p := range []string{"/", "/ready", "/live"} {
		rec := testutil.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		rec.AssertStatus(t, http.StatusOK)
	}
}
