package attendanceapi

import (
	"net/http"

	apistatsstore "github.com/dalemusser/strataattend/internal/app/store/apistats"
	"github.com/dalemusser/strataattend/internal/app/system/apicors"
	"github.com/dalemusser/strataattend/internal/app/system/apistats"
	"github.com/dalemusser/strataattend/internal/app/system/auth"
	"github.com/dalemusser/strataattend/internal/app/system/ledger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RouteConfig carries the cross-cutting pieces of the API router.
type RouteConfig struct {
	APIKey      string   // Bearer token; empty rejects every request
	CORSOrigins []string // empty allows any origin
	Stats       *apistats.Recorder
	Ledger      *ledger.Recorder
}

// Routes returns the attendance API router.
//
// Authentication is via API key (Bearer token in Authorization header).
// Failed requests, including rejected keys, go to the ledger.
func Routes(h *Handler, cfg RouteConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	if len(cfg.CORSOrigins) > 0 {
		r.Use(apicors.MiddlewareWithOrigins(cfg.CORSOrigins...))
	} else {
		r.Use(apicors.Middleware())
	}
	r.Use(cfg.Ledger.Middleware())
	r.Use(auth.APIKeyAuth(cfg.APIKey, logger))

	recorded := func(st apistatsstore.StatType) func(http.Handler) http.Handler {
		return apistats.MiddlewareWithRecorder(cfg.Stats, st)
	}

	r.Group(func(sr chi.Router) {
		sr.Use(recorded(apistatsstore.StatTypeCheckIn))
		sr.Post("/checkin", h.CheckIn)
		sr.Post("/checkin/alias", h.CheckInAlias)
	})

	r.Group(func(sr chi.Router) {
		sr.Use(recorded(apistatsstore.StatTypeAlias))
		sr.Put("/alias/{userID}", h.SetAlias)
		sr.Get("/alias/{userID}", h.GetAlias)
	})

	r.Group(func(sr chi.Router) {
		sr.Use(recorded(apistatsstore.StatTypeQuery))
		sr.Get("/today", h.Today)
		sr.Get("/status/{userID}", h.Status)
		sr.Get("/history/{userID}", h.History)
		sr.Get("/range", h.Range)
	})

	r.Group(func(sr chi.Router) {
		sr.Use(recorded(apistatsstore.StatTypeReport))
		sr.Get("/report/daily", h.DailyReport)
		sr.Get("/report/history/{userID}", h.HistoryReport)
		sr.Get("/report/status/{userID}", h.StatusReport)
	})

	r.Group(func(sr chi.Router) {
		sr.Use(recorded(apistatsstore.StatTypeExport))
		sr.Get("/export.csv", h.Export)
	})

	r.Get("/stats", h.Stats)
	r.Get("/errors", h.Errors)

	return r
}
