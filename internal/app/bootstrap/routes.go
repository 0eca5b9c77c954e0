// internal/app/bootstrap/routes.go
package bootstrap

import (
	"fmt"
	"net/http"

	attendanceapifeature "github.com/dalemusser/strataattend/internal/app/features/attendanceapi"
	healthfeature "github.com/dalemusser/strataattend/internal/app/features/health"
	aliasstore "github.com/dalemusser/strataattend/internal/app/store/alias"
	apistatsstore "github.com/dalemusser/strataattend/internal/app/store/apistats"
	attendancestore "github.com/dalemusser/strataattend/internal/app/store/attendance"
	ledgerstore "github.com/dalemusser/strataattend/internal/app/store/ledger"
	"github.com/dalemusser/strataattend/internal/app/system/apistats"
	"github.com/dalemusser/strataattend/internal/app/system/attendance"
	"github.com/dalemusser/strataattend/internal/app/system/daykey"
	"github.com/dalemusser/strataattend/internal/app/system/jsonutil"
	"github.com/dalemusser/strataattend/internal/app/system/ledger"
	"github.com/dalemusser/strataattend/internal/app/system/otp"
	"github.com/dalemusser/strataattend/internal/app/system/report"
	"github.com/dalemusser/strataattend/internal/app/system/timezones"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Async writers flushed in Shutdown.
var (
	statsRecorder  *apistats.Recorder
	ledgerRecorder *ledger.Recorder
)

// BuildHandler builds the attendance service and mounts its API and health probes.
//
//	/api/attendance/*  attendance API (Bearer API key)
//	/health, /ready, /readyz, /livez
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	policy, err := daykey.Load(appCfg.AttendanceTimezone)
	if err != nil {
		return nil, err
	}
	verifier, err := otp.NewTOTP(appCfg.TOTPSecret, appCfg.TOTPSkew)
	if err != nil {
		return nil, fmt.Errorf("totp: %w", err)
	}

	svc := attendance.New(attendancestore.New(db), aliasstore.New(db), verifier, policy, logger)
	gen := report.New(svc, appCfg.ExportDir, logger)

	statsStore := apistatsstore.New(db)
	statsRecorder = apistats.NewRecorder(statsStore, logger, appCfg.APIStatsBucket)

	api := attendanceapifeature.NewHandler(svc, gen, logger).WithStats(statsStore)
	routeCfg := attendanceapifeature.RouteConfig{
		APIKey:      appCfg.APIKey,
		CORSOrigins: appCfg.APIAllowedOrigins,
		Stats:       statsRecorder,
	}
	if appCfg.LedgerEnabled {
		ledgerStore := ledgerstore.New(db)
		ledgerRecorder = ledger.NewRecorder(ledgerStore, logger)
		api.WithLedger(ledgerStore)
		routeCfg.Ledger = ledgerRecorder
	}
	if deps.ArchiveStorage != nil {
		api.WithArchive(deps.ArchiveStorage)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(appCfg.RequestTimeout))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	r.Mount("/api/attendance", attendanceapifeature.Routes(api, routeCfg, logger))

	health := healthfeature.NewHandler(logger,
		healthfeature.MongoCheck(deps.MongoClient),
		healthfeature.SpoolCheck(appCfg.ExportDir),
	).WithInfo(map[string]string{
		"timezone":       policy.Location().String(),
		"timezone_label": timezones.Label(policy.Location().String()),
	})
	r.Mount("/health", healthfeature.Routes(health))
	healthfeature.MountRootEndpoints(r, health)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonutil.NotFound(w, "Not found")
	})

	return r, nil
}
