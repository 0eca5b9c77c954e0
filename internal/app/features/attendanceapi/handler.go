// Package attendanceapi exposes the attendance service as a JSON API for the
// chat front-end.
//
// Endpoints (mounted at /api/attendance, Bearer API key required):
//   - POST /checkin, POST /checkin/alias        - record today's check-in
//   - PUT /alias/{userID}, GET /alias/{userID}  - persistent display name
//   - GET /today, /status/{userID}, /history/{userID}, /range
//   - GET /report/daily, /report/history/{userID}, /report/status/{userID} - text summaries
//   - GET /export.csv                           - CSV download of a date range
//   - GET /stats                                - request counters per operation
//   - GET /errors                               - recent failed requests
package attendanceapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/strataattend/internal/app/system/attendance"
	"github.com/dalemusser/strataattend/internal/app/system/inputval"
	"github.com/dalemusser/strataattend/internal/app/system/jsonutil"
	"github.com/dalemusser/strataattend/internal/app/system/ledger"
	"github.com/dalemusser/strataattend/internal/app/system/normalize"
	"github.com/dalemusser/strataattend/internal/app/system/report"
	"github.com/dalemusser/strataattend/internal/app/system/timeouts"
	"github.com/dalemusser/strataattend/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apistatsstore "github.com/dalemusser/strataattend/internal/app/store/apistats"
	ledgerstore "github.com/dalemusser/strataattend/internal/app/store/ledger"
)

// Handler serves attendance API requests.
type Handler struct {
	svc      *attendance.Service
	gen      *report.Generator
	stats    *apistatsstore.Store
	failures *ledgerstore.Store
	archive  storage.Store
	logger   *zap.Logger
}

// NewHandler creates a new attendance API handler.
func NewHandler(svc *attendance.Service, gen *report.Generator, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, gen: gen, logger: logger}
}

// WithStats enables GET /stats.
func (h *Handler) WithStats(store *apistatsstore.Store) *Handler {
	h.stats = store
	return h
}

// WithLedger enables GET /errors.
func (h *Handler) WithLedger(store *ledgerstore.Store) *Handler {
	h.failures = store
	return h
}

// WithArchive copies every export into store before it is sent to the client.
func (h *Handler) WithArchive(store storage.Store) *Handler {
	h.archive = store
	return h
}

type checkInInput struct {
	UserID    int64   `json:"user_id" validate:"required,userid" label:"User ID"`
	Username  string  `json:"username" validate:"max=64" label:"Username"`
	FirstName string  `json:"first_name" validate:"required,max=100" label:"First name"`
	LastName  *string `json:"last_name"`
	Code      string  `json:"code" validate:"required,otpcode" label:"Code"`
}

type aliasInput struct {
	FirstName string  `json:"first_name" validate:"required,max=100" label:"First name"`
	LastName  *string `json:"last_name"`
}

type rangeInput struct {
	Start string `json:"start" validate:"required,daykey" label:"Start date"`
	End   string `json:"end" validate:"required,daykey" label:"End date"`
}

type checkInResponse struct {
	Record      models.AttendanceRecord `json:"record"`
	Time        string                  `json:"time"`
	StatusLabel string                  `json:"status_label"`
}

type dayResponse struct {
	Date    string             `json:"date"`
	Present int                `json:"present"`
	Late    int                `json:"late"`
	Total   int                `json:"total"`
	Entries []attendance.Entry `json:"entries"`
}

type statusResponse struct {
	Date      string                   `json:"date"`
	CheckedIn bool                     `json:"checked_in"`
	Record    *models.AttendanceRecord `json:"record,omitempty"`
	Time      string                   `json:"time,omitempty"`
}

type historyResponse struct {
	UserID  int64                     `json:"user_id"`
	Days    int                       `json:"days"`
	Since   string                    `json:"since"`
	Records []models.AttendanceRecord `json:"records"`
}

type rangeResponse struct {
	Start   string             `json:"start"`
	End     string             `json:"end"`
	Entries []attendance.Entry `json:"entries"`
}

// CheckIn handles POST /checkin.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.checkIn(w, r, h.svc.MarkAttendance)
}

// CheckInAlias handles POST /checkin/alias. The name fields become a one-off alias.
func (h *Handler) CheckInAlias(w http.ResponseWriter, r *http.Request) {
	h.checkIn(w, r, h.svc.MarkAttendanceWithAlias)
}

func (h *Handler) checkIn(w http.ResponseWriter, r *http.Request, mark func(context.Context, attendance.CheckIn) (models.AttendanceRecord, error)) {
	var in checkInInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if in.UserID > 0 {
		ledger.SetUserID(r.Context(), in.UserID)
	}
	if res := inputval.Validate(in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	rec, err := mark(r.Context(), attendance.CheckIn{
		UserID:    in.UserID,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Code:      in.Code,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonutil.Created(w, checkInResponse{
		Record:      rec,
		Time:        h.svc.Policy().Clock(rec.Timestamp),
		StatusLabel: report.StatusLabel(rec.Status),
	})
}

// SetAlias handles PUT /alias/{userID}.
func (h *Handler) SetAlias(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	var in aliasInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}
	if err := h.svc.SetAlias(r.Context(), userID, in.FirstName, in.LastName); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.svc.GetAlias(r.Context(), userID)
	if err != nil || a == nil {
		// Saved; echo the input if the read-back fails.
		jsonutil.OK(w, models.AliasRecord{UserID: userID, FirstName: in.FirstName, LastName: in.LastName})
		return
	}
	jsonutil.OK(w, a)
}

// GetAlias handles GET /alias/{userID}.
func (h *Handler) GetAlias(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	a, err := h.svc.GetAlias(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if a == nil {
		jsonutil.NotFound(w, "No alias set")
		return
	}
	jsonutil.OK(w, a)
}

// Today handles GET /today.
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.GetTodayAttendance(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.svc.Resolve(r.Context(), recs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := dayResponse{
		Date:    h.svc.Today(),
		Total:   len(recs),
		Entries: entries,
	}
	for _, rec := range recs {
		if rec.Status == models.StatusLate {
			resp.Late++
		} else {
			resp.Present++
		}
	}
	jsonutil.OK(w, resp)
}

// Status handles GET /status/{userID}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.GetUserStatusToday(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := statusResponse{Date: h.svc.Today(), CheckedIn: rec != nil, Record: rec}
	if rec != nil {
		resp.Time = h.svc.Policy().Clock(rec.Timestamp)
	}
	jsonutil.OK(w, resp)
}

// History handles GET /history/{userID}?days=N.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	days, ok := daysParam(w, r)
	if !ok {
		return
	}
	since, days := h.svc.HistoryWindow(days)
	recs, err := h.svc.GetUserHistory(r.Context(), userID, days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonutil.OK(w, historyResponse{UserID: userID, Days: days, Since: since, Records: recs})
}

// Range handles GET /range?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (h *Handler) Range(w http.ResponseWriter, r *http.Request) {
	in := rangeQuery(r)
	if res := inputval.Validate(in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}
	recs, err := h.svc.GetRange(r.Context(), in.Start, in.End)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.svc.Resolve(r.Context(), recs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonutil.OK(w, rangeResponse{Start: in.Start, End: in.End, Entries: entries})
}

// DailyReport handles GET /report/daily.
func (h *Handler) DailyReport(w http.ResponseWriter, r *http.Request) {
	text, err := h.gen.DailySummary(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeText(w, text)
}

// HistoryReport handles GET /report/history/{userID}?days=N.
func (h *Handler) HistoryReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	days, ok := daysParam(w, r)
	if !ok {
		return
	}
	text, err := h.gen.UserHistorySummary(r.Context(), userID, days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeText(w, text)
}

// StatusReport handles GET /report/status/{userID}.
func (h *Handler) StatusReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	text, err := h.gen.StatusText(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeText(w, text)
}

// Export handles GET /export.csv?start=YYYY-MM-DD&end=YYYY-MM-DD.
// Nothing is written to the response until the export file is complete.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	in := rangeQuery(r)
	if res := inputval.Validate(in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Export(), h.logger, "export")
	defer cancel()

	var handoff report.Handoff = func(_ context.Context, exp report.Export) error {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+exp.Filename+`"`)
		w.Header().Set("X-Export-Rows", strconv.Itoa(exp.Rows))
		w.WriteHeader(http.StatusOK)
		_, err := io.Copy(w, exp.File)
		return err
	}
	if h.archive != nil {
		handoff = report.Archive(h.archive, handoff)
	}

	if err := h.gen.RangeExport(ctx, in.Start, in.End, handoff); err != nil {
		if w.Header().Get("Content-Disposition") != "" {
			// Headers already sent; the client sees a truncated download.
			h.logger.Warn("export stream failed", zap.Error(err))
			return
		}
		h.writeError(w, r, err)
	}
}

// Stats handles GET /stats?hours=N (default 24).
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		jsonutil.NotFound(w, "Statistics not enabled")
		return
	}
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 24*90 {
			jsonutil.BadRequest(w, "hours must be between 1 and 2160")
			return
		}
		hours = n
	}
	end := time.Now().UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Query(), h.logger, "stats")
	defer cancel()

	out := make([]*apistatsstore.AggregatedStats, 0, len(apistatsstore.AllStatTypes()))
	for _, st := range apistatsstore.AllStatTypes() {
		agg, err := h.stats.AggregateRange(ctx, st, start, end)
		if err != nil {
			h.logger.Error("stats aggregation failed", zap.String("stat_type", string(st)), zap.Error(err))
			jsonutil.Unavailable(w, "Statistics unavailable")
			return
		}
		out = append(out, agg)
	}
	jsonutil.OK(w, map[string]any{"hours": hours, "stats": out})
}

// Errors handles GET /errors?class=&limit=N (default 50).
func (h *Handler) Errors(w http.ResponseWriter, r *http.Request) {
	if h.failures == nil {
		jsonutil.NotFound(w, "Error ledger not enabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			jsonutil.BadRequest(w, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	class := normalize.QueryParam(r.URL.Query().Get("class"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Query(), h.logger, "errors")
	defer cancel()

	entries, err := h.failures.Recent(ctx, class, limit)
	if err != nil {
		h.logger.Error("ledger query failed", zap.Error(err))
		jsonutil.Unavailable(w, "Error ledger unavailable")
		return
	}
	since := time.Now().UTC().Add(-24 * time.Hour)
	counts, err := h.failures.CountByClass(ctx, since)
	if err != nil {
		h.logger.Warn("ledger count failed", zap.Error(err))
		counts = nil
	}
	jsonutil.OK(w, map[string]any{"entries": entries, "last_24h": counts})
}

// writeError maps service errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, attendance.ErrInvalidCode):
		ledger.SetError(ctx, ledger.ClassInvalidCode, err.Error())
		jsonutil.Forbidden(w, "Kode OTP tidak valid.")
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		ledger.SetError(ctx, ledger.ClassDuplicate, err.Error())
		jsonutil.Conflict(w, "Anda sudah absen hari ini!")
	case errors.Is(err, attendance.ErrInvalidRange):
		ledger.SetError(ctx, ledger.ClassValidation, err.Error())
		jsonutil.BadRequest(w, "Rentang tanggal tidak valid.")
	case errors.Is(err, attendance.ErrEmptyRange):
		ledger.SetError(ctx, ledger.ClassNotFound, err.Error())
		jsonutil.NotFound(w, "Tidak ada data absensi pada rentang tanggal tersebut.")
	case errors.Is(err, attendance.ErrAliasSave):
		ledger.SetError(ctx, ledger.ClassStorage, err.Error())
		jsonutil.Unavailable(w, "Gagal menyimpan alias. Silakan coba lagi.")
	case errors.Is(err, attendance.ErrStorageUnavailable):
		ledger.SetError(ctx, ledger.ClassStorage, err.Error())
		jsonutil.Unavailable(w, "Terjadi kesalahan. Silakan coba lagi.")
	default:
		ledger.SetError(ctx, ledger.ClassInternal, err.Error())
		h.logger.Error("attendance request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", ledger.RequestID(ctx)),
			zap.Error(err))
		jsonutil.InternalError(w, "Terjadi kesalahan. Silakan coba lagi.")
	}
}

func (h *Handler) userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		jsonutil.BadRequest(w, "Invalid user ID")
		return 0, false
	}
	ledger.SetUserID(r.Context(), id)
	return id, true
}

// daysParam reads ?days=; absent means 0 (service default).
func daysParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 366 {
		jsonutil.BadRequest(w, "days must be between 0 and 366")
		return 0, false
	}
	return n, true
}

func rangeQuery(r *http.Request) rangeInput {
	q := r.URL.Query()
	return rangeInput{Start: normalize.QueryParam(q.Get("start")), End: normalize.QueryParam(q.Get("end"))}
}

func writeText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}
