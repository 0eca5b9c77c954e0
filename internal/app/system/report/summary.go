// Package report renders attendance query results as chat-style text summaries and
// as CSV exports.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/dalemusser/strataattend/internal/app/system/attendance"
	"github.com/dalemusser/strataattend/internal/domain/models"
	"go.uber.org/zap"
)

// Fixed texts shown to users.
const (
	NoDataToday = "Tidak ada data absensi hari ini."

	LabelPresent = "Tepat Waktu"
	LabelLate    = "Terlambat"
)

// StatusLabel returns the user-facing label for a status.
func StatusLabel(s models.AttendanceStatus) string {
	if s == models.StatusLate {
		return LabelLate
	}
	return LabelPresent
}

func statusMark(s models.AttendanceStatus) string {
	if s == models.StatusLate {
		return "⚠️"
	}
	return "✅"
}

// NoHistory is the empty-state text for a history window of days.
func NoHistory(days int) string {
	return fmt.Sprintf("📭 Tidak ada riwayat absensi dalam %d hari terakhir.", days)
}

// Generator builds reports from attendance service queries.
type Generator struct {
	svc      *attendance.Service
	spoolDir string
	logger   *zap.Logger
}

// New creates a Generator. Exports are spooled in spoolDir; empty means os.TempDir().
func New(svc *attendance.Service, spoolDir string, logger *zap.Logger) *Generator {
	return &Generator{svc: svc, spoolDir: spoolDir, logger: logger}
}

func countStatuses(recs []models.AttendanceRecord) (present, late int) {
	for _, r := range recs {
		if r.Status == models.StatusLate {
			late++
		} else {
			present++
		}
	}
	return present, late
}

// DailySummary renders today's check-ins: counts followed by a numbered list of
// display names and check-in times, earliest first.
func (g *Generator) DailySummary(ctx context.Context) (string, error) {
	recs, err := g.svc.GetTodayAttendance(ctx)
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return NoDataToday, nil
	}

	entries, err := g.svc.Resolve(ctx, recs)
	if err != nil {
		return "", err
	}

	present, late := countStatuses(recs)
	var b strings.Builder
	b.WriteString("📊 *Laporan Absensi Hari Ini*\n\n")
	fmt.Fprintf(&b, "✅ %s: %d\n", LabelPresent, present)
	fmt.Fprintf(&b, "⚠️ %s: %d\n", LabelLate, late)
	fmt.Fprintf(&b, "📈 Total: %d\n\n", len(recs))
	b.WriteString("*Daftar Absensi:*\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s %s - %s\n", i+1, statusMark(e.Status), e.DisplayName, e.Time)
	}
	return b.String(), nil
}

// UserHistorySummary renders one user's check-ins over the last days days,
// most recent first, followed by present/late/total counts.
func (g *Generator) UserHistorySummary(ctx context.Context, userID int64, days int) (string, error) {
	_, days = g.svc.HistoryWindow(days)
	recs, err := g.svc.GetUserHistory(ctx, userID, days)
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return NoHistory(days), nil
	}

	policy := g.svc.Policy()
	present, late := countStatuses(recs)
	var b strings.Builder
	fmt.Fprintf(&b, "📈 *Riwayat Absensi Anda (%d hari terakhir)*\n\n", days)
	for i, r := range recs {
		fmt.Fprintf(&b, "%d. %s %s - %s (%s)\n", i+1, statusMark(r.Status), r.Date, policy.Clock(r.Timestamp), StatusLabel(r.Status))
	}
	b.WriteString("\n*Ringkasan:*\n")
	fmt.Fprintf(&b, "✅ %s: %d\n", LabelPresent, present)
	fmt.Fprintf(&b, "⚠️ %s: %d\n", LabelLate, late)
	fmt.Fprintf(&b, "📊 Total Hari: %d", len(recs))
	return b.String(), nil
}

// StatusText renders the user's status for today.
func (g *Generator) StatusText(ctx context.Context, userID int64) (string, error) {
	rec, err := g.svc.GetUserStatusToday(ctx, userID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "❌ Anda belum absen hari ini.", nil
	}
	return fmt.Sprintf("✅ *Status Absensi*\n\nAnda sudah absen hari ini!\n%s %s pada %s",
		statusMark(rec.Status), StatusLabel(rec.Status), g.svc.Policy().Clock(rec.Timestamp)), nil
}
