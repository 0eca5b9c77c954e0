package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SpoolPattern matches export spool files in the spool directory.
const SpoolPattern = "attendance-*.csv"

// Header is the first row of every export.
var Header = []string{"Date", "Time", "Name", "Username", "UserID", "Status"}

// Export is a finished CSV file handed to a Handoff.
// File is positioned at offset 0. It is closed and removed after the handoff returns.
type Export struct {
	File     *os.File
	Filename string // suggested download name
	Start    string
	End      string
	Rows     int
}

// Handoff delivers a finished export. Its error is returned from RangeExport;
// the spool file is removed either way.
type Handoff func(ctx context.Context, exp Export) error

// RangeExport writes the records in [start, end] to a CSV spool file and hands it off.
// Invalid and empty ranges fail before any file is created.
func (g *Generator) RangeExport(ctx context.Context, start, end string, handoff Handoff) error {
	recs, err := g.svc.GetRange(ctx, start, end)
	if err != nil {
		return err
	}
	entries, err := g.svc.Resolve(ctx, recs)
	if err != nil {
		return err
	}
	policy := g.svc.Policy()

	f, err := os.CreateTemp(g.spoolDir, SpoolPattern)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		f.Close()
		if rmErr := os.Remove(f.Name()); rmErr != nil && !os.IsNotExist(rmErr) {
			g.logger.Warn("export spool cleanup failed", zap.String("path", f.Name()), zap.Error(rmErr))
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for _, e := range entries {
		if err := cw.Write([]string{
			e.Date,
			e.Timestamp.In(policy.Location()).Format("15:04:05"),
			sanitizeCSVField(e.DisplayName),
			sanitizeCSVField(e.Username),
			strconv.FormatInt(e.UserID, 10),
			StatusLabel(e.Status),
		}); err != nil {
			return fmt.Errorf("write export row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind export: %w", err)
	}

	exp := Export{
		File:     f,
		Filename: fmt.Sprintf("absensi_%s_%s.csv", start, end),
		Start:    start,
		End:      end,
		Rows:     len(entries),
	}
	if err := handoff(ctx, exp); err != nil {
		g.logger.Warn("export handoff failed",
			zap.String("start", start), zap.String("end", end), zap.Error(err))
		return err
	}

	g.logger.Info("attendance exported",
		zap.String("start", start), zap.String("end", end), zap.Int("rows", exp.Rows))
	return nil
}

// Archive returns a Handoff that copies the export into store under exports/
// before passing it to next. A nil next stops after archiving.
func Archive(store storage.Store, next Handoff) Handoff {
	return func(ctx context.Context, exp Export) error {
		key := fmt.Sprintf("exports/%s/%s", time.Now().UTC().Format("2006/01"), uuid.NewString()+"-"+exp.Filename)
		if err := store.Put(ctx, key, exp.File, &storage.PutOptions{ContentType: "text/csv"}); err != nil {
			return fmt.Errorf("archive export: %w", err)
		}
		if _, err := exp.File.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewind export: %w", err)
		}
		if next == nil {
			return nil
		}
		return next(ctx, exp)
	}
}

// SweepSpool removes export spool files in dir last modified before cutoff.
// They only remain if a process died mid-export.
func SweepSpool(dir string, cutoff time.Time) (int, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	matches, err := filepath.Glob(filepath.Join(dir, SpoolPattern))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range matches {
		fi, err := os.Stat(p)
		if err != nil || fi.IsDir() || !fi.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(p); err == nil {
			removed++
		}
	}
	return removed, nil
}

// sanitizeCSVField prefixes ' to values a spreadsheet would run as a formula.
// '=', '@', tab and CR always trigger it. '+' and '-' trigger it only when the
// rest is not plain name text, so "-Smith" stays as stored while "-1" or
// "+SUM(A1)" are escaped.
func sanitizeCSVField(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '@', '\t', '\r':
		return "'" + s
	case '+', '-':
		if !isNameText(s[1:]) {
			return "'" + s
		}
	}
	return s
}

// isNameText reports whether s holds only letters, spaces and the punctuation
// that appears in personal names.
func isNameText(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), r == ' ', r == '-', r == '\'', r == '.':
		default:
			return false
		}
	}
	return true
}
