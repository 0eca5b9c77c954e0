// Package daykey derives the calendar-day partition and the on-time/late status of a
// check-in from its timestamp.
//
// All derivations happen in one fixed reference time zone chosen at startup. The host's
// local zone is never consulted, so two processes on differently configured hosts agree
// on which day a check-in belongs to.
package daykey

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/strataattend/internal/app/system/timezones"
	"github.com/dalemusser/strataattend/internal/domain/models"
)

// Layout is the dayKey format.
const Layout = "2006-01-02"

// CutoffHour and CutoffMinute give the wall-clock time at or after which a
// check-in is late.
const (
	CutoffHour   = 9
	CutoffMinute = 0
)

// DefaultZone is used when no zone is configured.
const DefaultZone = "Asia/Jakarta"

// ErrMalformed is returned by Parse for strings that are not YYYY-MM-DD.
var ErrMalformed = errors.New("day key must be YYYY-MM-DD")

// Policy computes day keys and statuses in a fixed location.
type Policy struct {
	loc *time.Location
}

// New returns a Policy for loc. A nil loc means UTC.
func New(loc *time.Location) *Policy {
	if loc == nil {
		loc = time.UTC
	}
	return &Policy{loc: loc}
}

// Load returns a Policy for the named IANA zone. The zone must be in the curated list.
func Load(name string) (*Policy, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := timezones.Location(name)
	if err != nil {
		return nil, fmt.Errorf("attendance time zone: %w", err)
	}
	return New(loc), nil
}

// Location returns the reference location.
func (p *Policy) Location() *time.Location { return p.loc }

// Key returns the dayKey for t.
func (p *Policy) Key(t time.Time) string {
	return t.In(p.loc).Format(Layout)
}

// Classify returns StatusLate when t's wall-clock time in the reference zone is
// at or after 09:00. The boundary instant 09:00:00.000 is late. The cutoff is
// built from the wall clock, not midnight plus elapsed hours, so it stays at
// 09:00 on days with a DST transition.
func (p *Policy) Classify(t time.Time) models.AttendanceStatus {
	local := t.In(p.loc)
	y, m, d := local.Date()
	cutoff := time.Date(y, m, d, CutoffHour, CutoffMinute, 0, 0, p.loc)
	if local.Before(cutoff) {
		return models.StatusPresent
	}
	return models.StatusLate
}

// Parse returns local midnight of the given dayKey.
func (p *Policy) Parse(key string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, key, p.loc)
	if err != nil || t.Format(Layout) != key {
		return time.Time{}, ErrMalformed
	}
	return t, nil
}

// AddDays shifts a dayKey by n calendar days. key must already be valid.
func (p *Policy) AddDays(key string, n int) (string, error) {
	t, err := p.Parse(key)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(Layout), nil
}

// Clock returns t rendered as HH:MM in the reference zone.
func (p *Policy) Clock(t time.Time) string {
	return t.In(p.loc).Format("15:04")
}

// ISO returns t as an ISO-8601 string carrying the reference zone offset.
func (p *Policy) ISO(t time.Time) string {
	return t.In(p.loc).Format(time.RFC3339Nano)
}
