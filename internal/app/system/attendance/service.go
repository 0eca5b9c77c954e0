// Package attendance records daily check-ins and answers today, history and
// range queries over them.
//
// A user gets at most one record per reference-zone day. The store's unique index is the
// only enforcement; the service never checks for an existing record before inserting.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/strataattend/internal/app/system/daykey"
	"github.com/dalemusser/strataattend/internal/app/system/normalize"
	"github.com/dalemusser/strataattend/internal/app/system/otp"
	"github.com/dalemusser/strataattend/internal/domain/models"
	"go.uber.org/zap"

	aliasstore "github.com/dalemusser/strataattend/internal/app/store/alias"
	attendancestore "github.com/dalemusser/strataattend/internal/app/store/attendance"
)

// DefaultHistoryDays is the history window used when the caller passes days <= 0.
const DefaultHistoryDays = 30

// RecordStore is the subset of the attendance store the service uses.
type RecordStore interface {
	Insert(ctx context.Context, rec models.AttendanceRecord) (models.AttendanceRecord, error)
	GetForDay(ctx context.Context, userID int64, dayKey string) (*models.AttendanceRecord, error)
	ListForDay(ctx context.Context, dayKey string) ([]models.AttendanceRecord, error)
	ListForUserSince(ctx context.Context, userID int64, sinceDayKey string) ([]models.AttendanceRecord, error)
	ListForRange(ctx context.Context, startDayKey, endDayKey string) ([]models.AttendanceRecord, error)
}

// AliasStore is the subset of the alias registry the service uses.
type AliasStore interface {
	Set(ctx context.Context, userID int64, firstName string, lastName *string) error
	Get(ctx context.Context, userID int64) (*models.AliasRecord, error)
	GetMany(ctx context.Context, userIDs []int64) (map[int64]models.AliasRecord, error)
}

// CheckIn carries the identity of one inbound check-in request.
// It is built per request and never shared.
type CheckIn struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  *string
	Code      string
}

// Entry is a record paired with its resolved display name.
type Entry struct {
	models.AttendanceRecord
	DisplayName string `json:"display_name"`
	Time        string `json:"time"` // HH:MM in the reference zone
}

// Service is the attendance domain service.
type Service struct {
	records  RecordStore
	aliases  AliasStore
	verifier otp.Verifier
	policy   *daykey.Policy
	now      func() time.Time
	logger   *zap.Logger
}

// New creates a Service. A nil policy uses UTC.
func New(records RecordStore, aliases AliasStore, verifier otp.Verifier, policy *daykey.Policy, logger *zap.Logger) *Service {
	if policy == nil {
		policy = daykey.New(nil)
	}
	return &Service{
		records:  records,
		aliases:  aliases,
		verifier: verifier,
		policy:   policy,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Policy returns the day partition policy in use.
func (s *Service) Policy() *daykey.Policy { return s.policy }

// Today returns the current day key.
func (s *Service) Today() string {
	return s.policy.Key(s.now())
}

// MarkAttendance records a check-in under the caller's own name.
func (s *Service) MarkAttendance(ctx context.Context, in CheckIn) (models.AttendanceRecord, error) {
	return s.mark(ctx, in, false)
}

// MarkAttendanceWithAlias records a check-in whose name fields are a one-off alias.
// The alias applies to this record only and is not saved to the registry.
func (s *Service) MarkAttendanceWithAlias(ctx context.Context, in CheckIn) (models.AttendanceRecord, error) {
	return s.mark(ctx, in, true)
}

func (s *Service) mark(ctx context.Context, in CheckIn, alias bool) (models.AttendanceRecord, error) {
	if s.verifier == nil || !s.verifier.Verify(in.Code) {
		s.logger.Info("check-in rejected: invalid code", zap.Int64("user_id", in.UserID))
		return models.AttendanceRecord{}, ErrInvalidCode
	}

	now := s.now()
	rec := models.AttendanceRecord{
		UserID:       in.UserID,
		Username:     in.Username,
		FirstName:    normalize.Name(in.FirstName),
		LastName:     normalize.OptionalName(in.LastName),
		Alias:        alias,
		Timestamp:    now.UTC(),
		TimestampISO: s.policy.ISO(now),
		Date:         s.policy.Key(now),
		Status:       s.policy.Classify(now),
	}

	saved, err := s.records.Insert(ctx, rec)
	if err != nil {
		if errors.Is(err, attendancestore.ErrDuplicateCheckIn) {
			s.logger.Info("check-in rejected: already checked in",
				zap.Int64("user_id", in.UserID), zap.String("date", rec.Date))
			return models.AttendanceRecord{}, ErrAlreadyCheckedIn
		}
		s.logger.Error("check-in insert failed",
			zap.Int64("user_id", in.UserID), zap.String("date", rec.Date), zap.Error(err))
		return models.AttendanceRecord{}, storageErr(err)
	}

	s.logger.Info("check-in recorded",
		zap.Int64("user_id", saved.UserID),
		zap.String("date", saved.Date),
		zap.String("status", string(saved.Status)),
		zap.Bool("alias", saved.Alias))
	return saved, nil
}

// SetAlias saves a persistent display-name override for userID.
func (s *Service) SetAlias(ctx context.Context, userID int64, firstName string, lastName *string) error {
	if err := s.aliases.Set(ctx, userID, normalize.Name(firstName), normalize.OptionalName(lastName)); err != nil {
		s.logger.Error("alias save failed", zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrAliasSave, err)
	}
	return nil
}

// GetAlias returns the registry alias for userID, or nil when none is saved.
func (s *Service) GetAlias(ctx context.Context, userID int64) (*models.AliasRecord, error) {
	a, err := s.aliases.Get(ctx, userID)
	if errors.Is(err, aliasstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return a, nil
}

// GetTodayAttendance returns today's records, earliest first.
func (s *Service) GetTodayAttendance(ctx context.Context) ([]models.AttendanceRecord, error) {
	recs, err := s.records.ListForDay(ctx, s.Today())
	if err != nil {
		return nil, storageErr(err)
	}
	return recs, nil
}

// GetUserStatusToday returns the user's record for today, or nil if they have not checked in.
func (s *Service) GetUserStatusToday(ctx context.Context, userID int64) (*models.AttendanceRecord, error) {
	rec, err := s.records.GetForDay(ctx, userID, s.Today())
	if errors.Is(err, attendancestore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return rec, nil
}

// HistoryWindow returns the first day key of a days-long window ending today.
func (s *Service) HistoryWindow(days int) (since string, n int) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	today := s.Today()
	since, err := s.policy.AddDays(today, -(days - 1))
	if err != nil {
		// today always parses
		return today, days
	}
	return since, days
}

// GetUserHistory returns the user's records for today and the previous days-1 days,
// most recent first. days <= 0 means DefaultHistoryDays.
func (s *Service) GetUserHistory(ctx context.Context, userID int64, days int) ([]models.AttendanceRecord, error) {
	since, _ := s.HistoryWindow(days)
	recs, err := s.records.ListForUserSince(ctx, userID, since)
	if err != nil {
		return nil, storageErr(err)
	}
	return recs, nil
}

// GetRange returns records with start <= date <= end, most recent first.
// It returns ErrInvalidRange for malformed keys or start after end, and ErrEmptyRange
// when the range holds nothing.
func (s *Service) GetRange(ctx context.Context, start, end string) ([]models.AttendanceRecord, error) {
	st, err := s.policy.Parse(start)
	if err != nil {
		return nil, fmt.Errorf("%w: start: %v", ErrInvalidRange, err)
	}
	en, err := s.policy.Parse(end)
	if err != nil {
		return nil, fmt.Errorf("%w: end: %v", ErrInvalidRange, err)
	}
	if st.After(en) {
		return nil, fmt.Errorf("%w: %s is after %s", ErrInvalidRange, start, end)
	}

	recs, err := s.records.ListForRange(ctx, start, end)
	if err != nil {
		return nil, storageErr(err)
	}
	if len(recs) == 0 {
		return nil, ErrEmptyRange
	}
	return recs, nil
}

// ResolveName picks the display name for a record: a per-record alias wins, then the
// registry alias, then the recorded first and last name.
func ResolveName(rec models.AttendanceRecord, alias *models.AliasRecord) string {
	if rec.Alias {
		return rec.FullName()
	}
	if alias != nil && alias.FirstName != "" {
		return alias.FullName()
	}
	return rec.FullName()
}

// Resolve attaches display names and local clock times to recs.
// Registry aliases are fetched in one lookup. A failed lookup returns
// ErrStorageUnavailable rather than rendering names the registry may override.
func (s *Service) Resolve(ctx context.Context, recs []models.AttendanceRecord) ([]Entry, error) {
	ids := make([]int64, 0, len(recs))
	seen := make(map[int64]bool, len(recs))
	for _, r := range recs {
		if !r.Alias && !seen[r.UserID] {
			seen[r.UserID] = true
			ids = append(ids, r.UserID)
		}
	}

	aliases, err := s.aliases.GetMany(ctx, ids)
	if err != nil {
		return nil, storageErr(err)
	}

	out := make([]Entry, 0, len(recs))
	for _, r := range recs {
		var a *models.AliasRecord
		if ar, ok := aliases[r.UserID]; ok {
			a = &ar
		}
		out = append(out, Entry{
			AttendanceRecord: r,
			DisplayName:      ResolveName(r, a),
			Time:             s.policy.Clock(r.Timestamp),
		})
	}
	return out, nil
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
