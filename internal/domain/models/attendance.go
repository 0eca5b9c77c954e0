// internal/domain/models/attendance.go
package models

// Terminology: User Identifiers
//   - UserID / userID / user_id: The external numeric identity of the person checking in
//     (stable across sessions, assigned by the messaging front-end)
//   - DayKey / date: The YYYY-MM-DD calendar day in the reference time zone

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AttendanceStatus is the timeliness classification of a check-in.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present" // checked in before the cutoff
	StatusLate    AttendanceStatus = "late"    // checked in at or after the cutoff
)

// IsValid reports whether s is one of the known statuses.
func (s AttendanceStatus) IsValid() bool {
	return s == StatusPresent || s == StatusLate
}

// AttendanceRecord is one successful check-in.
// Records are immutable once written; there is no update or delete path.
//
// FirstName/LastName are a snapshot taken at check-in time. When Alias is true the
// names were supplied as a one-off display override for this single record and take
// precedence over any registry alias when rendering.
type AttendanceRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       int64              `bson:"user_id" json:"user_id"`
	Username     string             `bson:"username" json:"username"`
	FirstName    string             `bson:"first_name" json:"first_name"`
	LastName     *string            `bson:"last_name" json:"last_name,omitempty"`
	Alias        bool               `bson:"alias" json:"alias"`
	Timestamp    time.Time          `bson:"timestamp" json:"timestamp"`
	TimestampISO string             `bson:"timestamp_iso" json:"-"` // ISO-8601 in the reference zone
	Date         string             `bson:"date" json:"date"`
	Status       AttendanceStatus   `bson:"status" json:"status"`
}

// FullName returns "first last", or just first when there is no last name.
func (r AttendanceRecord) FullName() string {
	return JoinName(r.FirstName, r.LastName)
}

// JoinName joins a first name and an optional last name.
func JoinName(first string, last *string) string {
	if last == nil || strings.TrimSpace(*last) == "" {
		return first
	}
	return first + " " + *last
}
