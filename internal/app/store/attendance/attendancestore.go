// internal/app/store/attendance/attendancestore.go
package attendancestore

// Terminology: Day Keys
//   - dayKey / date: YYYY-MM-DD in the reference zone. Keys sort lexically in calendar
//     order, so range filters compare the strings directly.

import (
	"context"
	"errors"

	"github.com/dalemusser/strataattend/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection holding check-ins.
const CollectionName = "attendance"

// ErrDuplicateCheckIn is returned by Insert when the user already has a record for that day.
// The unique index on (user_id, date) is the only thing enforcing this.
var ErrDuplicateCheckIn = errors.New("attendance already recorded for this user and day")

// ErrNotFound is returned by GetForDay when the user has no record for that day.
var ErrNotFound = errors.New("attendance record not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// Insert writes a new record and returns it with its assigned ID.
// A unique-index violation maps to ErrDuplicateCheckIn; nothing is read first.
func (s *Store) Insert(ctx context.Context, rec models.AttendanceRecord) (models.AttendanceRecord, error) {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		if wafflemongo.IsDup(err) {
			return models.AttendanceRecord{}, ErrDuplicateCheckIn
		}
		return models.AttendanceRecord{}, err
	}
	return rec, nil
}

// ExistsForDay reports whether userID has a record for dayKey.
// Advisory only; Insert remains the authority.
func (s *Store) ExistsForDay(ctx context.Context, userID int64, dayKey string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"user_id": userID, "date": dayKey}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetForDay returns the user's record for dayKey, or ErrNotFound.
func (s *Store) GetForDay(ctx context.Context, userID int64, dayKey string) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID, "date": dayKey}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListForDay returns every record for dayKey, earliest first.
func (s *Store) ListForDay(ctx context.Context, dayKey string) ([]models.AttendanceRecord, error) {
	return s.find(ctx, bson.M{"date": dayKey}, 1)
}

// ListForUserSince returns the user's records with date >= sinceDayKey, most recent first.
func (s *Store) ListForUserSince(ctx context.Context, userID int64, sinceDayKey string) ([]models.AttendanceRecord, error) {
	return s.find(ctx, bson.M{
		"user_id": userID,
		"date":    bson.M{"$gte": sinceDayKey},
	}, -1)
}

// ListForRange returns records with startDayKey <= date <= endDayKey, most recent first.
func (s *Store) ListForRange(ctx context.Context, startDayKey, endDayKey string) ([]models.AttendanceRecord, error) {
	return s.find(ctx, bson.M{
		"date": bson.M{"$gte": startDayKey, "$lte": endDayKey},
	}, -1)
}

func (s *Store) find(ctx context.Context, filter bson.M, dir int) ([]models.AttendanceRecord, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "timestamp", Value: dir},
		{Key: "_id", Value: dir},
	})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.AttendanceRecord, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
