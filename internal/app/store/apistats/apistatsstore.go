// Package apistats stores per-operation request counters in time buckets.
package apistats

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection for API statistics.
const CollectionName = "api_stats"

// StatType identifies the API operation being counted.
type StatType string

const (
	StatTypeCheckIn StatType = "checkin"
	StatTypeAlias   StatType = "alias"
	StatTypeQuery   StatType = "query"
	StatTypeReport  StatType = "report"
	StatTypeExport  StatType = "export"
)

// AllStatTypes lists every StatType in display order.
func AllStatTypes() []StatType {
	return []StatType{StatTypeCheckIn, StatTypeAlias, StatTypeQuery, StatTypeReport, StatTypeExport}
}

// Bucket is one time bucket of counters for a stat type.
type Bucket struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Bucket         time.Time          `bson:"bucket"`          // bucket start
	BucketDuration string             `bson:"bucket_duration"` // e.g. "1h"
	StatType       StatType           `bson:"stat_type"`
	Requests       int64              `bson:"requests"`
	Errors         int64              `bson:"errors"` // 4xx and 5xx
	TotalMs        int64              `bson:"total_ms"`
	MinMs          int64              `bson:"min_ms"`
	MaxMs          int64              `bson:"max_ms"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

// Store provides API statistics persistence.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New creates a new API stats store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName), now: time.Now}
}

// TruncateToBucket truncates a time to the start of its bucket.
func TruncateToBucket(t time.Time, duration time.Duration) time.Time {
	return t.UTC().Truncate(duration)
}

// Record adds one request to the current bucket, creating the bucket if needed.
func (s *Store) Record(ctx context.Context, statType StatType, bucketDuration time.Duration, durationMs int64, isError bool) error {
	now := s.now().UTC()
	bucket := TruncateToBucket(now, bucketDuration)
	durationStr := bucketDuration.String()

	// $min/$max cover both insert and update, so min_ms/max_ms stay out of $setOnInsert.
	inc := bson.M{
		"requests": 1,
		"total_ms": durationMs,
	}
	if isError {
		inc["errors"] = 1
	}
	update := bson.M{
		"$inc": inc,
		"$set": bson.M{"updated_at": now},
		"$setOnInsert": bson.M{
			"_id":             primitive.NewObjectID(),
			"bucket":          bucket,
			"bucket_duration": durationStr,
			"stat_type":       statType,
		},
		"$min": bson.M{"min_ms": durationMs},
		"$max": bson.M{"max_ms": durationMs},
	}

	_, err := s.c.UpdateOne(ctx, bson.M{
		"bucket":          bucket,
		"stat_type":       statType,
		"bucket_duration": durationStr,
	}, update, options.Update().SetUpsert(true))
	return err
}

// GetRange returns buckets for statType between startTime and endTime, oldest first.
func (s *Store) GetRange(ctx context.Context, statType StatType, startTime, endTime time.Time) ([]Bucket, error) {
	filter := bson.M{
		"stat_type": statType,
		"bucket": bson.M{
			"$gte": startTime.UTC(),
			"$lte": endTime.UTC(),
		},
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "bucket", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var buckets []Bucket
	if err := cur.All(ctx, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

// AggregatedStats is the sum of buckets over a time range.
type AggregatedStats struct {
	StatType StatType `json:"stat_type"`
	Requests int64    `json:"requests"`
	Errors   int64    `json:"errors"`
	TotalMs  int64    `json:"total_ms"`
	MinMs    int64    `json:"min_ms"`
	MaxMs    int64    `json:"max_ms"`
}

// AvgMs returns the average response time in milliseconds.
func (a *AggregatedStats) AvgMs() float64 {
	if a.Requests == 0 {
		return 0
	}
	return float64(a.TotalMs) / float64(a.Requests)
}

// ErrorRate returns the error rate as a percentage.
func (a *AggregatedStats) ErrorRate() float64 {
	if a.Requests == 0 {
		return 0
	}
	return float64(a.Errors) / float64(a.Requests) * 100
}

// AggregateRange combines all buckets for statType in the range.
func (s *Store) AggregateRange(ctx context.Context, statType StatType, startTime, endTime time.Time) (*AggregatedStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"stat_type": statType,
			"bucket": bson.M{
				"$gte": startTime.UTC(),
				"$lte": endTime.UTC(),
			},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":      nil,
			"requests": bson.M{"$sum": "$requests"},
			"errors":   bson.M{"$sum": "$errors"},
			"total_ms": bson.M{"$sum": "$total_ms"},
			"min_ms":   bson.M{"$min": "$min_ms"},
			"max_ms":   bson.M{"$max": "$max_ms"},
		}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := &AggregatedStats{StatType: statType}
	if !cur.Next(ctx) {
		return out, cur.Err()
	}
	var row struct {
		Requests int64 `bson:"requests"`
		Errors   int64 `bson:"errors"`
		TotalMs  int64 `bson:"total_ms"`
		MinMs    int64 `bson:"min_ms"`
		MaxMs    int64 `bson:"max_ms"`
	}
	if err := cur.Decode(&row); err != nil {
		return nil, err
	}
	out.Requests, out.Errors, out.TotalMs, out.MinMs, out.MaxMs = row.Requests, row.Errors, row.TotalMs, row.MinMs, row.MaxMs
	return out, nil
}

// DeleteOlderThan deletes buckets that start before cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"bucket": bson.M{"$lt": cutoff.UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
