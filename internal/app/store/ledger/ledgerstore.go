// Package ledgerstore persists failed API requests for later inspection.
package ledgerstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection for ledger entries.
const CollectionName = "api_ledger"

// Entry is one failed API request.
type Entry struct {
	ID primitive.ObjectID `bson:"_id" json:"id"`

	RequestID string `bson:"request_id" json:"request_id"`
	Method    string `bson:"method" json:"method"`
	Path      string `bson:"path" json:"path"`
	Query     string `bson:"query,omitempty" json:"query,omitempty"`
	RemoteIP  string `bson:"remote_ip" json:"remote_ip"`

	// UserID is the chat user the request was about, when the handler knows it.
	UserID int64 `bson:"user_id,omitempty" json:"user_id,omitempty"`

	StatusCode   int    `bson:"status_code" json:"status_code"`
	ErrorClass   string `bson:"error_class" json:"error_class"`
	ErrorMessage string `bson:"error_message,omitempty" json:"error_message,omitempty"`

	DurationMs float64   `bson:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// Store provides ledger entry persistence.
type Store struct {
	c *mongo.Collection
}

// New creates a new ledger store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// Create inserts an entry, assigning an ID and CreatedAt when unset.
func (s *Store) Create(ctx context.Context, e Entry) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// GetByRequestID returns the entry for requestID.
func (s *Store) GetByRequestID(ctx context.Context, requestID string) (Entry, error) {
	var e Entry
	err := s.c.FindOne(ctx, bson.M{"request_id": requestID}).Decode(&e)
	return e, err
}

// Recent returns up to limit entries, newest first. A non-empty class filters
// by error class.
func (s *Store) Recent(ctx context.Context, class string, limit int) ([]Entry, error) {
	filter := bson.M{}
	if class != "" {
		filter["error_class"] = class
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]Entry, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByClass returns entry counts per error class since the given time.
func (s *Store) CountByClass(ctx context.Context, since time.Time) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{"_id": "$error_class", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]int64)
	for cur.Next(ctx) {
		var row struct {
			Class string `bson:"_id"`
			N     int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Class] = row.N
	}
	return out, cur.Err()
}

// DeleteOlderThan removes entries created before cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
