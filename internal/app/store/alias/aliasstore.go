// internal/app/store/alias/aliasstore.go
package aliasstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/strataattend/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection holding display-name aliases.
const CollectionName = "alias"

// ErrNotFound is returned when a user has no alias.
var ErrNotFound = errors.New("alias not found")

// Store keeps at most one alias per user, keyed by user ID.
type Store struct {
	c *mongo.Collection
}

// New creates a new alias store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// Set creates or overwrites the alias for userID.
// A nil or blank lastName clears any previously saved last name.
func (s *Store) Set(ctx context.Context, userID int64, firstName string, lastName *string) error {
	var last interface{}
	if lastName != nil && *lastName != "" {
		last = *lastName
	}
	update := bson.M{
		"$set": bson.M{
			"first_name": firstName,
			"last_name":  last,
			"updated_at": time.Now().UTC(),
		},
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, update, options.Update().SetUpsert(true))
	return err
}

// Get returns the alias for userID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, userID int64) (*models.AliasRecord, error) {
	var a models.AliasRecord
	err := s.c.FindOne(ctx, bson.M{"_id": userID}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetMany returns the aliases for the given users keyed by user ID.
// Users without an alias are absent from the map.
func (s *Store) GetMany(ctx context.Context, userIDs []int64) (map[int64]models.AliasRecord, error) {
	out := make(map[int64]models.AliasRecord, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var a models.AliasRecord
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		out[a.UserID] = a
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
