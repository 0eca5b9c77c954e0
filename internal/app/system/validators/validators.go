// Package validators creates the service's collections and attaches
// $jsonSchema validators to the ones holding attendance data.
package validators

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// collections in creation order; a nil schema only ensures existence.
var collections = []struct {
	name   string
	schema func() bson.M
}{
	{"attendance", attendanceSchema},
	{"alias", aliasSchema},
	{"api_stats", nil},
	{"api_ledger", nil},
}

// EnsureAll makes every collection exist and applies validators with
// validationLevel "moderate", so documents written before a schema change
// are left alone until they are next updated. Servers without collMod
// (some DocumentDB versions) skip validation with an info log.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, c := range collections {
		if _, err := ensureCollection(ctx, db, c.name); err != nil {
			problems = append(problems, c.name+": "+err.Error())
			continue
		}
		if c.schema == nil {
			continue
		}
		err := setValidator(ctx, db, c.name, c.schema())
		switch {
		case err == nil:
		case isNoSuchCommand(err), isNotImplemented(err):
			zap.L().Info("validator unsupported by server, skipped", zap.String("collection", c.name))
		default:
			problems = append(problems, c.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

// ensureCollection reports created=true only when this call made it.
// A failed listing falls through to create, which tolerates a race.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	if ok, err := collectionExists(ctx, db, name); err == nil && ok {
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("create collection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("collection created", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		return err
	}
	zap.L().Debug("validator applied", zap.String("collection", name))
	return nil
}

// commandErr matches err by server code, falling back to message text for
// drivers and proxies that flatten the error.
func commandErr(err error, code int32, texts ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, t := range texts {
		if strings.Contains(msg, t) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandErr(err, 48, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandErr(err, 59, "no such command")
}

func isNotImplemented(err error) bool {
	return commandErr(err, 115, "not implemented", "not supported")
}

// attendanceSchema rejects records with an unknown status or a malformed day key.
func attendanceSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "first_name", "timestamp", "date", "status"},
			"properties": bson.M{
				"user_id":       bson.M{"bsonType": bson.A{"long", "int"}},
				"username":      bson.M{"bsonType": "string"},
				"first_name":    bson.M{"bsonType": "string"},
				"last_name":     bson.M{"bsonType": bson.A{"string", "null"}},
				"alias":         bson.M{"bsonType": "bool"},
				"timestamp":     bson.M{"bsonType": "date"},
				"timestamp_iso": bson.M{"bsonType": "string"},
				"date":          bson.M{"bsonType": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
				"status":        bson.M{"enum": bson.A{"present", "late"}},
			},
		},
	}
}

func aliasSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"first_name"},
			"properties": bson.M{
				"_id":        bson.M{"bsonType": bson.A{"long", "int"}},
				"first_name": bson.M{"bsonType": "string"},
				"last_name":  bson.M{"bsonType": bson.A{"string", "null"}},
				"updated_at": bson.M{"bsonType": "date"},
			},
		},
	}
}
