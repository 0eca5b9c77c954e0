// Package indexes reconciles the MongoDB indexes the service depends on.
// The unique (user_id, date) index on attendance is what enforces one
// check-in per user per day; startup fails if it cannot be built.
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// indexDef is one desired index.
type indexDef struct {
	name   string
	keys   bson.D
	unique bool
}

// desired lists every index by collection, in creation order.
var desired = []struct {
	collection string
	indexes    []indexDef
}{
	{"attendance", []indexDef{
		{name: "uniq_attendance_user_date", unique: true,
			keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}}},
		{name: "idx_attendance_date_timestamp",
			keys: bson.D{{Key: "date", Value: 1}, {Key: "timestamp", Value: 1}}},
	}},
	{"api_stats", []indexDef{
		{name: "uniq_apistats_bucket_type_duration", unique: true,
			keys: bson.D{{Key: "bucket", Value: 1}, {Key: "stat_type", Value: 1}, {Key: "bucket_duration", Value: 1}}},
		{name: "idx_apistats_type_bucket",
			keys: bson.D{{Key: "stat_type", Value: 1}, {Key: "bucket", Value: 1}}},
	}},
	{"api_ledger", []indexDef{
		{name: "idx_ledger_created",
			keys: bson.D{{Key: "created_at", Value: -1}}},
		{name: "idx_ledger_class_created",
			keys: bson.D{{Key: "error_class", Value: 1}, {Key: "created_at", Value: -1}}},
		{name: "idx_ledger_request_id",
			keys: bson.D{{Key: "request_id", Value: 1}}},
	}},
}

// EnsureAll is idempotent. Every collection is attempted; failures are joined.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, d := range desired {
		if err := reconcile(ctx, db.Collection(d.collection), d.indexes); err != nil {
			problems = append(problems, d.collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

type action int

const (
	actionCreate action = iota
	actionKeep
	actionRecreate
)

// plan decides what to do with want given the indexes already present,
// keyed by keySig. Names are not compared; an index with the same keys
// and uniqueness is reused under whatever name it has.
func plan(existing map[string]existingIndex, want indexDef) (action, existingIndex) {
	ex, ok := existing[keySig(want.keys)]
	switch {
	case !ok:
		return actionCreate, existingIndex{}
	case boolVal(ex.Unique) == want.unique:
		return actionKeep, ex
	default:
		return actionRecreate, ex
	}
}

func reconcile(ctx context.Context, coll *mongo.Collection, defs []indexDef) error {
	existing, err := listIndexes(ctx, coll)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}

	var errs []string
	for _, want := range defs {
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", want.name),
			zap.String("keys", keySig(want.keys)),
			zap.Bool("unique", want.unique))

		act, ex := plan(existing, want)
		switch act {
		case actionKeep:
			log.Debug("index present", zap.String("existing_name", ex.Name))
			continue
		case actionRecreate:
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				log.Warn("drop index failed", zap.String("existing_name", ex.Name), zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s: drop %s: %v", want.name, ex.Name, err))
				continue
			}
		}

		opts := options.Index().SetName(want.name)
		if want.unique {
			opts.SetUnique(true)
		}
		if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: want.keys, Options: opts}); err != nil {
			switch {
			case want.unique && isDuplicateKeyErr(err):
				errs = append(errs, want.name+": duplicates present, cannot build unique index")
			case isOptionsConflictErr(err):
				errs = append(errs, fmt.Sprintf("%s: options conflict: %v", want.name, err))
			default:
				errs = append(errs, fmt.Sprintf("%s: %v", want.name, err))
			}
			log.Warn("create index failed", zap.Error(err))
			continue
		}
		log.Info("index built", zap.Bool("recreated", act == actionRecreate), zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		// The collection is created by the first CreateOne.
		var ce mongo.CommandError
		if errors.As(err, &ce) && ce.Code == 26 {
			return out, nil
		}
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			return nil, err
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool { return b != nil && *b }

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return strings.Contains(err.Error(), "E11000")
}

// Some servers report an existing same-key index under another name this way.
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}
