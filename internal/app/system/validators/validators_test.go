package validators

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/strataattend/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}

	for _, coll := range []string{"attendance", "alias", "api_stats", "api_ledger"} {
		exists, err := collectionExists(ctx, db, coll)
		if err != nil {
			t.Errorf("collectionExists(%s) error = %v", coll, err)
			continue
		}
		if !exists {
			t.Errorf("collection %s should exist after EnsureAll", coll)
		}
	}

	// Second run is a no-op.
	if err := EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll() error = %v", err)
	}
}

func TestAttendanceSchema_Enforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}
	c := db.Collection("attendance")
	ts := time.Date(2025, 1, 15, 1, 0, 0, 0, time.UTC)

	valid := bson.M{
		"user_id":    int64(1),
		"first_name": "Budi",
		"last_name":  nil,
		"timestamp":  ts,
		"date":       "2025-01-15",
		"status":     "present",
	}
	if _, err := c.InsertOne(ctx, valid); err != nil {
		t.Fatalf("InsertOne(valid) error = %v", err)
	}

	tests := []struct {
		name string
		doc  bson.M
	}{
		{"unknown status", bson.M{"user_id": int64(2), "first_name": "A", "timestamp": ts, "date": "2025-01-15", "status": "absent"}},
		{"malformed date", bson.M{"user_id": int64(3), "first_name": "A", "timestamp": ts, "date": "15/01/2025", "status": "late"}},
		{"missing timestamp", bson.M{"user_id": int64(4), "first_name": "A", "date": "2025-01-15", "status": "late"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.InsertOne(ctx, tt.doc); err == nil {
				t.Error("InsertOne() succeeded, want validation error")
			}
		})
	}
}

func TestEnsureCollection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := ensureCollection(ctx, db, "new_collection")
	if err != nil {
		t.Fatalf("first ensureCollection() error = %v", err)
	}
	if !created {
		t.Error("first ensureCollection() should return created=true")
	}

	created, err = ensureCollection(ctx, db, "new_collection")
	if err != nil {
		t.Fatalf("second ensureCollection() error = %v", err)
	}
	if created {
		t.Error("second ensureCollection() should return created=false")
	}
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		nsExists  bool
		noSuchCmd bool
		notImpl   bool
	}{
		{"nil", nil, false, false, false},
		{"generic", errors.New("boom"), false, false, false},
		{"namespace code", mongo.CommandError{Code: 48, Message: "exists"}, true, false, false},
		{"already exists text", errors.New("collection already exists"), true, false, false},
		{"no such command code", mongo.CommandError{Code: 59, Message: "cmd"}, false, true, false},
		{"not supported text", errors.New("collMod not supported"), false, false, true},
		{"not implemented code", mongo.CommandError{Code: 115, Message: "impl"}, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNamespaceExistsErr(tt.err); got != tt.nsExists {
				t.Errorf("isNamespaceExistsErr() = %v, want %v", got, tt.nsExists)
			}
			if got := isNoSuchCommand(tt.err); got != tt.noSuchCmd {
				t.Errorf("isNoSuchCommand() = %v, want %v", got, tt.noSuchCmd)
			}
			if got := isNotImplemented(tt.err); got != tt.notImpl {
				t.Errorf("isNotImplemented() = %v, want %v", got, tt.notImpl)
			}
		})
	}
}
