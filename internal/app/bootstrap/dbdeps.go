// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds backend connections created in ConnectDB and closed in Shutdown.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// ArchiveStorage receives copies of CSV exports. Nil when export_archive is off.
	ArchiveStorage storage.Store
}
