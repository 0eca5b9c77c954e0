// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds attendance-service configuration loaded in LoadConfig.
// WAFFLE's CoreConfig covers ports, TLS, log level and CORS for the rest.
type AppConfig struct {
	// MongoDB
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// API access. An empty APIKey rejects every /api request.
	APIKey            string
	APIAllowedOrigins []string // empty allows any origin
	RequestTimeout    time.Duration

	// Check-in codes
	TOTPSecret string // base32
	TOTPSkew   uint   // accepted 30s periods either side of now

	// Reference zone for day keys and the 09:00 cutoff
	AttendanceTimezone string

	// Exports
	ExportDir         string        // spool directory; empty uses the OS temp dir
	ExportSpoolMaxAge time.Duration // sweeper removes spool files older than this
	ExportArchive     bool          // also copy each export to file storage
	ExportTimeout     time.Duration

	// File storage for archived exports: "local" or "s3"
	StorageType      string
	StorageLocalPath string
	StorageLocalURL  string

	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageCFURL       string
	StorageCFKeyPairID string
	StorageCFKeyPath   string

	// Request statistics and error ledger
	APIStatsBucket    time.Duration
	APIStatsRetention time.Duration
	LedgerEnabled     bool
	LedgerRetention   time.Duration
}
