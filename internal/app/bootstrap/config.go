// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/strataattend/internal/app/system/daykey"
	"github.com/dalemusser/strataattend/internal/app/system/otp"
	"github.com/dalemusser/strataattend/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables (STRATAATTEND_API_KEY, ...).
const EnvVarPrefix = "STRATAATTEND"

// appConfigKeys are loaded from flags, env, config files and defaults, in that order.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "strataattend", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "api_key", Default: "", Desc: "Bearer token required on /api/attendance (empty rejects all requests)"},
	{Name: "api_allowed_origins", Default: "", Desc: "Comma-separated browser origins allowed to call the API (empty allows any)"},
	{Name: "request_timeout", Default: "90s", Desc: "Per-request timeout"},

	{Name: "totp_secret", Default: "", Desc: "Base32 TOTP secret shared with the authenticator app (see cmd/totpsetup)"},
	{Name: "totp_skew", Default: 1, Desc: "Accepted 30s periods before/after now"},

	{Name: "attendance_timezone", Default: "Asia/Jakarta", Desc: "IANA zone for day boundaries and the 09:00 late cutoff"},

	{Name: "export_dir", Default: "", Desc: "Spool directory for CSV exports (empty uses the OS temp dir)"},
	{Name: "export_spool_max_age", Default: "1h", Desc: "Age after which leftover spool files are swept"},
	{Name: "export_archive", Default: false, Desc: "Copy each CSV export to file storage under exports/"},
	{Name: "export_timeout", Default: "60s", Desc: "Deadline for building and sending one CSV export"},

	{Name: "storage_type", Default: "local", Desc: "Archive storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./archive", Desc: "Local archive path"},
	{Name: "storage_local_url", Default: "/archive", Desc: "URL prefix for local archive files"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "strataattend/", Desc: "S3 key prefix"},
	{Name: "storage_cf_url", Default: "", Desc: "CloudFront distribution URL"},
	{Name: "storage_cf_keypair_id", Default: "", Desc: "CloudFront key pair ID"},
	{Name: "storage_cf_key_path", Default: "", Desc: "Path to CloudFront private key file"},

	{Name: "api_stats_bucket", Default: "1h", Desc: "API stats bucket duration (e.g. 15m, 1h, 24h)"},
	{Name: "api_stats_retention", Default: "2160h", Desc: "How long API stats buckets are kept"},
	{Name: "ledger_enabled", Default: true, Desc: "Record failed API requests in the error ledger"},
	{Name: "ledger_retention", Default: "720h", Desc: "How long error ledger entries are kept"},
}

// LoadConfig loads WAFFLE core config and app config.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, v, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	skew := v.Int("totp_skew")
	if skew < 0 {
		skew = 0
	}

	appCfg := AppConfig{
		MongoURI:         v.String("mongo_uri"),
		MongoDatabase:    v.String("mongo_database"),
		MongoMaxPoolSize: uint64(v.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(v.Int("mongo_min_pool_size")),

		APIKey:            v.String("api_key"),
		APIAllowedOrigins: splitList(v.String("api_allowed_origins")),
		RequestTimeout:    v.Duration("request_timeout", 90*time.Second),

		TOTPSecret: strings.TrimSpace(v.String("totp_secret")),
		TOTPSkew:   uint(skew),

		AttendanceTimezone: v.String("attendance_timezone"),

		ExportDir:         v.String("export_dir"),
		ExportSpoolMaxAge: v.Duration("export_spool_max_age", time.Hour),
		ExportArchive:     v.Bool("export_archive"),
		ExportTimeout:     v.Duration("export_timeout", timeouts.DefaultExport),

		StorageType:        v.String("storage_type"),
		StorageLocalPath:   v.String("storage_local_path"),
		StorageLocalURL:    v.String("storage_local_url"),
		StorageS3Region:    v.String("storage_s3_region"),
		StorageS3Bucket:    v.String("storage_s3_bucket"),
		StorageS3Prefix:    v.String("storage_s3_prefix"),
		StorageCFURL:       v.String("storage_cf_url"),
		StorageCFKeyPairID: v.String("storage_cf_keypair_id"),
		StorageCFKeyPath:   v.String("storage_cf_key_path"),

		APIStatsBucket:    v.Duration("api_stats_bucket", time.Hour),
		APIStatsRetention: v.Duration("api_stats_retention", 90*24*time.Hour),
		LedgerEnabled:     v.Bool("ledger_enabled"),
		LedgerRetention:   v.Duration("ledger_retention", 30*24*time.Hour),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configs the service cannot run with.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if err := validateAttendance(appCfg); err != nil {
		logger.Error("invalid attendance config", zap.Error(err))
		return err
	}
	if appCfg.APIKey == "" {
		logger.Warn("api_key is empty; every API request will be rejected")
	}
	return nil
}

// validateAttendance checks the settings the attendance service depends on.
func validateAttendance(appCfg AppConfig) error {
	if appCfg.TOTPSecret == "" {
		return errors.New("totp_secret is required (generate one with totpsetup)")
	}
	if _, err := otp.NewTOTP(appCfg.TOTPSecret, appCfg.TOTPSkew); err != nil {
		return fmt.Errorf("totp_secret: %w", err)
	}
	if _, err := daykey.Load(appCfg.AttendanceTimezone); err != nil {
		return err
	}
	if appCfg.APIStatsBucket <= 0 {
		return errors.New("api_stats_bucket must be positive")
	}
	if appCfg.ExportArchive {
		switch appCfg.StorageType {
		case "local", "":
		case "s3":
			if appCfg.StorageS3Bucket == "" {
				return errors.New("storage_s3_bucket is required when storage_type is s3")
			}
		default:
			return fmt.Errorf("unknown storage_type %q", appCfg.StorageType)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
