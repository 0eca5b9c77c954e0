package bootstrap

import (
	"testing"
	"time"
)

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:           "mongodb://localhost:27017",
		TOTPSecret:         "JBSWY3DPEHPK3PXPJBSWY3DP",
		TOTPSkew:           1,
		AttendanceTimezone: "Asia/Jakarta",
		APIStatsBucket:     time.Hour,
		StorageType:        "local",
	}
}

func TestValidateAttendance(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", func(*AppConfig) {}, false},
		{"missing secret", func(c *AppConfig) { c.TOTPSecret = "" }, true},
		{"short secret", func(c *AppConfig) { c.TOTPSecret = "JBSWY3DP" }, true},
		{"unknown zone", func(c *AppConfig) { c.AttendanceTimezone = "Mars/Olympus" }, true},
		{"empty zone uses default", func(c *AppConfig) { c.AttendanceTimezone = "" }, false},
		{"zero bucket", func(c *AppConfig) { c.APIStatsBucket = 0 }, true},
		{"archive s3 without bucket", func(c *AppConfig) { c.ExportArchive = true; c.StorageType = "s3" }, true},
		{"archive s3 with bucket", func(c *AppConfig) {
			c.ExportArchive = true
			c.StorageType = "s3"
			c.StorageS3Bucket = "attendance-exports"
		}, false},
		{"archive unknown backend", func(c *AppConfig) { c.ExportArchive = true; c.StorageType = "ftp" }, true},
		{"unknown backend ignored without archive", func(c *AppConfig) { c.StorageType = "ftp" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := validateAttendance(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAttendance() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example.com, ,https://b.example.com ")
	if len(got) != 2 || got[0] != "https://a.example.com" || got[1] != "https://b.example.com" {
		t.Errorf("splitList() = %q", got)
	}
	if splitList("") != nil {
		t.Error("splitList(\"\") should be nil")
	}
}
