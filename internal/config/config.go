package config

import (
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Database
		Limits
		Staging
		Global
		UI
	}

	HTTP struct {
		Port int32
		Host string
	}
	Database struct {
		Path string
	}
	// Limits bound batch sizes and duplicate detection. They become
	// constructor arguments of the parsers/exporters so tests can
	// override them per call.
	Limits struct {
		MaxImportSize      int
		MaxExportSize      int
		DuplicateThreshold float64
		MaxUploadBytes     int64
	}
	Staging struct {
		Dir             string
		CleanupSchedule string // Cron format: "0 * * * *" = hourly
		MaxAgeMinutes   int    // Staging dirs older than this get removed
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	v.SetDefault("max_import_size", DefaultMaxImportSize)
	v.SetDefault("max_export_size", DefaultMaxExportSize)
	v.SetDefault("duplicate_threshold", DefaultDuplicateThreshold)
	v.SetDefault("max_upload_bytes", DefaultMaxUploadBytes)

	v.SetDefault("staging_dir", DefaultStagingDir)
	v.SetDefault("staging_cleanup_schedule", "0 * * * *") // Hourly at :00
	v.SetDefault("staging_max_age_minutes", 60)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Limits: Limits{
			MaxImportSize:      v.GetInt("MAX_IMPORT_SIZE"),
			MaxExportSize:      v.GetInt("MAX_EXPORT_SIZE"),
			DuplicateThreshold: v.GetFloat64("DUPLICATE_THRESHOLD"),
			MaxUploadBytes:     v.GetInt64("MAX_UPLOAD_BYTES"),
		},
		Staging: Staging{
			Dir:             v.GetString("STAGING_DIR"),
			CleanupSchedule: v.GetString("STAGING_CLEANUP_SCHEDULE"),
			MaxAgeMinutes:   v.GetInt("STAGING_MAX_AGE_MINUTES"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
	}
}
