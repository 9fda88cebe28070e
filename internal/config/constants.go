package config

// Defaults for paths and batch limits
const (
	// DefaultDatabasePath is the default path for the application database
	DefaultDatabasePath = "./schoolhouse.db"

	// DefaultStagingDir holds per-call working directories for Anki
	// package extraction and construction
	DefaultStagingDir = "./staging"

	// DefaultMaxImportSize caps cards per import batch
	DefaultMaxImportSize = 500

	// DefaultMaxExportSize caps cards per export batch
	DefaultMaxExportSize = 1000

	// DefaultDuplicateThreshold is the similarity score treated as a duplicate
	DefaultDuplicateThreshold = 0.85

	// DefaultMaxUploadBytes caps uploaded file size (10 MB)
	DefaultMaxUploadBytes = 10 * 1024 * 1024
)
