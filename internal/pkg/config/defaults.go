package config

import "time"

// Default values for configuration.
const (
	// Server defaults
	DefaultServerHost      = "127.0.0.1"
	DefaultServerPort      = 8080
	DefaultShutdownTimeout = 15 * time.Second

	// Ingestion defaults
	DefaultChunkSizeKiB = 512
	DefaultArchiveTTL   = 24 * time.Hour
	DefaultCacheTTL     = 60 * time.Minute
	DefaultCacheCleanup = 1 * time.Hour

	// Search defaults
	DefaultSearchResultLimit = 50

	// Render defaults
	DefaultEstimatedItemHeight = 96
	DefaultOverscan            = 5

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)
