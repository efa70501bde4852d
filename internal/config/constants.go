package config

import "time"

// Application constants
const (
	AppName   = "Solar Clean Dashboard"
	EnvPrefix = "SOLARCLEAN"

	// ConfigFileEnv names the environment variable holding an explicit config file path
	ConfigFileEnv     = "SOLARCLEAN_CONFIG"
	DefaultConfigFile = "config.yaml"

	// File Paths (relative to the base directory)
	DefaultLogsDir    = "logs"
	DefaultExportsDir = "exports"
	DefaultLogFile    = "logs/app.log"

	// Upload limits
	DefaultMaxUploadBytes = 32 << 20 // 32MB
	MultipartMemoryBytes  = 8 << 20

	// Sessions
	DefaultSessionTTL  = 2 * time.Hour
	DefaultMaxSessions = 100

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	SheetsFetchTimeout  = 45 * time.Second
	DefaultBatchWorkers = 4

	// API Endpoints
	APIBasePath     = "/api"
	MetricsEndpoint = "/metrics"
)
