package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"solarclean/internal/dataprocessing"
	apperrors "solarclean/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Upload    UploadConfig    `yaml:"upload" envconfig:"UPLOAD"`
	Sessions  SessionsConfig  `yaml:"sessions" envconfig:"SESSIONS"`
	Progress  ProgressConfig  `yaml:"progress" envconfig:"PROGRESS"`
	Sources   SourcesConfig   `yaml:"sources" envconfig:"SOURCES"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" validate:"required_if=EnableCORS true"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// UploadConfig limits accepted workbook uploads
type UploadConfig struct {
	MaxBytes   int64    `yaml:"max_bytes" envconfig:"MAX_BYTES" validate:"min=1"`
	Extensions []string `yaml:"extensions" envconfig:"EXTENSIONS" validate:"min=1,dive,startswith=."`
}

// SessionsConfig bounds the in-memory dashboard sessions
type SessionsConfig struct {
	TTL         time.Duration `yaml:"ttl" envconfig:"TTL" validate:"gt=0"`
	MaxSessions int           `yaml:"max_sessions" envconfig:"MAX_SESSIONS" validate:"min=1"`
}

// ProgressConfig selects how the progress target is resolved
type ProgressConfig struct {
	TargetPolicy string `yaml:"target_policy" envconfig:"TARGET_POLICY" validate:"oneof=selection dataset"`
}

// SourcesConfig configures remote workbook sources
type SourcesConfig struct {
	GoogleSheets GoogleSheetsConfig `yaml:"google_sheets" envconfig:"GOOGLE_SHEETS"`
}

// GoogleSheetsConfig holds credentials for the Google Sheets API.
// The source is disabled when every field is empty.
type GoogleSheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	CredentialsJSON string `yaml:"credentials_json" envconfig:"CREDENTIALS_JSON"`
	APIKey          string `yaml:"api_key" envconfig:"API_KEY"`
	Endpoint        string `yaml:"endpoint" envconfig:"ENDPOINT" validate:"omitempty,url"`
}

// Enabled reports whether any credential is configured
func (g GoogleSheetsConfig) Enabled() bool {
	return g.ReaderConfig().Enabled()
}

// ReaderConfig converts the section into the sheets reader options.
func (g GoogleSheetsConfig) ReaderConfig() dataprocessing.SheetsConfig {
	cfg := dataprocessing.SheetsConfig{
		CredentialsFile: g.CredentialsFile,
		APIKey:          g.APIKey,
		Endpoint:        g.Endpoint,
	}
	if g.CredentialsJSON != "" {
		cfg.CredentialsJSON = []byte(g.CredentialsJSON)
	}
	return cfg
}

// TelemetryConfig configures tracing and metrics
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	Environment    string `yaml:"environment" envconfig:"ENVIRONMENT"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	ExportsDir string `yaml:"exports_dir" envconfig:"EXPORTS_DIR"`
}

// Load builds the configuration from defaults, an optional YAML file and
// SOLARCLEAN_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file; an empty path skips the file.
func LoadFile(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config file", err).
				WithContext("file", configFile)
		}
	}

	// Only variables that are set override file values.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigError("config validation failed", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", filePath, err)
	}
	return nil
}

// Validate checks the struct tags and normalizes derived values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}
	return nil
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// getConfigFilePath returns the config file to read, or "" when none exists
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}

	locations := []string{
		DefaultConfigFile,
		filepath.Join("configs", DefaultConfigFile),
	}
	if exeDir, err := executableDir(); err == nil {
		locations = append(locations, filepath.Join(exeDir, DefaultConfigFile))
	}
	for _, location := range locations {
		if FileExists(location) {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultHTTPTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Upload: UploadConfig{
			MaxBytes:   DefaultMaxUploadBytes,
			Extensions: []string{".xlsx", ".xlsm", ".xls"},
		},
		Sessions: SessionsConfig{
			TTL:         DefaultSessionTTL,
			MaxSessions: DefaultMaxSessions,
		},
		Progress: ProgressConfig{
			TargetPolicy: "selection",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "solarclean",
			Environment:    "development",
			MetricsEnabled: true,
		},
		Paths: PathsConfig{
			LogsDir:    DefaultLogsDir,
			ExportsDir: DefaultExportsDir,
		},
	}
}
