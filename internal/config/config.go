// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/ledgersync/internal/utils"
)

// Remote backends understood by the remote ledger factory.
const (
	RemoteBackendMemory = "memory"
	RemoteBackendS3     = "s3"
	RemoteBackendHTTP   = "http"
)

// Config holds application configuration
type Config struct {
	DataDir     string // Base directory for the local database (always absolute)
	LogLevel    string
	LogPretty   bool
	Port        int
	DevMode     bool
	CORS        []string // Allowed origins; empty allows any origin
	Remote      RemoteConfig
	S3          S3Config
	Sync        SyncConfig
	Network     NetworkConfig
	Maintenance MaintenanceConfig
	Backup      BackupConfig
	RateLimit   RateLimitConfig
}

// RemoteConfig selects and configures the authoritative remote ledger.
type RemoteConfig struct {
	Backend   string
	Timeout   time.Duration // Upper bound for a single remote call
	HTTPURL   string
	HTTPToken string
}

// S3Config holds S3-compatible object storage credentials (AWS S3, Cloudflare R2, MinIO).
type S3Config struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// Enabled reports whether enough S3 settings are present to build a client.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// SyncConfig controls the sync engine retry policy and periodic trigger.
type SyncConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Schedule    string // cron schedule for periodic bulk sync; empty disables it
}

// NetworkConfig controls how connectivity is determined.
type NetworkConfig struct {
	AssumeOnline  bool
	ProbeAddr     string // host:port dialed by the connectivity prober; empty disables probing
	ProbeSchedule string
	ProbeTimeout  time.Duration
}

// MaintenanceConfig schedules the local database maintenance job
type MaintenanceConfig struct {
	Schedule string // empty disables it
}

// BackupConfig controls uploads of local database snapshots.
type BackupConfig struct {
	Enabled  bool
	Schedule string
	Retain   int
}

// RateLimitConfig configures the HTTP API limiter.
type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("LEDGER_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:   absDataDir,
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),
		Port:      getEnvAsInt("PORT", 8080),
		DevMode:   getEnvAsBool("DEV_MODE", false),
		CORS:      utils.ParseCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		Remote: RemoteConfig{
			Backend:   strings.ToLower(getEnv("REMOTE_BACKEND", RemoteBackendMemory)),
			Timeout:   time.Duration(getEnvAsInt("REMOTE_TIMEOUT_SECONDS", 30)) * time.Second,
			HTTPURL:   getEnv("REMOTE_HTTP_URL", ""),
			HTTPToken: getEnv("REMOTE_HTTP_TOKEN", ""),
		},
		S3: S3Config{
			Bucket:          getEnv("S3_BUCKET", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("S3_REGION", "auto"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("S3_PREFIX", "transactions/"),
		},
		Sync: SyncConfig{
			MaxAttempts: getEnvAsInt("SYNC_MAX_ATTEMPTS", 5),
			BaseDelay:   time.Duration(getEnvAsInt("SYNC_BASE_DELAY_MS", 1000)) * time.Millisecond,
			Schedule:    getEnv("SYNC_SCHEDULE", "@every 15m"),
		},
		Network: NetworkConfig{
			AssumeOnline:  getEnvAsBool("CONNECTIVITY_ASSUME_ONLINE", true),
			ProbeAddr:     getEnv("CONNECTIVITY_PROBE_ADDR", ""),
			ProbeSchedule: getEnv("CONNECTIVITY_PROBE_SCHEDULE", "@every 10s"),
			ProbeTimeout:  time.Duration(getEnvAsInt("CONNECTIVITY_PROBE_TIMEOUT_MS", 3000)) * time.Millisecond,
		},
		Maintenance: MaintenanceConfig{
			Schedule: getEnv("MAINTENANCE_SCHEDULE", "0 30 2 * * *"),
		},
		Backup: BackupConfig{
			Enabled:  getEnvAsBool("BACKUP_ENABLED", false),
			Schedule: getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
			Retain:   getEnvAsInt("BACKUP_RETAIN", 7),
		},
		RateLimit: RateLimitConfig{
			PerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10),
			Burst:     getEnvAsInt("RATE_LIMIT_BURST", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabasePath returns the location of the local ledger database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.Remote.Backend {
	case RemoteBackendMemory:
	case RemoteBackendS3:
		if !c.S3.Enabled() {
			return fmt.Errorf("S3_BUCKET is required when REMOTE_BACKEND=s3")
		}
	case RemoteBackendHTTP:
		if c.Remote.HTTPURL == "" {
			return fmt.Errorf("REMOTE_HTTP_URL is required when REMOTE_BACKEND=http")
		}
	default:
		return fmt.Errorf("unknown REMOTE_BACKEND %q", c.Remote.Backend)
	}

	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT_SECONDS must be positive")
	}
	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("SYNC_MAX_ATTEMPTS must be at least 1")
	}
	if c.Sync.BaseDelay < 0 {
		return fmt.Errorf("SYNC_BASE_DELAY_MS must not be negative")
	}
	if c.Backup.Enabled && !c.S3.Enabled() {
		return fmt.Errorf("BACKUP_ENABLED requires S3_BUCKET")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
