package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LEDGER_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "ledger.db"), cfg.DatabasePath())
	assert.Equal(t, RemoteBackendMemory, cfg.Remote.Backend)
	assert.Equal(t, 30*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 5, cfg.Sync.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Sync.BaseDelay)
	assert.Equal(t, "@every 15m", cfg.Sync.Schedule)
	assert.True(t, cfg.Network.AssumeOnline)
	assert.False(t, cfg.Backup.Enabled)
	assert.Equal(t, 8080, cfg.Port)
	assert.Empty(t, cfg.CORS)
	assert.Equal(t, "0 30 2 * * *", cfg.Maintenance.Schedule)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LEDGER_DATA_DIR", t.TempDir())
	t.Setenv("REMOTE_BACKEND", "HTTP")
	t.Setenv("REMOTE_HTTP_URL", "https://ledger.example.com")
	t.Setenv("REMOTE_TIMEOUT_SECONDS", "12")
	t.Setenv("SYNC_MAX_ATTEMPTS", "3")
	t.Setenv("SYNC_BASE_DELAY_MS", "250")
	t.Setenv("PORT", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://ledger.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, RemoteBackendHTTP, cfg.Remote.Backend)
	assert.Equal(t, 12*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 3, cfg.Sync.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.BaseDelay)
	assert.Equal(t, 8080, cfg.Port, "unparsable values fall back to the default")
	assert.Equal(t, []string{"http://localhost:3000", "https://ledger.example.com"}, cfg.CORS)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Remote: RemoteConfig{Backend: RemoteBackendMemory, Timeout: time.Second},
			Sync:   SyncConfig{MaxAttempts: 5, BaseDelay: time.Second},
		}
	}

	t.Run("memory backend is valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("s3 backend needs a bucket", func(t *testing.T) {
		cfg := base()
		cfg.Remote.Backend = RemoteBackendS3
		assert.Error(t, cfg.Validate())

		cfg.S3.Bucket = "ledger"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("http backend needs a url", func(t *testing.T) {
		cfg := base()
		cfg.Remote.Backend = RemoteBackendHTTP
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := base()
		cfg.Remote.Backend = "firestore"
		assert.Error(t, cfg.Validate())
	})

	t.Run("attempts must be positive", func(t *testing.T) {
		cfg := base()
		cfg.Sync.MaxAttempts = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("backups need object storage", func(t *testing.T) {
		cfg := base()
		cfg.Backup.Enabled = true
		assert.Error(t, cfg.Validate())
	})
}
