package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads; viper treats empty as unset
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		upper := strings.ToUpper(key)
		t.Setenv(upper, "")
		t.Setenv(publicPrefix+upper, "")
	}
}

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000/api", cfg.APIBase)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 3001, cfg.RemoteCLIPort)
	assert.Equal(t, 10, cfg.RemoteCLIRateLimit)
	assert.Equal(t, "memory", cfg.DatabaseDriver)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "localhost:3000", cfg.Addr())
	assert.Equal(t, "localhost:3001", cfg.RemoteCLIAddr())
}

func TestLoadEnvFile(t *testing.T) {
	path := writeEnv(t, `
PUBLIC_API_BASE=https://example.test/api
PORT=8080
DATABASE_DRIVER=sqlite3
DATABASE_URL=file:app.db
CACHE_TTL=30s
LOG_DEVELOPMENT=true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/api", cfg.APIBase, "PUBLIC_ prefix is stripped")
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite3", cfg.DatabaseDriver)
	assert.Equal(t, "file:app.db", cfg.DatabaseURL)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.LogDevelopment)
}

func TestLoadPrecedence(t *testing.T) {
	t.Run("plain file key wins over PUBLIC_ twin", func(t *testing.T) {
		path := writeEnv(t, "PUBLIC_HOST=public.test\nHOST=plain.test\n")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "plain.test", cfg.Host)
	})

	t.Run("environment wins over file", func(t *testing.T) {
		path := writeEnv(t, "HOST=file.test\nREMOTE_CLI_PORT=4000\n")
		t.Setenv("HOST", "env.test")
		t.Setenv("PUBLIC_REMOTE_CLI_PORT", "5000")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "env.test", cfg.Host)
		assert.Equal(t, 5000, cfg.RemoteCLIPort)
	})

	t.Run("plain environment variable wins over PUBLIC_", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PUBLIC_LOG_LEVEL", "error")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load(filepath.Join(t.TempDir(), ".env"))
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		wantErr string
	}{
		{"prefix without slash", "API_PREFIX=api", "must start with '/'"},
		{"prefix with trailing slash", "API_PREFIX=/api/", "must not end with '/'"},
		{"relative api base", "API_BASE=/api", "absolute URL"},
		{"port out of range", "PORT=70000", "out of range"},
		{"unknown driver", "DATABASE_DRIVER=mongo", "DATABASE_DRIVER must be one of"},
		{"negative rate limit", "REMOTE_CLI_RATE_LIMIT=-1", "must not be negative"},
		{"sql driver without url", "DATABASE_DRIVER=pgx", "DATABASE_URL is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeEnv(t, tt.env+"\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
