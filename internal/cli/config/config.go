package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// publicPrefix marks variables that are also exposed to browser builds.
// It is stripped on load, so PUBLIC_API_BASE configures api_base.
const publicPrefix = "PUBLIC_"

// Config represents the runtime configuration, read from .env and the environment
type Config struct {
	// APIBase is the base URL HTTP stores resolve endpoints against
	APIBase   string `mapstructure:"api_base"`
	APIPrefix string `mapstructure:"api_prefix"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`

	RemoteCLIPort          int    `mapstructure:"remote_cli_port"`
	RemoteCLIPublicKeyPath string `mapstructure:"remote_cli_public_key_path"`
	RemoteCLIPasswordHash  string `mapstructure:"remote_cli_password_hash"`
	// RemoteCLIRateLimit is the number of connection attempts per minute
	// accepted from one address, 0 disables the limit
	RemoteCLIRateLimit int `mapstructure:"remote_cli_rate_limit"`

	DatabaseDriver string        `mapstructure:"database_driver"`
	DatabaseURL    string        `mapstructure:"database_url"`
	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisPassword  string        `mapstructure:"redis_password"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`

	LogLevel       string `mapstructure:"log_level"`
	LogDevelopment bool   `mapstructure:"log_development"`
}

var defaults = map[string]any{
	"api_base":                   "http://localhost:3000/api",
	"api_prefix":                 "/api",
	"host":                       "localhost",
	"port":                       3000,
	"remote_cli_port":            3001,
	"remote_cli_public_key_path": "",
	"remote_cli_password_hash":   "",
	"remote_cli_rate_limit":      10,
	"database_driver":            "memory",
	"database_url":               "",
	"redis_addr":                 "",
	"redis_password":             "",
	"cache_ttl":                  "5m",
	"log_level":                  "info",
	"log_development":            false,
}

// Drivers lists the supported values of DATABASE_DRIVER
var Drivers = []string{"memory", "sqlite3", "pgx", "postgres"}

// Load reads envFile (".env" in the working directory when empty) and the
// process environment. Environment variables win over the file; a plain key
// wins over its PUBLIC_ twin. A missing file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		envFile = filepath.Join(wd, ".env")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	// PUBLIC_ entries of the file sit between the defaults and plain entries
	prefix := strings.ToLower(publicPrefix)
	for _, key := range v.AllKeys() {
		if stripped, ok := strings.CutPrefix(key, prefix); ok && !v.InConfig(stripped) {
			v.SetDefault(stripped, v.Get(key))
		}
	}

	for key := range defaults {
		upper := strings.ToUpper(key)
		if err := v.BindEnv(key, upper, publicPrefix+upper); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RemoteCLIAddr returns the remote CLI listen address
func (c *Config) RemoteCLIAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.RemoteCLIPort)
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if !strings.HasPrefix(cfg.APIPrefix, "/") {
		return fmt.Errorf("API_PREFIX must start with '/', got: %s", cfg.APIPrefix)
	}
	if len(cfg.APIPrefix) > 1 && strings.HasSuffix(cfg.APIPrefix, "/") {
		return fmt.Errorf("API_PREFIX must not end with '/', got: %s", cfg.APIPrefix)
	}

	if u, err := url.Parse(cfg.APIBase); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE must be an absolute URL, got: %s", cfg.APIBase)
	}

	for _, port := range []int{cfg.Port, cfg.RemoteCLIPort} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("port out of range: %d", port)
		}
	}

	if cfg.RemoteCLIRateLimit < 0 {
		return fmt.Errorf("REMOTE_CLI_RATE_LIMIT must not be negative, got: %d", cfg.RemoteCLIRateLimit)
	}

	known := false
	for _, d := range Drivers {
		known = known || d == cfg.DatabaseDriver
	}
	if !known {
		return fmt.Errorf("DATABASE_DRIVER must be one of %s, got: %s", strings.Join(Drivers, ", "), cfg.DatabaseDriver)
	}
	if cfg.DatabaseDriver != "memory" && cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for driver %s", cfg.DatabaseDriver)
	}

	return nil
}
