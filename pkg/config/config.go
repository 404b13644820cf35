// Package config loads service configuration from config.yaml with
// environment variable overrides. Secrets (the MySQL password) must only come
// from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the reporting engine.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// AllowedOriginsStr is a comma-separated list of CORS origins.
	AllowedOriginsStr string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-default:"http://localhost:5173,http://127.0.0.1:5173"`

	// AllowedOrigins is the parsed list from AllowedOriginsStr (not from config file).
	AllowedOrigins []string `yaml:"-"`

	// MySQL holds the backing store configuration.
	MySQL MySQLConfig `yaml:"mysql"`
}

// MySQLConfig holds MySQL connection and pool configuration.
// Environment names match the deployment's existing MYSQL_* variables.
type MySQLConfig struct {
	Host     string `yaml:"host" env:"MYSQL_HOST"`
	Port     int    `yaml:"port" env:"MYSQL_PORT" env-default:"3306"`
	User     string `yaml:"user" env:"MYSQL_USER"`
	Password string `yaml:"-" env:"MYSQL_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"MYSQL_DATABASE"`

	// Options is an optional query-string fragment appended to the DSN,
	// e.g. "tls=true&charset=utf8mb4". A leading '?' is tolerated.
	Options string `yaml:"options" env:"MYSQL_OPTIONS" env-default:""`

	// PoolSize is the steady-state connection count; Overflow is how many
	// extra connections may be opened under load and closed when idle.
	PoolSize int `yaml:"pool_size" env:"MYSQL_POOL_SIZE" env-default:"5"`
	Overflow int `yaml:"pool_max_overflow" env:"MYSQL_POOL_MAX_OVERFLOW" env-default:"5"`

	// ReportTable is the table served when a request names none.
	ReportTable string `yaml:"report_table" env:"MYSQL_TABLE" env-default:"user_cluster"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. A missing config.yaml is not an error; environment
// variables alone are sufficient.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// Only a missing file falls back to environment-only configuration;
		// a malformed one is an operator error that must surface.
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment config: %w", err)
		}
	}

	cfg.AllowedOrigins = splitAndTrim(cfg.AllowedOriginsStr)

	if err := cfg.MySQL.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate ensures the required MySQL settings are present.
func (c *MySQLConfig) validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "MYSQL_HOST")
	}
	if c.User == "" {
		missing = append(missing, "MYSQL_USER")
	}
	if c.Password == "" {
		missing = append(missing, "MYSQL_PASSWORD")
	}
	if c.Database == "" {
		missing = append(missing, "MYSQL_DATABASE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required MySQL configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// splitAndTrim parses a comma-separated list, dropping empty entries.
func splitAndTrim(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
