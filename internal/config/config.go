// Package config handles the credentials file and environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"guacaman/internal/domain"
)

// DefaultFileName is looked up in the invoking user's home directory when no
// explicit --config path is given.
const DefaultFileName = ".guacaman.yaml"

// MySQL holds the credentials for the gateway's configuration database.
type MySQL struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// SSHTunnel describes an optional SSH hop in front of the database. When
// Enabled, the CLI forwards a local port to the database host through it and
// connects to the forwarded end.
type SSHTunnel struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`
}

// Config is the parsed credentials file.
type Config struct {
	MySQL     MySQL     `yaml:"mysql"`
	SSHTunnel SSHTunnel `yaml:"ssh_tunnel"`
	LogLevel  string    `yaml:"log_level"` // debug, info, warn, error (default "warn")
}

// SlogLevel maps the LogLevel string to an slog.Level. A CLI stays quiet by
// default, so the zero value maps to warn rather than info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Validate checks that the loaded file can actually reach a database.
func (c *Config) Validate() error {
	if c.MySQL.Host == "" {
		return fmt.Errorf("mysql.host is required")
	}
	if c.MySQL.User == "" {
		return fmt.Errorf("mysql.user is required")
	}
	if c.MySQL.Database == "" {
		return fmt.Errorf("mysql.database is required")
	}
	if c.SSHTunnel.Enabled {
		if c.SSHTunnel.Host == "" {
			return fmt.Errorf("ssh_tunnel.host is required when the tunnel is enabled")
		}
		if c.SSHTunnel.Password == "" && c.SSHTunnel.KeyFile == "" {
			return fmt.Errorf("ssh_tunnel needs a password or a key_file")
		}
	}
	return nil
}

// DefaultPath returns the per-user credentials file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, DefaultFileName), nil
}

// Load reads and validates the credentials file at path. The file stores a
// database password, so group or world access is refused outright.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	// The caller fixes this by running chmod, so it is reported as a usage
	// error rather than a system failure.
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return nil, domain.ErrUsage("config file %s has mode %04o; it holds credentials and must be 0600", path, perm)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{
		MySQL:     MySQL{Port: 3306},
		SSHTunnel: SSHTunnel{Port: 22},
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv lets GUACAMAN_* variables override file values, so scripts can
// point one credentials file at several databases.
func applyEnv(cfg *Config) {
	if v := os.Getenv("GUACAMAN_MYSQL_HOST"); v != "" {
		cfg.MySQL.Host = v
	}
	if v := os.Getenv("GUACAMAN_MYSQL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.MySQL.Port = p
		}
	}
	if v := os.Getenv("GUACAMAN_MYSQL_USER"); v != "" {
		cfg.MySQL.User = v
	}
	if v := os.Getenv("GUACAMAN_MYSQL_PASSWORD"); v != "" {
		cfg.MySQL.Password = v
	}
	if v := os.Getenv("GUACAMAN_MYSQL_DATABASE"); v != "" {
		cfg.MySQL.Database = v
	}
	if v := os.Getenv("GUACAMAN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
