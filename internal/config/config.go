// ABOUTME: Configuration loading and parsing for kosync
// ABOUTME: Supports YAML files with environment variable expansion and sensible defaults

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Storage backend names accepted in storage.backend.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config represents the complete kosync configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	TLS       TLSConfig       `yaml:"tls"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// StorageConfig selects and configures the progress store backend
type StorageConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"` // SQLite database file
	DSN     string      `yaml:"dsn"`  // PostgreSQL connection string
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// TLSConfig holds TLS configuration for direct (non-Tailscale) serving.
// Either a static cert/key pair or automatic certificates via Let's Encrypt.
type TLSConfig struct {
	CertFile     string `yaml:"cert_file"`
	KeyFile      string `yaml:"key_file"`
	Auto         bool   `yaml:"auto"`           // Obtain certificates automatically (ACME)
	AutoHost     string `yaml:"auto_host"`      // Hostname the automatic certificate is issued for
	AutoCacheDir string `yaml:"auto_cache_dir"` // Where issued certificates are cached
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
	HTTPS     bool   `yaml:"https"`  // Serve HTTPS with Tailscale-provisioned certs
	Funnel    bool   `yaml:"funnel"` // Expose publicly via Tailscale Funnel (implies HTTPS)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no config file exists.
// It serves SQLite out of the user's data directory on localhost.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: "127.0.0.1:8080",
		},
		Storage: StorageConfig{
			Backend: BackendSQLite,
			Path:    filepath.Join(DataDir(), "kosync.db"),
		},
		TLS: TLSConfig{
			AutoCacheDir: filepath.Join(DataDir(), "autocert"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DataDir returns the directory kosync stores its own files in.
func DataDir() string {
	if dir := os.Getenv("KOSYNC_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "kosync")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// An empty path yields the defaults, so the server starts with no config at all.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	// Unmarshal over the defaults so absent keys keep their default values
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// The listen address is required unless Tailscale carries the traffic
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres backend")
		}
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis backend")
		}
	case BackendMemory:
		// Nothing to configure
	default:
		return fmt.Errorf("unknown storage.backend %q (want sqlite, postgres, redis, or memory)", c.Storage.Backend)
	}

	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("tls.cert_file and tls.key_file must be set together")
	}
	if c.TLS.Auto {
		if c.TLS.CertFile != "" {
			return fmt.Errorf("tls.auto and tls.cert_file are mutually exclusive")
		}
		if c.TLS.AutoHost == "" {
			return fmt.Errorf("tls.auto_host is required when tls.auto is enabled")
		}
	}

	if c.Tailscale.Enabled {
		if c.Tailscale.Hostname == "" {
			return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
		}
		if c.TLS.Auto || c.TLS.CertFile != "" {
			return fmt.Errorf("tls and tailscale are mutually exclusive; tsnet terminates TLS itself")
		}
	}
	if c.Tailscale.Funnel && !c.Tailscale.Enabled {
		return fmt.Errorf("tailscale.funnel requires tailscale.enabled")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q (want debug, info, warn, or error)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging.format %q (want text or json)", c.Logging.Format)
	}

	return nil
}
