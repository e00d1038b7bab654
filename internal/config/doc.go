// Package config handles configuration loading for kosync.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults; a missing config file
// is not an error, the server simply starts with SQLite on localhost.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from KOSYNC_CONFIG environment variable
//  2. ./kosync.yaml (current directory)
//  3. ~/.config/kosync/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	storage:
//	  dsn: "${KOSYNC_DSN}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "127.0.0.1:8080"
//
// Storage selects one of four backends:
//
//	storage:
//	  backend: "sqlite"   # sqlite, postgres, redis, memory
//	  path: "/var/lib/kosync/kosync.db"   # sqlite
//	  dsn: "${KOSYNC_DSN}"                # postgres
//	  redis:                              # redis
//	    addr: "localhost:6379"
//	    password: "${KOSYNC_REDIS_PASSWORD}"
//	    db: 0
//
// TLS for direct serving, either static files or automatic certificates:
//
//	tls:
//	  cert_file: "/etc/ssl/kosync.crt"
//	  key_file: "/etc/ssl/kosync.key"
//	  auto: false
//	  auto_host: "sync.example.com"
//	  auto_cache_dir: "/var/lib/kosync/autocert"
//
// Tailscale:
//
//	tailscale:
//	  enabled: false
//	  hostname: "kosync"
//	  auth_key: "${TS_AUTHKEY}"
//	  ephemeral: false
//	  https: false
//	  funnel: false
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - Storage backend name and its required connection settings
//   - TLS cert/key pairing and auto-certificate hostname
//   - Tailscale hostname and Funnel prerequisites
//   - Logging level and format values
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// An empty path yields the defaults.
package config
