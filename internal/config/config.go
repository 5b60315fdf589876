// Package config loads the engine's ambient configuration from the
// environment: a struct of typed fields populated from os.Getenv with
// defaults, no configuration framework. The core pipeline consumes none
// of this itself; it exists for cmd/cyphersh and any other embedder
// that wants one place to read backend selection and logging verbosity
// from.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds process-wide settings for an embedder of the engine.
type Config struct {
	Backend        string // "memory" (default) or "sql"
	SQLDSN         string
	QueryTimeoutMS int
	LogLevel       string
}

// LoadConfig loads configuration from environment variables, applying
// the same defaults a fresh cmd/cyphersh invocation would.
func LoadConfig() *Config {
	cfg := &Config{
		Backend:        os.Getenv("GRAPHDB_BACKEND"),
		SQLDSN:         os.Getenv("GRAPHDB_SQL_DSN"),
		QueryTimeoutMS: 0, // 0 means no timeout
		LogLevel:       os.Getenv("GRAPHDB_LOG_LEVEL"),
	}

	if cfg.Backend == "" {
		cfg.Backend = "memory"
	}
	cfg.Backend = strings.ToLower(cfg.Backend)

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if timeoutStr := os.Getenv("GRAPHDB_QUERY_TIMEOUT_MS"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil && timeout > 0 {
			cfg.QueryTimeoutMS = timeout
		}
	}

	return cfg
}
