package config

import (
	"os"
	"testing"
)

func clearConfigEnvVars() {
	os.Unsetenv("GRAPHDB_BACKEND")
	os.Unsetenv("GRAPHDB_SQL_DSN")
	os.Unsetenv("GRAPHDB_QUERY_TIMEOUT_MS")
	os.Unsetenv("GRAPHDB_LOG_LEVEL")
}

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearConfigEnvVars()
	defer clearConfigEnvVars()

	cfg := LoadConfig()

	if cfg.Backend != "memory" {
		t.Errorf("Expected Backend 'memory', got '%s'", cfg.Backend)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.QueryTimeoutMS != 0 {
		t.Errorf("Expected QueryTimeoutMS 0, got %d", cfg.QueryTimeoutMS)
	}
	if cfg.SQLDSN != "" {
		t.Errorf("Expected empty SQLDSN, got '%s'", cfg.SQLDSN)
	}
}

func TestLoadConfig_EnvironmentVariables(t *testing.T) {
	clearConfigEnvVars()
	defer clearConfigEnvVars()

	os.Setenv("GRAPHDB_BACKEND", "SQL")
	os.Setenv("GRAPHDB_SQL_DSN", "postgres://localhost/graphdb")
	os.Setenv("GRAPHDB_QUERY_TIMEOUT_MS", "5000")
	os.Setenv("GRAPHDB_LOG_LEVEL", "debug")

	cfg := LoadConfig()

	if cfg.Backend != "sql" {
		t.Errorf("Expected Backend 'sql', got '%s'", cfg.Backend)
	}
	if cfg.SQLDSN != "postgres://localhost/graphdb" {
		t.Errorf("Expected SQLDSN override, got '%s'", cfg.SQLDSN)
	}
	if cfg.QueryTimeoutMS != 5000 {
		t.Errorf("Expected QueryTimeoutMS 5000, got %d", cfg.QueryTimeoutMS)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected LogLevel 'debug', got '%s'", cfg.LogLevel)
	}
}

func TestLoadConfig_InvalidTimeoutIgnored(t *testing.T) {
	clearConfigEnvVars()
	defer clearConfigEnvVars()

	os.Setenv("GRAPHDB_QUERY_TIMEOUT_MS", "not-a-number")
	cfg := LoadConfig()
	if cfg.QueryTimeoutMS != 0 {
		t.Errorf("Expected QueryTimeoutMS 0 for invalid input, got %d", cfg.QueryTimeoutMS)
	}
}
