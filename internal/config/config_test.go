package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ServerAddr == "" {
		t.Error("ServerAddr should have a default")
	}
	if cfg.ReadTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		t.Errorf("timeouts should default: %v %v %v", cfg.ReadTimeout, cfg.WriteTimeout, cfg.IdleTimeout)
	}
	if cfg.DatabaseURL() == "" {
		t.Error("DatabaseURL should have a default")
	}
	if cfg.DBMaxConnections() <= 0 {
		t.Error("DBMaxConnections should be positive")
	}
	if cfg.Redis.URL == "" {
		t.Error("Redis URL should have a default")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("READ_TIMEOUT", "42")
	t.Setenv("DB_MAX_CONNECTIONS", "7")

	cfg := Load()
	if cfg.ServerAddr != ":9999" {
		t.Errorf("ServerAddr = %q, want :9999", cfg.ServerAddr)
	}
	if cfg.ReadTimeout != 42*time.Second {
		t.Errorf("ReadTimeout = %v, want 42s", cfg.ReadTimeout)
	}
	if cfg.DBMaxConnections() != 7 {
		t.Errorf("DBMaxConnections = %d, want 7", cfg.DBMaxConnections())
	}
}

func TestEnvIntFallback(t *testing.T) {
	t.Setenv("SOME_TEST_INT", "not a number")
	if got := envInt("SOME_TEST_INT", 5); got != 5 {
		t.Errorf("envInt on garbage = %d, want fallback 5", got)
	}
	if got := envInt("SOME_TEST_INT_MISSING", 3); got != 3 {
		t.Errorf("envInt on missing = %d, want fallback 3", got)
	}
}
