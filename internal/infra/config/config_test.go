package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELEGRAM_TOKEN", "LOG_LEVEL", "ENVIRONMENT", "STORE_BACKEND", "STORE_PATH",
		"DATABASE_URL", "WORLDSTATE_URL", "MARKET_URL", "HTTP_TIMEOUT",
		"MARKET_REQUEST_INTERVAL", "CATALOG_TTL", "CYCLE_MONITOR_SPEC",
		"FISSURE_MONITOR_SPEC", "MARKET_MONITOR_SPEC", "TIMEZONE",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.Environment != "development" {
		t.Fatalf("unexpected log settings %q %q", cfg.LogLevel, cfg.Environment)
	}
	if cfg.StoreBackend != StoreFile || cfg.StorePath != "reminders.json" {
		t.Fatalf("unexpected store settings %q %q", cfg.StoreBackend, cfg.StorePath)
	}
	if cfg.HTTPTimeout != 10*time.Second || cfg.MarketRequestInterval != 500*time.Millisecond {
		t.Fatalf("unexpected durations %v %v", cfg.HTTPTimeout, cfg.MarketRequestInterval)
	}
	if cfg.CycleMonitorSpec != "@every 1s" || cfg.FissureMonitorSpec != "@every 1m" || cfg.MarketMonitorSpec != "@every 1m" {
		t.Fatalf("unexpected monitor specs %q %q %q", cfg.CycleMonitorSpec, cfg.FissureMonitorSpec, cfg.MarketMonitorSpec)
	}
	if cfg.Location != time.UTC {
		t.Fatalf("expected UTC, got %v", cfg.Location)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/wf")
	t.Setenv("WORLDSTATE_URL", "http://localhost:8080/")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("MARKET_MONITOR_SPEC", "@every 30s")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.StoreBackend != StorePostgres {
		t.Fatalf("expected postgres backend, got %q", cfg.StoreBackend)
	}
	if cfg.WorldStateURL != "http://localhost:8080" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.WorldStateURL)
	}
	if cfg.HTTPTimeout != 3*time.Second || cfg.MarketMonitorSpec != "@every 30s" {
		t.Fatalf("overrides not applied: %v %q", cfg.HTTPTimeout, cfg.MarketMonitorSpec)
	}
}

func TestFromEnvErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"missing token", map[string]string{}},
		{"postgres without url", map[string]string{"TELEGRAM_TOKEN": "t", "STORE_BACKEND": "postgres"}},
		{"unknown backend", map[string]string{"TELEGRAM_TOKEN": "t", "STORE_BACKEND": "redis"}},
		{"bad duration", map[string]string{"TELEGRAM_TOKEN": "t", "HTTP_TIMEOUT": "soon"}},
		{"negative duration", map[string]string{"TELEGRAM_TOKEN": "t", "CATALOG_TTL": "-1h"}},
		{"bad timezone", map[string]string{"TELEGRAM_TOKEN": "t", "TIMEZONE": "Mars/Olympus"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
