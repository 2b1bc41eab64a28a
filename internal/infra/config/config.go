package config

import (
	"fmt"
	"os"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken string
	LogLevel      string
	Environment   string

	StoreBackend string
	StorePath    string
	DatabaseURL  string

	WorldStateURL         string
	MarketURL             string
	HTTPTimeout           time.Duration
	MarketRequestInterval time.Duration
	CatalogTTL            time.Duration

	CycleMonitorSpec   string
	FissureMonitorSpec string
	MarketMonitorSpec  string

	Location *time.Location
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.LogLevel = strings.ToLower(getenv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getenv("ENVIRONMENT", "development"))

	cfg.StoreBackend = strings.ToLower(getenv("STORE_BACKEND", StoreFile))
	cfg.StorePath = getenv("STORE_PATH", "reminders.json")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	switch cfg.StoreBackend {
	case StoreFile:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set (required when STORE_BACKEND=postgres)")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: expected %q or %q", cfg.StoreBackend, StoreFile, StorePostgres)
	}

	cfg.WorldStateURL = strings.TrimRight(getenv("WORLDSTATE_URL", "https://api.warframestat.us"), "/")
	cfg.MarketURL = strings.TrimRight(getenv("MARKET_URL", "https://api.warframe.market"), "/")

	if cfg.HTTPTimeout, err = durationEnv("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.MarketRequestInterval, err = durationEnv("MARKET_REQUEST_INTERVAL", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.CatalogTTL, err = durationEnv("CATALOG_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	cfg.CycleMonitorSpec = getenv("CYCLE_MONITOR_SPEC", "@every 1s")
	cfg.FissureMonitorSpec = getenv("FISSURE_MONITOR_SPEC", "@every 1m")
	cfg.MarketMonitorSpec = getenv("MARKET_MONITOR_SPEC", "@every 1m")

	cfg.Location, err = time.LoadLocation(getenv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
