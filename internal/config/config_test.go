package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "OPENWEATHER_API_KEY", "OPENWEATHER_BASE_URL",
		"GEOCODER_API_KEY", "FORECAST_ZONE", "STORE_DRIVER", "SQLITE_PATH",
		"STORE_MAX_HISTORY", "LOG_LEVEL", "PINNED_CITIES", "HTTP_TIMEOUT",
		"REQUEST_TIMEOUT", "CACHE_TTL", "FETCH_INTERVAL", "STORE_MAX_AGE",
		"PROVIDER_MAX_RETRIES", "PROVIDER_RETRY_INTERVAL", "PROVIDER_MAX_RETRY_INTERVAL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.CacheTTL != 10*time.Minute {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.ForecastZone != ForecastZoneUTC || cfg.StoreDriver != StoreMemory {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("OPENWEATHER_API_KEY", "secret")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("FORECAST_ZONE", "City")
	t.Setenv("PINNED_CITIES", "London, Paris ,,Tokyo")
	t.Setenv("STORE_MAX_HISTORY", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" || cfg.OpenWeatherAPIKey != "secret" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Fatalf("expected 90s cache ttl, got %s", cfg.CacheTTL)
	}
	if cfg.ForecastZone != ForecastZoneCity {
		t.Fatalf("expected city zone, got %q", cfg.ForecastZone)
	}
	if cfg.StoreMaxHistory != 12 {
		t.Fatalf("expected max history 12, got %d", cfg.StoreMaxHistory)
	}

	queries := cfg.PinnedQueries()
	if len(queries) != 3 || queries[1].City != "Paris" {
		t.Fatalf("unexpected pinned queries %+v", queries)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
port: "7070"
cache_ttl: 5m
pinned_cities: [Oslo, Bergen]
store_driver: sqlite
sqlite_path: /tmp/weather.db
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	clearEnv(t)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "6060")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "6060" {
		t.Fatalf("environment should override the file, got port %q", cfg.Port)
	}
	if cfg.CacheTTL != 5*time.Minute || cfg.StoreDriver != StoreSQLite {
		t.Fatalf("file not applied: %+v", cfg)
	}
	if len(cfg.PinnedCities) != 2 || cfg.PinnedCities[0] != "Oslo" {
		t.Fatalf("unexpected pinned cities %v", cfg.PinnedCities)
	}
	if cfg.FetchInterval != 15*time.Minute {
		t.Fatalf("unset values should keep defaults, got %s", cfg.FetchInterval)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"CACHE_TTL", "soon"},
		{"FORECAST_ZONE", "browser"},
		{"STORE_DRIVER", "postgres"},
		{"PROVIDER_MAX_RETRIES", "-1"},
		{"PROVIDER_RETRY_INTERVAL", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadProviderRetryPolicy(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ProviderMaxRetries != 3 || cfg.ProviderRetryInterval != 500*time.Millisecond {
		t.Fatalf("unexpected default retry policy %d/%s", cfg.ProviderMaxRetries, cfg.ProviderRetryInterval)
	}

	t.Setenv("PROVIDER_MAX_RETRIES", "0")
	t.Setenv("PROVIDER_RETRY_INTERVAL", "250ms")
	t.Setenv("PROVIDER_MAX_RETRY_INTERVAL", "2s")

	cfg, err = Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ProviderMaxRetries != 0 {
		t.Fatalf("expected retries disabled, got %d", cfg.ProviderMaxRetries)
	}
	if cfg.ProviderRetryInterval != 250*time.Millisecond || cfg.ProviderMaxRetryInterval != 2*time.Second {
		t.Fatalf("unexpected intervals %s/%s", cfg.ProviderRetryInterval, cfg.ProviderMaxRetryInterval)
	}
}
