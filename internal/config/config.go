package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weatherpulse/internal/weather"
)

const (
	ForecastZoneUTC  = "utc"
	ForecastZoneCity = "city"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type AppConfig struct {
	Port string `yaml:"port"`

	OpenWeatherAPIKey  string `yaml:"openweather_api_key"`
	OpenWeatherBaseURL string `yaml:"openweather_base_url"`

	// Reverse geocoding of coordinate queries is enabled when set.
	GeocoderAPIKey string `yaml:"geocoder_api_key"`

	// HTTPTimeout bounds one outbound HTTP call; RequestTimeout bounds all
	// calls made for one dashboard.
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Retry policy for provider calls that fail with 429 or 5xx.
	ProviderMaxRetries       int           `yaml:"provider_max_retries"`
	ProviderRetryInterval    time.Duration `yaml:"provider_retry_interval"`
	ProviderMaxRetryInterval time.Duration `yaml:"provider_max_retry_interval"`

	// CacheTTL controls how long a stored dashboard is served as is.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// FetchInterval controls how often pinned cities are refreshed.
	FetchInterval time.Duration `yaml:"fetch_interval"`
	PinnedCities  []string      `yaml:"pinned_cities"`

	// ForecastZone is "utc" or "city".
	ForecastZone string `yaml:"forecast_zone"`

	StoreDriver     string        `yaml:"store_driver"`
	SQLitePath      string        `yaml:"sqlite_path"`
	StoreMaxHistory int           `yaml:"store_max_history"` // max snapshots per location (0 = unlimited)
	StoreMaxAge     time.Duration `yaml:"store_max_age"`     // max age of snapshots (0 = unlimited)

	LogLevel string `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *AppConfig {
	return &AppConfig{
		Port:                     "8080",
		OpenWeatherBaseURL:       "https://api.openweathermap.org/data/2.5",
		HTTPTimeout:              10 * time.Second,
		RequestTimeout:           20 * time.Second,
		ProviderMaxRetries:       3,
		ProviderRetryInterval:    500 * time.Millisecond,
		ProviderMaxRetryInterval: 5 * time.Second,
		CacheTTL:                 10 * time.Minute,
		FetchInterval:            15 * time.Minute,
		PinnedCities:             []string{"London"},
		ForecastZone:             ForecastZoneUTC,
		StoreDriver:              StoreMemory,
		SQLitePath:               "weatherpulse.db",
		StoreMaxHistory:          96, // roughly 24h at 15-minute intervals
		StoreMaxAge:              24 * time.Hour,
		LogLevel:                 "info",
	}
}

// Load reads configuration with sensible defaults. Values come, in
// increasing priority, from the defaults, the YAML file named by CONFIG_FILE,
// and the environment (including a .env file).
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Info("No .env file found, using environment variables")
	}

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() error {
	c.Port = getenvDefault("PORT", c.Port)
	c.OpenWeatherAPIKey = getenvDefault("OPENWEATHER_API_KEY", c.OpenWeatherAPIKey)
	c.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", c.OpenWeatherBaseURL)
	c.GeocoderAPIKey = getenvDefault("GEOCODER_API_KEY", c.GeocoderAPIKey)
	c.ForecastZone = strings.ToLower(getenvDefault("FORECAST_ZONE", c.ForecastZone))
	c.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", c.StoreDriver))
	c.SQLitePath = getenvDefault("SQLITE_PATH", c.SQLitePath)
	c.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", c.StoreMaxHistory)
	c.ProviderMaxRetries = getenvInt("PROVIDER_MAX_RETRIES", c.ProviderMaxRetries)
	c.LogLevel = getenvDefault("LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("PINNED_CITIES"); v != "" {
		c.PinnedCities = splitList(v)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", &c.HTTPTimeout},
		{"REQUEST_TIMEOUT", &c.RequestTimeout},
		{"PROVIDER_RETRY_INTERVAL", &c.ProviderRetryInterval},
		{"PROVIDER_MAX_RETRY_INTERVAL", &c.ProviderMaxRetryInterval},
		{"CACHE_TTL", &c.CacheTTL},
		{"FETCH_INTERVAL", &c.FetchInterval},
		{"STORE_MAX_AGE", &c.StoreMaxAge},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	return nil
}

// Validate rejects option values the service cannot act on.
func (c *AppConfig) Validate() error {
	switch c.ForecastZone {
	case ForecastZoneUTC, ForecastZoneCity:
	default:
		return fmt.Errorf("invalid FORECAST_ZONE %q: want %q or %q", c.ForecastZone, ForecastZoneUTC, ForecastZoneCity)
	}
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: want %q or %q", c.StoreDriver, StoreMemory, StoreSQLite)
	}
	if c.ProviderMaxRetries < 0 {
		return fmt.Errorf("PROVIDER_MAX_RETRIES must not be negative, got %d", c.ProviderMaxRetries)
	}
	if c.ProviderRetryInterval <= 0 {
		return fmt.Errorf("PROVIDER_RETRY_INTERVAL must be positive, got %s", c.ProviderRetryInterval)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	return nil
}

// PinnedQueries returns the pinned cities as weather queries.
func (c *AppConfig) PinnedQueries() []weather.Query {
	var queries []weather.Query
	for _, city := range c.PinnedCities {
		if city = strings.TrimSpace(city); city != "" {
			queries = append(queries, weather.CityQuery(city))
		}
	}
	return queries
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
		zap.L().Warn("Failed to parse int", zap.String("key", key), zap.String("value", v), zap.Error(err))
	}
	return def
}
