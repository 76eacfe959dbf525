package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpapi "github.com/i474232898/weatherpulse/internal/api/http"
	"github.com/i474232898/weatherpulse/internal/config"
	"github.com/i474232898/weatherpulse/internal/geo"
	"github.com/i474232898/weatherpulse/internal/scheduler"
	"github.com/i474232898/weatherpulse/internal/store"
	"github.com/i474232898/weatherpulse/internal/weather"
	"github.com/i474232898/weatherpulse/internal/weather/providers"
)

func main() {
	// Bootstrap logger until the configured level is known.
	bootstrap, _ := zap.NewProduction()
	zap.ReplaceGlobals(bootstrap)

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		bootstrap.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger := newLogger(cfg.LogLevel)
	zap.ReplaceGlobals(logger)

	err = run(cfg, logger)
	if err != nil {
		logger.Error("WeatherPulse exited with error", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run wires the service and blocks until SIGINT or SIGTERM. Deferred cleanup
// always runs before it returns.
func run(cfg *config.AppConfig, logger *zap.Logger) error {
	logger.Info("Starting WeatherPulse",
		zap.String("store", cfg.StoreDriver),
		zap.String("forecast_zone", cfg.ForecastZone))

	snapshots, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		if err := snapshots.Close(); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	if cfg.OpenWeatherAPIKey == "" {
		logger.Warn("OPENWEATHER_API_KEY is not set; provider calls will fail")
	}
	provider := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, logger).
		WithBackoff(providers.BackoffConfig{
			MaxRetries:      cfg.ProviderMaxRetries,
			InitialInterval: cfg.ProviderRetryInterval,
			MaxInterval:     cfg.ProviderMaxRetryInterval,
		})

	var geocoder geo.ReverseGeocoder
	if cfg.GeocoderAPIKey != "" {
		geocoder = geo.NewGoogleGeocoder(cfg.GeocoderAPIKey)
		logger.Info("Reverse geocoding enabled")
	}

	service := weather.NewService(snapshots, provider, geocoder, weather.ServiceConfig{
		CacheTTL:       cfg.CacheTTL,
		RequestTimeout: cfg.RequestTimeout,
		CityZone:       cfg.ForecastZone == config.ForecastZoneCity,
	}, logger)

	// Scheduler that periodically refreshes pinned cities.
	sched := scheduler.New(cfg.PinnedQueries(), cfg.FetchInterval, service, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(service, logger)

	listenErr := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("Starting server", zap.String("address", addr))
		listenErr <- app.Listen(addr)
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
	case err := <-listenErr:
		return fmt.Errorf("server stopped: %w", err)
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func newLogger(level string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		if lvl, parseErr := zap.ParseAtomicLevel(level); parseErr == nil {
			cfg.Level = lvl
		}
		logger, err = cfg.Build()
	}
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

func openStore(cfg *config.AppConfig, logger *zap.Logger) (weather.Store, error) {
	if cfg.StoreDriver == config.StoreSQLite {
		s, err := store.NewSQLite(cfg.SQLitePath, cfg.StoreMaxHistory, cfg.StoreMaxAge, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge), nil
}
