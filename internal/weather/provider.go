package weather

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/weatherpulse/internal/geo"
)

var (
	// ErrLocationNotFound is returned when the provider does not know the requested place.
	ErrLocationNotFound = errors.New("location not found")
	// ErrProviderNotConfigured is returned when a provider lacks credentials.
	ErrProviderNotConfigured = errors.New("weather provider not configured")
	// ErrNoForecast is returned when a forecast feed yields no days.
	ErrNoForecast = errors.New("no forecast data available")
	// ErrInvalidDays is returned when a forecast is asked for fewer than one day.
	ErrInvalidDays = errors.New("days must be greater than zero")
)

// Provider abstracts the weather data source (OpenWeatherMap).
type Provider interface {
	Name() string
	Current(ctx context.Context, q Query) (CurrentConditions, error)
	AirQuality(ctx context.Context, c geo.Coordinates) (AirQuality, error)
	Forecast(ctx context.Context, q Query) (ForecastFeed, error)
}

// Store is the contract the in-memory store and the SQLite store must satisfy.
type Store interface {
	SaveSnapshot(q Query, d Dashboard) error
	GetLatest(q Query) (Dashboard, error)
	GetRange(q Query, from, to time.Time) ([]Dashboard, error)
	Recent(limit int) ([]Dashboard, error)
	Close() error
}
