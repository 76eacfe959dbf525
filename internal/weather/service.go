package weather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weatherpulse/internal/geo"
)

// ServiceConfig tunes how the Service fetches and reuses dashboards.
type ServiceConfig struct {
	// CacheTTL is how long a stored complete dashboard is served without
	// refetching (0 disables reuse).
	CacheTTL time.Duration
	// RequestTimeout bounds all provider calls made for one dashboard.
	RequestTimeout time.Duration
	// CityZone groups forecast days by the city's local offset instead of UTC.
	CityZone bool
}

// Service orchestrates the provider, the geocoder and the snapshot store.
type Service struct {
	store    Store
	provider Provider
	geocoder geo.ReverseGeocoder
	cfg      ServiceConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new Service. geocoder may be nil.
func NewService(store Store, provider Provider, geocoder geo.ReverseGeocoder, cfg ServiceConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		provider: provider,
		geocoder: geocoder,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// CurrentReport is the current view together with the highlights that do
// not need air quality.
type CurrentReport struct {
	Current    CurrentView `json:"current"`
	Highlights Highlights  `json:"highlights"`
}

// Dashboard returns the dashboard for q, reusing a stored complete snapshot
// while it is younger than the configured TTL.
func (s *Service) Dashboard(ctx context.Context, q Query) (Dashboard, error) {
	if s.cfg.CacheTTL > 0 {
		if latest, err := s.store.GetLatest(q); err == nil && latest.Complete() &&
			s.now().Sub(latest.FetchedAt) < s.cfg.CacheTTL {
			s.logger.Debug("Serving stored dashboard",
				zap.String("key", q.Key()),
				zap.Time("fetched_at", latest.FetchedAt))
			return latest, nil
		}
	}
	return s.Refresh(ctx, q)
}

// Refresh fetches current conditions for q, then air quality and forecast
// concurrently for the resolved coordinates, and stores the assembled
// dashboard. Only the current conditions are required; the other parts are
// left out when their fetch fails.
func (s *Service) Refresh(ctx context.Context, q Query) (Dashboard, error) {
	if s.provider == nil {
		return Dashboard{}, ErrProviderNotConfigured
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := s.now()
	current, err := s.provider.Current(ctx, q)
	if err != nil {
		s.logger.Error("Failed to fetch current conditions",
			zap.String("query", q.String()),
			zap.String("provider", s.provider.Name()),
			zap.Error(err))
		return Dashboard{}, fmt.Errorf("current conditions for %s: %w", q, err)
	}

	var (
		wg   sync.WaitGroup
		aq   *AirQuality
		feed *ForecastFeed
	)

	var places chan string
	if s.geocoder != nil && q.ByCoords() {
		places = make(chan string, 1)
		go func() {
			name, err := s.geocoder.Reverse(ctx, *q.Coords)
			if err != nil {
				s.logger.Debug("Reverse geocoding failed",
					zap.String("query", q.String()),
					zap.Error(err))
			}
			places <- name
		}()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		r, err := s.provider.AirQuality(ctx, current.Coords)
		if err != nil {
			s.logger.Warn("Failed to fetch air quality",
				zap.String("query", q.String()),
				zap.Error(err))
			return
		}
		aq = &r
	}()
	go func() {
		defer wg.Done()
		r, err := s.provider.Forecast(ctx, CoordQuery(current.Coords.Lat, current.Coords.Lon))
		if err != nil {
			s.logger.Warn("Failed to fetch forecast",
				zap.String("query", q.String()),
				zap.Error(err))
			return
		}
		feed = &r
	}()
	wg.Wait()

	// The place name is optional and must not hold the dashboard past the
	// request deadline.
	var place string
	if places != nil {
		select {
		case place = <-places:
		case <-ctx.Done():
			s.logger.Debug("Reverse geocoding abandoned",
				zap.String("query", q.String()),
				zap.Error(ctx.Err()))
		}
	}

	d := s.compose(q, current, aq, feed)
	d.Place = place

	if err := s.store.SaveSnapshot(q, d); err != nil {
		s.logger.Warn("Failed to store dashboard",
			zap.String("key", q.Key()),
			zap.Error(err))
	}

	s.logger.Info("Dashboard refreshed",
		zap.String("key", q.Key()),
		zap.Bool("air_quality", d.Available.AirQuality),
		zap.Bool("forecast", d.Available.Forecast),
		zap.Duration("duration", s.now().Sub(start)))

	return d, nil
}

func (s *Service) compose(q Query, current CurrentConditions, aq *AirQuality, feed *ForecastFeed) Dashboard {
	d := Dashboard{
		ID:         uuid.NewString(),
		Query:      q,
		FetchedAt:  s.now().UTC(),
		Current:    NewCurrentView(current),
		Highlights: NewHighlights(current, aq),
	}
	d.Available.AirQuality = aq != nil

	if feed != nil {
		zone := s.forecastZone(*feed)
		days := FiveDayForecast(feed.Samples, zone)
		if len(days) > 0 {
			d.Forecast = NewForecastDays(days, zone)
			d.Available.Forecast = true
		}
	}

	if q.ByCoords() {
		km := geo.DistanceKm(*q.Coords, current.Coords)
		d.DistanceKm = &km
	}

	return d
}

// Current fetches the current conditions for q without touching the store.
func (s *Service) Current(ctx context.Context, q Query) (CurrentReport, error) {
	if s.provider == nil {
		return CurrentReport{}, ErrProviderNotConfigured
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	current, err := s.provider.Current(ctx, q)
	if err != nil {
		return CurrentReport{}, fmt.Errorf("current conditions for %s: %w", q, err)
	}
	return CurrentReport{
		Current:    NewCurrentView(current),
		Highlights: NewHighlights(current, nil),
	}, nil
}

// AirQuality fetches the air quality reading for c.
func (s *Service) AirQuality(ctx context.Context, c geo.Coordinates) (AirQualityView, error) {
	if s.provider == nil {
		return AirQualityView{}, ErrProviderNotConfigured
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	aq, err := s.provider.AirQuality(ctx, c)
	if err != nil {
		return AirQualityView{}, fmt.Errorf("air quality for %.4f,%.4f: %w", c.Lat, c.Lon, err)
	}
	return NewAirQualityView(aq), nil
}

// Forecast fetches the interval feed for q and returns up to days daily
// entries (capped at ForecastDays).
func (s *Service) Forecast(ctx context.Context, q Query, days int) ([]ForecastDay, error) {
	if days <= 0 {
		return nil, ErrInvalidDays
	}
	if s.provider == nil {
		return nil, ErrProviderNotConfigured
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	feed, err := s.provider.Forecast(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("forecast for %s: %w", q, err)
	}

	zone := s.forecastZone(feed)
	digest := FiveDayForecast(feed.Samples, zone)
	if len(digest) == 0 {
		return nil, ErrNoForecast
	}
	if len(digest) > days {
		digest = digest[:days]
	}
	return NewForecastDays(digest, zone), nil
}

// History delegates to the underlying store.
func (s *Service) History(q Query, from, to time.Time) ([]Dashboard, error) {
	return s.store.GetRange(q, from, to)
}

// Recent delegates to the underlying store.
func (s *Service) Recent(limit int) ([]Dashboard, error) {
	return s.store.Recent(limit)
}

func (s *Service) forecastZone(feed ForecastFeed) *time.Location {
	if s.cfg.CityZone {
		return feed.Zone()
	}
	return time.UTC
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}
