package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/i474232898/weatherpulse/internal/geo"
	"github.com/i474232898/weatherpulse/internal/store"
	"github.com/i474232898/weatherpulse/internal/weather"
)

// stubProvider answers every lookup with fixed London data, or with err.
type stubProvider struct {
	err error
}

func (p stubProvider) Name() string { return "stub" }

func (p stubProvider) Current(ctx context.Context, q weather.Query) (weather.CurrentConditions, error) {
	if p.err != nil {
		return weather.CurrentConditions{}, p.err
	}
	return weather.CurrentConditions{
		City:          "London",
		Country:       "GB",
		Coords:        geo.Coordinates{Lat: 51.5085, Lon: -0.1257},
		ObservedAt:    time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC).Unix(),
		Temperature:   17.6,
		ConditionCode: 800,
		Description:   "clear sky",
	}, nil
}

func (p stubProvider) AirQuality(ctx context.Context, c geo.Coordinates) (weather.AirQuality, error) {
	if p.err != nil {
		return weather.AirQuality{}, p.err
	}
	return weather.AirQuality{AQI: 2}, nil
}

func (p stubProvider) Forecast(ctx context.Context, q weather.Query) (weather.ForecastFeed, error) {
	if p.err != nil {
		return weather.ForecastFeed{}, p.err
	}
	start := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	var samples []weather.ForecastSample
	for i := 0; i < 40; i++ {
		samples = append(samples, weather.ForecastSample{
			Timestamp:     start.Add(time.Duration(i*3) * time.Hour).Unix(),
			Temperature:   float64(10 + i%8),
			ConditionCode: 801,
		})
	}
	return weather.ForecastFeed{City: "London", Samples: samples}, nil
}

func newTestApp(provider weather.Provider) *fiber.App {
	svc := weather.NewService(store.NewMemoryStore(10, time.Hour), provider, nil, weather.ServiceConfig{}, nil)
	return NewApp(svc, nil)
}

func doGet(t *testing.T, app *fiber.App, target string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

func expectStatus(t *testing.T, app *fiber.App, target string, want int) *http.Response {
	t.Helper()
	resp := doGet(t, app, target)
	if resp.StatusCode != want {
		t.Fatalf("GET %s: expected status %d, got %d", target, want, resp.StatusCode)
	}
	return resp
}

func TestHealth(t *testing.T) {
	app := newTestApp(stubProvider{})

	resp := expectStatus(t, app, "/health", http.StatusOK)

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body %v", body)
	}
}

// TestForecastDaysValidation verifies that the forecast endpoint enforces the
// 1-5 range for the `days` query parameter and defaults to 5.
func TestForecastDaysValidation(t *testing.T) {
	app := newTestApp(stubProvider{})

	expectStatus(t, app, "/api/v1/weather/forecast?city=Paris&days=8", http.StatusBadRequest)
	expectStatus(t, app, "/api/v1/weather/forecast?city=Paris&days=0", http.StatusBadRequest)
	expectStatus(t, app, "/api/v1/weather/forecast?city=Paris&days=abc", http.StatusBadRequest)

	resp := expectStatus(t, app, "/api/v1/weather/forecast?city=Paris", http.StatusOK)
	var body struct {
		Days []weather.ForecastDay `json:"days"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.Days) != weather.ForecastDays {
		t.Fatalf("expected %d days by default, got %d", weather.ForecastDays, len(body.Days))
	}

	resp = expectStatus(t, app, "/api/v1/weather/forecast?city=Paris&days=2", http.StatusOK)
	body.Days = nil
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(body.Days))
	}
}

func TestLocationValidation(t *testing.T) {
	app := newTestApp(stubProvider{})

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing location", "/api/v1/dashboard", http.StatusBadRequest},
		{"lat without lon", "/api/v1/dashboard?lat=51.5", http.StatusBadRequest},
		{"lon without lat", "/api/v1/dashboard?lon=-0.12", http.StatusBadRequest},
		{"latitude out of range", "/api/v1/dashboard?lat=91&lon=0", http.StatusBadRequest},
		{"city", "/api/v1/dashboard?city=London", http.StatusOK},
		{"coordinates", "/api/v1/dashboard?lat=51.5&lon=-0.12", http.StatusOK},
		{"air quality needs coordinates", "/api/v1/weather/air-quality?city=London", http.StatusBadRequest},
		{"air quality", "/api/v1/weather/air-quality?lat=51.5&lon=-0.12", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, app, tt.target, tt.want)
		})
	}
}

func TestDashboard(t *testing.T) {
	app := newTestApp(stubProvider{})

	resp := expectStatus(t, app, "/api/v1/dashboard?city=London", http.StatusOK)

	var d weather.Dashboard
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if d.Current.City != "London" || d.Current.Temperature != 18 {
		t.Fatalf("unexpected current view %+v", d.Current)
	}
	if d.Current.Icon != weather.IconClear {
		t.Fatalf("expected clear icon, got %q", d.Current.Icon)
	}
	if len(d.Forecast) != weather.ForecastDays || !d.Available.AirQuality {
		t.Fatalf("expected a complete dashboard, got %+v", d.Available)
	}
}

func TestUpstreamErrorMapping(t *testing.T) {
	expectStatus(t, newTestApp(stubProvider{err: weather.ErrLocationNotFound}),
		"/api/v1/dashboard?city=Atlantis", http.StatusNotFound)

	expectStatus(t, newTestApp(stubProvider{err: context.DeadlineExceeded}),
		"/api/v1/weather/current?city=London", http.StatusGatewayTimeout)

	expectStatus(t, newTestApp(nil),
		"/api/v1/dashboard?city=London", http.StatusServiceUnavailable)
}

func TestRecentSearches(t *testing.T) {
	app := newTestApp(stubProvider{})

	expectStatus(t, app, "/api/v1/searches/recent?limit=0", http.StatusBadRequest)
	expectStatus(t, app, "/api/v1/searches/recent?limit=51", http.StatusBadRequest)

	expectStatus(t, app, "/api/v1/dashboard?city=London", http.StatusOK)

	resp := expectStatus(t, app, "/api/v1/searches/recent", http.StatusOK)
	var body struct {
		Searches []weather.Dashboard `json:"searches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.Searches) != 1 || body.Searches[0].Query.City != "London" {
		t.Fatalf("unexpected recent searches %+v", body.Searches)
	}
}

func TestHistoryValidation(t *testing.T) {
	app := newTestApp(stubProvider{})

	expectStatus(t, app, "/api/v1/weather/history?city=London", http.StatusBadRequest)
	expectStatus(t, app, "/api/v1/weather/history?city=London&from=yesterday&to=1748772000", http.StatusBadRequest)
	expectStatus(t, app, "/api/v1/weather/history?city=London&from=1748772000&to=1748768400", http.StatusBadRequest)
	expectStatus(t, app, "/api/v1/weather/history?city=London&from=1748768400&to=1748772000", http.StatusNotFound)
}

func TestUnknownEndpoint(t *testing.T) {
	expectStatus(t, newTestApp(stubProvider{}), "/api/v1/nope", http.StatusNotFound)
}

func TestUpstreamErrorStatus(t *testing.T) {
	q := weather.CityQuery("London")

	tests := []struct {
		name     string
		err      error
		want     int
		errorLog bool
	}{
		{"location not found", weather.ErrLocationNotFound, fiber.StatusNotFound, false},
		{"invalid days", weather.ErrInvalidDays, fiber.StatusBadRequest, false},
		{"client went away", fmt.Errorf("current conditions for London: %w", context.Canceled), statusClientClosedRequest, false},
		{"timeout", context.DeadlineExceeded, fiber.StatusGatewayTimeout, true},
		{"not configured", weather.ErrProviderNotConfigured, fiber.StatusServiceUnavailable, true},
		{"provider failure", errors.New("boom"), fiber.StatusBadGateway, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.ErrorLevel)

			err := upstreamError(zap.New(core), "current weather", q, tt.err)

			var fe *fiber.Error
			if !errors.As(err, &fe) {
				t.Fatalf("expected *fiber.Error, got %T", err)
			}
			if fe.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, fe.Code)
			}
			if got := logs.Len() > 0; got != tt.errorLog {
				t.Fatalf("error logged = %v, want %v", got, tt.errorLog)
			}
		})
	}
}
