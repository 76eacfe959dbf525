package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weatherpulse/internal/geo"
	"github.com/i474232898/weatherpulse/internal/weather"
)

// DefaultOpenWeatherURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5"

var errEmptyQuery = errors.New("query has neither city nor coordinates")

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey, baseURL string, logger *zap.Logger) *OpenWeatherProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}

	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
			Logger:  logger,
		},
		circuit: newCircuitBreaker("openweathermap", logger),
	}
}

// WithBackoff replaces the retry policy.
func (p *OpenWeatherProvider) WithBackoff(b BackoffConfig) *OpenWeatherProvider {
	p.httpCfg.Backoff = b
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owmCoord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c owmCoord) toGeo() geo.Coordinates {
	return geo.Coordinates{Lat: c.Lat, Lon: c.Lon}
}

func (p *OpenWeatherProvider) Current(ctx context.Context, q weather.Query) (weather.CurrentConditions, error) {
	var payload struct {
		Coord   owmCoord       `json:"coord"`
		Weather []owmCondition `json:"weather"`
		Main    struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Pressure  float64 `json:"pressure"`
			Humidity  float64 `json:"humidity"`
		} `json:"main"`
		Visibility float64 `json:"visibility"`
		Wind       struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Dt  int64 `json:"dt"`
		Sys struct {
			Country string `json:"country"`
			Sunrise int64  `json:"sunrise"`
			Sunset  int64  `json:"sunset"`
		} `json:"sys"`
		Timezone int    `json:"timezone"`
		Name     string `json:"name"`
	}

	values, err := locationValues(q)
	if err != nil {
		return weather.CurrentConditions{}, err
	}
	if err := p.get(ctx, "/weather", values, &payload); err != nil {
		return weather.CurrentConditions{}, err
	}

	code, desc := firstCondition(payload.Weather)

	return weather.CurrentConditions{
		City:          payload.Name,
		Country:       payload.Sys.Country,
		Coords:        payload.Coord.toGeo(),
		ObservedAt:    payload.Dt,
		Temperature:   payload.Main.Temp,
		FeelsLike:     payload.Main.FeelsLike,
		Humidity:      payload.Main.Humidity,
		Pressure:      payload.Main.Pressure,
		Visibility:    payload.Visibility,
		WindSpeed:     payload.Wind.Speed,
		ConditionCode: code,
		Description:   desc,
		Sunrise:       payload.Sys.Sunrise,
		Sunset:        payload.Sys.Sunset,
		UTCOffset:     payload.Timezone,
	}, nil
}

func (p *OpenWeatherProvider) AirQuality(ctx context.Context, c geo.Coordinates) (weather.AirQuality, error) {
	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				AQI int `json:"aqi"`
			} `json:"main"`
			Components map[string]float64 `json:"components"`
		} `json:"list"`
	}

	values := url.Values{}
	setCoords(values, c)
	if err := p.get(ctx, "/air_pollution", values, &payload); err != nil {
		return weather.AirQuality{}, err
	}
	if len(payload.List) == 0 {
		return weather.AirQuality{}, fmt.Errorf("%s: empty air pollution list", p.name)
	}

	first := payload.List[0]
	return weather.AirQuality{
		AQI:        first.Main.AQI,
		Components: first.Components,
		MeasuredAt: first.Dt,
	}, nil
}

func (p *OpenWeatherProvider) Forecast(ctx context.Context, q weather.Query) (weather.ForecastFeed, error) {
	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp    float64 `json:"temp"`
				TempMin float64 `json:"temp_min"`
				TempMax float64 `json:"temp_max"`
			} `json:"main"`
			Weather []owmCondition `json:"weather"`
		} `json:"list"`
		City struct {
			Name     string   `json:"name"`
			Country  string   `json:"country"`
			Coord    owmCoord `json:"coord"`
			Timezone int      `json:"timezone"`
		} `json:"city"`
	}

	values, err := locationValues(q)
	if err != nil {
		return weather.ForecastFeed{}, err
	}
	if err := p.get(ctx, "/forecast", values, &payload); err != nil {
		return weather.ForecastFeed{}, err
	}

	feed := weather.ForecastFeed{
		City:      payload.City.Name,
		Country:   payload.City.Country,
		Coords:    payload.City.Coord.toGeo(),
		UTCOffset: payload.City.Timezone,
		Samples:   make([]weather.ForecastSample, 0, len(payload.List)),
	}
	for _, item := range payload.List {
		code, desc := firstCondition(item.Weather)
		feed.Samples = append(feed.Samples, weather.ForecastSample{
			Timestamp:            item.Dt,
			Temperature:          item.Main.Temp,
			TemperatureMin:       item.Main.TempMin,
			TemperatureMax:       item.Main.TempMax,
			ConditionCode:        code,
			ConditionDescription: desc,
		})
	}

	return feed, nil
}

// get issues a GET against path with the API key and metric units added,
// and decodes the JSON body into out.
func (p *OpenWeatherProvider) get(ctx context.Context, path string, values url.Values, out interface{}) error {
	if p.apiKey == "" {
		return fmt.Errorf("%s: %w", p.name, weather.ErrProviderNotConfigured)
	}

	buildRequest := func() (*http.Request, error) {
		v := url.Values{}
		for k, vs := range values {
			v[k] = vs
		}
		v.Set("appid", p.apiKey)
		v.Set("units", "metric")

		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, v.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return fmt.Errorf("%s %s: %w", p.name, path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", p.name, path, err)
	}
	return nil
}

func locationValues(q weather.Query) (url.Values, error) {
	values := url.Values{}
	switch {
	case q.Coords != nil:
		setCoords(values, *q.Coords)
	case q.City != "":
		values.Set("q", q.City)
	default:
		return nil, errEmptyQuery
	}
	return values, nil
}

func setCoords(values url.Values, c geo.Coordinates) {
	values.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
}

func firstCondition(items []owmCondition) (int, string) {
	if len(items) == 0 {
		return 0, ""
	}
	return items[0].ID, items[0].Description
}
