package weather

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/i474232898/weatherpulse/internal/geo"
)

// Query identifies the place a dashboard is requested for: either a city name
// or a coordinate pair. Coordinates take precedence when both are set.
type Query struct {
	City   string           `json:"city,omitempty"`
	Coords *geo.Coordinates `json:"coords,omitempty"`
}

// CityQuery builds a Query for a city name.
func CityQuery(city string) Query {
	return Query{City: strings.TrimSpace(city)}
}

// CoordQuery builds a Query for a latitude/longitude pair.
func CoordQuery(lat, lon float64) Query {
	return Query{Coords: &geo.Coordinates{Lat: lat, Lon: lon}}
}

// ByCoords reports whether the query should be resolved by coordinates.
func (q Query) ByCoords() bool {
	return q.Coords != nil
}

// Key returns a canonical string key for indexing this query in stores.
// Coordinates are rounded to two decimals (roughly 1km).
func (q Query) Key() string {
	if q.Coords != nil {
		return fmt.Sprintf("coord:%.2f,%.2f", round2(q.Coords.Lat), round2(q.Coords.Lon))
	}
	return "city:" + strings.ToLower(q.City)
}

func (q Query) String() string {
	if q.Coords != nil {
		return fmt.Sprintf("%.4f,%.4f", q.Coords.Lat, q.Coords.Lon)
	}
	return q.City
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0 // avoid "-0.00"
	}
	return r
}

// CurrentConditions is the provider's current observation for a place.
type CurrentConditions struct {
	City          string          `json:"city"`
	Country       string          `json:"country"`
	Coords        geo.Coordinates `json:"coords"`
	ObservedAt    int64           `json:"observed_at"`
	Temperature   float64         `json:"temperature"`
	FeelsLike     float64         `json:"feels_like"`
	Humidity      float64         `json:"humidity"`
	Pressure      float64         `json:"pressure"`
	Visibility    float64         `json:"visibility"` // metres
	WindSpeed     float64         `json:"wind_speed"`
	ConditionCode int             `json:"condition_code"`
	Description   string          `json:"condition_description"`
	Sunrise       int64           `json:"sunrise"`
	Sunset        int64           `json:"sunset"`
	UTCOffset     int             `json:"utc_offset"` // seconds east of UTC
}

// Zone returns the fixed offset zone the provider reported for the city.
func (c CurrentConditions) Zone() *time.Location {
	return offsetZone(c.UTCOffset)
}

// AirQuality is the provider's air pollution reading for a coordinate pair.
type AirQuality struct {
	AQI        int                `json:"aqi"`
	Components map[string]float64 `json:"components"`
	MeasuredAt int64              `json:"measured_at"`
}

// ForecastSample is one reported forecast observation at a specific instant.
type ForecastSample struct {
	Timestamp            int64   `json:"timestamp"`
	Temperature          float64 `json:"temperature"`
	TemperatureMin       float64 `json:"temperature_min"`
	TemperatureMax       float64 `json:"temperature_max"`
	ConditionCode        int     `json:"condition_code"`
	ConditionDescription string  `json:"condition_description"`
}

// Time returns the sample instant in the given zone.
func (s ForecastSample) Time(zone *time.Location) time.Time {
	return time.Unix(s.Timestamp, 0).In(zone)
}

// ForecastFeed is the provider's interval forecast, ordered by timestamp.
type ForecastFeed struct {
	City      string           `json:"city"`
	Country   string           `json:"country"`
	Coords    geo.Coordinates  `json:"coords"`
	UTCOffset int              `json:"utc_offset"`
	Samples   []ForecastSample `json:"samples"`
}

// Zone returns the fixed offset zone of the feed's city.
func (f ForecastFeed) Zone() *time.Location {
	return offsetZone(f.UTCOffset)
}

func offsetZone(offset int) *time.Location {
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone("", offset)
}

// Dashboard is the assembled view for one query.
type Dashboard struct {
	ID         string        `json:"id,omitempty"`
	Query      Query         `json:"query"`
	FetchedAt  time.Time     `json:"fetched_at"` // always UTC
	Current    CurrentView   `json:"current"`
	Highlights Highlights    `json:"highlights"`
	Forecast   []ForecastDay `json:"forecast,omitempty"`
	Place      string        `json:"place,omitempty"`
	DistanceKm *float64      `json:"distance_km,omitempty"`
	Available  Availability  `json:"available"`
}

// Availability tells which optional parts of a dashboard arrived.
type Availability struct {
	AirQuality bool `json:"air_quality"`
	Forecast   bool `json:"forecast"`
}

// Complete reports whether every part of the dashboard is present.
func (d Dashboard) Complete() bool {
	return d.Available.AirQuality && d.Available.Forecast
}
