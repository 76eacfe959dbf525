package weather

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/i474232898/weatherpulse/internal/geo"
)

const (
	currentDateLayout  = "Monday, Jan 2, 2006"
	forecastDateLayout = "Mon, Jan 2"
)

// CurrentView is the headline card for the current conditions.
type CurrentView struct {
	City          string          `json:"city"`
	Country       string          `json:"country"`
	Coords        geo.Coordinates `json:"coords"`
	DateLabel     string          `json:"date_label"`
	Temperature   int             `json:"temperature"`
	Description   string          `json:"description"`
	ConditionCode int             `json:"condition_code"`
	Icon          Icon            `json:"icon"`
	Humidity      float64         `json:"humidity"`
	WindSpeed     float64         `json:"wind_speed"`
}

// ForecastDay is one card of the 5-day strip.
type ForecastDay struct {
	Date          string `json:"date"`
	Label         string `json:"label"`
	Timestamp     int64  `json:"timestamp"`
	Temperature   int    `json:"temperature"`
	High          int    `json:"high"`
	Low           int    `json:"low"`
	ConditionCode int    `json:"condition_code"`
	Description   string `json:"description"`
	Icon          Icon   `json:"icon"`
}

// NewCurrentView formats current conditions for display.
func NewCurrentView(c CurrentConditions) CurrentView {
	v := CurrentView{
		City:          c.City,
		Country:       c.Country,
		Coords:        c.Coords,
		Temperature:   roundHalfUp(c.Temperature),
		Description:   capitalizeWords(c.Description),
		ConditionCode: c.ConditionCode,
		Icon:          IconForCode(c.ConditionCode),
		Humidity:      c.Humidity,
		WindSpeed:     c.WindSpeed,
	}
	if c.ObservedAt != 0 {
		v.DateLabel = time.Unix(c.ObservedAt, 0).In(c.Zone()).Format(currentDateLayout)
	}
	return v
}

// NewForecastDays formats digest entries, labelling dates in zone.
func NewForecastDays(days []DaySample, zone *time.Location) []ForecastDay {
	if zone == nil {
		zone = time.UTC
	}

	out := make([]ForecastDay, 0, len(days))
	for _, d := range days {
		s := d.Sample
		out = append(out, ForecastDay{
			Date:          d.Date,
			Label:         s.Time(zone).Format(forecastDateLayout),
			Timestamp:     s.Timestamp,
			Temperature:   roundHalfUp(s.Temperature),
			High:          roundHalfUp(s.TemperatureMax),
			Low:           roundHalfUp(s.TemperatureMin),
			ConditionCode: s.ConditionCode,
			Description:   capitalizeWords(s.ConditionDescription),
			Icon:          IconForCode(s.ConditionCode),
		})
	}
	return out
}

// roundHalfUp rounds .5 towards positive infinity, as browsers do.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
