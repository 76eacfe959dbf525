package weather

import (
	"fmt"
	"strconv"
	"time"
)

const clockLayout = "3:04 PM"

// Highlights are the "today" cards derived from current conditions and air quality.
type Highlights struct {
	Humidity   string          `json:"humidity"`
	Pressure   string          `json:"pressure"`
	Visibility string          `json:"visibility"`
	FeelsLike  string          `json:"feels_like"`
	Sunrise    string          `json:"sunrise"`
	Sunset     string          `json:"sunset"`
	DayLength  string          `json:"day_length"`
	AirQuality *AirQualityView `json:"air_quality,omitempty"`
}

// AirQualityView is the air quality card.
type AirQualityView struct {
	Index      int                `json:"index"`
	Level      AQILevel           `json:"level"`
	Components map[string]float64 `json:"components,omitempty"`
}

// NewHighlights derives the highlight cards. aq may be nil when the air
// quality reading did not arrive.
func NewHighlights(c CurrentConditions, aq *AirQuality) Highlights {
	zone := c.Zone()

	h := Highlights{
		Humidity:   formatNumber(c.Humidity) + "%",
		Pressure:   formatNumber(c.Pressure) + " hPa",
		Visibility: fmt.Sprintf("%.1f km", c.Visibility/1000),
		FeelsLike:  fmt.Sprintf("%d°C", roundHalfUp(c.FeelsLike)),
		Sunrise:    clockTime(c.Sunrise, zone),
		Sunset:     clockTime(c.Sunset, zone),
		DayLength:  DayLength(c.Sunrise, c.Sunset),
	}
	if aq != nil {
		view := NewAirQualityView(*aq)
		h.AirQuality = &view
	}
	return h
}

// NewAirQualityView labels an air quality reading.
func NewAirQualityView(aq AirQuality) AirQualityView {
	return AirQualityView{
		Index:      aq.AQI,
		Level:      LevelForAQI(aq.AQI),
		Components: aq.Components,
	}
}

// DayLength formats the time between sunrise and sunset as "Xh Ym".
func DayLength(sunrise, sunset int64) string {
	if sunrise == 0 || sunset <= sunrise {
		return ""
	}
	secs := sunset - sunrise
	return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
}

func clockTime(unix int64, zone *time.Location) string {
	if unix == 0 {
		return ""
	}
	return time.Unix(unix, 0).In(zone).Format(clockLayout)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
