package weather

// Icon is a condition icon name understood by the front end.
type Icon string

const (
	IconThunderstorm Icon = "thunderstorm"
	IconRain         Icon = "rain"
	IconSnow         Icon = "snow"
	IconMist         Icon = "mist"
	IconClear        Icon = "clear"
	IconClouds       Icon = "clouds"
)

// IconForCode maps an OpenWeatherMap condition code onto an icon by range.
// See https://openweathermap.org/weather-conditions.
func IconForCode(code int) Icon {
	switch {
	case code >= 200 && code < 300:
		return IconThunderstorm
	case code >= 300 && code < 600:
		return IconRain
	case code >= 600 && code < 700:
		return IconSnow
	case code >= 700 && code < 800:
		return IconMist
	case code == 800:
		return IconClear
	default:
		return IconClouds
	}
}

// AQILevel describes an air quality index value for display.
type AQILevel struct {
	Label     string `json:"label"`
	Color     string `json:"color"`
	TextColor string `json:"text_color"`
}

var aqiLevels = map[int]AQILevel{
	1: {Label: "Good", Color: "#4CAF50", TextColor: "#FFFFFF"},
	2: {Label: "Fair", Color: "#8BC34A", TextColor: "#000000"},
	3: {Label: "Moderate", Color: "#FFC107", TextColor: "#000000"},
	4: {Label: "Poor", Color: "#FF5722", TextColor: "#FFFFFF"},
	5: {Label: "Very Poor", Color: "#9C27B0", TextColor: "#FFFFFF"},
}

// LevelForAQI returns the display level for a 1-5 index; anything else is Unknown.
func LevelForAQI(aqi int) AQILevel {
	if l, ok := aqiLevels[aqi]; ok {
		return l
	}
	return AQILevel{Label: "Unknown", Color: "#9E9E9E", TextColor: "#FFFFFF"}
}
