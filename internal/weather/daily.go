package weather

import "time"

const (
	// ForecastDays is the number of days shown in the forecast strip.
	ForecastDays = 5

	middayHour = 12
	dateLayout = "2006-01-02"
)

// DaySample is the representative sample chosen for one calendar date.
type DaySample struct {
	Date   string         `json:"date"`
	Sample ForecastSample `json:"sample"`
}

// DailyDigest collapses an interval feed into one sample per calendar date,
// in the order each date first appears. Dates and hours are taken in zone
// (nil means UTC). For each date the sample whose hour is closest to noon
// wins; on a tie the earlier sample stays.
func DailyDigest(samples []ForecastSample, zone *time.Location) []DaySample {
	if zone == nil {
		zone = time.UTC
	}

	digest := make([]DaySample, 0, ForecastDays)
	index := make(map[string]int)

	for _, s := range samples {
		t := s.Time(zone)
		date := t.Format(dateLayout)

		i, seen := index[date]
		if !seen {
			index[date] = len(digest)
			digest = append(digest, DaySample{Date: date, Sample: s})
			continue
		}

		if distanceFromNoon(t) < distanceFromNoon(digest[i].Sample.Time(zone)) {
			digest[i].Sample = s
		}
	}

	return digest
}

// FiveDayForecast returns at most the first ForecastDays entries of the digest.
func FiveDayForecast(samples []ForecastSample, zone *time.Location) []DaySample {
	digest := DailyDigest(samples, zone)
	if len(digest) > ForecastDays {
		digest = digest[:ForecastDays]
	}
	return digest
}

func distanceFromNoon(t time.Time) int {
	d := t.Hour() - middayHour
	if d < 0 {
		return -d
	}
	return d
}
