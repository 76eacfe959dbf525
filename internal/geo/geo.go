package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
	"github.com/umahmood/haversine"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceKm returns the great-circle distance between a and b in kilometres.
func DistanceKm(a, b Coordinates) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Lat, Lon: a.Lon},
		haversine.Coord{Lat: b.Lat, Lon: b.Lon},
	)
	return km
}

// ReverseGeocoder turns coordinates into a human readable place name.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, c Coordinates) (string, error)
}

var errNoAddress = errors.New("no address for coordinates")

// geocoder.ApiKey is package state, so concurrent lookups share one key.
var geocoderMu sync.Mutex

// GoogleGeocoder resolves place names through the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey string
	lookup func(geocoder.Location) ([]geocoder.Address, error)
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{
		apiKey: apiKey,
		lookup: geocoder.GeocodingReverse,
	}
}

type reverseResult struct {
	addresses []geocoder.Address
	err       error
}

// Reverse returns the best place name for c. The geocoder library takes no
// context, so the lookup runs in its own goroutine and Reverse returns
// ctx.Err() as soon as ctx is done. An abandoned lookup finishes in the
// background and its result is dropped.
func (g *GoogleGeocoder) Reverse(ctx context.Context, c Coordinates) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	done := make(chan reverseResult, 1)
	go func() {
		geocoderMu.Lock()
		defer geocoderMu.Unlock()

		geocoder.ApiKey = g.apiKey
		addresses, err := g.lookup(geocoder.Location{
			Latitude:  c.Lat,
			Longitude: c.Lon,
		})
		done <- reverseResult{addresses: addresses, err: err}
	}()

	var res reverseResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-done:
	}

	if res.err != nil {
		return "", fmt.Errorf("reverse geocoding %f,%f: %w", c.Lat, c.Lon, res.err)
	}
	if len(res.addresses) == 0 {
		return "", errNoAddress
	}

	addr := res.addresses[0]
	if addr.FormattedAddress != "" {
		return addr.FormattedAddress, nil
	}
	if addr.City != "" {
		if addr.Country != "" {
			return addr.City + ", " + addr.Country, nil
		}
		return addr.City, nil
	}
	return "", errNoAddress
}
