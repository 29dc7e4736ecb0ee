package platform

import "context"

// Place is a reverse-geocoded location.
type Place struct {
	City    string
	State   string
	Country string
}

// Geocoder resolves coordinates to a human-readable place. Consumed only by
// the profile location-update flow.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error)
}

// NoopGeocoder returns an empty place; coordinates are still stored, only the
// display fields stay blank. Used when no provider is configured.
type NoopGeocoder struct{}

func (NoopGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error) {
	return Place{}, nil
}
