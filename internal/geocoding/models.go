// Package geocoding turns place names into coordinates and back.
package geocoding

import (
	"context"
	"errors"
	"strings"

	"github.com/simbok/delivery/pkg/geo"
)

// Sentinel errors for geocoding operations.
var (
	// ErrNotFound indicates the provider had no match for the query or point.
	ErrNotFound = errors.New("location not found")
	// ErrInvalidQuery indicates an empty query or an out of range point.
	ErrInvalidQuery = errors.New("invalid geocoding query")
	// ErrProviderUnavailable indicates the geocoding provider could not be reached or failed.
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")
)

// Geocoder resolves places.
type Geocoder interface {
	// Geocode returns up to limit places matching query.
	Geocode(ctx context.Context, query string, limit int) ([]Place, error)
	// Reverse returns the place nearest to p.
	Reverse(ctx context.Context, p geo.Point) (*Place, error)
}

// Place is a geocoding hit.
type Place struct {
	Name        string    `json:"name"`
	City        string    `json:"city"`
	Country     string    `json:"country"`
	FullAddress string    `json:"full_address"`
	Point       geo.Point `json:"point"`
}

// FullAddress joins the non-empty parts of a place name with ", ".
func FullAddress(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
