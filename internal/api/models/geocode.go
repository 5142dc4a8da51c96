package models

import "github.com/simbok/delivery/internal/geocoding"

// GeocodeRequest is the body of POST /v1/geocode.
type GeocodeRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate reports an empty query or a negative limit.
func (r *GeocodeRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Query == "" {
		errs = append(errs, FieldError{Field: "query", Message: "is required", Code: CodeRequired})
	}
	if r.Limit < 0 {
		errs = append(errs, FieldError{Field: "limit", Message: "must not be negative", Code: CodeOutOfRange})
	}
	return errs
}

// ReverseGeocodeRequest is the body of POST /v1/geocode:reverse.
type ReverseGeocodeRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// Validate reports missing and out of range coordinates.
func (r *ReverseGeocodeRequest) Validate() []FieldError {
	var errs []FieldError
	errs = requireCoordinate(errs, "lat", r.Lat, 90)
	errs = requireCoordinate(errs, "lng", r.Lng, 180)
	return errs
}

// GeocodeResponse lists matching places.
type GeocodeResponse struct {
	Success bool              `json:"success"`
	Results []geocoding.Place `json:"results"`
}

// ReverseGeocodeResponse is the place nearest to a point.
type ReverseGeocodeResponse struct {
	Success bool            `json:"success"`
	Place   geocoding.Place `json:"place"`
}
