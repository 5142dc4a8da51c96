package handler

import (
	"context"
	"net/http"

	"github.com/simbok/delivery/internal/api/models"
	"github.com/simbok/delivery/internal/api/response"
	"github.com/simbok/delivery/internal/geocoding"
	"github.com/simbok/delivery/pkg/geo"
)

// GeocodeService resolves addresses. *geocoding.Service implements it.
type GeocodeService interface {
	Search(ctx context.Context, query string, limit int) ([]geocoding.Place, error)
	Reverse(ctx context.Context, p geo.Point) (*geocoding.Place, error)
}

// GeocodeHandler handles geocoding endpoints. A nil service answers 404,
// since geocoding is only available with a GraphHopper key.
type GeocodeHandler struct {
	geocoder GeocodeService
}

// NewGeocodeHandler creates a new GeocodeHandler.
func NewGeocodeHandler(geocoder GeocodeService) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder}
}

func (h *GeocodeHandler) available(w http.ResponseWriter, r *http.Request) bool {
	if h.geocoder == nil {
		response.NotFound(w, r, "geocoding is not configured on this server")
		return false
	}
	return true
}

// Search handles POST /v1/geocode.
func (h *GeocodeHandler) Search(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	var body models.GeocodeRequest
	if !decode(w, r, &body) {
		return
	}

	places, err := h.geocoder.Search(r.Context(), body.Query, body.Limit)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, r, models.GeocodeResponse{Success: true, Results: places})
}

// Reverse handles POST /v1/geocode:reverse.
func (h *GeocodeHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	var body models.ReverseGeocodeRequest
	if !decode(w, r, &body) {
		return
	}

	place, err := h.geocoder.Reverse(r.Context(), geo.Point{Lat: *body.Lat, Lng: *body.Lng})
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, r, models.ReverseGeocodeResponse{Success: true, Place: *place})
}
