package graphhopper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/simbok/delivery/internal/geocoding"
	"github.com/simbok/delivery/pkg/geo"
)

// Geocode searches places by name.
func (c *Client) Geocode(ctx context.Context, query string, limit int) ([]geocoding.Place, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("locale", c.locale)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("key", c.apiKey)

	hits, err := c.geocode(ctx, q)
	if err != nil {
		return nil, err
	}

	places := make([]geocoding.Place, 0, len(hits))
	for _, h := range hits {
		places = append(places, toPlace(h))
	}
	return places, nil
}

// Reverse looks up the place nearest to p.
func (c *Client) Reverse(ctx context.Context, p geo.Point) (*geocoding.Place, error) {
	q := url.Values{}
	q.Set("point", p.String())
	q.Set("reverse", "true")
	q.Set("locale", c.locale)
	q.Set("key", c.apiKey)

	hits, err := c.geocode(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, geocoding.ErrNotFound
	}

	place := toPlace(hits[0])
	return &place, nil
}

func (c *Client) geocode(ctx context.Context, q url.Values) ([]hit, error) {
	status, body, err := c.get(ctx, "/api/1/geocode", q)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", geocoding.ErrProviderUnavailable, err)
	}

	if status != http.StatusOK {
		var ghErr errorResponse
		_ = json.Unmarshal(body, &ghErr)
		if status == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", geocoding.ErrInvalidQuery, ghErr.Message)
		}
		return nil, fmt.Errorf("%w: status %d", geocoding.ErrProviderUnavailable, status)
	}

	var parsed geocodeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", geocoding.ErrProviderUnavailable, err)
	}

	c.logger.Debug().Int("hit_count", len(parsed.Hits)).Msg("received geocoding hits from GraphHopper")

	return parsed.Hits, nil
}

func toPlace(h hit) geocoding.Place {
	return geocoding.Place{
		Name:        h.Name,
		City:        h.City,
		Country:     h.Country,
		FullAddress: geocoding.FullAddress(h.Name, h.City, h.Country),
		Point:       geo.Point{Lat: h.Point.Lat, Lng: h.Point.Lng},
	}
}
