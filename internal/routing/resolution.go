package routing

import (
	"github.com/shopspring/decimal"

	"github.com/simbok/delivery/pkg/geo"
	"github.com/simbok/delivery/pkg/polyline"
)

// MaxRoadNames is how many distinct road names a resolution keeps.
const MaxRoadNames = 5

// Resolution is the selected route reduced to what a quote needs.
type Resolution struct {
	Provider        string
	DistanceKm      decimal.Decimal // rounded to 2 decimal places
	DistanceMeters  int
	DurationMinutes int // truncated
	RoadNames       []string
	TotalRoads      int
	Alternatives    []Alternative
	Geometry        []geo.Point
	Approximate     bool
}

// Alternative is a non-selected route, compared with the selected one.
type Alternative struct {
	RouteNumber     int // 1-based position in the provider response
	DistanceKm      decimal.Decimal
	DurationMinutes int
	TimeDiffMinutes int
	DistanceDiffKm  decimal.Decimal
}

var thousand = decimal.NewFromInt(1000)

// Summarize selects a route from resp by preference and reduces it to a Resolution.
func Summarize(resp *DirectionsResponse, pref Preference) (*Resolution, error) {
	if resp == nil || len(resp.Routes) == 0 {
		provider := ""
		if resp != nil {
			provider = resp.Provider
		}
		return nil, &Error{
			Provider: provider,
			Code:     "NO_ROUTE",
			Message:  "provider returned no routes",
			Err:      ErrNoRouteFound,
		}
	}

	idx := selectRoute(resp.Routes, pref)
	best := resp.Routes[idx]
	bestMinutes := best.DurationSeconds / 60

	names := distinctRoadNames(best.RoadNames)
	res := &Resolution{
		Provider:        resp.Provider,
		DistanceKm:      metersToKm(best.DistanceMeters),
		DistanceMeters:  int(best.DistanceMeters),
		DurationMinutes: int(bestMinutes),
		TotalRoads:      len(names),
		Approximate:     resp.Approximate,
		Geometry:        decodeGeometry(best),
	}
	if len(names) > MaxRoadNames {
		names = names[:MaxRoadNames]
	}
	res.RoadNames = names

	for i, r := range resp.Routes {
		if i == idx {
			continue
		}
		minutes := r.DurationSeconds / 60
		res.Alternatives = append(res.Alternatives, Alternative{
			RouteNumber:     i + 1,
			DistanceKm:      metersToKm(r.DistanceMeters),
			DurationMinutes: int(minutes),
			TimeDiffMinutes: int(minutes - bestMinutes),
			DistanceDiffKm:  metersToKm(r.DistanceMeters - best.DistanceMeters),
		})
	}

	return res, nil
}

// selectRoute returns the first route for fastest, or the first route with the
// minimum distance for shortest.
func selectRoute(routes []Route, pref Preference) int {
	if pref != PreferenceShortest {
		return 0
	}
	idx := 0
	for i, r := range routes {
		if r.DistanceMeters < routes[idx].DistanceMeters {
			idx = i
		}
	}
	return idx
}

func metersToKm(m float64) decimal.Decimal {
	return decimal.NewFromFloat(m).Div(thousand).Round(2)
}

// distinctRoadNames keeps the first occurrence of every non-empty name.
func distinctRoadNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// decodeGeometry decodes the route polyline. A malformed polyline yields no geometry.
func decodeGeometry(r Route) []geo.Point {
	if r.GeometryPolyline == "" {
		return nil
	}
	precision := r.GeometryPrecision
	if precision == 0 {
		precision = polyline.Precision5
	}
	points, err := polyline.DecodePrecision(r.GeometryPolyline, precision)
	if err != nil {
		return nil
	}
	return points
}
