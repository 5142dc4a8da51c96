// Package polyline encodes and decodes the Google encoded polyline format used by
// OSRM (precision 5 by default, 6 with geometries=polyline6) and GraphHopper
// (points_encoded=true, precision 5).
// The algorithm is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"math"

	"github.com/simbok/delivery/pkg/geo"
)

// Supported coordinate precisions.
const (
	Precision5 = 5
	Precision6 = 6
)

// ErrMalformed is returned when an encoded string ends in the middle of a value.
var ErrMalformed = errors.New("malformed polyline")

// Decode decodes a precision-5 polyline. Malformed input yields the points decoded so far.
func Decode(encoded string) []geo.Point {
	points, _ := DecodePrecision(encoded, Precision5)
	return points
}

// DecodePrecision decodes a polyline encoded with the given number of decimal places.
func DecodePrecision(encoded string, precision int) ([]geo.Point, error) {
	if encoded == "" {
		return nil, nil
	}

	factor := math.Pow10(precision)
	points := make([]geo.Point, 0, len(encoded)/4)
	index, lat, lng := 0, 0, 0

	for index < len(encoded) {
		latDelta, next, ok := decodeValue(encoded, index)
		if !ok {
			return points, ErrMalformed
		}
		lngDelta, next, ok := decodeValue(encoded, next)
		if !ok {
			return points, ErrMalformed
		}
		index = next

		lat += latDelta
		lng += lngDelta
		points = append(points, geo.Point{
			Lat: float64(lat) / factor,
			Lng: float64(lng) / factor,
		})
	}

	return points, nil
}

// decodeValue reads one zig-zag encoded delta starting at index.
// ok is false when the input runs out before the terminating chunk.
func decodeValue(encoded string, index int) (value, next int, ok bool) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), index, true
			}
			return result >> 1, index, true
		}
	}

	return 0, index, false
}

// Encode encodes points with precision 5.
func Encode(points []geo.Point) string {
	return EncodePrecision(points, Precision5)
}

// EncodePrecision encodes points with the given number of decimal places.
func EncodePrecision(points []geo.Point, precision int) string {
	if len(points) == 0 {
		return ""
	}

	factor := math.Pow10(precision)
	buf := make([]byte, 0, len(points)*6)
	prevLat, prevLng := 0, 0

	for _, p := range points {
		lat := int(math.Round(p.Lat * factor))
		lng := int(math.Round(p.Lng * factor))

		buf = encodeValue(buf, lat-prevLat)
		buf = encodeValue(buf, lng-prevLng)

		prevLat, prevLng = lat, lng
	}

	return string(buf)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}

// LengthKm returns the great-circle length of an encoded precision-5 polyline.
func LengthKm(encoded string) float64 {
	return geo.PathKm(Decode(encoded))
}

// ToLngLat converts points to GeoJSON [lng, lat] pairs.
func ToLngLat(points []geo.Point) [][2]float64 {
	if len(points) == 0 {
		return nil
	}
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = [2]float64{p.Lng, p.Lat}
	}
	return out
}
