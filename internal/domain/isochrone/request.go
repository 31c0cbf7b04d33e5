package isochrone

import (
	"fmt"
	"math"
	"strconv"

	"github.com/isomap/service-isochrone/internal/domain"
	"github.com/paulmach/orb"
)

// Coordinate is an immutable WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the coordinate is finite and within WGS84 ranges.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return &InvalidInputError{Field: "lat", Reason: "latitude must be between -90 and 90"}
	}
	if math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) || c.Lng < -180 || c.Lng > 180 {
		return &InvalidInputError{Field: "lng", Reason: "longitude must be between -180 and 180"}
	}
	return nil
}

// Point returns the coordinate in GeoJSON axis order (lng, lat).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// CoordinateFromPoint converts a GeoJSON position back to a Coordinate.
func CoordinateFromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p.Lat(), Lng: p.Lon()}
}

// Request is the sole input to the approximator.
type Request struct {
	Origin  Coordinate
	Minutes float64
	Mode    TravelMode
}

// Validate checks the origin range and that the travel time is positive.
func (r Request) Validate() error {
	if err := r.Origin.Validate(); err != nil {
		return err
	}
	if math.IsNaN(r.Minutes) || math.IsInf(r.Minutes, 0) || r.Minutes <= 0 {
		return &InvalidInputError{Field: "time", Reason: "travel time must be a positive number of minutes"}
	}
	return nil
}

// CacheKey identifies the request at 4-decimal coordinate precision (~11 m grid).
// Coordinates that round to the same value share a key.
func (r Request) CacheKey() string {
	return CacheKey(r.Origin, r.Minutes, r.Mode)
}

// CacheKey builds the key "{lat:.4f},{lng:.4f}-{minutes}-{mode}".
func CacheKey(origin Coordinate, minutes float64, mode TravelMode) string {
	return formatDegrees(origin.Lat) + "," + formatDegrees(origin.Lng) + "-" + formatMinutes(minutes) + "-" + string(mode)
}

// formatDegrees renders a coordinate at 4 decimals. Values that round to zero from
// below print as "0.0000", not "-0.0000".
func formatDegrees(deg float64) string {
	s := strconv.FormatFloat(deg, 'f', 4, 64)
	if s == "-0.0000" {
		return "0.0000"
	}
	return s
}

// formatMinutes renders minutes in their shortest decimal form: 15, 7.5.
func formatMinutes(minutes float64) string {
	return strconv.FormatFloat(minutes, 'f', -1, 64)
}

// InvalidInputError reports a request rejected before any computation.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PublicMessage returns the reason shown to API clients.
func (e *InvalidInputError) PublicMessage() string {
	return e.Reason
}

// Unwrap classifies the error as a validation failure.
func (e *InvalidInputError) Unwrap() error {
	return domain.ErrValidation
}
