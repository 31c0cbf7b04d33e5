package isochrone

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	// kmPerDegreeLat is the rough length of one degree of latitude.
	kmPerDegreeLat = 111.0

	// minCosLatitude bounds the longitude correction near the poles (cos 89.43°).
	minCosLatitude = 0.01

	// ApproximateNote marks polygons synthesized without routing data.
	ApproximateNote = "Approximate demo data"
)

// irregularityFactors perturb the radius per vertex so the polygon does not read as a
// perfect circle. Fixed so identical requests produce identical polygons.
var irregularityFactors = [...]float64{
	1.1, 1.0, 0.9, 1.05, 0.95, 1.15, 0.85, 1.0,
	0.95, 1.1, 1.0, 0.9, 1.05, 0.95, 1.1, 0.9,
	1.0, 1.05, 0.95, 1.1, 0.9, 1.0, 1.05, 0.95,
}

// Vertices is the number of distinct vertices of a generated ring.
const Vertices = len(irregularityFactors)

// DistanceKm returns the straight-line distance covered at the mode's demo speed.
func DistanceKm(minutes float64, mode TravelMode) float64 {
	return mode.SpeedKmh() * minutes / 60
}

// DegreeDeltas converts a distance to latitude and longitude spans at the given latitude.
func DegreeDeltas(distanceKm, latitude float64) (degLat, degLng float64) {
	cosLat := math.Cos(latitude * math.Pi / 180)
	if cosLat < minCosLatitude {
		cosLat = minCosLatitude
	}
	return distanceKm / kmPerDegreeLat, distanceKm / (kmPerDegreeLat * cosLat)
}

// Generate synthesizes an irregular polygon around the origin from the mode's speed.
// The ring is counter-clockwise, has Vertices distinct positions and is closed by
// repeating the first one.
func Generate(req Request) (*Isochrone, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	degLat, degLng := DegreeDeltas(DistanceKm(req.Minutes, req.Mode), req.Origin.Lat)

	ring := make(orb.Ring, 0, Vertices+1)
	for i, factor := range irregularityFactors {
		angle := float64(i) / float64(Vertices) * 2 * math.Pi
		ring = append(ring, orb.Point{
			req.Origin.Lng + degLng*factor*math.Cos(angle),
			req.Origin.Lat + degLat*factor*math.Sin(angle),
		})
	}
	ring = append(ring, ring[0])

	return NewIsochrone(req.Origin, req.Minutes, req.Mode, ring, ApproximateNote)
}

// Scale derives an isochrone for another travel time from a base polygon by scaling every
// vertex radially from the base origin by sqrt(minutes / base minutes). Area grows with the
// square of the linear distance, so nested times keep the same shape.
func Scale(base *Isochrone, minutes float64) (*Isochrone, error) {
	req := Request{Origin: base.Origin(), Minutes: minutes, Mode: base.Mode()}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if base.Minutes() <= 0 {
		return nil, fmt.Errorf("base isochrone has non-positive travel time %v", base.Minutes())
	}

	factor := math.Sqrt(minutes / base.Minutes())
	center := base.Origin()

	src := base.ring
	ring := make(orb.Ring, len(src))
	for i, p := range src {
		ring[i] = orb.Point{
			center.Lng + (p.Lon()-center.Lng)*factor,
			center.Lat + (p.Lat()-center.Lat)*factor,
		}
	}

	return NewIsochrone(center, minutes, base.Mode(), ring, ScaledNote(base.Minutes()))
}

// ScaledNote describes a polygon derived by Scale.
func ScaledNote(referenceMinutes float64) string {
	return "Scaled from " + formatMinutes(referenceMinutes) + "-minute isochrone"
}
