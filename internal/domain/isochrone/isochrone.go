package isochrone

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

// minRingPositions is the smallest closed ring: a triangle plus its closing position.
const minRingPositions = 4

// Isochrone is a closed polygon approximating the area reachable from an origin.
type Isochrone struct {
	origin  Coordinate
	minutes float64
	mode    TravelMode
	ring    orb.Ring
	note    string

	// source is the collection the isochrone was parsed from, served unchanged.
	source *geojson.FeatureCollection
}

// NewIsochrone creates an Isochrone, rejecting rings that are open or degenerate.
func NewIsochrone(origin Coordinate, minutes float64, mode TravelMode, ring orb.Ring, note string) (*Isochrone, error) {
	if len(ring) < minRingPositions {
		return nil, fmt.Errorf("ring has %d positions, need at least %d", len(ring), minRingPositions)
	}
	if !ring.Closed() {
		return nil, errors.New("ring is not closed")
	}
	return &Isochrone{
		origin:  origin,
		minutes: minutes,
		mode:    mode,
		ring:    ring.Clone(),
		note:    note,
	}, nil
}

// --- Getters ---

// Origin returns the center the isochrone was computed from.
func (i *Isochrone) Origin() Coordinate { return i.origin }

// Minutes returns the travel time in minutes.
func (i *Isochrone) Minutes() float64 { return i.minutes }

// Mode returns the travel mode.
func (i *Isochrone) Mode() TravelMode { return i.mode }

// Note returns the approximation note, empty for real routing data.
func (i *Isochrone) Note() string { return i.note }

// Ring returns a copy of the boundary ring in (lng, lat) order.
func (i *Isochrone) Ring() orb.Ring { return i.ring.Clone() }

// ValueSeconds returns the travel time in seconds, the GeoJSON "value" property.
func (i *Isochrone) ValueSeconds() float64 { return i.minutes * 60 }

// CacheKey returns the cache key of the request this isochrone answers.
func (i *Isochrone) CacheKey() string {
	return CacheKey(i.origin, i.minutes, i.mode)
}

// AreaSquareMeters returns the approximate geodesic area enclosed by the ring.
func (i *Isochrone) AreaSquareMeters() float64 {
	return geo.Area(orb.Polygon{i.ring})
}

// --- GeoJSON ---

// FeatureCollection renders the isochrone as a FeatureCollection holding exactly one
// Polygon feature with a single ring. Isochrones parsed from stored or fetched data
// return that collection as-is, with every property it carries. Callers must not
// modify it.
func (i *Isochrone) FeatureCollection() *geojson.FeatureCollection {
	if i.source != nil {
		return i.source
	}

	feature := geojson.NewFeature(orb.Polygon{i.ring.Clone()})
	feature.Properties["value"] = i.ValueSeconds()
	feature.Properties["center"] = []float64{i.origin.Lng, i.origin.Lat}
	if i.note != "" {
		feature.Properties["note"] = i.note
	}

	fc := geojson.NewFeatureCollection()
	fc.Append(feature)
	return fc
}

// FromFeatureCollection parses a stored or fetched FeatureCollection. A non-nil origin
// is the coordinate the data was requested for and wins over the first feature's
// "center" property, which routing engines snap to the road network.
func FromFeatureCollection(fc *geojson.FeatureCollection, origin *Coordinate, minutes float64, mode TravelMode) (*Isochrone, error) {
	if fc == nil || len(fc.Features) == 0 {
		return nil, errors.New("feature collection has no features")
	}
	feature := fc.Features[0]

	polygon, ok := feature.Geometry.(orb.Polygon)
	if !ok {
		return nil, fmt.Errorf("unsupported geometry type %T", feature.Geometry)
	}
	if len(polygon) == 0 {
		return nil, errors.New("polygon has no rings")
	}

	var center Coordinate
	if origin != nil {
		center = *origin
	} else if center, ok = centerProperty(feature.Properties); !ok {
		return nil, errors.New("feature has no center and no origin was given")
	}

	note, _ := feature.Properties["note"].(string)
	iso, err := NewIsochrone(center, minutes, mode, polygon[0], note)
	if err != nil {
		return nil, err
	}
	iso.source = fc
	return iso, nil
}

func centerProperty(props geojson.Properties) (Coordinate, bool) {
	switch center := props["center"].(type) {
	case []interface{}:
		if len(center) != 2 {
			return Coordinate{}, false
		}
		lng, okLng := center[0].(float64)
		lat, okLat := center[1].(float64)
		if !okLng || !okLat {
			return Coordinate{}, false
		}
		return Coordinate{Lat: lat, Lng: lng}, true
	case []float64:
		if len(center) != 2 {
			return Coordinate{}, false
		}
		return Coordinate{Lat: center[1], Lng: center[0]}, true
	}
	return Coordinate{}, false
}
