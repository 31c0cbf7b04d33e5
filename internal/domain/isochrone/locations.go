package isochrone

// Location is a named demo origin.
type Location struct {
	Name       string     `json:"name"`
	Coordinate Coordinate `json:"coordinate"`
}

var demoLocations = []Location{
	{Name: "New York, NY", Coordinate: Coordinate{Lat: 40.7128, Lng: -74.0060}},
	{Name: "San Francisco, CA", Coordinate: Coordinate{Lat: 37.7749, Lng: -122.4194}},
	{Name: "Chicago, IL", Coordinate: Coordinate{Lat: 41.8781, Lng: -87.6298}},
	{Name: "Austin, TX", Coordinate: Coordinate{Lat: 30.2672, Lng: -97.7431}},
	{Name: "Seattle, WA", Coordinate: Coordinate{Lat: 47.6062, Lng: -122.3321}},
	{Name: "London, UK", Coordinate: Coordinate{Lat: 51.5074, Lng: -0.1278}},
}

var demoMinutes = []int{5, 10, 15, 30, 60}

// DemoLocations returns the origins offered by the landing page demo.
func DemoLocations() []Location {
	out := make([]Location, len(demoLocations))
	copy(out, demoLocations)
	return out
}

// DemoMinutes returns the travel times offered by the landing page demo.
func DemoMinutes() []int {
	out := make([]int, len(demoMinutes))
	copy(out, demoMinutes)
	return out
}

// FindLocation returns the demo location with the given name.
func FindLocation(locations []Location, name string) (Location, bool) {
	for _, loc := range locations {
		if loc.Name == name {
			return loc, true
		}
	}
	return Location{}, false
}
