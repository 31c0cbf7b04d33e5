package isochrone

// TravelMode is the mode of transport used to estimate reachable distance.
// Values are the OpenRouteService profile names the persisted store is keyed by.
type TravelMode string

const (
	ModeDriving TravelMode = "driving-car"
	ModeWalking TravelMode = "foot-walking"
	ModeCycling TravelMode = "cycling-regular"
)

// speedsKmh holds the demo average speed for each mode. Not a routing profile.
var speedsKmh = map[TravelMode]float64{
	ModeDriving: 50,
	ModeWalking: 5,
	ModeCycling: 15,
}

var modeAliases = map[string]TravelMode{
	"driving-car":     ModeDriving,
	"driving":         ModeDriving,
	"foot-walking":    ModeWalking,
	"walking":         ModeWalking,
	"cycling-regular": ModeCycling,
	"cycling":         ModeCycling,
}

// Modes returns the supported travel modes in display order.
func Modes() []TravelMode {
	return []TravelMode{ModeDriving, ModeWalking, ModeCycling}
}

// IsValid returns true if the mode is one of the supported travel modes.
func (m TravelMode) IsValid() bool {
	_, ok := speedsKmh[m]
	return ok
}

// SpeedKmh returns the average speed for the mode. Unknown modes use the driving speed.
func (m TravelMode) SpeedKmh() float64 {
	if speed, ok := speedsKmh[m]; ok {
		return speed
	}
	return speedsKmh[ModeDriving]
}

// String returns the canonical identifier of the mode.
func (m TravelMode) String() string {
	return string(m)
}

// ParseTravelMode maps a mode identifier or short alias to a TravelMode.
// Unrecognized identifiers resolve to ModeDriving with ok=false so callers can warn.
func ParseTravelMode(s string) (mode TravelMode, ok bool) {
	if mode, ok := modeAliases[s]; ok {
		return mode, true
	}
	return ModeDriving, false
}
