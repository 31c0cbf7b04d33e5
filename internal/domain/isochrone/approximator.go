package isochrone

// DefaultReferenceMinutes is the travel time of the base polygons used for scaling.
const DefaultReferenceMinutes = 15

// Lookup finds previously computed isochrones by cache key. Implementations must be
// safe for concurrent reads.
type Lookup interface {
	Lookup(key string) (*Isochrone, bool)
}

// Source records which path of the lookup precedence produced a result.
type Source string

const (
	SourcePrecomputed Source = "precomputed"
	SourceScaled      Source = "scaled"
	SourceGenerated   Source = "generated"
)

// Result is the approximator output.
type Result struct {
	Isochrone *Isochrone
	Source    Source
	Key       string
}

// Option configures an Approximator.
type Option func(*Approximator)

// WithLookup sets the precomputed store consulted before generating.
func WithLookup(lookup Lookup) Option {
	return func(a *Approximator) {
		a.lookup = lookup
	}
}

// WithReferenceMinutes sets the travel time of the base polygons used for scaling.
func WithReferenceMinutes(minutes float64) Option {
	return func(a *Approximator) {
		if minutes > 0 {
			a.referenceMinutes = minutes
		}
	}
}

// Approximator answers isochrone requests without any live routing call.
// It holds no mutable state.
type Approximator struct {
	lookup           Lookup
	referenceMinutes float64
}

// NewApproximator creates an Approximator. Without a lookup every request is generated.
func NewApproximator(opts ...Option) *Approximator {
	a := &Approximator{referenceMinutes: DefaultReferenceMinutes}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ReferenceMinutes returns the travel time of the base polygons used for scaling.
func (a *Approximator) ReferenceMinutes() float64 {
	return a.referenceMinutes
}

// Approximate returns the isochrone for req, preferring in order an exact precomputed
// entry, a polygon scaled from the reference-time entry for the same origin and mode,
// and finally a freshly generated polygon.
func (a *Approximator) Approximate(req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := req.CacheKey()

	if a.lookup != nil {
		if iso, ok := a.lookup.Lookup(key); ok {
			return &Result{Isochrone: iso, Source: SourcePrecomputed, Key: key}, nil
		}

		if req.Minutes != a.referenceMinutes {
			baseKey := CacheKey(req.Origin, a.referenceMinutes, req.Mode)
			if base, ok := a.lookup.Lookup(baseKey); ok {
				scaled, err := Scale(base, req.Minutes)
				if err == nil {
					return &Result{Isochrone: scaled, Source: SourceScaled, Key: key}, nil
				}
			}
		}
	}

	iso, err := Generate(req)
	if err != nil {
		return nil, err
	}
	return &Result{Isochrone: iso, Source: SourceGenerated, Key: key}, nil
}
