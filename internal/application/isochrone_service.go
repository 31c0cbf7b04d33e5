package application

import (
	"github.com/isomap/service-isochrone/internal/domain/isochrone"
	"github.com/isomap/service-isochrone/internal/repository"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// IsochroneRequest is the request DTO for an approximate isochrone. Pointer fields
// distinguish a missing value from zero.
type IsochroneRequest struct {
	Lat  *float64 `json:"lat" binding:"required"`
	Lng  *float64 `json:"lng" binding:"required"`
	Time *float64 `json:"time" binding:"required"`
	Mode *string  `json:"mode" binding:"required"`
}

// IsochroneResult carries the GeoJSON answer and how it was produced.
type IsochroneResult struct {
	Collection *geojson.FeatureCollection
	Key        string
	Source     isochrone.Source
}

// LocationDTO is a demo origin.
type LocationDTO struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// DemoOptionsDTO lists the choices offered by the landing page demo.
type DemoOptionsDTO struct {
	Locations        []LocationDTO `json:"locations"`
	Modes            []string      `json:"modes"`
	Times            []int         `json:"times"`
	ReferenceMinutes float64       `json:"reference_minutes"`
}

// StoreStatsProvider exposes the precomputed store summary.
type StoreStatsProvider interface {
	Stats() repository.StoreStats
}

// IsochroneService implements the approximate isochrone use cases.
type IsochroneService struct {
	approximator *isochrone.Approximator
	store        StoreStatsProvider
	logger       *zap.Logger
}

// NewIsochroneService creates a new IsochroneService.
func NewIsochroneService(approximator *isochrone.Approximator, store StoreStatsProvider, logger *zap.Logger) *IsochroneService {
	return &IsochroneService{approximator: approximator, store: store, logger: logger}
}

// Approximate answers a request from the precomputed store, by scaling, or by generation.
func (s *IsochroneService) Approximate(req IsochroneRequest) (*IsochroneResult, error) {
	mode, ok := isochrone.ParseTravelMode(*req.Mode)
	if !ok {
		s.logger.Warn("unknown travel mode, using driving profile",
			zap.String("mode", *req.Mode),
		)
	}

	result, err := s.approximator.Approximate(isochrone.Request{
		Origin:  isochrone.Coordinate{Lat: *req.Lat, Lng: *req.Lng},
		Minutes: *req.Time,
		Mode:    mode,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("isochrone served",
		zap.String("key", result.Key),
		zap.String("source", string(result.Source)),
	)
	return &IsochroneResult{
		Collection: result.Isochrone.FeatureCollection(),
		Key:        result.Key,
		Source:     result.Source,
	}, nil
}

// DemoOptions returns the demo locations, modes and travel times.
func (s *IsochroneService) DemoOptions() DemoOptionsDTO {
	locations := isochrone.DemoLocations()
	dto := DemoOptionsDTO{
		Locations:        make([]LocationDTO, len(locations)),
		Times:            isochrone.DemoMinutes(),
		ReferenceMinutes: s.approximator.ReferenceMinutes(),
	}
	for i, loc := range locations {
		dto.Locations[i] = LocationDTO{Name: loc.Name, Lat: loc.Coordinate.Lat, Lng: loc.Coordinate.Lng}
	}
	for _, mode := range isochrone.Modes() {
		dto.Modes = append(dto.Modes, mode.String())
	}
	return dto
}

// StoreStats returns the precomputed store summary.
func (s *IsochroneService) StoreStats() repository.StoreStats {
	if s.store == nil {
		return repository.StoreStats{}
	}
	return s.store.Stats()
}
