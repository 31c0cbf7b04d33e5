package repository

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/isomap/service-isochrone/internal/domain/isochrone"
	"go.uber.org/zap"
)

// StoreStats summarizes what a precomputed document contributed to the index.
type StoreStats struct {
	Locations int `json:"locations"`
	Entries   int `json:"entries"`
	Indexed   int `json:"indexed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// FileIsochroneRepository serves precomputed isochrones indexed by cache key.
// It is built once and never mutated, so concurrent lookups need no locking.
type FileIsochroneRepository struct {
	index map[string]*isochrone.Isochrone
	stats StoreStats
}

// NewFileIsochroneRepository indexes every usable entry of doc. Entries of a named demo
// location are keyed by that location's coordinate, the one requests are made for.
// Other entries are keyed by their feature's "center" property.
func NewFileIsochroneRepository(doc Document, locations []isochrone.Location, logger *zap.Logger) *FileIsochroneRepository {
	r := &FileIsochroneRepository{index: make(map[string]*isochrone.Isochrone)}
	r.stats.Locations = len(doc)

	for _, name := range sortedKeys(doc) {
		var origin *isochrone.Coordinate
		if loc, ok := isochrone.FindLocation(locations, name); ok {
			origin = &loc.Coordinate
		}

		for _, modeKey := range sortedKeys(doc[name]) {
			mode, modeOK := isochrone.ParseTravelMode(modeKey)

			for _, minutesKey := range sortedKeys(doc[name][modeKey]) {
				entry := doc[name][modeKey][minutesKey]
				r.stats.Entries++

				if entry.IsFailure() {
					r.stats.Failed++
					continue
				}

				minutes, err := strconv.ParseFloat(minutesKey, 64)
				if !modeOK || err != nil || minutes <= 0 {
					r.stats.Skipped++
					logger.Warn("skipping precomputed entry with unusable key",
						zap.String("location", name),
						zap.String("mode", modeKey),
						zap.String("minutes", minutesKey),
					)
					continue
				}

				iso, err := toIsochroneDomain(entry, origin, minutes, mode)
				if err != nil {
					r.stats.Skipped++
					logger.Warn("skipping malformed precomputed entry",
						zap.String("location", name),
						zap.String("mode", modeKey),
						zap.String("minutes", minutesKey),
						zap.Error(err),
					)
					continue
				}

				key := iso.CacheKey()
				if _, exists := r.index[key]; exists {
					r.stats.Skipped++
					logger.Warn("duplicate precomputed cache key", zap.String("key", key))
					continue
				}
				r.index[key] = iso
				r.stats.Indexed++
			}
		}
	}

	logger.Info("precomputed store indexed",
		zap.Int("locations", r.stats.Locations),
		zap.Int("entries", r.stats.Entries),
		zap.Int("indexed", r.stats.Indexed),
		zap.Int("failed", r.stats.Failed),
		zap.Int("skipped", r.stats.Skipped),
	)
	return r
}

// LoadFileIsochroneRepository reads and indexes the document at path. A missing file
// yields an empty repository so the service can still generate every answer.
func LoadFileIsochroneRepository(path string, locations []isochrone.Location, logger *zap.Logger) (*FileIsochroneRepository, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("precomputed store not found, every request will be generated",
				zap.String("path", path),
			)
			return NewFileIsochroneRepository(Document{}, locations, logger), nil
		}
		return nil, err
	}
	return NewFileIsochroneRepository(doc, locations, logger), nil
}

// Lookup returns the stored isochrone for a cache key.
func (r *FileIsochroneRepository) Lookup(key string) (*isochrone.Isochrone, bool) {
	iso, ok := r.index[key]
	return iso, ok
}

// Len returns the number of indexed isochrones.
func (r *FileIsochroneRepository) Len() int {
	return len(r.index)
}

// Stats returns the indexing summary.
func (r *FileIsochroneRepository) Stats() StoreStats {
	return r.stats
}

func toIsochroneDomain(entry *Entry, origin *isochrone.Coordinate, minutes float64, mode isochrone.TravelMode) (*isochrone.Isochrone, error) {
	iso, err := isochrone.FromFeatureCollection(entry.Collection, origin, minutes, mode)
	if err != nil {
		return nil, fmt.Errorf("invalid feature collection: %w", err)
	}
	if err := iso.Origin().Validate(); err != nil {
		return nil, err
	}
	return iso, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
