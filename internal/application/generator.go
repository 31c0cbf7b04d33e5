package application

import (
	"context"
	"sync"
	"time"

	"github.com/isomap/service-isochrone/internal/domain/isochrone"
	"github.com/isomap/service-isochrone/internal/repository"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultFetchInterval keeps fetches under the OpenRouteService free tier limit.
const DefaultFetchInterval = 1500 * time.Millisecond

// IsochroneFetcher retrieves a real isochrone.
type IsochroneFetcher interface {
	Isochrone(ctx context.Context, origin isochrone.Coordinate, minutes float64, mode isochrone.TravelMode) (*geojson.FeatureCollection, error)
}

// GeneratorOptions selects what the generator builds.
type GeneratorOptions struct {
	Locations   []isochrone.Location
	Modes       []isochrone.TravelMode
	Minutes     []float64
	Fetch       bool
	Refresh     bool
	Fill        bool
	Interval    time.Duration
	Concurrency int
}

// DefaultGeneratorOptions covers the full demo catalogue.
func DefaultGeneratorOptions() GeneratorOptions {
	minutes := make([]float64, 0, len(isochrone.DemoMinutes()))
	for _, m := range isochrone.DemoMinutes() {
		minutes = append(minutes, float64(m))
	}
	return GeneratorOptions{
		Locations:   isochrone.DemoLocations(),
		Modes:       isochrone.Modes(),
		Minutes:     minutes,
		Interval:    DefaultFetchInterval,
		Concurrency: 1,
	}
}

// GeneratorReport counts what happened to each cell of the document.
type GeneratorReport struct {
	Total   int `json:"total"`
	Kept    int `json:"kept"`
	Fetched int `json:"fetched"`
	Failed  int `json:"failed"`
	Filled  int `json:"filled"`
	Missing int `json:"missing"`
}

type generatorCell struct {
	location isochrone.Location
	mode     isochrone.TravelMode
	minutes  float64
}

// Generator builds or updates the precomputed store document.
type Generator struct {
	fetcher IsochroneFetcher
	logger  *zap.Logger
}

// NewGenerator creates a Generator. The fetcher may be nil when only filling.
func NewGenerator(fetcher IsochroneFetcher, logger *zap.Logger) *Generator {
	return &Generator{fetcher: fetcher, logger: logger}
}

// Run updates doc in place. Valid entries are kept unless Refresh is set; the rest are
// fetched when Fetch is set, recording an error marker on failure, and finally generated
// when Fill is set. A failed refresh never replaces a valid entry. Only cancellation of
// ctx is returned as an error, after the entries fetched so far are merged into doc.
func (g *Generator) Run(ctx context.Context, doc repository.Document, opts GeneratorOptions) (GeneratorReport, error) {
	var report GeneratorReport
	var pending []generatorCell

	for _, loc := range opts.Locations {
		for _, mode := range opts.Modes {
			for _, minutes := range opts.Minutes {
				report.Total++
				entry, ok := doc.Get(loc.Name, mode.String(), minutes)
				if ok && !entry.IsFailure() && !opts.Refresh {
					report.Kept++
					continue
				}
				pending = append(pending, generatorCell{location: loc, mode: mode, minutes: minutes})
			}
		}
	}

	resolved := make([]bool, len(pending))
	if opts.Fetch && g.fetcher != nil && len(pending) > 0 {
		fetched, err := g.fetchAll(ctx, pending, opts)
		for i, cell := range pending {
			entry := fetched[i]
			if entry == nil {
				continue
			}
			if entry.IsFailure() {
				report.Failed++
				if existing, ok := doc.Get(cell.location.Name, cell.mode.String(), cell.minutes); ok && !existing.IsFailure() {
					continue
				}
			} else {
				report.Fetched++
				resolved[i] = true
			}
			doc.Set(cell.location.Name, cell.mode.String(), cell.minutes, entry)
		}
		if err != nil {
			return report, err
		}
	}

	fetchRan := opts.Fetch && g.fetcher != nil
	for i, cell := range pending {
		if resolved[i] {
			continue
		}
		existing, ok := doc.Get(cell.location.Name, cell.mode.String(), cell.minutes)
		valid := ok && !existing.IsFailure()
		switch {
		case valid && fetchRan:
			// Failed refresh of a valid entry, already counted as failed.
			continue
		case valid:
			report.Kept++
			continue
		case !opts.Fill:
			report.Missing++
			continue
		}

		iso, err := isochrone.Generate(isochrone.Request{Origin: cell.location.Coordinate, Minutes: cell.minutes, Mode: cell.mode})
		if err != nil {
			g.logger.Warn("failed to generate fill isochrone",
				zap.String("location", cell.location.Name),
				zap.String("mode", cell.mode.String()),
				zap.Float64("minutes", cell.minutes),
				zap.Error(err),
			)
			report.Missing++
			continue
		}
		doc.Set(cell.location.Name, cell.mode.String(), cell.minutes, repository.NewCollectionEntry(iso.FeatureCollection()))
		report.Filled++
	}

	g.logger.Info("precomputed document built",
		zap.Int("total", report.Total),
		zap.Int("kept", report.Kept),
		zap.Int("fetched", report.Fetched),
		zap.Int("failed", report.Failed),
		zap.Int("filled", report.Filled),
		zap.Int("missing", report.Missing),
	)
	return report, nil
}

// fetchAll fetches every cell, paced and bounded, and returns one entry per cell in order.
// On cancellation the entries fetched so far are returned with the error; the rest are nil.
func (g *Generator) fetchAll(ctx context.Context, cells []generatorCell, opts GeneratorOptions) ([]*repository.Entry, error) {
	results := make([]*repository.Entry, len(cells))

	var pace <-chan time.Time
	if opts.Interval > 0 {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		pace = ticker.C
	}

	group, groupCtx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		group.SetLimit(opts.Concurrency)
	}

	var mu sync.Mutex
	for i, cell := range cells {
		i, cell := i, cell
		group.Go(func() error {
			if i > 0 && pace != nil {
				select {
				case <-groupCtx.Done():
					return groupCtx.Err()
				case <-pace:
				}
			}

			fc, err := g.fetcher.Isochrone(groupCtx, cell.location.Coordinate, cell.minutes, cell.mode)
			entry := repository.NewCollectionEntry(fc)
			if err != nil {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				g.logger.Warn("isochrone fetch failed",
					zap.String("location", cell.location.Name),
					zap.String("mode", cell.mode.String()),
					zap.Float64("minutes", cell.minutes),
					zap.Error(err),
				)
				entry = repository.NewFailureEntry(err.Error())
			} else {
				g.logger.Info("isochrone fetched",
					zap.String("location", cell.location.Name),
					zap.String("mode", cell.mode.String()),
					zap.Float64("minutes", cell.minutes),
				)
			}

			mu.Lock()
			results[i] = entry
			mu.Unlock()
			return nil
		})
	}

	err := group.Wait()
	return results, err
}
