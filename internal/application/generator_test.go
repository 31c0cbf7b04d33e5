package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/isomap/service-isochrone/internal/domain/isochrone"
	"github.com/isomap/service-isochrone/internal/repository"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
	times []time.Time
}

func (f *fakeFetcher) Isochrone(_ context.Context, origin isochrone.Coordinate, minutes float64, mode isochrone.TravelMode) (*geojson.FeatureCollection, error) {
	key := isochrone.CacheKey(origin, minutes, mode)

	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.times = append(f.times, time.Now())
	fail := f.fail[key]
	f.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("API error 500 for %s", key)
	}
	iso, err := isochrone.Generate(isochrone.Request{Origin: origin, Minutes: minutes, Mode: mode})
	if err != nil {
		return nil, err
	}
	fc := iso.FeatureCollection()
	delete(fc.Features[0].Properties, "note")
	return fc, nil
}

var generatorTestLocation = isochrone.Location{Name: "Austin, TX", Coordinate: isochrone.Coordinate{Lat: 30.2672, Lng: -97.7431}}

func smallOptions() GeneratorOptions {
	return GeneratorOptions{
		Locations: []isochrone.Location{generatorTestLocation},
		Modes:     []isochrone.TravelMode{isochrone.ModeDriving},
		Minutes:   []float64{5, 15},
	}
}

func TestGenerator_FetchKeepsExistingAndMarksFailures(t *testing.T) {
	existing, err := isochrone.Generate(isochrone.Request{Origin: generatorTestLocation.Coordinate, Minutes: 5, Mode: isochrone.ModeDriving})
	require.NoError(t, err)

	doc := make(repository.Document)
	doc.Set("Austin, TX", "driving-car", 5, repository.NewCollectionEntry(existing.FeatureCollection()))

	opts := smallOptions()
	opts.Minutes = []float64{5, 15, 30}
	opts.Fetch = true

	fetcher := &fakeFetcher{fail: map[string]bool{"30.2672,-97.7431-30-driving-car": true}}
	report, err := NewGenerator(fetcher, zap.NewNop()).Run(context.Background(), doc, opts)
	require.NoError(t, err)

	assert.Equal(t, GeneratorReport{Total: 3, Kept: 1, Fetched: 1, Failed: 1, Missing: 1}, report)
	assert.ElementsMatch(t, []string{"30.2672,-97.7431-15-driving-car", "30.2672,-97.7431-30-driving-car"}, fetcher.calls)

	failed, ok := doc.Get("Austin, TX", "driving-car", 30)
	require.True(t, ok)
	assert.True(t, failed.IsFailure())
	assert.Contains(t, failed.Failure.Message, "API error 500")
}

func TestGenerator_FillReplacesFailures(t *testing.T) {
	doc := make(repository.Document)
	doc.Set("Austin, TX", "driving-car", 15, repository.NewFailureEntry("API error 429"))

	opts := smallOptions()
	opts.Fill = true

	report, err := NewGenerator(nil, zap.NewNop()).Run(context.Background(), doc, opts)
	require.NoError(t, err)
	assert.Equal(t, GeneratorReport{Total: 2, Filled: 2}, report)

	repo := repository.NewFileIsochroneRepository(doc, []isochrone.Location{generatorTestLocation}, zap.NewNop())
	stored, ok := repo.Lookup("30.2672,-97.7431-15-driving-car")
	require.True(t, ok)
	assert.Equal(t, isochrone.ApproximateNote, stored.Note())

	generated, err := isochrone.Generate(isochrone.Request{Origin: generatorTestLocation.Coordinate, Minutes: 15, Mode: isochrone.ModeDriving})
	require.NoError(t, err)
	assert.Equal(t, generated.Ring(), stored.Ring())
}

func TestGenerator_FailedRefreshKeepsValidEntry(t *testing.T) {
	existing, err := isochrone.Generate(isochrone.Request{Origin: generatorTestLocation.Coordinate, Minutes: 5, Mode: isochrone.ModeDriving})
	require.NoError(t, err)

	doc := make(repository.Document)
	doc.Set("Austin, TX", "driving-car", 5, repository.NewCollectionEntry(existing.FeatureCollection()))

	opts := smallOptions()
	opts.Minutes = []float64{5}
	opts.Fetch = true
	opts.Refresh = true
	opts.Fill = true

	fetcher := &fakeFetcher{fail: map[string]bool{"30.2672,-97.7431-5-driving-car": true}}
	report, err := NewGenerator(fetcher, zap.NewNop()).Run(context.Background(), doc, opts)
	require.NoError(t, err)
	assert.Equal(t, GeneratorReport{Total: 1, Failed: 1}, report)

	entry, ok := doc.Get("Austin, TX", "driving-car", 5)
	require.True(t, ok)
	assert.False(t, entry.IsFailure())
}

func TestGenerator_FillNeverOverwritesValidEntry(t *testing.T) {
	fetched, err := (&fakeFetcher{}).Isochrone(context.Background(), generatorTestLocation.Coordinate, 5, isochrone.ModeDriving)
	require.NoError(t, err)

	doc := make(repository.Document)
	doc.Set("Austin, TX", "driving-car", 5, repository.NewCollectionEntry(fetched))

	opts := smallOptions()
	opts.Refresh = true
	opts.Fill = true

	report, err := NewGenerator(nil, zap.NewNop()).Run(context.Background(), doc, opts)
	require.NoError(t, err)
	assert.Equal(t, GeneratorReport{Total: 2, Kept: 1, Filled: 1}, report)

	entry, _ := doc.Get("Austin, TX", "driving-car", 5)
	_, hasNote := entry.Collection.Features[0].Properties["note"]
	assert.False(t, hasNote, "fetched entry must survive a fill-only refresh")
}

func TestGenerator_PacesFetches(t *testing.T) {
	opts := smallOptions()
	opts.Minutes = []float64{5, 10, 15}
	opts.Fetch = true
	opts.Interval = 40 * time.Millisecond
	opts.Concurrency = 2

	fetcher := &fakeFetcher{}
	report, err := NewGenerator(fetcher, zap.NewNop()).Run(context.Background(), make(repository.Document), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Fetched)

	require.Len(t, fetcher.times, 3)
	first, last := fetcher.times[0], fetcher.times[0]
	for _, at := range fetcher.times {
		if at.Before(first) {
			first = at
		}
		if at.After(last) {
			last = at
		}
	}
	assert.GreaterOrEqual(t, last.Sub(first), 2*opts.Interval-10*time.Millisecond)
}

func TestGenerator_CancelledKeepsFetchedEntries(t *testing.T) {
	opts := smallOptions()
	opts.Fetch = true
	opts.Fill = true
	opts.Interval = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	doc := make(repository.Document)
	fetcher := &fakeFetcher{}
	report, err := NewGenerator(fetcher, zap.NewNop()).Run(ctx, doc, opts)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Len(t, fetcher.calls, 1)
	assert.Equal(t, GeneratorReport{Total: 2, Fetched: 1}, report)

	entry, ok := doc.Get("Austin, TX", "driving-car", 5)
	require.True(t, ok, "first fetch must survive cancellation")
	assert.False(t, entry.IsFailure())

	_, ok = doc.Get("Austin, TX", "driving-car", 15)
	assert.False(t, ok, "no fill after cancellation")
}

func TestDefaultGeneratorOptions(t *testing.T) {
	opts := DefaultGeneratorOptions()
	assert.Len(t, opts.Locations, 6)
	assert.Len(t, opts.Modes, 3)
	assert.Equal(t, []float64{5, 10, 15, 30, 60}, opts.Minutes)
	assert.Equal(t, 1500*time.Millisecond, opts.Interval)
	assert.Equal(t, 1, opts.Concurrency)
}
