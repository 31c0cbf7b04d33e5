package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/isomap/service-isochrone/internal/application"
	"github.com/isomap/service-isochrone/internal/config"
	"github.com/isomap/service-isochrone/internal/domain/isochrone"
	"github.com/isomap/service-isochrone/internal/httpclient"
	"github.com/isomap/service-isochrone/internal/integration/ors"
	"github.com/isomap/service-isochrone/internal/logger"
	"github.com/isomap/service-isochrone/internal/repository"
)

func main() {
	defaults := application.DefaultGeneratorOptions()

	flags := pflag.NewFlagSet("generate", pflag.ExitOnError)
	flags.String("output", "", "precomputed document to update (default from ISOMAP_STORE_PATH)")
	fetch := flags.Bool("fetch", false, "fetch isochrones from OpenRouteService")
	fill := flags.Bool("fill", true, "generate an approximation for every cell left without a valid entry")
	refresh := flags.Bool("refresh", false, "refetch cells that already hold a valid entry")
	interval := flags.Duration("interval", defaults.Interval, "minimum delay between OpenRouteService requests")
	concurrency := flags.Int("concurrency", defaults.Concurrency, "OpenRouteService requests in flight")
	locations := flags.StringSlice("location", nil, "restrict to these demo locations")
	modes := flags.StringSlice("mode", nil, "restrict to these travel modes")
	minutes := flags.Float64Slice("minutes", defaults.Minutes, "travel times in minutes")
	_ = flags.Parse(os.Args[1:])

	v, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := v.BindPFlag("store.path", flags.Lookup("output")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to bind flags: %v\n", err)
		os.Exit(1)
	}
	cfg := config.FromViper(v)

	log, err := logger.NewNamed(cfg.AppEnv, "isochrone-generator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	opts := defaults
	opts.Fetch = *fetch
	opts.Fill = *fill
	opts.Refresh = *refresh
	opts.Interval = *interval
	opts.Concurrency = *concurrency
	opts.Minutes = *minutes
	if opts.Locations, err = selectLocations(*locations); err != nil {
		log.Fatal("invalid --location", zap.Error(err))
	}
	if opts.Modes, err = selectModes(*modes); err != nil {
		log.Fatal("invalid --mode", zap.Error(err))
	}

	var fetcher application.IsochroneFetcher
	if opts.Fetch {
		client, err := ors.New(
			ors.ApiKeyOption(cfg.ORS.APIKey),
			ors.BaseUrlOption(cfg.ORS.BaseURL),
			ors.HTTPClientOption(httpclient.New(cfg.ORS.HTTPTimeout)),
		)
		if err != nil {
			log.Fatal("failed to create OpenRouteService client", zap.Error(err))
		}
		fetcher = client
	}

	doc, err := repository.LoadDocument(cfg.Store.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Info("precomputed document not found, starting empty", zap.String("path", cfg.Store.Path))
		doc = make(repository.Document)
	case err != nil:
		log.Fatal("failed to load precomputed document", zap.String("path", cfg.Store.Path), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := application.NewGenerator(fetcher, log).Run(ctx, doc, opts)
	if err != nil {
		log.Warn("generation interrupted, saving partial document", zap.Error(err))
	}

	if err := doc.Save(cfg.Store.Path); err != nil {
		log.Fatal("failed to save precomputed document", zap.String("path", cfg.Store.Path), zap.Error(err))
	}

	log.Info("precomputed document written",
		zap.String("path", cfg.Store.Path),
		zap.Int("total", report.Total),
		zap.Int("kept", report.Kept),
		zap.Int("fetched", report.Fetched),
		zap.Int("failed", report.Failed),
		zap.Int("filled", report.Filled),
		zap.Int("missing", report.Missing),
	)
}

func selectLocations(names []string) ([]isochrone.Location, error) {
	all := isochrone.DemoLocations()
	if len(names) == 0 {
		return all, nil
	}
	selected := make([]isochrone.Location, 0, len(names))
	for _, name := range names {
		loc, ok := isochrone.FindLocation(all, name)
		if !ok {
			return nil, fmt.Errorf("unknown location %q", name)
		}
		selected = append(selected, loc)
	}
	return selected, nil
}

func selectModes(names []string) ([]isochrone.TravelMode, error) {
	if len(names) == 0 {
		return isochrone.Modes(), nil
	}
	selected := make([]isochrone.TravelMode, 0, len(names))
	for _, name := range names {
		mode, ok := isochrone.ParseTravelMode(name)
		if !ok {
			return nil, fmt.Errorf("unknown travel mode %q", name)
		}
		selected = append(selected, mode)
	}
	return selected, nil
}
