package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/isomap/service-isochrone/internal/domain/isochrone"
	"github.com/isomap/service-isochrone/internal/httpclient"
	"github.com/paulmach/orb/geojson"
)

// DefaultBaseURL is the public OpenRouteService API.
const DefaultBaseURL = "https://api.openrouteservice.org"

type isochroneRequest struct {
	Locations  [][2]float64 `json:"locations"`
	Range      []float64    `json:"range"`
	RangeType  string       `json:"range_type"`
	Attributes []string     `json:"attributes,omitempty"`
}

type ClientOption func(*Client)

// Client fetches real isochrones for the offline generator.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
}

func ApiKeyOption(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

func BaseUrlOption(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func HTTPClientOption(hc *httpclient.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a Client. The API key is required.
func New(opts ...ClientOption) (*Client, error) {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    httpclient.New(30 * time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		return nil, errors.New("missing OpenRouteService API key")
	}
	return c, nil
}

// Isochrone requests the time-based isochrone for one origin and travel time.
func (c *Client) Isochrone(ctx context.Context, origin isochrone.Coordinate, minutes float64, mode isochrone.TravelMode) (*geojson.FeatureCollection, error) {
	payload, err := json.Marshal(isochroneRequest{
		Locations:  [][2]float64{{origin.Lng, origin.Lat}},
		Range:      []float64{minutes * 60},
		RangeType:  "time",
		Attributes: []string{"area", "reachfactor"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode ors request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v2/isochrones/%s", c.baseURL, mode)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build ors request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, application/geo+json")

	resp, err := c.http.Do(req, "ors")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading ors response body: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling response from ors: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, errors.New("ors returned no isochrone features")
	}
	return fc, nil
}
