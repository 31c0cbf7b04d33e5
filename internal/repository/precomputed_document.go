package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/paulmach/orb/geojson"
)

// Failure is the marker stored in place of a FeatureCollection when fetching failed.
type Failure struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// Entry is one leaf of the precomputed document: either a FeatureCollection or a Failure.
type Entry struct {
	Collection *geojson.FeatureCollection
	Failure    *Failure
}

// NewCollectionEntry wraps a FeatureCollection.
func NewCollectionEntry(fc *geojson.FeatureCollection) *Entry {
	return &Entry{Collection: fc}
}

// NewFailureEntry records a failed fetch.
func NewFailureEntry(message string) *Entry {
	return &Entry{Failure: &Failure{Error: true, Message: message}}
}

// IsFailure returns true if the entry is an error marker or holds no collection.
func (e *Entry) IsFailure() bool {
	return e == nil || e.Failure != nil || e.Collection == nil
}

// MarshalJSON writes whichever leaf shape the entry holds.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Failure != nil {
		return json.Marshal(e.Failure)
	}
	if e.Collection == nil {
		return []byte("null"), nil
	}
	return json.Marshal(e.Collection)
}

// UnmarshalJSON distinguishes error markers from FeatureCollections.
func (e *Entry) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*e = Entry{}
		return nil
	}

	var leaf struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if err := json.Unmarshal(data, &leaf); err != nil {
		return err
	}
	if leaf.Error {
		*e = Entry{Failure: &Failure{Error: true, Message: leaf.Message}}
		return nil
	}
	if leaf.Type != "FeatureCollection" {
		*e = Entry{Failure: &Failure{Error: true, Message: fmt.Sprintf("unsupported GeoJSON type %q", leaf.Type)}}
		return nil
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return err
	}
	*e = Entry{Collection: fc}
	return nil
}

// Document is the persisted precomputed store: location name, then mode, then minutes.
type Document map[string]map[string]map[string]*Entry

// MinutesKey renders a travel time the way the document keys it.
func MinutesKey(minutes float64) string {
	return strconv.FormatFloat(minutes, 'f', -1, 64)
}

// Get returns the entry for a location, mode and travel time.
func (d Document) Get(location, mode string, minutes float64) (*Entry, bool) {
	entry, ok := d[location][mode][MinutesKey(minutes)]
	return entry, ok
}

// Set stores the entry for a location, mode and travel time.
func (d Document) Set(location, mode string, minutes float64, entry *Entry) {
	modes, ok := d[location]
	if !ok {
		modes = make(map[string]map[string]*Entry)
		d[location] = modes
	}
	times, ok := modes[mode]
	if !ok {
		times = make(map[string]*Entry)
		modes[mode] = times
	}
	times[MinutesKey(minutes)] = entry
}

// ParseDocument decodes a precomputed document.
func ParseDocument(data []byte) (Document, error) {
	doc := make(Document)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode precomputed document: %w", err)
	}
	return doc, nil
}

// LoadDocument reads a precomputed document from disk. A missing file yields an error
// wrapping os.ErrNotExist.
func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read precomputed document: %w", err)
	}
	return ParseDocument(data)
}

// Save writes the document atomically through a temporary file in the same directory.
func (d Document) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode precomputed document: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".precomputed-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write precomputed document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write precomputed document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace precomputed document: %w", err)
	}
	return nil
}
