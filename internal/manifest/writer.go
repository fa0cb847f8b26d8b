package manifest

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
)

// New creates an empty manifest with defaults.
func New(basePath string) *Manifest {
	if basePath == "" {
		basePath = "./"
	}
	return &Manifest{
		Version:     SupportedManifestVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		BasePath:    basePath,
		Assets:      make(map[string]Asset),
	}
}

// AddFailure records a source that could not be converted.
func (m *Manifest) AddFailure(source string, err error) {
	if m.Failures == nil {
		m.Failures = make(map[string]string)
	}
	m.Failures[source] = err.Error()
}

// ComputeStats recalculates aggregate statistics from assets.
func (m *Manifest) ComputeStats() {
	s := Stats{Upgraded: m.Stats.Upgraded}
	s.TotalAssets = len(m.Assets)
	s.Failed = len(m.Failures)
	for _, a := range m.Assets {
		s.TotalInputBytes += a.Source.Size
		s.TotalOutputBytes += a.Output.Size
	}
	m.Stats = s
}

// WriteJSON serializes the manifest to a JSON file with stable ordering.
func WriteJSON(m *Manifest, path string) error {
	m.ComputeStats()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON loads a manifest written by WriteJSON.
func ReadJSON(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if m.Version != SupportedManifestVersion {
		return nil, fmt.Errorf("%s: unsupported report version %d", path, m.Version)
	}
	return &m, nil
}
