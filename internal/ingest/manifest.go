package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestFileName records what the vector index was built from.
const ManifestFileName = "ingest.json"

// Manifest describes the last successful ingest.
type Manifest struct {
	Fingerprint string    `json:"fingerprint"`
	Entries     int       `json:"entries"`
	Model       string    `json:"model"`
	Dimensions  int       `json:"dimensions"`
	Backend     string    `json:"backend,omitempty"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// Matches reports whether m was built from the same corpus and model.
func (m *Manifest) Matches(fingerprint, model string) bool {
	return m != nil && m.Fingerprint == fingerprint && m.Model == model
}

// ReadManifest returns nil without error when no manifest exists.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// WriteManifest replaces the manifest atomically.
func WriteManifest(dir string, m Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	p := filepath.Join(dir, ManifestFileName)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return os.Rename(tmp, p)
}
