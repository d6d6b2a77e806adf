package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperjump/tansaku/internal/storage"
)

// ManifestFile is the manifest name inside the index directory.
const ManifestFile = "manifest.json"

// Manifest records what the persisted index was built from. Only the two
// fingerprints decide freshness; the rest is informational.
type Manifest struct {
	DataFingerprint   string    `json:"data_fingerprint"`
	ConfigFingerprint string    `json:"config_fingerprint"`
	BuildID           string    `json:"build_id,omitempty"`
	BuiltAt           time.Time `json:"built_at"`
	Records           int       `json:"records"`
}

// ManifestPath returns the manifest location for indexDir.
func ManifestPath(indexDir string) string {
	return filepath.Join(indexDir, ManifestFile)
}

// ReadManifest loads the manifest. A missing file returns (nil, nil).
func ReadManifest(indexDir string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(indexDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// WriteManifest persists m atomically.
func WriteManifest(indexDir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := storage.WriteFileAtomic(ManifestPath(indexDir), data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// RemoveManifest deletes the manifest if present.
func RemoveManifest(indexDir string) error {
	if err := os.Remove(ManifestPath(indexDir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove manifest: %w", err)
	}
	return nil
}

// Matches reports whether both fingerprints equal the given ones.
func (m *Manifest) Matches(data, cfg string) bool {
	return m != nil && m.DataFingerprint == data && m.ConfigFingerprint == cfg
}
