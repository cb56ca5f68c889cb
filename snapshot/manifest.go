package snapshot

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest is written next to data.json on export.  Nothing reads it during import; it's there so
// a human can tell where a snapshot came from.
type Manifest struct {
	SubscriptionID    string    `yaml:"subscription_id"`
	ResourceGroupName string    `yaml:"resource_group_name"`
	ServiceName       string    `yaml:"service_name"`
	APIVersion        string    `yaml:"api_version"`
	CapturedAt        time.Time `yaml:"captured_at"`
	ContentTypes      []string  `yaml:"content_types,omitempty"`
	ContentItems      int       `yaml:"content_items"`
	MediaFiles        int       `yaml:"media_files"`
	MediaBytes        int64     `yaml:"media_bytes"`
	MediaSkipped      bool      `yaml:"media_skipped,omitempty"`
}

func WriteManifest(folder string, m Manifest) error {
	out, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("snapshot: couldn't marshal manifest YAML: %w", err)
	}
	return writeFileAtomic(ManifestPath(folder), out)
}

// ReadManifest returns (nil, nil) for snapshots that don't have one.
func ReadManifest(folder string) (*Manifest, error) {
	path := ManifestPath(folder)
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("snapshot: couldn't parse %s: %w", path, err)
	}
	return &m, nil
}
