package plugins

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/commonenv/internal/resolver"
)

// ManifestName is the bundle manifest file name.
const ManifestName = "bundle.yaml"

// Manifest lists the resources of a bundle.
type Manifest struct {
	Root    string          `yaml:"root"`
	Modules []ManifestEntry `yaml:"modules"`
}

// ManifestEntry maps a module id to a source file relative to the bundle.
type ManifestEntry struct {
	ID   string `yaml:"id"`
	Path string `yaml:"path"`
}

// ParseManifest decodes and validates a manifest payload.
func ParseManifest(data []byte) (Manifest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Manifest{}, fmt.Errorf("plugin: manifest payload is empty")
	}
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("plugin: decode manifest: %w", err)
	}
	manifest.Root = strings.TrimSpace(manifest.Root)
	for idx := range manifest.Modules {
		entry := &manifest.Modules[idx]
		entry.ID = strings.TrimSpace(entry.ID)
		entry.Path = strings.TrimSpace(entry.Path)
		if entry.ID == "" {
			return Manifest{}, fmt.Errorf("plugin: manifest modules[%d]: id is required", idx)
		}
		if resolver.IsRelative(entry.ID) {
			return Manifest{}, fmt.Errorf("plugin: manifest modules[%d]: id %q must be absolute", idx, entry.ID)
		}
		if entry.Path == "" {
			return Manifest{}, fmt.Errorf("plugin: manifest modules[%d]: path is required for %s", idx, entry.ID)
		}
	}
	return manifest, nil
}

// LoadManifest reads and parses the manifest at path.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("plugin: %s: %w", path, err)
	}
	return manifest, nil
}

// findManifest returns the manifest path in dir, if one exists.
func findManifest(dir string) (string, bool) {
	for _, name := range []string{ManifestName, "bundle.yml"} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() && isYAMLFile(name) {
			return path, true
		}
	}
	return "", false
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
