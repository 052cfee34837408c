package plugins

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kingrea/commonenv/internal/module"
)

// Source is one resource body of a bundle.
type Source struct {
	ID   string
	Path string
	Code string
}

// Bundle is a directory of resource bodies.
type Bundle struct {
	Dir     string
	Root    string
	Sources []Source
}

// LoadBundle reads the bundle in dir. With a manifest, its entries are
// loaded; otherwise every .go file under dir becomes a resource whose id is
// its slash path without the extension.
func LoadBundle(dir string) (*Bundle, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, fmt.Errorf("plugin: bundle directory is required")
	}
	info, err := os.Stat(trimmed)
	if err != nil {
		return nil, fmt.Errorf("plugin: stat %s: %w", trimmed, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("plugin: %s is not a directory", trimmed)
	}

	bundle := &Bundle{Dir: filepath.Clean(trimmed)}
	var entries []ManifestEntry
	if path, ok := findManifest(trimmed); ok {
		manifest, err := LoadManifest(path)
		if err != nil {
			return nil, err
		}
		bundle.Root = manifest.Root
		entries = manifest.Modules
	} else {
		entries, err = discover(trimmed)
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]string, len(entries))
	for _, entry := range entries {
		path := entry.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(bundle.Dir, filepath.FromSlash(path))
		}
		if existing, ok := seen[entry.ID]; ok {
			return nil, fmt.Errorf("plugin: duplicate module id %s (%s and %s)", entry.ID, existing, path)
		}
		seen[entry.ID] = path
		code, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("plugin: read %s: %w", path, err)
		}
		bundle.Sources = append(bundle.Sources, Source{ID: entry.ID, Path: path, Code: string(code)})
	}
	sort.Slice(bundle.Sources, func(i, j int) bool { return bundle.Sources[i].ID < bundle.Sources[j].ID })
	return bundle, nil
}

func discover(dir string) ([]ManifestEntry, error) {
	var entries []ManifestEntry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		id := strings.TrimSuffix(filepath.ToSlash(rel), ".go")
		entries = append(entries, ManifestEntry{ID: id, Path: rel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("plugin: scan %s: %w", dir, err)
	}
	return entries, nil
}

// IDs returns the bundle's module ids, sorted.
func (b *Bundle) IDs() []string {
	ids := make([]string, len(b.Sources))
	for i, src := range b.Sources {
		ids[i] = src.ID
	}
	return ids
}

// Source returns the body registered under id.
func (b *Bundle) Source(id string) (Source, bool) {
	for _, src := range b.Sources {
		if src.ID == id {
			return src, true
		}
	}
	return Source{}, false
}

// Register adds every source to env as an interpreted resource.
func (b *Bundle) Register(env *module.Env) {
	for _, src := range b.Sources {
		env.RegisterResource(src.ID, Evaluate(src.ID, src.Code))
	}
}

// Check interprets every source without running it.
func (b *Bundle) Check() error {
	for _, src := range b.Sources {
		if err := Check(src.ID, src.Code); err != nil {
			return err
		}
	}
	return nil
}
