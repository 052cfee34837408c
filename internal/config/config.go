// Package config loads commonenv.yaml, the per-bundle host configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/commonenv/internal/logging"
	"github.com/kingrea/commonenv/internal/resolver"
)

const (
	// FileName is the config file looked up in the bundle directory.
	FileName = "commonenv.yaml"
	// StateDir holds logs and other host state inside the bundle.
	StateDir = ".commonenv"

	defaultRPCTimeout = 5 * time.Second
)

const defaultConfigYAML = `# commonenv bundle configuration
version: 1

# Module id declared as the root. Leave empty to use the bundle manifest root.
root: main

# Directory holding the resource bodies, relative to this file.
modules_dir: .

log:
  file: .commonenv/logs/commonenv.log
  level: info
  history: 70

# rpc:
#   url: http://127.0.0.1:8080/rpc
#   methods: [ping]
#   timeout: 5s

# Values injected into the global scope.
inject: {}
`

// LogConfig configures the logging module.
type LogConfig struct {
	File    string `yaml:"file"`
	Level   string `yaml:"level"`
	History int    `yaml:"history"`
}

// RPCConfig configures the json_rpc module.
type RPCConfig struct {
	URL     string   `yaml:"url,omitempty"`
	Methods []string `yaml:"methods,omitempty"`
	Timeout string   `yaml:"timeout,omitempty"`
}

// BundleConfig models commonenv.yaml.
type BundleConfig struct {
	Version    int            `yaml:"version"`
	Root       string         `yaml:"root"`
	ModulesDir string         `yaml:"modules_dir"`
	Log        LogConfig      `yaml:"log"`
	RPC        RPCConfig      `yaml:"rpc"`
	Inject     map[string]any `yaml:"inject"`
}

// Config is the resolved configuration for one bundle directory.
type Config struct {
	// Dir is the bundle directory relative paths resolve against.
	Dir string
	// Path is the config file location.
	Path string

	Bundle BundleConfig
}

// Init writes a default commonenv.yaml into dir unless one exists.
func Init(dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, StateDir, "logs"), 0o755); err != nil {
		return fmt.Errorf("config: ensure state dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// Load reads the config for the bundle in dir. An empty path means
// dir/commonenv.yaml; a missing file yields defaults.
func Load(dir, path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = filepath.Join(dir, FileName)
	}
	c := &Config{Dir: dir, Path: path, Bundle: defaultBundleConfig()}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.Bundle.normalize(c.Dir)
			return nil
		}
		return fmt.Errorf("config: read %s: %w", c.Path, err)
	}

	var parsed BundleConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", c.Path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.Dir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Bundle = parsed
	return nil
}

// Save writes the config back to Path.
func (c *Config) Save() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Bundle.applyDefaults()
	if err := c.Bundle.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := yaml.Marshal(c.Bundle)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.Path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", c.Path, err)
	}
	return nil
}

// Root returns the configured root module id.
func (c *Config) Root() string {
	return c.Bundle.Root
}

// ModulesDir returns the absolute-or-cleaned directory holding resources.
func (c *Config) ModulesDir() string {
	return c.Bundle.ModulesDir
}

// LogOptions returns the options for logging.New.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{
		File:    c.Bundle.Log.File,
		Level:   c.Bundle.Log.Level,
		History: c.Bundle.Log.History,
	}
}

// RPCTimeout returns the parsed rpc.timeout.
func (c *Config) RPCTimeout() time.Duration {
	d, err := time.ParseDuration(c.Bundle.RPC.Timeout)
	if err != nil || d <= 0 {
		return defaultRPCTimeout
	}
	return d
}

// Inject sets a value injected into the global scope.
func (c *Config) Inject(key string, value any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("config: inject key is required")
	}
	if c.Bundle.Inject == nil {
		c.Bundle.Inject = map[string]any{}
	}
	c.Bundle.Inject[key] = value
	return nil
}

// Values returns a copy of the injected values.
func (c *Config) Values() map[string]any {
	out := make(map[string]any, len(c.Bundle.Inject))
	for k, v := range c.Bundle.Inject {
		out[k] = v
	}
	return out
}

func defaultBundleConfig() BundleConfig {
	cfg := BundleConfig{}
	cfg.applyDefaults()
	return cfg
}

func (bc *BundleConfig) applyDefaults() {
	if bc.Version == 0 {
		bc.Version = 1
	}
	if strings.TrimSpace(bc.ModulesDir) == "" {
		bc.ModulesDir = "."
	}
	if strings.TrimSpace(bc.Log.File) == "" {
		bc.Log.File = filepath.Join(StateDir, "logs", "commonenv.log")
	}
	if strings.TrimSpace(bc.Log.Level) == "" {
		bc.Log.Level = "info"
	}
	if bc.Log.History == 0 {
		bc.Log.History = logging.DefaultHistory
	}
	if bc.Inject == nil {
		bc.Inject = map[string]any{}
	}
}

func (bc *BundleConfig) normalize(base string) {
	bc.Root = strings.TrimSpace(bc.Root)
	bc.ModulesDir = resolvePath(base, bc.ModulesDir)
	bc.Log.File = resolvePath(base, bc.Log.File)
	bc.Log.Level = strings.ToLower(strings.TrimSpace(bc.Log.Level))
	bc.RPC.URL = strings.TrimSpace(bc.RPC.URL)
	bc.RPC.Timeout = strings.TrimSpace(bc.RPC.Timeout)
	methods := bc.RPC.Methods[:0]
	for _, m := range bc.RPC.Methods {
		if m = strings.TrimSpace(m); m != "" && !contains(methods, m) {
			methods = append(methods, m)
		}
	}
	bc.RPC.Methods = methods
}

func (bc *BundleConfig) validate() error {
	if bc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if resolver.IsRelative(bc.Root) {
		return fmt.Errorf("root %q must be an absolute module id", bc.Root)
	}
	if _, err := logging.ParseLevel(bc.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if bc.Log.History < 0 {
		return fmt.Errorf("log.history must be >= 0")
	}
	if len(bc.RPC.Methods) > 0 && bc.RPC.URL == "" {
		return fmt.Errorf("rpc.url is required when rpc.methods is set")
	}
	if bc.RPC.Timeout != "" {
		if _, err := time.ParseDuration(bc.RPC.Timeout); err != nil {
			return fmt.Errorf("rpc.timeout: %w", err)
		}
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
