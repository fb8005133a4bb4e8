// Package config loads the cracklens configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/cracklens/internal/runtime"
	"github.com/aretw0/cracklens/pkg/domain"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up in the project directory.
const DefaultFile = "cracklens.yaml"

// Memory backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// MemoryConfig selects where the record log is persisted.
type MemoryConfig struct {
	Backend string `yaml:"backend"`
	// Path is the JSONL file (file) or database file (sqlite).
	Path string `yaml:"path"`
	// Address, Password, DB and Prefix configure the redis backend.
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"` // prepended verbatim, e.g. "cracklens:"
	// Lock enables the distributed lock of the redis backend.
	Lock bool `yaml:"lock"`
}

// Config is the content of cracklens.yaml.
type Config struct {
	Layout      runtime.Layout    `yaml:"layout"`
	PixelSizeMM float64           `yaml:"pixel_size_mm"`
	Memory      MemoryConfig      `yaml:"memory"`
	Aliases     map[string]string `yaml:"aliases"`
	ToolsFile   string            `yaml:"tools"`
	PlansDir    string            `yaml:"plans"`
	SessionsDir string            `yaml:"sessions"`
	Addr        string            `yaml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Layout:      runtime.DefaultLayout(),
		PixelSizeMM: domain.DefaultPixelSizeMM,
		Memory: MemoryConfig{
			Backend: BackendFile,
			Path:    filepath.Join("memory", "memory_store.jsonl"),
			Address: "localhost:6379",
			Prefix:  "cracklens:",
		},
		ToolsFile:   "tools.yaml",
		PlansDir:    "plans",
		SessionsDir: "logs",
		Addr:        ":8080",
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Memory.Backend {
	case BackendFile, BackendSQLite:
		if c.Memory.Path == "" {
			return fmt.Errorf("memory backend %s requires a path", c.Memory.Backend)
		}
	case BackendRedis:
		if c.Memory.Address == "" {
			return fmt.Errorf("memory backend redis requires an address")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown memory backend %q", c.Memory.Backend)
	}
	if c.PixelSizeMM <= 0 {
		return fmt.Errorf("pixel_size_mm must be positive, got %v", c.PixelSizeMM)
	}
	return nil
}

// Rebase makes every relative path of c relative to dir.
func (c Config) Rebase(dir string) Config {
	if dir == "" || dir == "." {
		return c
	}
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Layout.ImagesDir = join(c.Layout.ImagesDir)
	c.Layout.GroundTruthDir = join(c.Layout.GroundTruthDir)
	c.Layout.MasksDir = join(c.Layout.MasksDir)
	c.Layout.VisualsDir = join(c.Layout.VisualsDir)
	c.Layout.CSVDir = join(c.Layout.CSVDir)
	c.Memory.Path = join(c.Memory.Path)
	c.ToolsFile = join(c.ToolsFile)
	c.PlansDir = join(c.PlansDir)
	c.SessionsDir = join(c.SessionsDir)
	return c
}
