package cli

import (
	"fmt"
	"path/filepath"

	"github.com/aretw0/cracklens/internal/config"
)

// Options are the flags shared by every command.
type Options struct {
	// Dir is the project directory relative paths are resolved against.
	Dir string
	// ConfigPath overrides <Dir>/cracklens.yaml.
	ConfigPath string
	Debug      bool
}

// LoadConfig reads the project configuration and rebases its paths on Dir.
func LoadConfig(opts Options) (config.Config, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	path := opts.ConfigPath
	if path == "" {
		path = filepath.Join(dir, config.DefaultFile)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("error loading configuration: %w", err)
	}
	return cfg.Rebase(dir), nil
}
