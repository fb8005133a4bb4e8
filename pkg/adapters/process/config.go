package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProcessConfig represents the configuration of one external command.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
	// Timeout bounds a single call, e.g. "2m". Empty means no limit beyond the caller's context.
	Timeout string `yaml:"timeout" json:"timeout"`
}

// ConfigFile represents the structure of tools.yaml.
type ConfigFile struct {
	Tools []ProcessConfig `yaml:"tools" json:"tools"`
}

// LoadTools reads a configuration file (YAML or JSON) and returns a map of names to configs.
// A missing file means no processes are configured.
func LoadTools(path string) (map[string]ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ProcessConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var cfg ConfigFile
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse tools.json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse tools.yaml: %w", err)
		}
	}

	toolMap := make(map[string]ProcessConfig)
	for _, tool := range cfg.Tools {
		if tool.Name == "" {
			continue
		}
		if tool.Command == "" {
			return nil, fmt.Errorf("process %s has no command", tool.Name)
		}
		if tool.Timeout != "" {
			if _, err := time.ParseDuration(tool.Timeout); err != nil {
				return nil, fmt.Errorf("process %s: invalid timeout %q: %w", tool.Name, tool.Timeout, err)
			}
		}
		toolMap[tool.Name] = tool
	}

	return toolMap, nil
}
