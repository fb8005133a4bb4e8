package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/cracklens/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "cracklens.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 0.5, cfg.PixelSizeMM)
	assert.Equal(t, config.BackendFile, cfg.Memory.Backend)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cracklens.yaml")
	content := `
pixel_size_mm: 0.25
layout:
  images: input
memory:
  backend: redis
  address: redis:6379
  lock: true
aliases:
  breite: max_width
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.PixelSizeMM)
	assert.Equal(t, "input", cfg.Layout.ImagesDir)
	assert.Equal(t, filepath.Join("outputs", "masks"), cfg.Layout.MasksDir, "unset keys keep defaults")
	assert.Equal(t, config.BackendRedis, cfg.Memory.Backend)
	assert.True(t, cfg.Memory.Lock)
	assert.Equal(t, "cracklens:", cfg.Memory.Prefix)
	assert.Equal(t, map[string]string{"breite": "max_width"}, cfg.Aliases)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "memory:\n  backend: mongo\n"},
		{"negative scale", "pixel_size_mm: -1\n"},
		{"sqlite without path", "memory:\n  backend: sqlite\n  path: \"\"\n"},
		{"malformed", "layout: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cracklens.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := config.Load(path)
			assert.Error(t, err)
		})
	}
}

func TestRebase(t *testing.T) {
	cfg := config.Default().Rebase("proj")
	assert.Equal(t, filepath.Join("proj", "data", "Test_images"), cfg.Layout.ImagesDir)
	assert.Equal(t, filepath.Join("proj", "memory", "memory_store.jsonl"), cfg.Memory.Path)
	assert.Equal(t, filepath.Join("proj", "tools.yaml"), cfg.ToolsFile)

	abs := config.Default()
	abs.PlansDir = "/srv/plans"
	assert.Equal(t, "/srv/plans", abs.Rebase("proj").PlansDir)
	assert.Equal(t, config.Default(), config.Default().Rebase("."))
}
