package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "memory:\n  backend: sqlite\n  path: memory/memory.db\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cracklens.yaml"), []byte(cfg), 0644))
	return dir
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "cracklens version "))
}

func TestRun_ReportsFailedSteps(t *testing.T) {
	dir := project(t)
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte("- tool: not_a_tool\n"), 0644))

	out, err := execute(t, "run", planPath, "--dir", dir, "--quiet", "--plan", "", "--watch=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 steps failed")
	assert.Contains(t, out, "tool not registered: not_a_tool")
}

func TestRun_RequiresOnePlanSource(t *testing.T) {
	dir := project(t)
	_, err := execute(t, "run", "--dir", dir, "--quiet", "--plan", "", "--watch=false")
	assert.Error(t, err)
}

func TestMemoryLifecycle(t *testing.T) {
	dir := project(t)

	out, err := execute(t, "memory", "show", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Records: 0")

	_, err = execute(t, "memory", "reset", "--dir", dir, "--force=false")
	assert.Error(t, err)

	out, err = execute(t, "memory", "reset", "--dir", dir, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Memory cleared.")

	snapshot := filepath.Join(dir, "summary.json")
	_, err = execute(t, "memory", "snapshot", snapshot, "--dir", dir)
	require.NoError(t, err)
	assert.FileExists(t, snapshot)
}

func TestTools(t *testing.T) {
	out, err := execute(t, "tools", "--dir", project(t))
	require.NoError(t, err)
	assert.Contains(t, out, "segment_crack_image")
	assert.Contains(t, out, "quantify_crack_geometry")
}
