package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/enginecore/enginecore/internal/module"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	})
	require.NoError(t, RootCmd.Execute())
	return out.String()
}

func TestConfigInitWritesLoadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	out := execute(t, "config", "init", path)
	assert.Contains(t, out, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "dummy")

	out = execute(t, "--config", path, "services")
	assert.Contains(t, out, "Display")
	assert.Contains(t, out, "embedded dummy")
	assert.Contains(t, out, "Swap")
}

func TestModulesPrintsInitOrder(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "absent.json")
	out := execute(t, "--config", cfg, "modules")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 9)
	assert.Contains(t, lines[0], "DEPENDS ON")
	assert.Contains(t, lines[1], "Plugin")
	assert.Contains(t, lines[8], "Main")
	assert.Contains(t, lines[8], "Joystick")
}

func TestModulesCheckReportsStatus(t *testing.T) {
	t.Cleanup(func() { modulesCheck = false })
	out := execute(t, "--config", filepath.Join(t.TempDir(), "absent.json"), "modules", "--check")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 9)
	assert.Contains(t, lines[0], "STATUS")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[8]), "succeeded"), lines[8])
}

func TestPluginsEmptyDirectory(t *testing.T) {
	t.Setenv("ENGINE_PLUGIN_DIR", filepath.Join(t.TempDir(), "plugins"))
	out := execute(t, "--config", filepath.Join(t.TempDir(), "absent.json"), "plugins")
	assert.Contains(t, out, "No libraries in")
}

func TestVersion(t *testing.T) {
	assert.Contains(t, execute(t, "version"), "engine 0.0.0-dev")
}

func TestJoinIDs(t *testing.T) {
	assert.Equal(t, "-", joinIDs(nil))
	assert.Equal(t, "Display, Sound", joinIDs([]module.ID{"Display", "Sound"}))
}
