package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_LoadCreatesDefaults(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)
	require.NoError(t, m.Load())

	assert.FileExists(t, filepath.Join(base, ".plugdeck", "config.json"))
	assert.FileExists(t, filepath.Join(base, ".plugdeck", ".gitignore"))

	cfg := m.Get()
	assert.Equal(t, []string{"conda-forge"}, cfg.Channels)
	assert.Equal(t, "slate", cfg.Theme)
	assert.False(t, cfg.Debug)
}

func TestManager_LoadRoundTrip(t *testing.T) {
	base := t.TempDir()

	m := NewManager(base)
	require.NoError(t, m.Load())
	m.Get().PythonExe = "/opt/python/bin/python3"
	m.Get().CriticalPins = []string{"numpy", "pictor"}
	require.NoError(t, m.Save())

	fresh := NewManager(base)
	require.NoError(t, fresh.Load())
	assert.Equal(t, "/opt/python/bin/python3", fresh.Get().PythonExe)
	assert.Equal(t, []string{"numpy", "pictor"}, fresh.Get().CriticalPins)
}

func TestManager_PartialFileKeepsDefaults(t *testing.T) {
	base := t.TempDir()
	dataDir := filepath.Join(base, ".plugdeck")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dataDir, "config.json"),
		[]byte(`{"theme": "mono"}`), 0o644))

	m := NewManager(base)
	require.NoError(t, m.Load())

	assert.Equal(t, "mono", m.Get().Theme)
	// Keys missing from the file keep their defaults.
	assert.Equal(t, []string{"conda-forge"}, m.Get().Channels)
	assert.Equal(t, "https://api.pictor.dev", m.Get().CatalogURL)
}

func TestManager_Set(t *testing.T) {
	m := NewManager(t.TempDir())
	require.NoError(t, m.Load())

	require.NoError(t, m.Set("default_tool", "conda"))
	assert.Equal(t, "conda", m.Get().DefaultTool)

	require.NoError(t, m.Set("channels", "bioconda, conda-forge"))
	assert.Equal(t, []string{"bioconda", "conda-forge"}, m.Get().Channels)

	require.NoError(t, m.Set("debug", "true"))
	assert.True(t, m.Get().Debug)

	assert.Error(t, m.Set("default_tool", "poetry"))
	assert.Error(t, m.Set("debug", "maybe"))
	assert.Error(t, m.Set("no_such_key", "x"))
}

func TestManager_ExpandsEnvVars(t *testing.T) {
	t.Setenv("PLUGDECK_TEST_PREFIX", "/envs/pictor")

	base := t.TempDir()
	dataDir := filepath.Join(base, ".plugdeck")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dataDir, "config.json"),
		[]byte(`{"conda_prefix": "${PLUGDECK_TEST_PREFIX}", "python_exe": "$PLUGDECK_UNSET_VAR"}`), 0o644))

	m := NewManager(base)
	require.NoError(t, m.Load())

	assert.Equal(t, "/envs/pictor", m.Get().CondaPrefix)
	// Unset variables are left as written.
	assert.Equal(t, "$PLUGDECK_UNSET_VAR", m.Get().PythonExe)
}

func TestManager_GitignoreNotOverwritten(t *testing.T) {
	base := t.TempDir()
	dataDir := filepath.Join(base, ".plugdeck")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	custom := []byte("# mine\n*\n")
	gitignore := filepath.Join(dataDir, ".gitignore")
	require.NoError(t, os.WriteFile(gitignore, custom, 0o644))

	m := NewManager(base)
	require.NoError(t, m.Load())

	data, err := os.ReadFile(gitignore)
	require.NoError(t, err)
	assert.Equal(t, custom, data)
}
