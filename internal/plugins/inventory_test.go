package plugins

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pictor-app/plugdeck/internal/installer"
)

// fakeInterpreter writes an executable that ignores its arguments and prints
// the given freeze output.
func fakeInterpreter(t *testing.T, freeze string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "python")
	script := "#!/bin/sh\ncat <<'EOF'\n" + freeze + "EOF\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestPipInventory_FiltersToPlugins(t *testing.T) {
	python := fakeInterpreter(t, "numpy==1.26.0\npictor==0.3.0\npictor-svg==0.2.1\npictor-ome-zarr==1.0.0\n")

	inv := &PipInventory{Python: python}
	items, err := inv.List(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, Installed{Name: "pictor-ome-zarr", Version: "1.0.0", Tool: installer.Pip}, items[0])
	assert.Equal(t, Installed{Name: "pictor-svg", Version: "0.2.1", Tool: installer.Pip}, items[1])
}

func TestPipInventory_MarksCondaPackages(t *testing.T) {
	python := fakeInterpreter(t, "pictor-svg==0.2.1\n")

	prefix := t.TempDir()
	meta := filepath.Join(prefix, "conda-meta")
	require.NoError(t, os.MkdirAll(meta, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(meta, "pictor-svg-0.2.1-pyhd8ed1ab_0.json"), []byte("{}"), 0o644))

	inv := &PipInventory{Python: python, Prefix: prefix}
	items, err := inv.List(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, installer.Conda, items[0].Tool)
}

func TestPipInventory_CustomFilter(t *testing.T) {
	python := fakeInterpreter(t, "alpha==1.0\nbeta==2.0\n")

	inv := &PipInventory{
		Python: python,
		Filter: func(name string) bool { return name == "beta" },
	}
	items, err := inv.List(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, "beta", items[0].Name)
}

func TestPipInventory_CommandFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "python")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho 'boom' >&2\nexit 3\n"), 0o755))

	inv := &PipInventory{Python: path}
	_, err := inv.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
