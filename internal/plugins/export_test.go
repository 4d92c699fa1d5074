package plugins

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pictor-app/plugdeck/internal/installer"
)

func TestExport_SortedPinnedLines(t *testing.T) {
	items := []Installed{
		{Name: "pictor-svg", Version: "0.2.1", Tool: installer.Pip},
		{Name: "pictor-aics", Version: "1.4.0", Tool: installer.Conda},
	}

	var buf strings.Builder
	require.NoError(t, Export(&buf, items))
	assert.Equal(t, "pictor-aics==1.4.0\npictor-svg==0.2.1\n", buf.String())
}

func TestImport_RoundTrip(t *testing.T) {
	items := []Installed{
		{Name: "pictor-svg", Version: "0.2.1"},
		{Name: "pictor-ome-zarr", Version: "1.0.0"},
	}

	var buf strings.Builder
	require.NoError(t, Export(&buf, items))

	specs, err := Import(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, []string{"pictor-ome-zarr==1.0.0", "pictor-svg==0.2.1"}, specs)
}

func TestImport_SkipsCommentsAndBlanks(t *testing.T) {
	input := "# plugins exported 2026-08-01\n\npictor-svg==0.2.1\n  # trailing note\npictor-aics\n"
	specs, err := Import(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"pictor-svg==0.2.1", "pictor-aics"}, specs)
}

func TestImport_MalformedLineFailsWithLineNumber(t *testing.T) {
	input := "pictor-svg==0.2.1\n==nothing\n"
	_, err := Import(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.ErrorIs(t, err, installer.ErrInvalidRequest)
}

func TestExportFile_ImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugins.txt")
	items := []Installed{{Name: "pictor-svg", Version: "0.2.1"}}

	require.NoError(t, ExportFile(path, items))
	specs, err := ImportFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"pictor-svg==0.2.1"}, specs)
}

func TestIsPluginName(t *testing.T) {
	assert.True(t, IsPluginName("pictor-svg"))
	assert.True(t, IsPluginName("Pictor-Tools"))
	assert.False(t, IsPluginName("numpy"))
	assert.False(t, IsPluginName("pictor")) // the host itself is not a plugin
}
