// Package plugins knows which plugins are installed in the host environment
// and reads and writes plugin list files.
package plugins

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/pictor-app/plugdeck/internal/installer"
)

// Installed describes one plugin present in the environment.
type Installed struct {
	Name    string
	Version string
	Tool    installer.Tool
}

// Inventory lists the plugins installed in the environment.
type Inventory interface {
	List(ctx context.Context) ([]Installed, error)
}

// IsPluginName reports whether a distribution name follows the plugin
// naming convention. Anything in the pictor- namespace counts, plus the
// legacy theme packages that predate it.
func IsPluginName(name string) bool {
	name = strings.ToLower(name)
	return strings.HasPrefix(name, "pictor-") && name != installer.HostPackage
}

// PipInventory lists installed plugins by freezing the environment with pip.
// It reports every plugin regardless of which tool installed it; conda
// packages are recognized by their conda-meta records.
type PipInventory struct {
	// Python is the interpreter whose environment is inspected.
	Python string

	// Prefix is the environment root, used to tell conda-managed packages
	// from pip-managed ones. Empty means the active environment.
	Prefix string

	// Filter decides which distributions count as plugins. Nil means
	// IsPluginName.
	Filter func(name string) bool
}

// List shells out to pip and parses its freeze-format output.
func (inv *PipInventory) List(ctx context.Context) ([]Installed, error) {
	cmd := exec.CommandContext(ctx, inv.Python, "-m", "pip", "list", "--format=freeze")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pip list failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	filter := inv.Filter
	if filter == nil {
		filter = IsPluginName
	}

	var out []Installed
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		name, version, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "==")
		if !ok || !filter(name) {
			continue
		}
		tool := installer.Pip
		if installer.IsCondaPackage(name, inv.Prefix) {
			tool = installer.Conda
		}
		out = append(out, Installed{Name: name, Version: version, Tool: tool})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
