package plugins

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pictor-app/plugdeck/internal/installer"
)

// Export writes the installed plugins to w as one `name==version` line per
// plugin, sorted by name. The format reads back through Import and is also
// valid pip requirements syntax.
func Export(w io.Writer, items []Installed) error {
	sorted := make([]Installed, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, item := range sorted {
		if _, err := fmt.Fprintf(w, "%s==%s\n", item.Name, item.Version); err != nil {
			return err
		}
	}
	return nil
}

// ExportFile writes the installed plugins to the named file.
func ExportFile(path string, items []Installed) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Export(f, items); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Import reads a plugin list previously written by Export and returns the
// package specifiers it names, in file order. Blank lines and `#` comments
// are skipped; any malformed line fails the whole import.
func Import(r io.Reader) ([]string, error) {
	var specs []string
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := installer.ParseSpec(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		specs = append(specs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return specs, nil
}

// ImportFile reads a plugin list from the named file.
func ImportFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Import(f)
}
