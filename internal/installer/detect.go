package installer

import (
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// HostPackage is the distribution name of the host application whose plugins
// this queue manages.
const HostPackage = "pictor"

var (
	detectOnce sync.Once
	detected   Tool
)

// DefaultTool reports which backend installed the host application itself,
// and therefore which adapter submissions default to. The answer cannot
// change while the process lives, so it is computed once on first use and
// cached until restart.
func DefaultTool(prefix string) Tool {
	detectOnce.Do(func() {
		if prefix == "" {
			prefix = os.Getenv("CONDA_PREFIX")
		}
		if IsCondaPackage(HostPackage, prefix) {
			detected = Conda
			return
		}
		detected = Pip
	})
	return detected
}

// IsCondaPackage reports whether pkg was installed through conda into the
// given prefix. Conda records every installed package as a
// `<name>-<version>-<build>.json` file under `conda-meta/`.
func IsCondaPackage(pkg, prefix string) bool {
	if prefix == "" {
		return false
	}
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(pkg) + `-[^-]+-[^-]+\.json$`)
	entries, err := os.ReadDir(filepath.Join(prefix, "conda-meta"))
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if pattern.MatchString(entry.Name()) {
			return true
		}
	}
	return false
}

// resetDetection clears the memoized default tool. Tests only.
func resetDetection() {
	detectOnce = sync.Once{}
	detected = ""
}
