package installer

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CondaAdapter drives conda (or a conda-compatible frontend like mamba).
// Pins travel in CONDA_PINNED_PACKAGES instead of a file, and channels are
// always passed explicitly with --override-channels so the user's rc file
// cannot redirect a plugin install.
type CondaAdapter struct {
	// Executable overrides discovery. When empty the adapter checks
	// MAMBA_EXE, CONDA_EXE, then $CONDA/condabin/conda, then PATH.
	Executable string

	// Pins are conda match specs ("pictor=0.3", "numpy=2.1") joined into
	// CONDA_PINNED_PACKAGES.
	Pins []string

	// Prefix is the environment to operate on. When empty the adapter
	// falls back to $CONDA_PREFIX if it looks like a conda environment.
	Prefix string

	// Channels used after any job origins. Defaults to conda-forge.
	Channels []string
}

func (c *CondaAdapter) Tool() Tool { return Conda }

// executable locates the conda frontend. Mamba wins when both are around
// since it is the one the user went out of their way to install.
func (c *CondaAdapter) executable() string {
	if c.Executable != "" {
		return c.Executable
	}
	bat := ""
	if runtime.GOOS == "windows" {
		bat = ".bat"
	}
	candidates := []string{
		os.Getenv("MAMBA_EXE"),
		os.Getenv("CONDA_EXE"),
	}
	if root := os.Getenv("CONDA"); root != "" {
		candidates = append(candidates, filepath.Join(root, "condabin", "conda"+bat))
	}
	for _, path := range candidates {
		if path == "" {
			continue
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return "conda" + bat
}

func (c *CondaAdapter) Available() bool {
	exe := c.executable()
	if filepath.IsAbs(exe) {
		info, err := os.Stat(exe)
		return err == nil && !info.IsDir()
	}
	_, err := exec.LookPath(exe)
	return err == nil
}

func (c *CondaAdapter) prefix() (string, error) {
	if c.Prefix != "" {
		return c.Prefix, nil
	}
	if env := os.Getenv("CONDA_PREFIX"); env != "" {
		if info, err := os.Stat(filepath.Join(env, "conda-meta")); err == nil && info.IsDir() {
			return env, nil
		}
	}
	return "", fmt.Errorf("conda: no prefix configured and CONDA_PREFIX is not a conda environment")
}

func (c *CondaAdapter) channels() []string {
	if len(c.Channels) > 0 {
		return c.Channels
	}
	return []string{"conda-forge"}
}

func (c *CondaAdapter) BuildCommand(job *Job) (Invocation, func(), error) {
	prefix, err := c.prefix()
	if err != nil {
		return Invocation{}, nil, err
	}

	var verb string
	switch job.Action() {
	case ActionInstall:
		verb = "install"
	case ActionUninstall:
		verb = "remove"
	case ActionUpgrade:
		verb = "update"
	default:
		return Invocation{}, nil, fmt.Errorf("conda: action %q not supported", job.Action())
	}

	args := []string{verb, "-y", "--prefix", prefix, "--override-channels"}
	for _, channel := range append(append([]string{}, job.origins...), c.channels()...) {
		args = append(args, "-c", channel)
	}

	if job.Action() == ActionUninstall {
		args = append(args, job.TargetNames()...)
	} else {
		for _, target := range job.Targets() {
			args = append(args, target.Raw)
		}
	}

	return Invocation{
		Program: c.executable(),
		Args:    args,
		Env:     environWith(c.pinnedEnv()),
	}, func() {}, nil
}

// pinnedEnv merges our pins with any CONDA_PINNED_PACKAGES already in the
// environment; conda separates entries with '&'.
func (c *CondaAdapter) pinnedEnv() string {
	pins := append([]string{}, c.Pins...)
	if existing := os.Getenv("CONDA_PINNED_PACKAGES"); existing != "" {
		pins = append(pins, existing)
	}
	return "CONDA_PINNED_PACKAGES=" + strings.Join(pins, "&")
}
