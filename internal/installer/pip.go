package installer

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// PipAdapter drives `python -m pip`. Installs and upgrades go through a
// constraint file pinning the host's critical packages, so installing a
// plugin can never silently move Pictor's own dependencies.
type PipAdapter struct {
	// Python is the interpreter whose environment is managed. Defaults to
	// "python3" when empty.
	Python string

	// Pins are requirement lines ("pictor==0.3.0", "numpy==2.1.2") written
	// into the per-job constraint file.
	Pins []string

	// Prefix, when set, is passed as --prefix.
	Prefix string

	// UserAgent is appended to pip's user agent for index-side telemetry.
	UserAgent string
}

func (p *PipAdapter) Tool() Tool { return Pip }

func (p *PipAdapter) python() string {
	if p.Python != "" {
		return p.Python
	}
	return "python3"
}

func (p *PipAdapter) Available() bool {
	_, err := exec.LookPath(p.python())
	return err == nil
}

func (p *PipAdapter) BuildCommand(job *Job) (Invocation, func(), error) {
	args := []string{"-m", "pip"}
	cleanup := func() {}

	switch job.Action() {
	case ActionInstall, ActionUpgrade:
		args = append(args, "install")
		if job.Action() == ActionUpgrade {
			args = append(args, "--upgrade")
		}
		if len(p.Pins) > 0 {
			path, err := p.writeConstraints()
			if err != nil {
				return Invocation{}, nil, err
			}
			cleanup = func() { _ = os.Remove(path) }
			args = append(args, "-c", path)
		}
		for _, origin := range job.origins {
			args = append(args, "--extra-index-url", origin)
		}
		if p.Prefix != "" {
			args = append(args, "--prefix", p.Prefix)
		}
		for _, target := range job.Targets() {
			args = append(args, target.Raw)
		}

	case ActionUninstall:
		// Uninstall takes bare names; versions and sources are meaningless.
		args = append(args, "uninstall", "-y")
		args = append(args, job.TargetNames()...)

	default:
		return Invocation{}, nil, fmt.Errorf("pip: action %q not supported", job.Action())
	}

	ua := p.UserAgent
	if ua == "" {
		ua = UserAgent()
	}

	return Invocation{
		Program: p.python(),
		Args:    args,
		Env:     environWith("PIP_USER_AGENT_USER_DATA=" + ua),
	}, cleanup, nil
}

// writeConstraints materializes the pin list as a pip constraint file. The
// file is scoped to a single job; the cleanup returned by BuildCommand
// removes it once the job is terminal.
func (p *PipAdapter) writeConstraints() (string, error) {
	f, err := os.CreateTemp("", "plugdeck-constraints-*.txt")
	if err != nil {
		return "", fmt.Errorf("create constraint file: %w", err)
	}
	if _, err := f.WriteString(strings.Join(p.Pins, "\n") + "\n"); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write constraint file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close constraint file: %w", err)
	}
	return f.Name(), nil
}
