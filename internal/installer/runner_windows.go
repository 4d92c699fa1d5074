//go:build windows

package installer

import "os/exec"

func setProcAttrs(*exec.Cmd) {}

// Windows has no SIGTERM, so the graceful request is already forceful.
func signalTerm(cmd *exec.Cmd) {
	_ = cmd.Process.Kill()
}

func signalKill(cmd *exec.Cmd) {
	_ = cmd.Process.Kill()
}
