//go:build !windows

package installer

import (
	"os/exec"
	"syscall"
)

// setProcAttrs puts the child in its own process group so termination
// reaches the whole tree (pip and conda both fork helpers); otherwise an
// orphaned grandchild keeps the output pipe open past cancellation.
func setProcAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalTerm(cmd *exec.Cmd) {
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
}

func signalKill(cmd *exec.Cmd) {
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
