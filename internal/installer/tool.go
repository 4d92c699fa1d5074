package installer

import (
	"fmt"
	"os"
	"runtime"
)

// Adapter translates a job into the concrete invocation for one backend.
// The set of adapters is closed: pip and conda. A new backend is a new
// variant wired into the queue, never a change to callers.
type Adapter interface {
	Tool() Tool

	// BuildCommand resolves the executable, arguments and environment for
	// the job. The returned cleanup releases job-scoped resources (pip's
	// constraint file); the queue runs it once the job is terminal, on
	// every path including cancellation.
	BuildCommand(job *Job) (Invocation, func(), error)

	// Available reports whether the backend executable can be located.
	Available() bool
}

// AppVersion is stamped at release time.
const AppVersion = "0.3.0"

// UserAgent identifies plugdeck-driven requests in index logs.
func UserAgent() string {
	return fmt.Sprintf("plugdeck/%s (%s %s)", AppVersion, runtime.GOOS, runtime.GOARCH)
}

// environWith returns the process environment with extra KEY=VALUE entries
// appended. Later entries win, which is how os/exec resolves duplicates.
func environWith(extra ...string) []string {
	return append(os.Environ(), extra...)
}
