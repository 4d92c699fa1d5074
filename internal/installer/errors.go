package installer

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned synchronously by the queue API.
var (
	// ErrInvalidRequest rejects a malformed submission (empty targets or an
	// unparseable specifier). No job is created.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnknownJob is returned for operations referencing an id the queue
	// does not track.
	ErrUnknownJob = errors.New("unknown job")

	// ErrQueueClosed is returned by Submit after the queue has been stopped.
	ErrQueueClosed = errors.New("queue closed")
)

// SpawnError means the external process could not be started at all:
// executable not found, permissions, resource exhaustion. The job fails
// immediately without producing output.
type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("could not start %q: %v", e.Program, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ToolFailure means the external process ran and exited non-zero. It carries
// the tail of the captured output so the failure can be diagnosed without
// scrolling the full log.
type ToolFailure struct {
	Tool     Tool
	ExitCode int
	Output   []string
}

func (e *ToolFailure) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	if len(e.Output) > 0 {
		msg += ": " + strings.Join(e.Output, " / ")
	}
	return msg
}

// outputTail keeps the last few lines of a log for ToolFailure.
func outputTail(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
