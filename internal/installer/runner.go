package installer

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// Invocation is a fully resolved external command, produced by an Adapter.
type Invocation struct {
	Program string
	Args    []string
	Env     []string // nil inherits the parent environment
	Dir     string
}

// Result is the terminal outcome of one subprocess, delivered exactly once.
type Result struct {
	ExitCode  int
	Cancelled bool
}

// DefaultGrace is how long a cancelled process gets to exit after the
// termination signal before it is killed.
const DefaultGrace = 5 * time.Second

// Runner owns exactly one subprocess invocation at a time. Stdout and stderr
// share a single pipe, so lines arrive in the order the OS delivers them;
// cross-stream ordering is best-effort and nothing may rely on it.
type Runner struct {
	Grace  time.Duration
	Logger *slog.Logger
}

// NewRunner creates a runner with the default grace period.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Grace: DefaultGrace, Logger: logger}
}

// Run starts the invocation and blocks until it exits or the context is
// cancelled. Each captured output line is handed to onLine as it is produced.
//
// Cancellation is cooperative: the process group first receives SIGTERM,
// then SIGKILL after the grace period. A non-zero exit is not an error here;
// the queue decides what it means. The only error Run returns is a
// *SpawnError when the process could not be started.
func (r *Runner) Run(ctx context.Context, inv Invocation, onLine func(string)) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1, Cancelled: true}, nil
	}

	cmd := exec.Command(inv.Program, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	setProcAttrs(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		return Result{ExitCode: -1}, &SpawnError{Program: inv.Program, Err: err}
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	r.Logger.Debug("starting process", "program", inv.Program, "args", inv.Args)

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return Result{ExitCode: -1}, &SpawnError{Program: inv.Program, Err: err}
	}
	// The child holds its own copy of the write end now.
	pw.Close()

	scanned := make(chan struct{})
	go func() {
		defer close(scanned)
		defer pr.Close()
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
	}()

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	cancelled := false
	select {
	case <-ctx.Done():
		cancelled = true
		signalTerm(cmd)
		grace := r.Grace
		if grace <= 0 {
			grace = DefaultGrace
		}
		select {
		case <-waitErr:
		case <-time.After(grace):
			signalKill(cmd)
			<-waitErr
		}
	case <-waitErr:
	}

	<-scanned

	code := cmd.ProcessState.ExitCode()
	r.Logger.Debug("process finished", "program", inv.Program, "exit_code", code, "cancelled", cancelled)
	return Result{ExitCode: code, Cancelled: cancelled}, nil
}
