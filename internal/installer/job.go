package installer

import (
	"context"
	"time"

	"github.com/pictor-app/plugdeck/internal/csync"
)

// Action is what a job asks the backend to do.
type Action string

const (
	ActionInstall   Action = "install"
	ActionUninstall Action = "uninstall"
	ActionUpgrade   Action = "upgrade"
)

// Tool identifies the external package manager a job is bound to. The set is
// closed: adding a backend means adding an Adapter variant, not touching
// callers.
type Tool string

const (
	Pip   Tool = "pip"
	Conda Tool = "conda"
)

// Tools lists every supported backend.
func Tools() []Tool { return []Tool{Pip, Conda} }

// JobState is one node of the job lifecycle:
//
//	Queued → Running → {Succeeded | Failed | Cancelled}
//
// plus the Queued → Cancelled shortcut for jobs cancelled before dispatch.
// Terminal states are final; retrying means submitting a fresh job.
type JobState string

const (
	StateQueued    JobState = "queued"
	StateRunning   JobState = "running"
	StateSucceeded JobState = "succeeded"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether the state is final.
func (s JobState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// ExitInfo is populated exactly once, when a job reaches a terminal state.
type ExitInfo struct {
	ExitCode int
	Err      error // SpawnError or ToolFailure for failed jobs, nil otherwise
}

// Job is one queued unit of work. Tool and targets never change after
// creation; state, output and exit info mutate only on the worker that owns
// the job. Callers outside the queue read jobs through Snapshot().
type Job struct {
	id      string
	action  Action
	tool    Tool
	targets []PackageSpec
	origins []string
	created time.Time

	// Cancellation is cooperative: cancelling this context asks the runner
	// to terminate the process, or skips dispatch entirely if still queued.
	ctx    context.Context
	cancel context.CancelFunc

	state  *csync.Value[JobState]
	exit   *csync.Value[ExitInfo]
	output *csync.Slice[string]

	// done closes at the terminal transition; Wait blocks on it.
	done chan struct{}
}

func newJob(ctx context.Context, id string, action Action, tool Tool, targets []PackageSpec, origins []string) *Job {
	jobCtx, cancel := context.WithCancel(ctx)
	return &Job{
		id:      id,
		action:  action,
		tool:    tool,
		targets: targets,
		origins: origins,
		created: time.Now(),
		ctx:     jobCtx,
		cancel:  cancel,
		state:   csync.NewValue(StateQueued),
		exit:    csync.NewValue(ExitInfo{}),
		output:  csync.NewSlice[string](),
		done:    make(chan struct{}),
	}
}

func (j *Job) ID() string      { return j.id }
func (j *Job) Action() Action  { return j.action }
func (j *Job) Tool() Tool      { return j.tool }
func (j *Job) State() JobState { return j.state.Get() }

// Targets returns a copy of the parsed target specifiers.
func (j *Job) Targets() []PackageSpec {
	out := make([]PackageSpec, len(j.targets))
	copy(out, j.targets)
	return out
}

// TargetNames returns the bare package names (no versions or sources).
func (j *Job) TargetNames() []string {
	names := make([]string, 0, len(j.targets))
	for _, t := range j.targets {
		if t.Name != "" {
			names = append(names, t.Name)
		} else {
			names = append(names, t.Raw)
		}
	}
	return names
}

// Output returns a copy of the captured output lines so far.
func (j *Job) Output() []string { return j.output.Copy() }

// Exit returns the terminal result; zero value while non-terminal.
func (j *Job) Exit() ExitInfo { return j.exit.Get() }

// Done closes when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

func (j *Job) appendOutput(line string) { j.output.Append(line) }

// markRunning moves Queued → Running. Returns false if the job was cancelled
// (or otherwise left Queued) in the meantime, in which case it must not run.
func (j *Job) markRunning() bool {
	return j.state.CompareAndSwap(StateQueued, StateRunning)
}

// finish performs the terminal transition exactly once.
func (j *Job) finish(state JobState, exit ExitInfo) bool {
	cur := j.state.Get()
	if cur.Terminal() {
		return false
	}
	if !j.state.CompareAndSwap(cur, state) {
		return false
	}
	j.exit.Set(exit)
	j.cancel() // release the context either way
	close(j.done)
	return true
}

// JobInfo is a read-only snapshot handed to subscribers and the UI.
type JobInfo struct {
	ID       string
	Action   Action
	Tool     Tool
	Targets  []string
	State    JobState
	ExitCode int
	Err      error
	Output   []string
	Created  time.Time
}

// Snapshot captures the job's current observable state.
func (j *Job) Snapshot() JobInfo {
	exit := j.Exit()
	targets := make([]string, len(j.targets))
	for i, t := range j.targets {
		targets[i] = t.Raw
	}
	return JobInfo{
		ID:       j.id,
		Action:   j.action,
		Tool:     j.tool,
		Targets:  targets,
		State:    j.State(),
		ExitCode: exit.ExitCode,
		Err:      exit.Err,
		Output:   j.Output(),
		Created:  j.created,
	}
}
