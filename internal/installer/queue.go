package installer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pictor-app/plugdeck/internal/csync"
	"github.com/pictor-app/plugdeck/internal/events"
)

// QueueConfig wires a Queue to its collaborators. Zero values get sane
// defaults so tests can construct queues with only the pieces they poke.
type QueueConfig struct {
	// Adapters maps each tool to its adapter. Defaults to a stock
	// PipAdapter and CondaAdapter.
	Adapters map[Tool]Adapter

	// Broker receives job lifecycle events. Defaults to a private broker.
	Broker *events.Broker

	// Runner executes the external processes. Defaults to NewRunner.
	Runner *Runner

	// Host is consulted after uninstalls and upgrades to unload plugin
	// code. Defaults to a detached host (nothing loaded).
	Host HostState

	Logger *slog.Logger
}

// Queue accepts install/uninstall/upgrade jobs and executes them as external
// processes, one running job per tool at a time, FIFO within a tool, with
// unrestricted parallelism across tools. Submission never blocks; progress
// and terminal results arrive on the event broker.
type Queue struct {
	adapters map[Tool]Adapter
	broker   *events.Broker
	runner   *Runner
	host     HostState
	restart  *RestartTracker
	logger   *slog.Logger

	jobs  *csync.Map[string, *Job]
	lanes map[Tool]*lane

	ctx       context.Context
	cancelCtx context.CancelFunc
	wg        sync.WaitGroup

	mu          sync.Mutex
	started     bool
	stopped     bool
	outstanding int   // jobs not yet terminal
	exitCodes   []int // terminal exit codes of the current batch
}

// lane is the per-tool scheduling slot: a FIFO of queued jobs plus a wake
// signal for the tool's single worker. One lane per tool is exactly what
// enforces "at most one running job per tool".
type lane struct {
	tool    Tool
	mu      sync.Mutex
	pending []*Job
	wake    chan struct{}
}

func newLane(tool Tool) *lane {
	return &lane{tool: tool, wake: make(chan struct{}, 1)}
}

func (l *lane) push(job *Job) {
	l.mu.Lock()
	l.pending = append(l.pending, job)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *lane) pop() *Job {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil
	}
	job := l.pending[0]
	l.pending = l.pending[1:]
	return job
}

// remove takes a still-pending job out of the lane. Returns false if the
// worker already claimed it.
func (l *lane) remove(job *Job) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, pending := range l.pending {
		if pending == job {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			return true
		}
	}
	return false
}

// NewQueue creates a queue. Call Start before submitting.
func NewQueue(cfg QueueConfig) *Queue {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Broker == nil {
		cfg.Broker = events.NewBroker()
	}
	if cfg.Runner == nil {
		cfg.Runner = NewRunner(cfg.Logger)
	}
	if cfg.Host == nil {
		cfg.Host = detachedHost{}
	}
	if cfg.Adapters == nil {
		cfg.Adapters = map[Tool]Adapter{
			Pip:   &PipAdapter{},
			Conda: &CondaAdapter{},
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		adapters:  cfg.Adapters,
		broker:    cfg.Broker,
		runner:    cfg.Runner,
		host:      cfg.Host,
		restart:   NewRestartTracker(),
		logger:    cfg.Logger,
		jobs:      csync.NewMap[string, *Job](),
		lanes:     make(map[Tool]*lane),
		ctx:       ctx,
		cancelCtx: cancel,
	}
	for tool := range q.adapters {
		q.lanes[tool] = newLane(tool)
	}
	return q
}

// Start launches one worker per tool.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	for _, l := range q.lanes {
		q.wg.Add(1)
		go q.worker(l)
	}
}

// Stop cancels every non-terminal job and waits for the workers to exit.
// The queue cannot be restarted.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()

	q.CancelAll()
	q.cancelCtx()
	q.wg.Wait()
}

// Broker exposes the event stream the queue publishes to.
func (q *Queue) Broker() *events.Broker { return q.broker }

// Restart exposes the restart-required set.
func (q *Queue) Restart() *RestartTracker { return q.restart }

// SubmitOption tweaks a single submission.
type SubmitOption func(*submitOptions)

type submitOptions struct {
	origins []string
}

// WithOrigins adds extra package sources: --extra-index-url entries for pip,
// channels ahead of the defaults for conda.
func WithOrigins(origins ...string) SubmitOption {
	return func(o *submitOptions) {
		o.origins = append(o.origins, origins...)
	}
}

// Install enqueues an install job. The returned id can be cancelled or
// waited on while the caller goes back to its event loop.
func (q *Queue) Install(tool Tool, targets []string, opts ...SubmitOption) (string, error) {
	return q.Submit(ActionInstall, tool, targets, opts...)
}

// Uninstall enqueues an uninstall job.
func (q *Queue) Uninstall(tool Tool, targets []string, opts ...SubmitOption) (string, error) {
	return q.Submit(ActionUninstall, tool, targets, opts...)
}

// Upgrade enqueues an upgrade job.
func (q *Queue) Upgrade(tool Tool, targets []string, opts ...SubmitOption) (string, error) {
	return q.Submit(ActionUpgrade, tool, targets, opts...)
}

// Submit validates and enqueues a job, returning its id. The job starts in
// Queued and is dispatched when its tool's slot frees up; submission itself
// never blocks on execution.
func (q *Queue) Submit(action Action, tool Tool, targets []string, opts ...SubmitOption) (string, error) {
	switch action {
	case ActionInstall, ActionUninstall, ActionUpgrade:
	default:
		return "", fmt.Errorf("%w: action %q", ErrInvalidRequest, action)
	}
	l, ok := q.lanes[tool]
	if !ok {
		return "", fmt.Errorf("%w: tool %q", ErrInvalidRequest, tool)
	}
	specs, err := ParseSpecs(targets)
	if err != nil {
		return "", err
	}

	var options submitOptions
	for _, opt := range opts {
		opt(&options)
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return "", ErrQueueClosed
	}
	q.outstanding++
	q.mu.Unlock()

	job := newJob(q.ctx, uuid.NewString(), action, tool, specs, options.origins)
	q.jobs.Set(job.id, job)
	l.push(job)

	q.logger.Info("job queued", "id", job.id, "action", action, "tool", tool, "targets", targets)
	q.broker.Publish(events.Event{Type: events.JobQueuedEvent, Payload: q.jobPayload(job)})
	return job.id, nil
}

// Cancel requests cancellation of one job. A queued job moves straight to
// Cancelled without ever spawning a process; a running job gets the
// graceful-then-forceful treatment. Cancelling a terminal job is a no-op.
func (q *Queue) Cancel(id string) error {
	job, ok := q.jobs.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	if job.State().Terminal() {
		return nil
	}

	if q.lanes[job.tool].remove(job) {
		if job.finish(StateCancelled, ExitInfo{ExitCode: -1}) {
			q.logger.Info("job cancelled before dispatch", "id", job.id)
			q.finishEvent(job, events.JobCancelledEvent, "")
			q.onTerminal(job)
		}
		return nil
	}

	// Running, or claimed by the worker but not yet spawned. Cancelling the
	// job context covers both: the runner terminates the process, or the
	// worker notices before spawning and never starts one.
	job.cancel()
	return nil
}

// CancelAll cancels every non-terminal job, queued and running. No job
// cancelled while still queued will ever be dispatched.
func (q *Queue) CancelAll() {
	for _, job := range q.jobsInOrder() {
		if !job.State().Terminal() {
			_ = q.Cancel(job.id)
		}
	}
}

// Wait blocks until the job reaches a terminal state or ctx expires. It
// suspends only the caller; the queue keeps moving.
func (q *Queue) Wait(ctx context.Context, id string) (JobInfo, error) {
	job, ok := q.jobs.Get(id)
	if !ok {
		return JobInfo{}, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	select {
	case <-job.Done():
		return job.Snapshot(), nil
	case <-ctx.Done():
		return JobInfo{}, ctx.Err()
	}
}

// Job returns a read-only snapshot of one job.
func (q *Queue) Job(id string) (JobInfo, error) {
	job, ok := q.jobs.Get(id)
	if !ok {
		return JobInfo{}, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	return job.Snapshot(), nil
}

// Jobs returns snapshots of every tracked job in submission order.
func (q *Queue) Jobs() []JobInfo {
	jobs := q.jobsInOrder()
	infos := make([]JobInfo, len(jobs))
	for i, job := range jobs {
		infos[i] = job.Snapshot()
	}
	return infos
}

// HasJobs reports whether any job is still queued or running.
func (q *Queue) HasJobs() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outstanding > 0
}

func (q *Queue) jobsInOrder() []*Job {
	jobs := q.jobs.Values()
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].created.Before(jobs[j].created) })
	return jobs
}

// worker is the single execution slot for one tool.
func (q *Queue) worker(l *lane) {
	defer q.wg.Done()
	for {
		job := l.pop()
		if job == nil {
			select {
			case <-q.ctx.Done():
				return
			case <-l.wake:
				continue
			}
		}
		q.runJob(job)
	}
}

func (q *Queue) runJob(job *Job) {
	// Cancelled after submit but before dispatch: never spawn.
	if job.ctx.Err() != nil || !job.markRunning() {
		if job.finish(StateCancelled, ExitInfo{ExitCode: -1}) {
			q.finishEvent(job, events.JobCancelledEvent, "")
			q.onTerminal(job)
		}
		return
	}

	q.logger.Info("job started", "id", job.id, "tool", job.tool, "action", job.action)
	q.broker.Publish(events.Event{Type: events.JobStartedEvent, Payload: q.jobPayload(job)})

	adapter := q.adapters[job.tool]
	inv, cleanup, err := adapter.BuildCommand(job)
	if err != nil {
		job.finish(StateFailed, ExitInfo{ExitCode: -1, Err: err})
		q.finishEvent(job, events.JobFailedEvent, err.Error())
		q.onTerminal(job)
		return
	}

	result, runErr := q.runner.Run(job.ctx, inv, func(line string) {
		job.appendOutput(line)
		q.broker.Publish(events.Event{
			Type:    events.JobOutputEvent,
			Payload: events.JobOutputPayload{ID: job.id, Line: line},
		})
	})

	// The constraint file (and any other job-scoped resource) dies with the
	// job, success or not.
	defer cleanup()

	switch {
	case runErr != nil:
		job.finish(StateFailed, ExitInfo{ExitCode: result.ExitCode, Err: runErr})
		q.logger.Error("job spawn failed", "id", job.id, "error", runErr)
		q.finishEvent(job, events.JobFailedEvent, runErr.Error())

	case result.Cancelled:
		job.finish(StateCancelled, ExitInfo{ExitCode: result.ExitCode})
		q.logger.Info("job cancelled", "id", job.id)
		q.finishEvent(job, events.JobCancelledEvent, "")

	case result.ExitCode == 0:
		q.afterSuccess(job)
		job.finish(StateSucceeded, ExitInfo{ExitCode: 0})
		q.logger.Info("job succeeded", "id", job.id)
		q.finishEvent(job, events.JobSucceededEvent, "")

	default:
		failure := &ToolFailure{
			Tool:     job.tool,
			ExitCode: result.ExitCode,
			Output:   outputTail(job.Output(), 10),
		}
		job.finish(StateFailed, ExitInfo{ExitCode: result.ExitCode, Err: failure})
		q.logger.Warn("job failed", "id", job.id, "exit_code", result.ExitCode)
		q.finishEvent(job, events.JobFailedEvent, failure.Error())
	}

	q.onTerminal(job)
}

// afterSuccess asks the host to drop code for removed or replaced plugins.
// A plugin the host cannot unload needs a restart to finish the change.
func (q *Queue) afterSuccess(job *Job) {
	if job.action != ActionUninstall && job.action != ActionUpgrade {
		return
	}
	for _, name := range job.TargetNames() {
		if !q.host.IsLoaded(name) {
			continue
		}
		if err := q.host.Unload(name); err != nil {
			q.restart.Mark(name)
			q.logger.Info("restart required", "plugin", name, "reason", err)
			q.broker.Publish(events.Event{
				Type:    events.RestartRequiredEvent,
				Payload: events.RestartRequiredPayload{Plugin: name},
			})
		}
	}
}

// onTerminal does batch bookkeeping and fires the drained event when the
// last outstanding job finishes.
func (q *Queue) onTerminal(job *Job) {
	q.mu.Lock()
	q.exitCodes = append(q.exitCodes, job.Exit().ExitCode)
	q.outstanding--
	var drained []int
	if q.outstanding == 0 {
		drained = q.exitCodes
		q.exitCodes = nil
	}
	q.mu.Unlock()

	if drained != nil {
		q.broker.Publish(events.Event{
			Type:    events.QueueDrainedEvent,
			Payload: events.QueueDrainedPayload{ExitCodes: drained},
		})
	}
}

func (q *Queue) jobPayload(job *Job) events.JobPayload {
	targets := make([]string, len(job.targets))
	for i, t := range job.targets {
		targets[i] = t.Raw
	}
	return events.JobPayload{
		ID:      job.id,
		Action:  string(job.action),
		Tool:    string(job.tool),
		Targets: targets,
	}
}

func (q *Queue) finishEvent(job *Job, eventType events.EventType, detail string) {
	exit := job.Exit()
	q.broker.Publish(events.Event{
		Type: eventType,
		Payload: events.JobFinishedPayload{
			JobPayload: q.jobPayload(job),
			State:      string(job.State()),
			ExitCode:   exit.ExitCode,
			Detail:     detail,
		},
	})
}
