package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pictor-app/plugdeck/internal/events"
)

// scriptAdapter runs sh scripts instead of a real package manager, so queue
// behavior is tested against real subprocesses without touching pip or conda.
type scriptAdapter struct {
	tool   Tool
	script func(job *Job) string
}

func (a *scriptAdapter) Tool() Tool      { return a.tool }
func (a *scriptAdapter) Available() bool { return true }

func (a *scriptAdapter) BuildCommand(job *Job) (Invocation, func(), error) {
	return shell(a.script(job)), func() {}, nil
}

func echoAdapter(tool Tool) *scriptAdapter {
	return &scriptAdapter{tool: tool, script: func(job *Job) string {
		return fmt.Sprintf("echo %s %s", job.Action(), job.TargetNames()[0])
	}}
}

func newTestQueue(t *testing.T, adapters map[Tool]Adapter) *Queue {
	t.Helper()
	q := NewQueue(QueueConfig{
		Adapters: adapters,
		Broker:   events.NewBrokerWithBuffer(4096),
	})
	q.Start()
	t.Cleanup(q.Stop)
	return q
}

func waitFor(t *testing.T, q *Queue, id string) JobInfo {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	info, err := q.Wait(ctx, id)
	require.NoError(t, err)
	return info
}

func TestQueue_InstallSucceeds(t *testing.T) {
	q := newTestQueue(t, map[Tool]Adapter{Pip: echoAdapter(Pip)})

	id, err := q.Install(Pip, []string{"foo==1.2.3"})
	require.NoError(t, err)

	info := waitFor(t, q, id)
	assert.Equal(t, StateSucceeded, info.State)
	assert.Equal(t, 0, info.ExitCode)
	assert.NotEmpty(t, info.Output)
	assert.NoError(t, info.Err)
}

func TestQueue_FailureKeepsOutputForDiagnosis(t *testing.T) {
	q := newTestQueue(t, map[Tool]Adapter{Pip: &scriptAdapter{tool: Pip, script: func(*Job) string {
		return "echo no matching distribution; exit 1"
	}}})

	id, err := q.Install(Pip, []string{"badpkg"})
	require.NoError(t, err)

	info := waitFor(t, q, id)
	assert.Equal(t, StateFailed, info.State)
	assert.Equal(t, 1, info.ExitCode)

	var failure *ToolFailure
	require.ErrorAs(t, info.Err, &failure)
	assert.Equal(t, Pip, failure.Tool)
	assert.Equal(t, 1, failure.ExitCode)
	assert.Contains(t, failure.Error(), "no matching distribution")
}

func TestQueue_SpawnErrorFailsJob(t *testing.T) {
	broken := adapterFunc(func(*Job) (Invocation, func(), error) {
		return Invocation{Program: "definitely-not-a-real-binary-xyz"}, func() {}, nil
	})
	q := newTestQueue(t, map[Tool]Adapter{Pip: broken})

	id, err := q.Install(Pip, []string{"foo"})
	require.NoError(t, err)

	info := waitFor(t, q, id)
	assert.Equal(t, StateFailed, info.State)
	var spawn *SpawnError
	assert.ErrorAs(t, info.Err, &spawn)
}

// adapterFunc adapts a bare BuildCommand into an Adapter for tests.
type adapterFunc func(*Job) (Invocation, func(), error)

func (adapterFunc) Tool() Tool      { return Pip }
func (adapterFunc) Available() bool { return true }
func (f adapterFunc) BuildCommand(job *Job) (Invocation, func(), error) {
	return f(job)
}

func TestQueue_FIFOWithinTool(t *testing.T) {
	q := newTestQueue(t, map[Tool]Adapter{Conda: echoAdapter(Conda)})
	startedCh := q.Broker().Subscribe(events.JobStartedEvent)

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := q.Install(Conda, []string{fmt.Sprintf("pkg%d", i)})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	var startedOrder []string
	for range ids {
		select {
		case ev := <-startedCh:
			startedOrder = append(startedOrder, ev.Payload.(events.JobPayload).ID)
		case <-time.After(30 * time.Second):
			t.Fatal("timed out waiting for job starts")
		}
	}
	assert.Equal(t, ids, startedOrder)
}

func TestQueue_SecondJobWaitsForFirst(t *testing.T) {
	q := newTestQueue(t, map[Tool]Adapter{Conda: &scriptAdapter{tool: Conda, script: func(job *Job) string {
		if job.TargetNames()[0] == "bar" {
			return "echo bar started; sleep 0.4"
		}
		return "echo baz"
	}}})
	startedCh := q.Broker().Subscribe(events.JobStartedEvent)

	first, err := q.Install(Conda, []string{"bar"})
	require.NoError(t, err)
	second, err := q.Install(Conda, []string{"baz"})
	require.NoError(t, err)

	// First job is running...
	select {
	case ev := <-startedCh:
		require.Equal(t, first, ev.Payload.(events.JobPayload).ID)
	case <-time.After(10 * time.Second):
		t.Fatal("first job never started")
	}

	// ...and the second holds in Queued until the first is terminal.
	info, err := q.Job(second)
	require.NoError(t, err)
	assert.Equal(t, StateQueued, info.State)

	firstInfo := waitFor(t, q, first)
	assert.Equal(t, StateSucceeded, firstInfo.State)
	secondInfo := waitFor(t, q, second)
	assert.Equal(t, StateSucceeded, secondInfo.State)
}

func TestQueue_DifferentToolsRunConcurrently(t *testing.T) {
	script := func(*Job) string { return "sleep 0.5" }
	q := newTestQueue(t, map[Tool]Adapter{
		Pip:   &scriptAdapter{tool: Pip, script: script},
		Conda: &scriptAdapter{tool: Conda, script: script},
	})

	pipID, err := q.Install(Pip, []string{"foo"})
	require.NoError(t, err)
	condaID, err := q.Install(Conda, []string{"bar"})
	require.NoError(t, err)

	bothRunning := func() bool {
		pip, _ := q.Job(pipID)
		conda, _ := q.Job(condaID)
		return pip.State == StateRunning && conda.State == StateRunning
	}
	require.Eventually(t, bothRunning, 5*time.Second, 5*time.Millisecond,
		"pip and conda jobs should overlap in Running")

	waitFor(t, q, pipID)
	waitFor(t, q, condaID)
}

func TestQueue_CancelQueuedNeverSpawns(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	q := newTestQueue(t, map[Tool]Adapter{Pip: &scriptAdapter{tool: Pip, script: func(job *Job) string {
		if job.TargetNames()[0] == "blocker" {
			return "sleep 5"
		}
		return "touch " + marker
	}}})
	startedCh := q.Broker().Subscribe(events.JobStartedEvent)

	blocker, err := q.Uninstall(Pip, []string{"blocker"})
	require.NoError(t, err)
	select {
	case <-startedCh:
	case <-time.After(10 * time.Second):
		t.Fatal("blocker never started")
	}

	queued, err := q.Uninstall(Pip, []string{"qux"})
	require.NoError(t, err)
	require.NoError(t, q.Cancel(queued))

	info := waitFor(t, q, queued)
	assert.Equal(t, StateCancelled, info.State)
	assert.Empty(t, info.Output)
	assert.NoFileExists(t, marker, "cancelled queued job must never spawn a process")

	// Idempotent after the first cancel.
	assert.NoError(t, q.Cancel(queued))

	require.NoError(t, q.Cancel(blocker))
	blockerInfo := waitFor(t, q, blocker)
	assert.Equal(t, StateCancelled, blockerInfo.State)
}

func TestQueue_CancelRunningTerminatesProcess(t *testing.T) {
	q := newTestQueue(t, map[Tool]Adapter{Pip: &scriptAdapter{tool: Pip, script: func(*Job) string {
		return "echo working; sleep 30"
	}}})
	startedCh := q.Broker().Subscribe(events.JobStartedEvent)

	id, err := q.Install(Pip, []string{"foo"})
	require.NoError(t, err)
	select {
	case <-startedCh:
	case <-time.After(10 * time.Second):
		t.Fatal("job never started")
	}

	require.NoError(t, q.Cancel(id))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	info, err := q.Wait(ctx, id)
	require.NoError(t, err, "cancelled process must terminate promptly")
	assert.Equal(t, StateCancelled, info.State)
}

func TestQueue_CancelUnknownJob(t *testing.T) {
	q := newTestQueue(t, map[Tool]Adapter{Pip: echoAdapter(Pip)})
	assert.ErrorIs(t, q.Cancel("no-such-id"), ErrUnknownJob)

	_, err := q.Job("no-such-id")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestQueue_CancelAllLeavesNothingPending(t *testing.T) {
	q := newTestQueue(t, map[Tool]Adapter{
		Pip:   &scriptAdapter{tool: Pip, script: func(*Job) string { return "sleep 5" }},
		Conda: &scriptAdapter{tool: Conda, script: func(*Job) string { return "sleep 5" }},
	})

	var ids []string
	for i := 0; i < 3; i++ {
		pipID, err := q.Install(Pip, []string{fmt.Sprintf("p%d", i)})
		require.NoError(t, err)
		condaID, err := q.Install(Conda, []string{fmt.Sprintf("c%d", i)})
		require.NoError(t, err)
		ids = append(ids, pipID, condaID)
	}

	q.CancelAll()

	for _, id := range ids {
		info := waitFor(t, q, id)
		assert.Equal(t, StateCancelled, info.State, "job %s", id)
	}
	assert.False(t, q.HasJobs())
	for _, info := range q.Jobs() {
		assert.True(t, info.State.Terminal())
	}
}

func TestQueue_InvalidSubmissions(t *testing.T) {
	q := newTestQueue(t, map[Tool]Adapter{Pip: echoAdapter(Pip)})

	_, err := q.Install(Pip, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = q.Install(Pip, []string{"not a spec"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = q.Install(Tool("apt"), []string{"foo"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = q.Submit(Action("reinstall"), Pip, []string{"foo"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestQueue_FailureIsLocalToOneJob(t *testing.T) {
	q := newTestQueue(t, map[Tool]Adapter{Pip: &scriptAdapter{tool: Pip, script: func(job *Job) string {
		if job.TargetNames()[0] == "bad" {
			return "exit 1"
		}
		return "echo ok"
	}}})

	bad, err := q.Install(Pip, []string{"bad"})
	require.NoError(t, err)
	good, err := q.Install(Pip, []string{"good"})
	require.NoError(t, err)

	assert.Equal(t, StateFailed, waitFor(t, q, bad).State)
	assert.Equal(t, StateSucceeded, waitFor(t, q, good).State)
}

func TestQueue_DrainedEventCarriesExitCodes(t *testing.T) {
	q := newTestQueue(t, map[Tool]Adapter{Pip: &scriptAdapter{tool: Pip, script: func(job *Job) string {
		if job.TargetNames()[0] == "bad" {
			return "exit 2"
		}
		return "echo ok"
	}}})
	drainedCh := q.Broker().Subscribe(events.QueueDrainedEvent)

	_, err := q.Install(Pip, []string{"good"})
	require.NoError(t, err)
	_, err = q.Install(Pip, []string{"bad"})
	require.NoError(t, err)

	select {
	case ev := <-drainedCh:
		payload := ev.Payload.(events.QueueDrainedPayload)
		assert.ElementsMatch(t, []int{0, 2}, payload.ExitCodes)
	case <-time.After(30 * time.Second):
		t.Fatal("queue never drained")
	}
	assert.False(t, q.HasJobs())
}

func TestQueue_ConstraintFileRemovedAfterTerminalState(t *testing.T) {
	pins := []string{"pictor==0.3.0", "numpy==2.1.2"}

	cases := []struct {
		name   string
		python string // stand-in executables with known exit behavior
		state  JobState
	}{
		{name: "success", python: "true", state: StateSucceeded},
		{name: "failure", python: "false", state: StateFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var mu sync.Mutex
			var constraintPath string
			pip := &PipAdapter{Python: tc.python, Pins: pins}
			capture := adapterFunc(func(job *Job) (Invocation, func(), error) {
				inv, cleanup, err := pip.BuildCommand(job)
				mu.Lock()
				for i, arg := range inv.Args {
					if arg == "-c" && i+1 < len(inv.Args) {
						constraintPath = inv.Args[i+1]
					}
				}
				mu.Unlock()
				return inv, cleanup, err
			})

			q := newTestQueue(t, map[Tool]Adapter{Pip: capture})
			id, err := q.Install(Pip, []string{"pictor-svg==1.0.0"})
			require.NoError(t, err)

			info := waitFor(t, q, id)
			assert.Equal(t, tc.state, info.State)

			mu.Lock()
			path := constraintPath
			mu.Unlock()
			require.NotEmpty(t, path, "pip install must pass a constraint file")
			assert.Eventually(t, func() bool {
				_, err := os.Stat(path)
				return errors.Is(err, os.ErrNotExist)
			}, 5*time.Second, 10*time.Millisecond, "constraint file must be removed once the job is terminal")
		})
	}
}

type fakeHost struct {
	mu       sync.Mutex
	loaded   map[string]bool
	unloaded []string
	sticky   map[string]bool // plugins that refuse to unload
}

func (h *fakeHost) IsLoaded(plugin string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loaded[plugin]
}

func (h *fakeHost) Unload(plugin string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sticky[plugin] {
		return fmt.Errorf("plugin %s has live imports", plugin)
	}
	delete(h.loaded, plugin)
	h.unloaded = append(h.unloaded, plugin)
	return nil
}

func TestQueue_UninstallMarksRestartWhenHostCannotUnload(t *testing.T) {
	host := &fakeHost{
		loaded: map[string]bool{"pictor-svg": true, "pictor-gif": true},
		sticky: map[string]bool{"pictor-svg": true},
	}
	q := NewQueue(QueueConfig{
		Adapters: map[Tool]Adapter{Pip: echoAdapter(Pip)},
		Broker:   events.NewBrokerWithBuffer(4096),
		Host:     host,
	})
	q.Start()
	t.Cleanup(q.Stop)
	restartCh := q.Broker().Subscribe(events.RestartRequiredEvent)

	id, err := q.Uninstall(Pip, []string{"pictor-svg", "pictor-gif"})
	require.NoError(t, err)
	info := waitFor(t, q, id)
	require.Equal(t, StateSucceeded, info.State)

	assert.True(t, q.Restart().Required("pictor-svg"))
	assert.False(t, q.Restart().Required("pictor-gif"))
	assert.Equal(t, []string{"pictor-svg"}, q.Restart().Pending())

	select {
	case ev := <-restartCh:
		assert.Equal(t, "pictor-svg", ev.Payload.(events.RestartRequiredPayload).Plugin)
	case <-time.After(5 * time.Second):
		t.Fatal("restart event never fired")
	}
}

func TestQueue_SubmitAfterStopIsRejected(t *testing.T) {
	q := NewQueue(QueueConfig{Adapters: map[Tool]Adapter{Pip: echoAdapter(Pip)}})
	q.Start()
	q.Stop()

	_, err := q.Install(Pip, []string{"foo"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}
