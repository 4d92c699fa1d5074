package installer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(script string) Invocation {
	return Invocation{Program: "sh", Args: []string{"-c", script}}
}

func TestRunner_StreamsLinesInOrder(t *testing.T) {
	r := NewRunner(nil)
	var lines []string
	result, err := r.Run(context.Background(), shell("echo one; echo two; echo three"), func(line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.False(t, result.Cancelled)
	assert.Equal(t, []string{"one", "two", "three"}, lines)
}

func TestRunner_MergesStderrIntoStream(t *testing.T) {
	r := NewRunner(nil)
	var lines []string
	result, err := r.Run(context.Background(), shell("echo out; echo err 1>&2"), func(line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.ElementsMatch(t, []string{"out", "err"}, lines)
}

func TestRunner_NonZeroExitIsNotAnError(t *testing.T) {
	r := NewRunner(nil)
	result, err := r.Run(context.Background(), shell("exit 3"), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
	assert.False(t, result.Cancelled)
}

func TestRunner_SpawnError(t *testing.T) {
	r := NewRunner(nil)
	_, err := r.Run(context.Background(), Invocation{Program: "definitely-not-a-real-binary-xyz"}, nil)
	require.Error(t, err)
	var spawn *SpawnError
	assert.ErrorAs(t, err, &spawn)
}

func TestRunner_CancelTerminatesGracefully(t *testing.T) {
	r := NewRunner(nil)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	done := make(chan Result, 1)
	go func() {
		result, _ := r.Run(ctx, shell("echo started; sleep 30"), func(line string) {
			if line == "started" {
				close(started)
			}
		})
		done <- result
	}()

	<-started
	cancel()

	select {
	case result := <-done:
		assert.True(t, result.Cancelled)
		assert.NotEqual(t, 0, result.ExitCode)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled process did not terminate")
	}
}

func TestRunner_CancelEscalatesToKill(t *testing.T) {
	r := NewRunner(nil)
	r.Grace = 200 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	done := make(chan Result, 1)
	go func() {
		// Ignores SIGTERM, so only the escalation can end it.
		result, _ := r.Run(ctx, shell(`trap "" TERM; echo started; while true; do sleep 0.1; done`), func(line string) {
			if line == "started" {
				close(started)
			}
		})
		done <- result
	}()

	<-started
	cancel()

	select {
	case result := <-done:
		assert.True(t, result.Cancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("escalation did not kill the process")
	}
}

func TestRunner_AlreadyCancelledContextNeverSpawns(t *testing.T) {
	r := NewRunner(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	result, err := r.Run(ctx, shell("echo ran"), func(string) { ran = true })
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.False(t, ran)
}
