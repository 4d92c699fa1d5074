// Package installer runs plugin install, uninstall and upgrade jobs by
// driving external package managers as subprocesses.
//
// # Overview
//
// Pictor plugins are plain Python packages, so changing them means invoking
// pip or conda. Both tools keep mutable on-disk state that is not safe to
// touch from two processes at once, so this package provides:
//   - Per-tool serialization (one running job per tool, FIFO within a tool)
//   - Cross-tool parallelism (a pip job and a conda job may overlap)
//   - Incremental output streaming to subscribers
//   - Per-job and global cancellation with graceful-then-forceful shutdown
//
// # Architecture
//
// The package is built from composable parts:
//
//   - Job: one queued request (action, tool, targets) with a lifecycle state
//   - Adapter: maps a Job to the concrete command line (pip.go, conda.go)
//   - Runner: owns a single subprocess and its merged output stream
//   - Queue: admission, per-tool scheduling, cancellation, event fan-out
//   - RestartTracker: plugins whose change needs a host restart
//
// # Usage
//
//	q := installer.NewQueue(installer.QueueConfig{Broker: broker})
//	q.Start()
//
//	id, err := q.Install(installer.Pip, []string{"pictor-svg==1.2.0"})
//	if err != nil { ... }
//
//	// Progress arrives on the event broker; block only if you want to.
//	info, _ := q.Wait(ctx, id)
//
// Callers hold only the returned job id. Job state is observed through
// events or read-only snapshots, never by mutating the Job directly.
package installer
