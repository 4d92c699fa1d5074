// Package csync provides small mutex-guarded containers shared between the
// installer queue and the UI.
//
// The queue mutates jobs from per-tool worker goroutines while the TUI and
// tests read snapshots concurrently, so the shared pieces (the job table,
// each job's output log, the restart set, job state) live behind these types
// instead of ad hoc locks:
//
//   - Map: generic map with RWMutex, used for the job table and restart set
//   - Slice: generic append-mostly slice, used for job output logs
//   - Value: a single guarded value with compare-and-swap, used for job state
//
// All operations lock; none return live references to internal storage.
//
// Example usage:
//
//	jobs := csync.NewMap[string, *Job]()
//	jobs.Set(id, job)
//	if job, ok := jobs.Get(id); ok {
//		// Use job safely
//	}
package csync
