package events

// EventType identifies the type of event.
type EventType string

const (
	// Job lifecycle events, published by the installer queue.
	JobQueuedEvent    EventType = "job.queued"
	JobStartedEvent   EventType = "job.started"
	JobOutputEvent    EventType = "job.output"
	JobSucceededEvent EventType = "job.succeeded"
	JobFailedEvent    EventType = "job.failed"
	JobCancelledEvent EventType = "job.cancelled"

	// QueueDrainedEvent fires when the last tracked job reaches a terminal
	// state and nothing is queued.
	QueueDrainedEvent EventType = "queue.drained"

	// RestartRequiredEvent fires when a plugin change cannot take effect
	// until the host application restarts.
	RestartRequiredEvent EventType = "restart.required"

	// Plugin list events
	PluginsRefreshedEvent EventType = "plugins.refreshed"
	PluginsExportedEvent  EventType = "plugins.exported"

	// UI events
	StatusMessageEvent EventType = "ui.status"
	ErrorMessageEvent  EventType = "ui.error"
)

// Event is one occurrence delivered to subscribers.
type Event struct {
	Type    EventType
	Payload any
}

// Event payload types. These carry plain data so subscribers (the TUI,
// history, tests) never touch live queue state.

// JobPayload describes a job at a lifecycle boundary.
type JobPayload struct {
	ID      string
	Action  string
	Tool    string
	Targets []string
}

// JobOutputPayload carries one captured output line.
type JobOutputPayload struct {
	ID   string
	Line string
}

// JobFinishedPayload describes a terminal transition.
type JobFinishedPayload struct {
	JobPayload
	State    string
	ExitCode int
	Detail   string // error summary for failed jobs
}

// QueueDrainedPayload carries the exit codes of the drained batch, in
// completion order.
type QueueDrainedPayload struct {
	ExitCodes []int
}

// RestartRequiredPayload names the plugin that needs a host restart.
type RestartRequiredPayload struct {
	Plugin string
}

// StatusMessagePayload is a transient message for the status bar.
type StatusMessagePayload struct {
	Message string
	Kind    string // "info", "warning", "error", "success"
}
