package installer

import (
	"sort"

	"github.com/pictor-app/plugdeck/internal/csync"
)

// RestartTracker records plugins whose uninstall or downgrade could not fully
// take effect because the host still has the old code loaded. The set only
// grows; it empties when the application restarts. Uninstall workers for
// different tools can mark entries concurrently, so the set is serialized.
type RestartTracker struct {
	pending *csync.Map[string, struct{}]
}

// NewRestartTracker creates an empty tracker.
func NewRestartTracker() *RestartTracker {
	return &RestartTracker{pending: csync.NewMap[string, struct{}]()}
}

// Mark records that plugin needs a host restart.
func (t *RestartTracker) Mark(plugin string) {
	t.pending.Set(plugin, struct{}{})
}

// Required reports whether plugin is waiting on a restart.
func (t *RestartTracker) Required(plugin string) bool {
	return t.pending.Has(plugin)
}

// Pending returns the plugins waiting on a restart, sorted for stable display.
func (t *RestartTracker) Pending() []string {
	names := t.pending.Keys()
	sort.Strings(names)
	return names
}

// Any reports whether at least one plugin is waiting on a restart.
func (t *RestartTracker) Any() bool {
	return t.pending.Len() > 0
}
