package installer

// HostState is the narrow view of the running host application the queue
// needs: whether a plugin's code is currently loaded, and a request to unload
// it after a successful uninstall or upgrade. When the host cannot unload a
// plugin, the change only takes effect after a restart and the queue records
// it in the RestartTracker.
type HostState interface {
	IsLoaded(plugin string) bool
	Unload(plugin string) error
}

// detachedHost is the HostState used when no host is wired in (the headless
// CLI). Nothing is loaded, so nothing ever needs a restart.
type detachedHost struct{}

func (detachedHost) IsLoaded(string) bool { return false }
func (detachedHost) Unload(string) error  { return nil }
