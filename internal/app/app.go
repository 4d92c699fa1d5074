package app

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/pictor-app/plugdeck/internal/catalog"
	"github.com/pictor-app/plugdeck/internal/config"
	"github.com/pictor-app/plugdeck/internal/events"
	"github.com/pictor-app/plugdeck/internal/history"
	"github.com/pictor-app/plugdeck/internal/installer"
	"github.com/pictor-app/plugdeck/internal/logging"
	"github.com/pictor-app/plugdeck/internal/plugins"
)

// App holds all the core services and wires them together
type App struct {
	Config    *config.Manager
	Logger    *slog.Logger
	Broker    *events.Broker
	Queue     *installer.Queue
	Catalog   *catalog.Client
	Inventory plugins.Inventory
	History   *history.Manager

	closeLog     func() error
	recorderDone chan struct{}
}

// Options tweak app construction. The zero value is the real thing; tests
// substitute pieces.
type Options struct {
	// BaseDir is where the .plugdeck data directory lives. Defaults to the
	// user home directory.
	BaseDir string

	// Logger overrides the file logger.
	Logger *slog.Logger

	// Inventory overrides the pip-backed inventory.
	Inventory plugins.Inventory

	// Host lets the embedding application unload plugin code after
	// uninstalls and upgrades.
	Host installer.HostState
}

// New creates an app with all services initialized and the queue started.
func New(opts Options) (*App, error) {
	baseDir := opts.BaseDir
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		baseDir = home
	}

	a := &App{
		Config: config.NewManager(baseDir),
		Broker: events.NewBroker(),
	}
	if err := a.Config.Load(); err != nil {
		return nil, err
	}
	cfg := a.Config.Get()

	a.Logger = opts.Logger
	if a.Logger == nil {
		logger, closeLog, err := logging.NewFileLogger(a.Config.DataDir(), cfg.Debug)
		if err != nil {
			return nil, err
		}
		a.Logger = logger
		a.closeLog = closeLog
	}

	python := cfg.PythonExe
	if python == "" {
		python = "python3"
	}

	a.Queue = installer.NewQueue(installer.QueueConfig{
		Adapters: map[installer.Tool]installer.Adapter{
			installer.Pip: &installer.PipAdapter{
				Python: python,
				Pins:   cfg.CriticalPins,
			},
			installer.Conda: &installer.CondaAdapter{
				Pins:     cfg.CriticalPins,
				Prefix:   cfg.CondaPrefix,
				Channels: cfg.Channels,
			},
		},
		Broker: a.Broker,
		Host:   opts.Host,
		Logger: a.Logger,
	})

	a.Catalog = catalog.NewClient(cfg.CatalogURL, installer.UserAgent())

	a.Inventory = opts.Inventory
	if a.Inventory == nil {
		a.Inventory = &plugins.PipInventory{Python: python, Prefix: cfg.CondaPrefix}
	}

	a.History = history.NewManager(a.Config.DataDir())
	if err := a.History.Initialize(); err != nil {
		a.Logger.Warn("job history unavailable", "error", err)
	}

	// Subscribe before the queue starts so no terminal event is missed.
	finished := a.Broker.Subscribe(
		events.JobSucceededEvent,
		events.JobFailedEvent,
		events.JobCancelledEvent,
	)
	a.recorderDone = make(chan struct{})
	go a.recordFinishedJobs(finished)

	a.Queue.Start()

	return a, nil
}

// DefaultTool returns the backend new submissions should use: the configured
// override if set, otherwise whichever tool installed the host application.
func (a *App) DefaultTool() installer.Tool {
	switch a.Config.Get().DefaultTool {
	case "pip":
		return installer.Pip
	case "conda":
		return installer.Conda
	}
	return installer.DefaultTool(a.Config.Get().CondaPrefix)
}

// ExportPlugins writes the installed plugins to path as a name==version
// list and announces the result on the broker.
func (a *App) ExportPlugins(ctx context.Context, path string) error {
	items, err := a.Inventory.List(ctx)
	if err != nil {
		return err
	}
	if err := plugins.ExportFile(path, items); err != nil {
		return err
	}
	a.Broker.Publish(events.Event{
		Type:    events.PluginsExportedEvent,
		Payload: events.StatusMessagePayload{Message: path, Kind: "success"},
	})
	return nil
}

// ImportPlugins reads a plugin list from path and enqueues one install job
// per entry. An empty tool means the default backend. It returns the job
// ids.
func (a *App) ImportPlugins(path string, tool installer.Tool) ([]string, error) {
	specs, err := plugins.ImportFile(path)
	if err != nil {
		return nil, err
	}
	if tool == "" {
		tool = a.DefaultTool()
	}
	ids := make([]string, 0, len(specs))
	for _, spec := range specs {
		id, err := a.Queue.Install(tool, []string{spec}, installer.WithOrigins(a.Config.Get().ExtraIndexURLs...))
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// InstalledNames returns the sorted names of installed plugins.
func (a *App) InstalledNames(ctx context.Context) ([]string, error) {
	items, err := a.Inventory.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	sort.Strings(names)
	return names, nil
}

// Shutdown stops the queue and releases resources. Jobs still running get
// the graceful-then-forceful cancellation.
func (a *App) Shutdown() {
	a.Queue.Stop()
	// Closing the subscriptions lets the recorder drain its buffer and exit.
	a.Broker.Clear()
	<-a.recorderDone
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// recordFinishedJobs mirrors terminal job events into the on-disk history.
func (a *App) recordFinishedJobs(ch <-chan events.Event) {
	defer close(a.recorderDone)
	for event := range ch {
		payload, ok := event.Payload.(events.JobFinishedPayload)
		if !ok {
			continue
		}
		info, err := a.Queue.Job(payload.ID)
		if err != nil {
			continue
		}
		rec := history.Record{
			ID:         info.ID,
			Action:     string(info.Action),
			Tool:       string(info.Tool),
			Targets:    info.Targets,
			State:      string(info.State),
			ExitCode:   info.ExitCode,
			Queued:     info.Created,
			Finished:   time.Now(),
			OutputTail: tail(info.Output, 20),
		}
		if err := a.History.Append(rec); err != nil {
			a.Logger.Warn("failed to record job history", "id", info.ID, "error", err)
		}
	}
}

func tail(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
