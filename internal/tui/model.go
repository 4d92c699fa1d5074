// Package tui is the full-screen terminal interface for Plugdeck: a merged
// list of installed and available plugins on the left, live installer output
// on the right, driven entirely by events from the install queue.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/v2/key"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/textinput"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"github.com/pictor-app/plugdeck/internal/app"
	"github.com/pictor-app/plugdeck/internal/catalog"
	"github.com/pictor-app/plugdeck/internal/events"
	"github.com/pictor-app/plugdeck/internal/installer"
	"github.com/pictor-app/plugdeck/internal/plugins"
)

// inputMode says what the text input at the bottom is collecting.
type inputMode int

const (
	modeNone inputMode = iota
	modeInstallSpec
	modeExportPath
	modeImportPath
)

// Messages for async work.

type refreshMsg struct {
	installed []plugins.Installed
	available []catalog.Plugin
	err       error
}

type exportDoneMsg struct {
	path string
	err  error
}

type importDoneMsg struct {
	count int
	err   error
}

// Model is the root TUI model.
type Model struct {
	app  *app.App
	keys KeyMap

	eventSub <-chan events.Event

	list    pluginList
	output  viewport.Model
	input   textinput.Model
	spinner spinner.Model
	status  statusBar

	mode   inputMode
	width  int
	height int

	// jobVerbs maps queued/running job ids to the verb shown on their rows.
	jobVerbs    map[string]string
	jobTargets  map[string][]string
	activeJobs  int
	restartSet  map[string]bool
	outputLines []string
}

// New creates the TUI model on top of an initialized app.
func New(application *app.App) *Model {
	ti := textinput.New()
	ti.Placeholder = "package name, URL, or path"
	ti.CharLimit = 0

	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = busyStyle

	m := &Model{
		app:        application,
		keys:       DefaultKeyMap(),
		input:      ti,
		spinner:    s,
		status:     newStatusBar(),
		output:     viewport.New(),
		jobVerbs:   make(map[string]string),
		jobTargets: make(map[string][]string),
		restartSet: make(map[string]bool),
	}
	m.eventSub = application.Broker.Subscribe()
	return m
}

// Init kicks off the first refresh and the event bridge.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.refresh(),
		m.listenForEvents(),
		m.spinner.Tick,
	)
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Bridge: broker events arrive as bubbletea messages.
	if event, ok := msg.(events.Event); ok {
		cmds = append(cmds, m.handleEvent(event), m.listenForEvents())
		return m, tea.Batch(cmds...)
	}

	m.status.update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateActivity()
		return m, cmd

	case refreshMsg:
		if msg.err != nil {
			cmds = append(cmds, m.status.show(msg.err.Error(), kindError))
		} else {
			m.list.setRows(mergeRows(msg.installed, msg.available))
			m.reapplyBusyRows()
		}
		return m, tea.Batch(cmds...)

	case exportDoneMsg:
		if msg.err != nil {
			return m, m.status.show("export failed: "+msg.err.Error(), kindError)
		}
		return m, m.status.show("plugin list written to "+msg.path, kindSuccess)

	case importDoneMsg:
		if msg.err != nil {
			return m, m.status.show("import failed: "+msg.err.Error(), kindError)
		}
		return m, m.status.show(fmt.Sprintf("importing %d plugins", msg.count), kindInfo)

	case tea.KeyMsg:
		if m.mode != modeNone {
			return m.updateInputMode(msg)
		}
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.output, cmd = m.output.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.keys
	switch {
	case key.Matches(msg, keys.Quit):
		m.app.Shutdown()
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		m.list.moveUp()

	case key.Matches(msg, keys.Down):
		m.list.moveDown()

	case key.Matches(msg, keys.Refresh):
		return m, tea.Batch(m.refresh(), m.status.show("refreshing...", kindInfo))

	case key.Matches(msg, keys.Install):
		if row := m.list.selected(); row != nil && row.Status == statusAvailable {
			return m, m.submit(installer.ActionInstall, row.Name)
		}

	case key.Matches(msg, keys.Uninstall):
		if row := m.list.selected(); row != nil && row.Status != statusAvailable && row.Status != statusBusy {
			return m, m.submit(installer.ActionUninstall, row.Name)
		}

	case key.Matches(msg, keys.Upgrade):
		if row := m.list.selected(); row != nil && row.Status == statusOutdated {
			return m, m.submit(installer.ActionUpgrade, row.Name)
		}

	case key.Matches(msg, keys.Cancel):
		if row := m.list.selected(); row != nil && row.JobID != "" {
			if err := m.app.Queue.Cancel(row.JobID); err != nil {
				return m, m.status.show(err.Error(), kindError)
			}
			return m, m.status.show("cancelling "+row.Name, kindInfo)
		}

	case key.Matches(msg, keys.CancelAll):
		m.app.Queue.CancelAll()
		return m, m.status.show("cancelling all jobs", kindWarning)

	case key.Matches(msg, keys.Add):
		m.mode = modeInstallSpec
		m.input.Placeholder = "package name, URL, or path"
		m.input.Reset()
		return m, m.input.Focus()

	case key.Matches(msg, keys.Export):
		m.mode = modeExportPath
		m.input.Placeholder = defaultListPath()
		m.input.Reset()
		return m, m.input.Focus()

	case key.Matches(msg, keys.Import):
		m.mode = modeImportPath
		m.input.Placeholder = defaultListPath()
		m.input.Reset()
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.output, cmd = m.output.Update(msg)
	return m, cmd
}

// updateInputMode routes keys to the text input while it is collecting a
// package spec or a file path.
func (m *Model) updateInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.input.Blur()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = modeNone
		m.input.Blur()
		if value == "" && mode != modeInstallSpec {
			value = defaultListPath()
		}
		if value == "" {
			return m, nil
		}
		switch mode {
		case modeInstallSpec:
			return m, m.submit(installer.ActionInstall, strings.Fields(value)...)
		case modeExportPath:
			return m, m.export(value)
		case modeImportPath:
			return m, m.importList(value)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the UI
func (m *Model) View() tea.View {
	if m.width == 0 || m.height == 0 {
		return tea.NewView("Initializing...")
	}

	header := titleStyle.Render("Plugdeck") + "  " +
		subtitleStyle.Render("Pictor plugin manager")
	if m.activeJobs > 0 {
		header += "  " + m.spinner.View() + busyStyle.Render(fmt.Sprintf(" %d job(s) running", m.activeJobs))
	}
	if len(m.restartSet) > 0 {
		header += "  " + warnStyle.Render("⟲ restart Pictor to finish plugin changes")
	}

	listWidth, outputWidth, paneHeight := m.paneSizes()

	listPane := borderStyle.
		Width(listWidth - 2).
		Height(paneHeight).
		Render(m.list.view())

	divider := strings.Repeat("─", maxInt(outputWidth-4, 0))
	right := m.renderDetail(outputWidth-4) + "\n" + divider + "\n" + m.output.View()
	outputPane := borderStyle.
		Width(outputWidth - 2).
		Height(paneHeight).
		Render(right)

	panes := lipgloss.JoinHorizontal(lipgloss.Top, listPane, outputPane)

	return tea.NewView(lipgloss.JoinVertical(lipgloss.Left, header, panes, m.renderBottom()))
}

func (m *Model) renderBottom() string {
	if m.mode != modeNone {
		var label string
		switch m.mode {
		case modeInstallSpec:
			label = "install: "
		case modeExportPath:
			label = "export to: "
		case modeImportPath:
			label = "import from: "
		}
		return installedStyle.Render(label) + m.input.View()
	}

	help := helpStyle.Render(
		"i: install • u: uninstall • U: upgrade • a: install by name • " +
			"c: cancel • C: cancel all • e: export • o: import • r: refresh • q: quit")
	return m.status.view() + "\n" + help
}

// renderDetail shows the selected plugin's summary through the markdown
// renderer.
func (m *Model) renderDetail(width int) string {
	row := m.list.selected()
	if row == nil {
		return dimStyle.Render("Select a plugin to see details.")
	}
	detail := "**" + row.Name + "**"
	if row.Summary != "" {
		detail += " — " + row.Summary
	}
	if row.InstalledVersion != "" && row.LatestVersion != "" && row.InstalledVersion != row.LatestVersion {
		detail += fmt.Sprintf("\n\n`%s` installed, `%s` available", row.InstalledVersion, row.LatestVersion)
	}
	return renderMarkdown(detail, width)
}

// handleEvent translates broker events into UI state.
func (m *Model) handleEvent(event events.Event) tea.Cmd {
	switch event.Type {
	case events.JobQueuedEvent:
		if payload, ok := event.Payload.(events.JobPayload); ok {
			m.trackJob(payload, "queued")
			m.activeJobs++
			m.updateActivity()
			return m.spinner.Tick
		}

	case events.JobStartedEvent:
		if payload, ok := event.Payload.(events.JobPayload); ok {
			m.trackJob(payload, busyVerb(payload.Action))
			m.appendOutput(fmt.Sprintf("── %s %s ──", payload.Action, strings.Join(payload.Targets, " ")))
		}

	case events.JobOutputEvent:
		if payload, ok := event.Payload.(events.JobOutputPayload); ok {
			m.appendOutput(payload.Line)
		}

	case events.JobSucceededEvent, events.JobFailedEvent, events.JobCancelledEvent:
		if payload, ok := event.Payload.(events.JobFinishedPayload); ok {
			return m.finishJob(event.Type, payload)
		}

	case events.QueueDrainedEvent:
		if payload, ok := event.Payload.(events.QueueDrainedPayload); ok {
			failures := 0
			for _, code := range payload.ExitCodes {
				if code != 0 {
					failures++
				}
			}
			if failures == 0 {
				return m.status.show("all jobs finished", kindSuccess)
			}
			return m.status.show(fmt.Sprintf("jobs finished, %d failed", failures), kindWarning)
		}

	case events.RestartRequiredEvent:
		if payload, ok := event.Payload.(events.RestartRequiredPayload); ok {
			m.restartSet[payload.Plugin] = true
			if row := m.list.find(payload.Plugin); row != nil {
				row.NeedsRestart = true
			}
			return m.status.show("restart required for "+payload.Plugin, kindWarning)
		}

	case events.StatusMessageEvent:
		if payload, ok := event.Payload.(events.StatusMessagePayload); ok {
			return m.status.show(payload.Message, kindFromString(payload.Kind))
		}
	}
	return nil
}

func (m *Model) finishJob(eventType events.EventType, payload events.JobFinishedPayload) tea.Cmd {
	delete(m.jobVerbs, payload.ID)
	delete(m.jobTargets, payload.ID)
	if m.activeJobs > 0 {
		m.activeJobs--
	}
	m.updateActivity()
	for _, target := range payload.Targets {
		if row := m.list.find(specName(target)); row != nil && row.JobID == payload.ID {
			row.JobID = ""
			row.BusyVerb = ""
		}
	}

	targets := strings.Join(payload.Targets, " ")
	var cmd tea.Cmd
	switch eventType {
	case events.JobSucceededEvent:
		m.appendOutput(fmt.Sprintf("── %s %s: done ──", payload.Action, targets))
		cmd = m.status.show(fmt.Sprintf("%s %s succeeded", payload.Action, targets), kindSuccess)
	case events.JobFailedEvent:
		m.appendOutput(fmt.Sprintf("── %s %s: failed (exit %d) ──", payload.Action, targets, payload.ExitCode))
		cmd = m.status.show(fmt.Sprintf("%s %s failed", payload.Action, targets), kindError)
	default:
		m.appendOutput(fmt.Sprintf("── %s %s: cancelled ──", payload.Action, targets))
		cmd = m.status.show(fmt.Sprintf("%s %s cancelled", payload.Action, targets), kindInfo)
	}

	// The environment changed (or a job stopped), re-read it.
	return tea.Batch(cmd, m.refresh())
}

func (m *Model) trackJob(payload events.JobPayload, verb string) {
	m.jobVerbs[payload.ID] = verb
	m.jobTargets[payload.ID] = payload.Targets
	for _, target := range payload.Targets {
		if row := m.list.find(specName(target)); row != nil {
			row.Status = statusBusy
			row.BusyVerb = verb
			row.JobID = payload.ID
		}
	}
}

// reapplyBusyRows re-marks rows for jobs still in flight after a refresh
// replaced the row set.
func (m *Model) reapplyBusyRows() {
	for id, verb := range m.jobVerbs {
		for _, target := range m.jobTargets[id] {
			if row := m.list.find(specName(target)); row != nil {
				row.Status = statusBusy
				row.BusyVerb = verb
				row.JobID = id
			}
		}
	}
	for name := range m.restartSet {
		if row := m.list.find(name); row != nil {
			row.NeedsRestart = true
		}
	}
}

func (m *Model) appendOutput(line string) {
	m.outputLines = append(m.outputLines, line)
	// Keep the buffer bounded; old output has no audience.
	if len(m.outputLines) > 2000 {
		m.outputLines = m.outputLines[len(m.outputLines)-2000:]
	}
	m.output.SetContent(outputStyle.Render(strings.Join(m.outputLines, "\n")))
	m.output.GotoBottom()
}

func (m *Model) updateActivity() {
	if m.activeJobs > 0 {
		m.status.leftContent = m.spinner.View() + fmt.Sprintf(" %d job(s) active", m.activeJobs)
	} else {
		m.status.leftContent = ""
	}
}

func (m *Model) resize() {
	listWidth, outputWidth, paneHeight := m.paneSizes()
	m.list.setSize(listWidth-4, paneHeight)
	m.output = viewport.New(
		viewport.WithWidth(outputWidth-4),
		viewport.WithHeight(maxInt(paneHeight-4, 3)),
	)
	m.output.SetContent(outputStyle.Render(strings.Join(m.outputLines, "\n")))
	m.output.GotoBottom()
	m.input.SetWidth(m.width - 16)
	m.status.width = m.width
}

func (m *Model) paneSizes() (listWidth, outputWidth, paneHeight int) {
	listWidth = m.width / 2
	if listWidth < 40 {
		listWidth = 40
	}
	outputWidth = m.width - listWidth
	if outputWidth < 30 {
		outputWidth = 30
	}
	paneHeight = m.height - 5 // header, status, help, borders
	if paneHeight < 5 {
		paneHeight = 5
	}
	return listWidth, outputWidth, paneHeight
}

// Commands.

func (m *Model) refresh() tea.Cmd {
	application := m.app
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		installed, err := application.Inventory.List(ctx)
		if err != nil {
			return refreshMsg{err: err}
		}
		// The catalog being down must not hide installed plugins.
		available, err := application.Catalog.Plugins(ctx)
		if err != nil {
			available = nil
		}
		return refreshMsg{installed: installed, available: available}
	}
}

func (m *Model) submit(action installer.Action, targets ...string) tea.Cmd {
	tool := m.app.DefaultTool()
	if row := m.list.selected(); row != nil && row.Tool != "" && action != installer.ActionInstall {
		// Remove and upgrade with the tool that installed it.
		tool = row.Tool
	}
	origins := installer.WithOrigins(m.app.Config.Get().ExtraIndexURLs...)

	var err error
	switch action {
	case installer.ActionInstall:
		_, err = m.app.Queue.Install(tool, targets, origins)
	case installer.ActionUninstall:
		_, err = m.app.Queue.Uninstall(tool, targets)
	case installer.ActionUpgrade:
		_, err = m.app.Queue.Upgrade(tool, targets, origins)
	}
	if err != nil {
		return m.status.show(err.Error(), kindError)
	}
	return nil
}

func (m *Model) export(path string) tea.Cmd {
	application := m.app
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := application.ExportPlugins(ctx, path); err != nil {
			return exportDoneMsg{path: path, err: err}
		}
		return exportDoneMsg{path: path}
	}
}

func (m *Model) importList(path string) tea.Cmd {
	application := m.app
	return func() tea.Msg {
		ids, err := application.ImportPlugins(path, "")
		return importDoneMsg{count: len(ids), err: err}
	}
}

// listenForEvents creates a command that waits for the next broker event.
func (m *Model) listenForEvents() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.eventSub
		if !ok {
			return nil
		}
		return event
	}
}

// Helpers.

func busyVerb(action string) string {
	switch action {
	case "uninstall":
		return "removing"
	case "upgrade":
		return "upgrading"
	default:
		return "installing"
	}
}

// specName strips version pins and sources from a target spec so it can be
// matched against list rows.
func specName(target string) string {
	if spec, err := installer.ParseSpec(target); err == nil && spec.Name != "" {
		return spec.Name
	}
	return target
}

func defaultListPath() string {
	return filepath.Join(".", "pictor-plugins.txt")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
