package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pictor-app/plugdeck/internal/catalog"
	"github.com/pictor-app/plugdeck/internal/installer"
	"github.com/pictor-app/plugdeck/internal/plugins"
)

// rowStatus is what a plugin row currently shows.
type rowStatus int

const (
	statusAvailable rowStatus = iota
	statusInstalled
	statusOutdated
	statusBusy // a job for this plugin is queued or running
)

// pluginRow is one line of the plugin list: an installed plugin, an
// available one, or both merged.
type pluginRow struct {
	Name             string
	Summary          string
	InstalledVersion string
	LatestVersion    string
	Tool             installer.Tool
	Status           rowStatus
	BusyVerb         string // "installing", "removing", "upgrading" while busy
	NeedsRestart     bool
	JobID            string
}

// pluginList is the scrollable merged view of installed and available
// plugins.
type pluginList struct {
	rows   []pluginRow
	cursor int
	offset int
	width  int
	height int
}

// setRows replaces the rows, keeping the cursor on the same plugin when it
// still exists.
func (l *pluginList) setRows(rows []pluginRow) {
	var current string
	if row := l.selected(); row != nil {
		current = row.Name
	}
	l.rows = rows
	l.cursor = 0
	for i, row := range rows {
		if row.Name == current {
			l.cursor = i
			break
		}
	}
	l.clampScroll()
}

func (l *pluginList) selected() *pluginRow {
	if l.cursor < 0 || l.cursor >= len(l.rows) {
		return nil
	}
	return &l.rows[l.cursor]
}

// find returns the row for a plugin name, or nil.
func (l *pluginList) find(name string) *pluginRow {
	for i := range l.rows {
		if l.rows[i].Name == name {
			return &l.rows[i]
		}
	}
	return nil
}

func (l *pluginList) moveUp() {
	if l.cursor > 0 {
		l.cursor--
	}
	l.clampScroll()
}

func (l *pluginList) moveDown() {
	if l.cursor < len(l.rows)-1 {
		l.cursor++
	}
	l.clampScroll()
}

func (l *pluginList) setSize(width, height int) {
	l.width = width
	l.height = height
	l.clampScroll()
}

func (l *pluginList) clampScroll() {
	if l.height <= 0 {
		return
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+l.height {
		l.offset = l.cursor - l.height + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

func (l *pluginList) view() string {
	if len(l.rows) == 0 {
		return dimStyle.Render("No plugins found. Press r to refresh.")
	}

	var sb strings.Builder
	end := l.offset + l.height
	if end > len(l.rows) {
		end = len(l.rows)
	}
	for i := l.offset; i < end; i++ {
		line := l.renderRow(&l.rows[i], i == l.cursor)
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (l *pluginList) renderRow(row *pluginRow, selected bool) string {
	marker := "  "
	if selected {
		marker = "> "
	}

	var badge, version string
	switch row.Status {
	case statusBusy:
		badge = busyStyle.Render("⟳ " + row.BusyVerb)
		version = row.InstalledVersion
	case statusInstalled:
		badge = installedStyle.Render("● installed")
		version = row.InstalledVersion
	case statusOutdated:
		badge = warnStyle.Render(fmt.Sprintf("↑ %s available", row.LatestVersion))
		version = row.InstalledVersion
	default:
		badge = dimStyle.Render("○ available")
		version = row.LatestVersion
	}
	if row.NeedsRestart {
		badge += " " + warnStyle.Render("(restart)")
	}

	name := row.Name
	if version != "" {
		name += " " + labelStyle.Render(version)
	}
	if row.Tool != "" && row.Status != statusAvailable {
		name += " " + dimStyle.Render("["+string(row.Tool)+"]")
	}

	line := marker + name + "  " + badge
	if selected {
		return selectedStyle.Render(line)
	}
	if row.Status == statusAvailable {
		return availableStyle.Render(line)
	}
	return line
}

// mergeRows combines the installed inventory with the catalog listing into
// sorted display rows: installed plugins first, then the rest of the
// catalog.
func mergeRows(installed []plugins.Installed, available []catalog.Plugin) []pluginRow {
	byName := make(map[string]*pluginRow)
	order := make([]string, 0, len(installed)+len(available))

	for _, item := range installed {
		row := &pluginRow{
			Name:             item.Name,
			InstalledVersion: item.Version,
			Tool:             item.Tool,
			Status:           statusInstalled,
		}
		byName[item.Name] = row
		order = append(order, item.Name)
	}
	for _, plugin := range available {
		if row, ok := byName[plugin.Name]; ok {
			row.Summary = plugin.Summary
			row.LatestVersion = plugin.Version
			if plugin.Version != "" && plugin.Version != row.InstalledVersion {
				row.Status = statusOutdated
			}
			continue
		}
		row := &pluginRow{
			Name:          plugin.Name,
			Summary:       plugin.Summary,
			LatestVersion: plugin.Version,
			Status:        statusAvailable,
		}
		byName[plugin.Name] = row
		order = append(order, plugin.Name)
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := byName[order[i]], byName[order[j]]
		aInstalled := a.Status != statusAvailable
		bInstalled := b.Status != statusAvailable
		if aInstalled != bInstalled {
			return aInstalled
		}
		return a.Name < b.Name
	})

	rows := make([]pluginRow, len(order))
	for i, name := range order {
		rows[i] = *byName[name]
	}
	return rows
}
