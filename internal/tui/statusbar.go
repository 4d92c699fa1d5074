package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
)

// messageKind classifies a status bar message.
type messageKind int

const (
	kindInfo messageKind = iota
	kindWarning
	kindError
	kindSuccess
)

func kindFromString(s string) messageKind {
	switch s {
	case "warning":
		return kindWarning
	case "error":
		return kindError
	case "success":
		return kindSuccess
	default:
		return kindInfo
	}
}

// statusBar shows temporary messages on the right and persistent activity
// info on the left.
type statusBar struct {
	message     string
	kind        messageKind
	stamp       time.Time
	leftContent string
	width       int

	clearAfter time.Duration
}

func newStatusBar() statusBar {
	return statusBar{clearAfter: 5 * time.Second}
}

// clearStatusMsg is sent when a status message should be cleared.
type clearStatusMsg struct {
	stamp time.Time
}

// show sets the message and schedules its removal.
func (s *statusBar) show(message string, kind messageKind) tea.Cmd {
	s.message = message
	s.kind = kind
	s.stamp = time.Now()

	stamp := s.stamp
	return tea.Tick(s.clearAfter, func(time.Time) tea.Msg {
		return clearStatusMsg{stamp: stamp}
	})
}

func (s *statusBar) update(msg tea.Msg) {
	if clear, ok := msg.(clearStatusMsg); ok {
		// Only clear if no newer message replaced this one.
		if clear.stamp.Equal(s.stamp) {
			s.message = ""
		}
	}
}

func (s *statusBar) view() string {
	if s.width == 0 {
		return ""
	}

	barStyle := lipgloss.NewStyle().
		Width(s.width).
		Height(1).
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1)

	left := s.leftContent
	right := s.formatMessage()

	available := s.width - 2
	if len(left)+len(right) > available {
		if len(right) > 40 {
			right = right[:37] + "..."
		}
		remaining := available - len(right)
		if len(left) > remaining && remaining > 3 {
			left = left[:remaining-3] + "..."
		}
	}

	content := left
	if right != "" {
		spaces := available - len(left) - len(right)
		if spaces > 0 {
			content += fmt.Sprintf("%*s%s", spaces, "", right)
		} else {
			content += " " + right
		}
	}

	return barStyle.Render(content)
}

func (s *statusBar) formatMessage() string {
	if s.message == "" {
		return ""
	}
	switch s.kind {
	case kindSuccess:
		return "✅ " + s.message
	case kindWarning:
		return "⚠️ " + s.message
	case kindError:
		return "❌ " + s.message
	default:
		return s.message
	}
}
