// Package main is the entry point for the plugdeck application.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/pictor-app/plugdeck/internal/app"
	"github.com/pictor-app/plugdeck/internal/tui"
)

func main() {
	application, err := app.New(app.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(tui.New(application), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
