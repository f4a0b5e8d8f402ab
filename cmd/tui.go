package cmd

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/maksfourlife/address-utils/internal/tui"
)

func runTUI() error {
	m := tui.New()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
