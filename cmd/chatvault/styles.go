package main

import "github.com/charmbracelet/lipgloss"

// Console styles for command output.
var (
	styleHeading = lipgloss.NewStyle().Bold(true)
	styleLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)
