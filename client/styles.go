package main

import "github.com/charmbracelet/lipgloss"

var (
	borderColor = lipgloss.Color("#505050")
	accentColor = lipgloss.Color("#7D56F4")
	dangerColor = lipgloss.Color("#E06C75")
	mutedColor  = lipgloss.Color("#8A8A8A")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	statusStyle = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)
	selectedCardStyle = cardStyle.BorderForeground(accentColor)
	previewTitleStyle = lipgloss.NewStyle().Bold(true)
	joinStyle         = lipgloss.NewStyle().Foreground(accentColor).Underline(true)
	deleteStyle       = lipgloss.NewStyle().Foreground(dangerColor)

	senderStyle   = lipgloss.NewStyle().Bold(true)
	mySenderStyle = senderStyle.Foreground(accentColor)
	myMarkerStyle = lipgloss.NewStyle().Foreground(accentColor)

	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(dangerColor).
			Padding(1, 3).
			Bold(true)
)
