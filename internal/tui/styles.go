package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	gruvboxBg0    = lipgloss.Color("#282828")
	gruvboxBg1    = lipgloss.Color("#3c3836")
	gruvboxBg2    = lipgloss.Color("#504945")
	gruvboxFg1    = lipgloss.Color("#ebdbb2")
	gruvboxFg2    = lipgloss.Color("#d5c4a1")
	gruvboxRed    = lipgloss.Color("#fb4934")
	gruvboxGreen  = lipgloss.Color("#b8bb26")
	gruvboxYellow = lipgloss.Color("#fabd2f")
	gruvboxBlue   = lipgloss.Color("#83a598")
	gruvboxAqua   = lipgloss.Color("#8ec07c")
	gruvboxOrange = lipgloss.Color("#fe8019")
)

// Styles
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(gruvboxYellow).
			Background(gruvboxBg1).
			Padding(0, 2).
			Align(lipgloss.Center)

	subtleStyle = lipgloss.NewStyle().
			Foreground(gruvboxFg2)

	itemStyle = lipgloss.NewStyle().
			Foreground(gruvboxFg1).
			PaddingLeft(2)

	statusStyleActive = lipgloss.NewStyle().
				Foreground(gruvboxYellow).
				Bold(true)

	statusStyleSkipped = lipgloss.NewStyle().
				Foreground(gruvboxBlue).
				Bold(true)

	statusStyleCompleted = lipgloss.NewStyle().
				Foreground(gruvboxGreen).
				Bold(true)

	statusStyleFailed = lipgloss.NewStyle().
				Foreground(gruvboxRed).
				Bold(true)

	statusStyleStopping = lipgloss.NewStyle().
				Foreground(gruvboxOrange).
				Bold(true)

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(gruvboxAqua).
			Padding(0, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(gruvboxBg0).
			Background(gruvboxRed).
			Padding(0, 1)
)
