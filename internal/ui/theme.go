package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Terminal styles for tasker output.

const (
	IconDone    = "✅"
	IconError   = "🧨"
	IconWarn    = "⚠️"
	IconPlus    = "➕"
	IconLoop    = "🔁"
	IconWatch   = "👀"
	IconOverdue = "⏰"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
)

// Heading styles a group heading by its depth: the first level stands out,
// deeper levels are quieter.
func Heading(level int, title string) string {
	switch level {
	case 0:
		return Title.Render(title)
	case 1:
		return H2.Render(title)
	default:
		return Muted.Render(title)
	}
}

func Error(msg string) string {
	return Bad.Render(IconError + " " + strings.TrimSpace(msg))
}

// StatusMark renders a task's checkbox.
func StatusMark(done bool, mark string) string {
	if done {
		return Good.Render(mark)
	}
	return mark
}
