// Package ui provides consistent styling and the terminal views of the wlseat CLI
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorPrimary   = lipgloss.Color("39")
	ColorSecondary = lipgloss.Color("205")
	ColorSuccess   = lipgloss.Color("82")
	ColorWarning   = lipgloss.Color("214")
	ColorError     = lipgloss.Color("196")
	ColorInfo      = lipgloss.Color("86")

	ColorText      = lipgloss.Color("252")
	ColorSubtle    = lipgloss.Color("241")
	ColorMuted     = lipgloss.Color("238")
	ColorHighlight = lipgloss.Color("255")
	ColorBar       = lipgloss.Color("235")
)

var (
	TextStyle    = lipgloss.NewStyle().Foreground(ColorText)
	SubtleStyle  = lipgloss.NewStyle().Foreground(ColorSubtle)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorError)
	InfoStyle    = lipgloss.NewStyle().Foreground(ColorInfo)
	SpinnerStyle = lipgloss.NewStyle().Foreground(ColorSecondary)

	// HeaderStyle titles a section of command output
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// TitleStyle is the top bar of the monitor
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Background(ColorMuted).
			Padding(0, 1)

	// StatusBarStyle holds the live seat state under the title
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Background(ColorBar).
			Padding(0, 1)

	KeyStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Width(22)
)

var (
	FocusedIndicator   = lipgloss.NewStyle().Foreground(ColorSuccess).Render("●")
	UnfocusedIndicator = lipgloss.NewStyle().Foreground(ColorSubtle).Render("○")
)

var (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "!"
	IconSection = "*"
)

// FormatFocus renders a focus indicator followed by status
func FormatFocus(focused bool, status string) string {
	indicator := UnfocusedIndicator
	if focused {
		indicator = FocusedIndicator
	}
	return indicator + " " + status
}

// FormatKeyValue renders one aligned "key  value" line
func FormatKeyValue(key string, value any) string {
	return KeyStyle.Render(key) + TextStyle.Render(fmt.Sprint(value))
}

// FormatSection renders a section header followed by a separator
func FormatSection(title string) string {
	header := HeaderStyle.Render(InfoStyle.Render(IconSection) + " " + title)
	return header + "\n" + CreateSeparator(50, "─")
}

// FormatResult renders a ✓/✗ line for a finished step
func FormatResult(success bool, step, message string) string {
	icon := SuccessStyle.Render(IconSuccess)
	style := SuccessStyle
	if !success {
		icon = ErrorStyle.Render(IconError)
		style = ErrorStyle
	}
	result := "  " + icon + " " + step
	if message != "" {
		result += " - " + style.Render(message)
	}
	return result
}

// FormatWarning renders a "!" line for something that ended without failing
func FormatWarning(message string) string {
	return "  " + WarningStyle.Render(IconWarning+" "+message)
}

// CreateSeparator creates a horizontal line separator
func CreateSeparator(width int, char string) string {
	if width <= 0 {
		width = 50
	}
	if char == "" {
		char = "─"
	}
	return SubtleStyle.Render(strings.Repeat(char, width))
}
