package utils

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	CriticalColor = lipgloss.Color("#CC3333") // Dark red
	WarningColor  = lipgloss.Color("#FF8800") // Orange
	GoodColor     = lipgloss.Color("#228B22") // Forest green
	InfoColor     = lipgloss.Color("#4682B4") // Steel blue
	MutedColor    = lipgloss.Color("#888888") // Medium gray
	BorderColor   = lipgloss.Color("#666666") // Dark gray
)

var (
	CriticalStyle = lipgloss.NewStyle().Foreground(CriticalColor).Bold(true)
	WarningStyle  = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	GoodStyle     = lipgloss.NewStyle().Foreground(GoodColor)
	MutedStyle    = lipgloss.NewStyle().Foreground(MutedColor)

	HeaderStyle = lipgloss.NewStyle().Foreground(InfoColor).Bold(true).Padding(0, 1)
	CellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// UsageStyle colours a used/max ratio: >= 0.9 critical, >= 0.75 warning
func UsageStyle(ratio float64) lipgloss.Style {
	switch {
	case ratio >= 0.9:
		return CriticalStyle
	case ratio >= 0.75:
		return WarningStyle
	case ratio > 0:
		return GoodStyle
	default:
		return MutedStyle
	}
}
