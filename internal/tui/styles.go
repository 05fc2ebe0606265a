package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/ppiankov/dqlens/internal/models"
)

// Status colors
var (
	colorCritical = lipgloss.Color("#FF0000")
	colorHigh     = lipgloss.Color("#FF8800")
	colorMedium   = lipgloss.Color("#FFFF00")
	colorLow      = lipgloss.Color("#00FF00")
	colorMuted    = lipgloss.Color("#888888")
	colorAccent   = lipgloss.Color("#29B5E8")
	colorBorder   = lipgloss.Color("#444444")
)

// Panel styles
var (
	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	styleDetailPanel = lipgloss.NewStyle().
				Padding(0, 1).
				BorderStyle(lipgloss.NormalBorder()).
				BorderTop(true).
				BorderForeground(colorBorder)

	styleFooter = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	styleSearchPrompt = lipgloss.NewStyle().
				Foreground(colorAccent).Bold(true)

	styleActiveTab = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true).
			Underline(true)

	styleTab = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// severityStyle returns the lipgloss style for a rule or recommendation severity.
func severityStyle(severity models.Severity) lipgloss.Style {
	switch severity {
	case models.SeverityCritical:
		return lipgloss.NewStyle().Foreground(colorCritical).Bold(true)
	case models.SeverityHigh:
		return lipgloss.NewStyle().Foreground(colorHigh).Bold(true)
	case models.SeverityMedium:
		return lipgloss.NewStyle().Foreground(colorMedium)
	case models.SeverityLow:
		return lipgloss.NewStyle().Foreground(colorLow)
	default:
		return lipgloss.NewStyle()
	}
}

// tierStyle returns the lipgloss style for a table health tier.
func tierStyle(tier models.Tier) lipgloss.Style {
	switch tier {
	case models.TierHealthy:
		return lipgloss.NewStyle().Foreground(colorLow).Bold(true)
	case models.TierWarning:
		return lipgloss.NewStyle().Foreground(colorMedium).Bold(true)
	case models.TierCritical:
		return lipgloss.NewStyle().Foreground(colorCritical).Bold(true)
	default:
		return lipgloss.NewStyle()
	}
}

func statusStyle(status models.ObservationStatus) lipgloss.Style {
	switch status {
	case models.StatusPassed:
		return lipgloss.NewStyle().Foreground(colorLow)
	case models.StatusWarning:
		return lipgloss.NewStyle().Foreground(colorMedium).Bold(true)
	case models.StatusFailed:
		return lipgloss.NewStyle().Foreground(colorCritical).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(colorMuted)
	}
}
