package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/newsroom/internal/domain"
)

var (
	colorAccent = lipgloss.Color("#5B8DEF")
	colorBrand  = lipgloss.Color("#FF6B6B")
	colorBorder = lipgloss.Color("#444444")
	colorMuted  = lipgloss.Color("#888888")
	colorHint   = lipgloss.Color("#AAAAAA")
	colorGreen  = lipgloss.Color("#4CAF50")
	colorYellow = lipgloss.Color("#F7B801")
	colorGray   = lipgloss.Color("#999999")
	colorRed    = lipgloss.Color("#FF6B6B")
	colorPurple = lipgloss.Color("#9F7AEA")

	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorBrand)
	roleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Border(lipgloss.NormalBorder()).BorderForeground(colorAccent).Padding(0, 1)
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorMuted)
	hintStyle     = lipgloss.NewStyle().Foreground(colorHint)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	italicMuted   = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	accentStyle   = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	disabledStyle = lipgloss.NewStyle().Foreground(colorGray).Faint(true)
	focusedStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	badgeGreen  = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	badgeYellow = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	badgeGray   = lipgloss.NewStyle().Foreground(colorGray)
)

// BadgeColor names the color family of a status badge.
type BadgeColor string

const (
	BadgeGreen  BadgeColor = "green"
	BadgeYellow BadgeColor = "yellow"
	BadgeGray   BadgeColor = "gray"
)

// StatusBadge maps an editorial status to its badge color. Unknown and empty
// statuses are gray.
func StatusBadge(status domain.Status) BadgeColor {
	switch status {
	case domain.StatusApproved:
		return BadgeGreen
	case domain.StatusInReview:
		return BadgeYellow
	default:
		return BadgeGray
	}
}

// badgeLabel is the plain badge text: a filled dot for Approved and In Review,
// a hollow one otherwise.
func badgeLabel(status domain.Status) string {
	label := string(status)
	if label == "" {
		label = "-"
	}
	if StatusBadge(status) == BadgeGray {
		return "○ " + label
	}
	return "● " + label
}

func badgeStyle(status domain.Status) lipgloss.Style {
	switch StatusBadge(status) {
	case BadgeGreen:
		return badgeGreen
	case BadgeYellow:
		return badgeYellow
	default:
		return badgeGray
	}
}

func renderBadge(status domain.Status) string {
	return badgeStyle(status).Render(badgeLabel(status))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
