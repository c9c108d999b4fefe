package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/kanban-sync/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// Apply switches the adaptive colors to the light or dark variant. Unknown
// names leave the terminal's own detection in place.
func Apply(name string) {
	switch name {
	case model.ThemeDark:
		lipgloss.SetHasDarkBackground(true)
	case model.ThemeLight:
		lipgloss.SetHasDarkBackground(false)
	}
}

// Toggle returns the other theme name.
func Toggle(name string) string {
	if name == model.ThemeDark {
		return model.ThemeLight
	}
	return model.ThemeDark
}

// HeaderStyle is used for the board title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom key hint bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps prompts, forms and the help overlay.
var PanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// HelpStyle is used for hints and empty-state text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// ColumnStyle frames one list. The focused list gets a highlighted border.
func ColumnStyle(focused bool) lipgloss.Style {
	s := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)
	if focused {
		s = s.BorderForeground(ColorBlue)
	}
	return s
}

// ColumnTitleStyle renders a list title.
var ColumnTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// CardStyle renders one task. The selected card has a left marker; a card
// being dragged is drawn in orange.
func CardStyle(selected, held bool) lipgloss.Style {
	s := lipgloss.NewStyle().PaddingLeft(2)
	switch {
	case held:
		s = lipgloss.NewStyle().
			PaddingLeft(1).
			Bold(true).
			Foreground(ColorOrange).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorOrange)
	case selected:
		s = lipgloss.NewStyle().
			PaddingLeft(1).
			Bold(true).
			Foreground(ColorBlue).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorBlue)
	}
	return s
}

// DueDateStyle renders a due date; overdue dates are red.
func DueDateStyle(overdue bool) lipgloss.Style {
	if overdue {
		return lipgloss.NewStyle().Bold(true).Foreground(ColorRed)
	}
	return lipgloss.NewStyle().Foreground(ColorGray)
}

// PriorityStyle returns a color-coded style for a task priority.
func PriorityStyle(p model.Priority) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch p {
	case model.PriorityHigh:
		return base.Foreground(ColorRed)
	case model.PriorityMedium:
		return base.Foreground(ColorYellow)
	case model.PriorityLow:
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}

// ToastStyle colors a notification line by level.
func ToastStyle(level model.Level) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch level {
	case model.LevelError:
		return base.Foreground(ColorRed)
	case model.LevelSuccess:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorBlue)
	}
}
