package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/kanban-sync/internal/model"
	"github.com/nhle/kanban-sync/internal/theme"
)

// Column widths for the board view.
const (
	MinColumnWidth = 24
	MaxColumnWidth = 40
)

// Layout manages the terminal frame: header, board area, toast line and
// status bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	ToastHeight     int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions. The
// header, toast line and status bar are one row each.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		ToastHeight:     1,
		StatusBarHeight: 1,
	}
}

// ContentHeight returns the height left for the board.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.ToastHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// ColumnWidth spreads n lists over the width, within the column bounds.
func (l Layout) ColumnWidth(n int) int {
	if n <= 0 {
		return MaxColumnWidth
	}
	w := l.Width / n
	if w < MinColumnWidth {
		w = MinColumnWidth
	}
	if w > MaxColumnWidth {
		w = MaxColumnWidth
	}
	return w
}

// RenderHeader renders the board title on the left and status on the right.
func (l Layout) RenderHeader(title string, status string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(status)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(statusRendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statusRendered,
	)
}

// RenderToast renders the latest notification, or an empty row.
func (l Layout) RenderToast(n model.Notification) string {
	if n.IsZero() {
		return lipgloss.NewStyle().Width(l.Width).Render("")
	}
	return theme.ToastStyle(n.Level).
		MaxWidth(l.Width).
		Render(n.Message)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame stacks the header, content, toast line and status bar.
func (l Layout) RenderWithFrame(header, content, toast, statusBar string) string {
	content = lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		toast,
		statusBar,
	)
}
