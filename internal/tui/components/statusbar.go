package components

import (
	"strings"

	"github.com/productivity-nox/noxstat/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the bottom bar reports about the data.
type StatusInfo struct {
	Synced      string // e.g. "synced 2m ago" or "offline (mirror)"
	Offline     bool
	Refreshing  bool
	AutoRefresh bool
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	left := base.Render(" [?]help  [r]efresh  [q]uit")

	var parts []string
	switch {
	case info.Refreshing:
		parts = append(parts, lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Render("syncing…"))
	case info.Offline:
		parts = append(parts, lipgloss.NewStyle().Foreground(t.Warning).Background(t.Surface).Render(info.Synced))
	case info.Synced != "":
		parts = append(parts, base.Render(info.Synced))
	}
	if info.AutoRefresh {
		parts = append(parts, base.Render("auto"))
	}
	right := strings.Join(parts, base.Render(" · ")) + base.Render(" ")

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return left + base.Render(strings.Repeat(" ", gap)) + right
}
