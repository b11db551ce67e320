package components

import (
	"fmt"
	"strings"

	"github.com/productivity-nox/noxstat/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders a loading bar for a 0-1 fraction with its percentage.
func ProgressBar(frac float64, width int) string {
	t := theme.Active
	frac = clampUnit(frac)
	filled := min(int(frac*float64(width)), width)

	filledStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)

	return filledStyle.Render(strings.Repeat("█", filled)) +
		emptyStyle.Render(strings.Repeat("░", width-filled)) +
		pctStyle.Render(fmt.Sprintf(" %.0f%%", frac*100))
}

// GoalBar renders "label [bar] pct  detail" for a 0-100 goal percentage.
// The bar turns green once the goal is met.
func GoalBar(label string, pct float64, detail string, metric lipgloss.Color, labelW, barWidth int) string {
	t := theme.Active
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	color := t.GoalColor(pct, metric)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	detailStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		space.Render(" ") +
		bar.ViewAs(pct/100) +
		space.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%4.0f%%", pct)) +
		space.Render("  ") +
		detailStyle.Render(detail)
}

func clampUnit(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
