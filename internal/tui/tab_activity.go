package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/productivity-nox/noxstat/internal/cli"
	"github.com/productivity-nox/noxstat/internal/model"
	"github.com/productivity-nox/noxstat/internal/pipeline"
	"github.com/productivity-nox/noxstat/internal/tui/components"
	"github.com/productivity-nox/noxstat/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderActivityTab(cw int) string {
	r := a.report
	if a.isCompactLayout() {
		return a.renderScreensCard(cw) + "\n" + a.renderRecentCard(r.RecentEvents, cw)
	}
	widths := components.LayoutRow(cw, 2)
	return components.CardRow([]string{
		a.renderScreensCard(widths[0]),
		a.renderRecentCard(r.RecentEvents, widths[1]),
	})
}

func (a App) renderScreensCard(w int) string {
	t := theme.Active
	ranked := pipeline.RankScreens(a.report.Summary.ScreenViews)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	if len(ranked) == 0 {
		return components.ContentCard("Screen views", muted.Render("No screen views in this window."), w)
	}

	inner := components.CardInnerWidth(w)
	nameW := 4
	for _, sc := range ranked {
		nameW = max(nameW, len([]rune(sc.Screen)))
	}
	nameW = min(nameW, inner/3)
	barMax := max(inner-nameW-10, 5)
	top := ranked[0].Views

	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	space := lipgloss.NewStyle().Background(t.Surface)

	limit := max(a.height-12, 3)
	var b strings.Builder
	for i, sc := range ranked {
		if i >= limit {
			b.WriteString(muted.Render(fmt.Sprintf("… %d more", len(ranked)-limit)))
			break
		}
		if i > 0 {
			b.WriteString("\n")
		}
		n := max(sc.Views*barMax/top, 1)
		b.WriteString(nameStyle.Render(fmt.Sprintf("%-*s", nameW, truncStr(sc.Screen, nameW))))
		b.WriteString(space.Render(" "))
		b.WriteString(barStyle.Render(strings.Repeat("█", n)))
		b.WriteString(space.Render(" "))
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(sc.Views))))
	}
	return components.ContentCard("Screen views", b.String(), w)
}

func (a App) renderRecentCard(events []model.AnalyticsEvent, w int) string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	if len(events) == 0 {
		return components.ContentCard("Recent events", muted.Render("No events in this window."), w)
	}

	inner := components.CardInnerWidth(w)
	timeStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	typeStyle := lipgloss.NewStyle().Foreground(t.Highlight).Background(t.Surface)
	detailStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	loc := a.opts.Clock.Location()
	limit := max(a.height-10, 3)
	var b strings.Builder
	for i, e := range events {
		if i >= limit {
			break
		}
		if i > 0 {
			b.WriteString("\n")
		}
		detail := truncStr(describeEvent(e), max(inner-36, 8))
		b.WriteString(timeStyle.Render(e.Timestamp.In(loc).Format("01-02 15:04")))
		b.WriteString(space.Render("  "))
		b.WriteString(typeStyle.Render(fmt.Sprintf("%-17s", e.Type)))
		b.WriteString(space.Render(" "))
		b.WriteString(detailStyle.Render(detail))
	}
	return components.ContentCard("Recent events", b.String(), w)
}

// describeEvent summarizes an event's properties on one line.
func describeEvent(e model.AnalyticsEvent) string {
	switch e.Type {
	case model.EventScreenViewed:
		if name, ok := e.ScreenName(); ok {
			return name
		}
	case model.EventWaterLogged:
		if ml, ok := intProp(e.Properties["amount"]); ok {
			return cli.FormatML(ml)
		}
	case model.EventMealLogged:
		if kcal, ok := intProp(e.Properties["calories"]); ok {
			return cli.FormatKcal(kcal)
		}
	case model.EventSearchPerformed:
		if q, ok := e.Properties["query"].(string); ok {
			return fmt.Sprintf("%q", q)
		}
	case model.EventThemeChanged:
		if th, ok := e.Properties["theme"].(string); ok {
			return th
		}
	case model.EventSettingsUpdated:
		if s, ok := e.Properties["setting"].(string); ok {
			return fmt.Sprintf("%s = %v", s, e.Properties["value"])
		}
	}

	keys := make([]string, 0, len(e.Properties))
	for k := range e.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Properties[k]))
	}
	return strings.Join(parts, " ")
}

// intProp reads a numeric property. JSON-decoded numbers arrive as float64.
func intProp(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
