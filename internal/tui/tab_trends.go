package tui

import (
	"fmt"
	"strings"

	"github.com/productivity-nox/noxstat/internal/cli"
	"github.com/productivity-nox/noxstat/internal/model"
	"github.com/productivity-nox/noxstat/internal/tui/components"
	"github.com/productivity-nox/noxstat/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderTrendsTab(cw int) string {
	t := theme.Active
	r := a.report

	water := series(r.Daily, func(d model.DailyStat) int { return d.WaterML })
	calories := series(r.Daily, func(d model.DailyStat) int { return d.Calories })
	completed := series(r.Daily, func(d model.DailyStat) int { return d.CompletedTasks })
	created := series(r.Daily, func(d model.DailyStat) int { return d.Tasks })
	labels := chartDateLabels(r.Daily)

	chartH := max((a.height-16)/3, 5)
	inner := components.CardInnerWidth(cw)

	var b strings.Builder
	b.WriteString(components.ContentCard(
		fmt.Sprintf("Water · goal %s", cli.FormatML(r.Progress.WaterGoalML)),
		components.BarChart(water, labels, t.Water, inner, chartH, float64(r.Progress.WaterGoalML)),
		cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard(
		fmt.Sprintf("Calories · goal %s", cli.FormatKcal(r.Progress.CalorieGoal)),
		components.BarChart(calories, labels, t.Calories, inner, chartH, float64(r.Progress.CalorieGoal)),
		cw))
	b.WriteString("\n")

	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Tasks completed",
			components.BarChart(completed, labels, t.Tasks, inner, chartH, 0), cw))
		return b.String()
	}

	halves := components.LayoutRow(cw, 2)
	tasksCard := components.ContentCard("Tasks completed",
		components.BarChart(completed, labels, t.Tasks, components.CardInnerWidth(halves[0]), chartH, 0),
		halves[0])
	b.WriteString(components.CardRow([]string{tasksCard, a.renderWeekdayCard(created, halves[1])}))
	return b.String()
}

// renderWeekdayCard shows average water, calories and tasks per weekday.
func (a App) renderWeekdayCard(created []float64, w int) string {
	t := theme.Active
	r := a.report

	type avg struct {
		n, water, kcal, tasks int
	}
	var days [7]avg
	for i, d := range r.Daily {
		wd := int(d.Date.Weekday())
		days[wd].n++
		days[wd].water += d.WaterML
		days[wd].kcal += d.Calories
		days[wd].tasks += int(created[i])
	}

	head := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	cell := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var b strings.Builder
	b.WriteString(head.Render(fmt.Sprintf("%-5s %10s %10s %6s", "Day", "Water", "Calories", "Tasks")))
	// Monday first.
	for _, wd := range []int{1, 2, 3, 4, 5, 6, 0} {
		d := days[wd]
		b.WriteString("\n")
		if d.n == 0 {
			b.WriteString(head.Render(fmt.Sprintf("%-5s %10s %10s %6s", cli.FormatDayOfWeek(wd), "-", "-", "-")))
			continue
		}
		b.WriteString(cell.Render(fmt.Sprintf("%-5s %10s %10s %6.1f",
			cli.FormatDayOfWeek(wd),
			cli.FormatML(d.water/d.n),
			cli.FormatKcal(d.kcal/d.n),
			float64(d.tasks)/float64(d.n))))
	}
	b.WriteString("\n\n")
	b.WriteString(head.Render("Tasks created "))
	b.WriteString(components.Sparkline(created, t.Tasks))
	return components.ContentCard("Weekday averages", b.String(), w)
}

func series(daily []model.DailyStat, pick func(model.DailyStat) int) []float64 {
	out := make([]float64, len(daily))
	for i, d := range daily {
		out[i] = float64(pick(d))
	}
	return out
}
