package tui

import (
	"fmt"
	"strings"

	"github.com/productivity-nox/noxstat/internal/cli"
	"github.com/productivity-nox/noxstat/internal/tui/components"
	"github.com/productivity-nox/noxstat/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	r := a.report
	s := r.Summary
	p := r.Progress

	var b strings.Builder

	cards := []components.Metric{
		{
			Label: "Tasks",
			Value: fmt.Sprintf("%d/%d", s.CompletedTasks, s.TotalTasks),
			Delta: cli.FormatRate(s.CompletionRate) + " completed",
			Color: t.Tasks,
		},
		{
			Label: "Meals",
			Value: cli.FormatNumber(int64(s.TotalMeals)),
			Delta: cli.FormatKcal(s.AvgCaloriesPerMeal) + " avg",
		},
		{
			Label: "Calories",
			Value: cli.FormatKcal(s.TotalCalories),
			Color: t.Calories,
		},
		{
			Label: "Water",
			Value: cli.FormatML(s.TotalWaterML),
			Color: t.Water,
		},
	}
	if !a.isCompactLayout() {
		cards = append(cards, components.Metric{
			Label: "Events",
			Value: cli.FormatNumber(int64(s.TotalEvents)),
			Delta: fmt.Sprintf("%d screens", len(s.ScreenViews)),
		})
	}
	b.WriteString(components.MetricCardRow(cards, cw))
	b.WriteString("\n")

	// Today's goals and the whole-window progress side by side.
	halves := components.LayoutRow(cw, 2)
	if a.isCompactLayout() {
		halves = []int{cw}
	}
	barW := max(components.CardInnerWidth(halves[0])-32, 10)

	var today strings.Builder
	today.WriteString(components.GoalBar("Water", p.TodayWaterPct,
		cli.FormatML(p.TodayWaterML)+" / "+cli.FormatML(p.WaterGoalML), t.Water, 8, barW))
	today.WriteString("\n")
	today.WriteString(components.GoalBar("Calories", p.TodayCaloriePct,
		cli.FormatKcal(p.TodayCalories)+" / "+cli.FormatKcal(p.CalorieGoal), t.Calories, 8, barW))
	todayCard := components.ContentCard("Today · "+cli.FormatDay(r.Today().Date), today.String(), halves[0])

	if a.isCompactLayout() {
		b.WriteString(todayCard)
		b.WriteString("\n")
	} else {
		var window strings.Builder
		window.WriteString(components.GoalBar("Water", p.RangeWaterPct,
			fmt.Sprintf("goal met %d/%d days", p.DaysWaterGoalMet, r.Days), t.Water, 8, barW))
		window.WriteString("\n")
		window.WriteString(components.GoalBar("Calories", p.RangeCaloriePct,
			fmt.Sprintf("goal met %d/%d days", p.DaysCalorieGoalMet, r.Days), t.Calories, 8, barW))
		windowCard := components.ContentCard(fmt.Sprintf("Last %d days", r.Days), window.String(), halves[1])
		b.WriteString(components.CardRow([]string{todayCard, windowCard}))
		b.WriteString("\n")
	}

	values := make([]float64, len(r.Daily))
	for i, d := range r.Daily {
		values[i] = float64(d.Calories)
	}
	chartH := 8
	if a.height > 45 {
		chartH = 12
	}
	chart := components.BarChart(values, chartDateLabels(r.Daily), t.Calories,
		components.CardInnerWidth(cw), chartH, float64(p.CalorieGoal))
	b.WriteString(components.ContentCard("Daily Calories", chart, cw))

	if a.analyzeErr != nil {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(t.Warning).Background(t.Background).
			Render("  " + a.analyzeErr.Error()))
	}
	return b.String()
}
