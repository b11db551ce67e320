package cmd

import (
	"fmt"

	"github.com/productivity-nox/noxstat/internal/cli"
	"github.com/productivity-nox/noxstat/internal/model"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Totals, rates and today's goal progress",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	s, report, err := loadData(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	sum := report.Summary
	if sum.TotalTasks == 0 && sum.TotalMeals == 0 && sum.TotalWaterML == 0 && sum.TotalEvents == 0 {
		fmt.Println("\n  Nothing logged in the selected window.")
		fmt.Println("  Try `noxstat log water 250` to get started.")
		return nil
	}

	p := report.Progress
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("NOXSTAT  Last %dd", report.Days)))
	fmt.Println()

	rows := [][]string{
		{"Tasks", cli.FormatNumber(int64(sum.TotalTasks))},
		{"Completed", fmt.Sprintf("%s (%s)", cli.FormatNumber(int64(sum.CompletedTasks)), cli.FormatRate(sum.CompletionRate))},
		{"---"},
		{"Meals", cli.FormatNumber(int64(sum.TotalMeals))},
		{"Calories", cli.FormatKcal(sum.TotalCalories)},
		{"Avg / meal", cli.FormatKcal(sum.AvgCaloriesPerMeal)},
		{"---"},
		{"Water", cli.FormatML(sum.TotalWaterML)},
		{"Water / day", cli.FormatML(sum.TotalWaterML / max(report.Days, 1))},
		{"---"},
		{"Events", cli.FormatNumber(int64(sum.TotalEvents))},
		{"Screens seen", cli.FormatNumber(int64(len(sum.ScreenViews)))},
	}
	fmt.Print(cli.RenderTable(cli.Table{Rows: rows}))
	fmt.Println()

	today := report.Today()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Today · " + cli.FormatDay(today.Date),
		Headers: []string{"Goal", "Observed", "Target", "Progress"},
		Rows: [][]string{
			{"Water", cli.FormatML(p.TodayWaterML), cli.FormatML(p.WaterGoalML), cli.FormatPercent(p.TodayWaterPct)},
			{"Calories", cli.FormatKcal(p.TodayCalories), cli.FormatKcal(p.CalorieGoal), cli.FormatPercent(p.TodayCaloriePct)},
		},
	}))

	printTrend("Water", report.Daily, func(d model.DailyStat) int { return d.WaterML })
	printTrend("Calories", report.Daily, func(d model.DailyStat) int { return d.Calories })
	return nil
}

func printTrend(label string, daily []model.DailyStat, pick func(model.DailyStat) int) {
	values := make([]float64, len(daily))
	for i, d := range daily {
		values[i] = float64(pick(d))
	}
	fmt.Printf("  %-9s %s\n", label, cli.RenderSparkline(values))
}
