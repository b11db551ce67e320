package cmd

import (
	"fmt"

	"github.com/productivity-nox/noxstat/internal/cli"

	"github.com/spf13/cobra"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Water and calorie goal progress for today and the window",
	RunE:  runProgress,
}

func init() {
	rootCmd.AddCommand(progressCmd)
}

func runProgress(cmd *cobra.Command, _ []string) error {
	s, report, err := loadData(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	p := report.Progress
	const barW = 30

	fmt.Println()
	fmt.Println(cli.RenderTitle("GOALS"))
	fmt.Println()
	fmt.Printf("  Today (%s)\n", cli.FormatDay(report.Today().Date))
	fmt.Printf("    Water     %s\n", cli.RenderGoalBar(p.TodayWaterPct,
		cli.FormatML(p.TodayWaterML), cli.FormatML(p.WaterGoalML), barW, cli.MeterWater))
	fmt.Printf("    Calories  %s\n", cli.RenderGoalBar(p.TodayCaloriePct,
		cli.FormatKcal(p.TodayCalories), cli.FormatKcal(p.CalorieGoal), barW, cli.MeterCalories))
	fmt.Println()

	days := report.Days
	fmt.Printf("  Last %d days\n", days)
	fmt.Printf("    Water     %s\n", cli.RenderGoalBar(p.RangeWaterPct,
		cli.FormatML(report.Summary.TotalWaterML), cli.FormatML(p.WaterGoalML*days), barW, cli.MeterWater))
	fmt.Printf("    Calories  %s\n", cli.RenderGoalBar(p.RangeCaloriePct,
		cli.FormatKcal(report.Summary.TotalCalories), cli.FormatKcal(p.CalorieGoal*days), barW, cli.MeterCalories))
	fmt.Println()
	fmt.Print(cli.RenderKV("", [][2]string{
		{"Water goal met", fmt.Sprintf("%d of %d days", p.DaysWaterGoalMet, days)},
		{"Calorie goal met", fmt.Sprintf("%d of %d days", p.DaysCalorieGoalMet, days)},
	}))
	return nil
}
