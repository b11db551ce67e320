package cmd

import (
	"fmt"

	"github.com/productivity-nox/noxstat/internal/cli"

	"github.com/spf13/cobra"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Per-day table of tasks, meals, calories and water",
	RunE:  runDaily,
}

func init() {
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(cmd *cobra.Command, _ []string) error {
	s, report, err := loadData(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("DAILY  Last %dd", report.Days)))
	fmt.Println()

	rows := make([][]string, 0, len(report.Daily))
	// Newest first, like a log.
	for i := len(report.Daily) - 1; i >= 0; i-- {
		d := report.Daily[i]
		rows = append(rows, []string{
			d.DateKey(),
			cli.FormatDayOfWeek(int(d.Date.Weekday())),
			fmt.Sprintf("%d/%d", d.CompletedTasks, d.Tasks),
			cli.FormatNumber(int64(d.Meals)),
			cli.FormatKcal(d.Calories),
			cli.FormatML(d.WaterML),
			cli.FormatPercent(d.WaterPct),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Tasks", "Meals", "Calories", "Water", "Water %"},
		Rows:    rows,
	}))
	return nil
}
