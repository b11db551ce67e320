package cmd

import (
	"fmt"

	"github.com/productivity-nox/noxstat/internal/cli"
	"github.com/productivity-nox/noxstat/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagScreensLimit int

var screensCmd = &cobra.Command{
	Use:   "screens",
	Short: "Screen views in the window, most viewed first",
	RunE:  runScreens,
}

func init() {
	screensCmd.Flags().IntVarP(&flagScreensLimit, "limit", "l", 0, "Show at most this many screens")
	rootCmd.AddCommand(screensCmd)
}

func runScreens(cmd *cobra.Command, _ []string) error {
	s, report, err := loadData(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	ranked := pipeline.RankScreens(report.Summary.ScreenViews)
	if len(ranked) == 0 {
		fmt.Println("\n  No screen views in the selected window.")
		return nil
	}
	if flagScreensLimit > 0 && len(ranked) > flagScreensLimit {
		ranked = ranked[:flagScreensLimit]
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SCREENS  Last %dd", report.Days)))
	fmt.Println()

	total := 0
	for _, sc := range report.Summary.ScreenViews {
		total += sc
	}
	rows := make([][]string, 0, len(ranked))
	for _, sc := range ranked {
		rows = append(rows, []string{
			sc.Screen,
			cli.FormatNumber(int64(sc.Views)),
			cli.FormatPercent(float64(sc.Views) / float64(total) * 100),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Screen", "Views", "Share"},
		Rows:    rows,
	}))
	fmt.Println()

	top := float64(ranked[0].Views)
	for _, sc := range ranked {
		fmt.Println(cli.RenderHorizontalBar(fmt.Sprintf("%-16s", sc.Screen), float64(sc.Views), top, 40))
	}
	return nil
}
