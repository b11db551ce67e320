package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/productivity-nox/noxstat/internal/cli"
	"github.com/productivity-nox/noxstat/internal/clock"
	"github.com/productivity-nox/noxstat/internal/model"
	"github.com/productivity-nox/noxstat/internal/pipeline"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var flagCalendarDay string

var calendarCmd = &cobra.Command{
	Use:   "calendar [YYYY-MM]",
	Short: "Month grid of due tasks, and the tasks due on a day",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCalendar,
}

func init() {
	calendarCmd.Flags().StringVar(&flagCalendarDay, "day", "", "List tasks due on this date (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(calendarCmd)
}

func runCalendar(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	loc := s.clock.Location()
	today := clock.Today(s.clock)
	month := today
	if len(args) == 1 {
		month, err = time.ParseInLocation("2006-01", args[0], loc)
		if err != nil {
			return fmt.Errorf("month must look like 2025-03, got %q", args[0])
		}
	}
	day := today
	if flagCalendarDay != "" {
		day, err = time.ParseInLocation("2006-01-02", flagCalendarDay, loc)
		if err != nil {
			return fmt.Errorf("day must look like 2025-03-10, got %q", flagCalendarDay)
		}
		if len(args) == 0 {
			month = day
		}
	}

	res, err := s.load(ctx, nil)
	if err != nil {
		return err
	}
	if res.SyncErr != nil {
		progressf("  Offline: %v\n", res.SyncErr)
	}
	tasks := res.Snapshot.Tasks

	fmt.Println()
	fmt.Println(cli.RenderTitle(strings.ToUpper(month.Format("January 2006"))))
	fmt.Println()
	fmt.Print(renderMonth(month, today, day, pipeline.DueCounts(tasks, loc), loc))
	fmt.Println()

	due := pipeline.TasksDueOn(tasks, day, loc)
	if len(due) == 0 {
		fmt.Printf("  No tasks due on %s.\n", cli.FormatDay(day))
		return nil
	}
	rows := make([][]string, 0, len(due))
	for _, t := range due {
		rows = append(rows, []string{taskMark(t) + " " + t.Title, t.ID})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Due " + cli.FormatDay(day),
		Headers: []string{"Task", "ID"},
		Rows:    rows,
	}))
	return nil
}

func taskMark(t model.Task) string {
	if t.Completed {
		return "✓"
	}
	return "○"
}

// renderMonth draws a Sunday-first grid. Days with due tasks show the count;
// today and the selected day are highlighted.
func renderMonth(month, today, selected time.Time, counts map[string]int, loc *time.Location) string {
	head := lipgloss.NewStyle().Foreground(cli.ColorTextMuted)
	todayStyle := lipgloss.NewStyle().Foreground(cli.ColorAccent).Bold(true)
	selStyle := lipgloss.NewStyle().Reverse(true)
	dueStyle := lipgloss.NewStyle().Foreground(cli.ColorCalories)

	var b strings.Builder
	b.WriteString("  ")
	for wd := 0; wd < 7; wd++ {
		b.WriteString(head.Render(fmt.Sprintf("%-7s", cli.FormatDayOfWeek(wd))))
	}
	b.WriteString("\n")

	for _, week := range pipeline.MonthGrid(month.Year(), month.Month(), loc) {
		b.WriteString("  ")
		for _, d := range week {
			if d.IsZero() {
				b.WriteString(strings.Repeat(" ", 7))
				continue
			}
			key := clock.DayKey(d, loc)
			cell := fmt.Sprintf("%2d", d.Day())
			switch {
			case key == clock.DayKey(selected, loc):
				cell = selStyle.Render(cell)
			case key == clock.DayKey(today, loc):
				cell = todayStyle.Render(cell)
			}
			mark := "    "
			if n := counts[key]; n > 0 {
				mark = dueStyle.Render(fmt.Sprintf(" •%-2d", n))
			}
			b.WriteString(cell + mark + " ")
		}
		b.WriteString("\n")
	}
	return b.String()
}
