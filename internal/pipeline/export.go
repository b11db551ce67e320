package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/productivity-nox/noxstat/internal/model"
)

// CSVHeader is the first line of every export.
var CSVHeader = []string{"Date", "Tasks", "Completed Tasks", "Meals", "Calories"}

// ExportRows renders daily stats as export rows, header first.
func ExportRows(daily []model.DailyStat) [][]string {
	rows := make([][]string, 0, len(daily)+1)
	rows = append(rows, CSVHeader)
	for _, d := range daily {
		rows = append(rows, []string{
			d.DateKey(),
			strconv.Itoa(d.Tasks),
			strconv.Itoa(d.CompletedTasks),
			strconv.Itoa(d.Meals),
			strconv.Itoa(d.Calories),
		})
	}
	return rows
}

// WriteCSV writes the export: comma-joined fields, lines separated by "\n"
// with no trailing newline. Fields are never quoted; no exported value
// contains a comma.
func WriteCSV(w io.Writer, daily []model.DailyStat) error {
	bw := bufio.NewWriter(w)
	for i, row := range ExportRows(daily) {
		line := strings.Join(row, ",")
		if i > 0 {
			line = "\n" + line
		}
		if _, err := bw.WriteString(line); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// ExportFileName returns analytics-export-YYYY-MM-DD.csv for the given day.
func ExportFileName(day time.Time) string {
	return "analytics-export-" + day.Format("2006-01-02") + ".csv"
}
