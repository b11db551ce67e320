package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/productivity-nox/noxstat/internal/clock"
	"github.com/productivity-nox/noxstat/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagExportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the per-day table as CSV",
	Long:  "Write Date, Tasks, Completed Tasks, Meals and Calories for each day of the window. Use --out - for stdout.",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&flagExportOut, "out", "o", "", "Output file (default analytics-export-<date>.csv)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	s, report, err := loadData(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	if flagExportOut == "-" {
		return pipeline.WriteCSV(os.Stdout, report.Daily)
	}

	out := flagExportOut
	if out == "" {
		out = pipeline.ExportFileName(clock.Today(s.clock))
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
	}

	//nolint:gosec // export path is chosen by the local user
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := pipeline.WriteCSV(f, report.Daily); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing export file: %w", err)
	}

	fmt.Printf("  Exported %d days to %s\n", len(report.Daily), out)
	return nil
}
