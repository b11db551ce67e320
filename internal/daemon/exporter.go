package daemon

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"

	"github.com/productivity-nox/noxstat/internal/clock"
	"github.com/productivity-nox/noxstat/internal/model"
	"github.com/productivity-nox/noxstat/internal/pipeline"
)

// errNoReport is returned by an export attempted before the first poll.
var errNoReport = errors.New("no report computed yet")

// Exporter writes the current report's daily CSV on a cron schedule.
type Exporter struct {
	cron     *cron.Cron
	schedule string
	dir      string
	report   func() *model.Report
	clock    clock.Clock
}

// NewExporter creates an exporter. Schedules are evaluated in the clock's
// location.
func NewExporter(schedule, dir string, report func() *model.Report, clk clock.Clock) *Exporter {
	return &Exporter{
		cron:     cron.New(cron.WithLocation(clk.Location())),
		schedule: schedule,
		dir:      dir,
		report:   report,
		clock:    clk,
	}
}

// Start registers the export job and starts the scheduler.
func (e *Exporter) Start() error {
	log.Printf("Starting CSV exporter with schedule %q into %s", e.schedule, e.dir)

	_, err := e.cron.AddFunc(e.schedule, func() {
		path, err := e.ExportOnce()
		if err != nil {
			exportsTotal.WithLabelValues("cron", "error").Inc()
			log.Printf("Error exporting CSV: %v", err)
			return
		}
		exportsTotal.WithLabelValues("cron", "ok").Inc()
		log.Printf("Exported %s", path)
	})
	if err != nil {
		return fmt.Errorf("failed to add export job: %w", err)
	}

	e.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running export to finish.
func (e *Exporter) Stop() {
	ctx := e.cron.Stop()
	<-ctx.Done()
	log.Println("CSV exporter stopped")
}

// ExportOnce writes today's export file and returns its path. The file is
// written under a temporary name and renamed into place.
func (e *Exporter) ExportOnce() (string, error) {
	report := e.report()
	if report == nil {
		return "", errNoReport
	}
	if err := os.MkdirAll(e.dir, 0o750); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}

	path := filepath.Join(e.dir, pipeline.ExportFileName(clock.Today(e.clock)))
	tmp, err := os.CreateTemp(e.dir, ".export-*.csv")
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := pipeline.WriteCSV(tmp, report.Daily); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("writing export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("moving export into place: %w", err)
	}
	return path, nil
}
