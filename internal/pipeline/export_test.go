package pipeline

import (
	"bytes"
	"testing"
	"time"

	"github.com/productivity-nox/noxstat/internal/model"
)

func TestWriteCSV(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, testLoc)
	daily := []model.DailyStat{
		{Date: day, Tasks: 3, CompletedTasks: 1, Meals: 2, Calories: 850, WaterML: 900},
		{Date: day.AddDate(0, 0, 1)},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, daily); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "Date,Tasks,Completed Tasks,Meals,Calories\n" +
		"2026-03-09,3,1,2,850\n" +
		"2026-03-10,0,0,0,0"
	if buf.String() != want {
		t.Errorf("csv =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Date,Tasks,Completed Tasks,Meals,Calories" {
		t.Errorf("csv = %q", buf.String())
	}
}

func TestWriteCSV_FromReport(t *testing.T) {
	r, err := Analyze(Input{Days: 3, Preferences: goals(2000, 2000)}, testClock)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, r.Daily); err != nil {
		t.Fatal(err)
	}
	rows := ExportRows(r.Daily)
	if len(rows) != 4 || rows[1][0] != "2026-03-08" || rows[3][0] != "2026-03-10" {
		t.Errorf("rows = %v", rows)
	}
}

func TestExportFileName(t *testing.T) {
	got := ExportFileName(time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC))
	if got != "analytics-export-2026-03-10.csv" {
		t.Errorf("ExportFileName = %q", got)
	}
}
