package pipeline

import (
	"testing"
	"time"

	"github.com/productivity-nox/noxstat/internal/backend"
	"github.com/productivity-nox/noxstat/internal/model"
)

func TestMonthGrid(t *testing.T) {
	// March 2026 starts on a Sunday and has 31 days.
	weeks := MonthGrid(2026, time.March, time.UTC)
	if len(weeks) != 5 {
		t.Fatalf("weeks = %d, want 5", len(weeks))
	}
	if weeks[0][0].Day() != 1 {
		t.Errorf("first cell = %v, want March 1", weeks[0][0])
	}
	last := weeks[4]
	if last[2].Day() != 31 || !last[3].IsZero() {
		t.Errorf("last week = %v", last)
	}

	// February 2026 starts on a Sunday and has exactly four weeks.
	if got := len(MonthGrid(2026, time.February, time.UTC)); got != 4 {
		t.Errorf("February weeks = %d, want 4", got)
	}

	// April 2026 starts on a Wednesday: three leading blanks.
	april := MonthGrid(2026, time.April, time.UTC)
	for i := 0; i < 3; i++ {
		if !april[0][i].IsZero() {
			t.Errorf("april[0][%d] = %v, want blank", i, april[0][i])
		}
	}
	if april[0][3].Day() != 1 || april[0][3].Weekday() != time.Wednesday {
		t.Errorf("april 1 cell = %v", april[0][3])
	}
	for _, w := range april {
		if len(w) != 7 {
			t.Fatalf("week has %d cells", len(w))
		}
	}
}

func TestTasksDueOn(t *testing.T) {
	due := func(d, h int) *time.Time {
		v := time.Date(2026, 3, d, h, 0, 0, 0, testLoc)
		return &v
	}
	tasks := []model.Task{
		{ID: "1", Title: "b", DueDate: due(12, 9)},
		{ID: "2", Title: "a", DueDate: due(12, 23), Completed: true},
		{ID: "3", Title: "c", DueDate: due(13, 0)},
		{ID: "4", Title: "none"},
		{ID: "5", Title: "a", DueDate: due(12, 1)},
	}
	got := TasksDueOn(tasks, time.Date(2026, 3, 12, 0, 0, 0, 0, testLoc), testLoc)
	var order string
	for _, task := range got {
		order += task.ID
	}
	if order != "512" {
		t.Errorf("order = %q, want 512 (incomplete by title, then completed)", order)
	}

	counts := DueCounts(tasks, testLoc)
	if counts["2026-03-12"] != 3 || counts["2026-03-13"] != 1 || len(counts) != 2 {
		t.Errorf("DueCounts = %v", counts)
	}
}

func TestTasksDueOn_DateOnlyKeepsCivilDate(t *testing.T) {
	task, err := backend.DecodeTask([]byte(`{"id":"t1","user_id":"u1","title":"file taxes","completed":false,` +
		`"created_at":"2024-05-01T12:00:00Z","due_date":"2024-05-10"}`))
	if err != nil {
		t.Fatalf("DecodeTask: %v", err)
	}
	if !task.DueAllDay {
		t.Fatal("date-only due_date should decode as all-day")
	}

	for _, name := range []string{"America/New_York", "Pacific/Auckland", "UTC"} {
		loc, err := time.LoadLocation(name)
		if err != nil {
			t.Skipf("zone %s unavailable: %v", name, err)
		}
		got := TasksDueOn([]model.Task{task}, time.Date(2024, 5, 10, 0, 0, 0, 0, loc), loc)
		if len(got) != 1 {
			t.Errorf("%s: tasks due on 2024-05-10 = %d, want 1", name, len(got))
		}
		if counts := DueCounts([]model.Task{task}, loc); counts["2024-05-10"] != 1 || len(counts) != 1 {
			t.Errorf("%s: DueCounts = %v", name, counts)
		}
	}
}
