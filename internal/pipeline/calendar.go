package pipeline

import (
	"sort"
	"time"

	"github.com/productivity-nox/noxstat/internal/clock"
	"github.com/productivity-nox/noxstat/internal/model"
)

// TasksDueOn returns tasks whose due date falls on day's calendar date in
// loc, incomplete first and then by title.
func TasksDueOn(tasks []model.Task, day time.Time, loc *time.Location) []model.Task {
	key := clock.DayKey(day, loc)
	var out []model.Task
	for _, t := range tasks {
		if due, ok := t.DueKey(loc); ok && due == key {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Completed != out[j].Completed {
			return !out[i].Completed
		}
		return out[i].Title < out[j].Title
	})
	return out
}

// DueCounts maps each calendar date (YYYY-MM-DD) to its number of due tasks.
func DueCounts(tasks []model.Task, loc *time.Location) map[string]int {
	counts := make(map[string]int)
	for _, t := range tasks {
		if due, ok := t.DueKey(loc); ok {
			counts[due]++
		}
	}
	return counts
}

// MonthGrid lays out a month as Sunday-first weeks. Cells before the 1st and
// after the last day are zero times.
func MonthGrid(year int, month time.Month, loc *time.Location) [][]time.Time {
	if loc == nil {
		loc = time.Local
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	lead := int(first.Weekday())

	cells := make([]time.Time, lead, lead+daysInMonth+6)
	for d := 1; d <= daysInMonth; d++ {
		cells = append(cells, time.Date(year, month, d, 0, 0, 0, 0, loc))
	}
	for len(cells)%7 != 0 {
		cells = append(cells, time.Time{})
	}

	weeks := make([][]time.Time, 0, len(cells)/7)
	for i := 0; i < len(cells); i += 7 {
		weeks = append(weeks, cells[i:i+7])
	}
	return weeks
}
