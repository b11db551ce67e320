package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/productivity-nox/noxstat/internal/clock"
	"github.com/productivity-nox/noxstat/internal/model"
)

var testLoc = time.FixedZone("UTC-5", -5*3600)

// testClock is frozen at 2026-03-10 15:00 in testLoc.
var testClock = clock.Fixed{At: time.Date(2026, 3, 10, 15, 0, 0, 0, testLoc), Loc: testLoc}

func at(daysAgo, hour int) time.Time {
	return time.Date(2026, 3, 10-daysAgo, hour, 0, 0, 0, testLoc)
}

func goals(water, cal int) model.UserPreferences {
	return model.UserPreferences{DailyWaterGoalML: water, DailyCalorieGoal: cal}
}

func TestBuildWindow(t *testing.T) {
	for _, n := range []int{1, 3, 7, 30, 90, 400} {
		w, err := BuildWindow(n, testClock)
		if err != nil {
			t.Fatalf("BuildWindow(%d): %v", n, err)
		}
		if len(w.Days) != n {
			t.Fatalf("BuildWindow(%d) has %d days", n, len(w.Days))
		}
		if got := w.Days[n-1].Format("2006-01-02"); got != "2026-03-10" {
			t.Errorf("BuildWindow(%d) ends on %s", n, got)
		}
		for i := 1; i < n; i++ {
			want := w.Days[i-1].AddDate(0, 0, 1)
			if !w.Days[i].Equal(want) {
				t.Fatalf("BuildWindow(%d): day %d = %v, want %v", n, i, w.Days[i], want)
			}
		}
	}

	for _, n := range []int{0, -1} {
		if _, err := BuildWindow(n, testClock); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("BuildWindow(%d) err = %v, want ErrInvalidInput", n, err)
		}
	}
}

func TestBuildWindow_AcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2026-03-08 is the spring-forward day in New York.
	clk := clock.Fixed{At: time.Date(2026, 3, 9, 0, 30, 0, 0, ny), Loc: ny}
	w, err := BuildWindow(3, clk)
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, d := range w.Days {
		if d.Hour() != 0 {
			t.Errorf("day %v is not midnight", d)
		}
		keys = append(keys, d.Format("01-02"))
	}
	if strings.Join(keys, ",") != "03-07,03-08,03-09" {
		t.Errorf("days = %v", keys)
	}
}

func TestWindowIndex_BucketsByLocalDate(t *testing.T) {
	w, err := BuildWindow(2, testClock)
	if err != nil {
		t.Fatal(err)
	}
	// 03:30 UTC on the 10th is 22:30 on the 9th in testLoc.
	i, ok := w.Index(time.Date(2026, 3, 10, 3, 30, 0, 0, time.UTC))
	if !ok || i != 0 {
		t.Errorf("Index = %d, %v; want 0, true", i, ok)
	}
	if _, ok := w.Index(at(2, 12)); ok {
		t.Error("record before the window should not be indexed")
	}
	if _, ok := w.Index(at(-1, 1)); ok {
		t.Error("record after today should not be indexed")
	}
	if _, ok := w.Index(time.Time{}); ok {
		t.Error("zero time should not be indexed")
	}
}

// Scenario A: completed tasks today and two days ago in a 3-day window.
func TestAnalyze_CompletedTasksAcrossWindow(t *testing.T) {
	in := Input{
		Days:        3,
		Preferences: goals(2000, 2000),
		Tasks: []model.Task{
			{ID: "t1", Completed: true, CreatedAt: at(0, 9)},
			{ID: "t2", Completed: true, CreatedAt: at(2, 18)},
		},
	}
	r, err := Analyze(in, testClock)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	var completed []int
	for _, d := range r.Daily {
		completed = append(completed, d.CompletedTasks)
	}
	if fmt.Sprint(completed) != "[1 0 1]" {
		t.Errorf("completed per day = %v, want [1 0 1]", completed)
	}
	s := r.Summary
	if s.TotalTasks != 2 || s.CompletedTasks != 2 || s.CompletionRate != 100 {
		t.Errorf("summary = %+v", s)
	}
}

// Scenario B: two meals today against a 2000 kcal goal.
func TestAnalyze_MealsAgainstCalorieGoal(t *testing.T) {
	in := Input{
		Days:        7,
		Preferences: goals(2000, 2000),
		Meals: []model.Meal{
			{ID: "m1", Calories: 300, CreatedAt: at(0, 8)},
			{ID: "m2", Calories: 500, CreatedAt: at(0, 13)},
		},
	}
	r, err := Analyze(in, testClock)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.Progress.TodayCaloriePct != 40 {
		t.Errorf("today calorie pct = %v, want 40", r.Progress.TodayCaloriePct)
	}
	if r.Summary.AvgCaloriesPerMeal != 400 {
		t.Errorf("avg calories = %d, want 400", r.Summary.AvgCaloriesPerMeal)
	}
	if r.Today().Calories != 800 || r.Today().Meals != 2 {
		t.Errorf("today = %+v", r.Today())
	}
}

// Scenario C: water above goal clamps at 100.
func TestAnalyze_WaterProgressClamps(t *testing.T) {
	in := Input{
		Days:        1,
		Preferences: goals(2000, 2000),
		Water: []model.WaterLog{
			{ID: "w1", AmountML: 1500, CreatedAt: at(0, 8)},
			{ID: "w2", AmountML: 1000, CreatedAt: at(0, 12)},
		},
	}
	r, err := Analyze(in, testClock)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	p := r.Progress
	if p.TodayWaterML != 2500 || p.TodayWaterPct != 100 || p.RangeWaterPct != 100 {
		t.Errorf("progress = %+v", p)
	}
	if r.Daily[0].WaterPct != 100 || p.DaysWaterGoalMet != 1 {
		t.Errorf("daily water pct = %v, days met = %d", r.Daily[0].WaterPct, p.DaysWaterGoalMet)
	}
}

// Scenario D: no records at all.
func TestAnalyze_EmptyInput(t *testing.T) {
	r, err := Analyze(Input{Days: 30, Preferences: goals(2000, 2000)}, testClock)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(r.Daily) != 30 {
		t.Fatalf("daily len = %d", len(r.Daily))
	}
	for _, d := range r.Daily {
		if d.Tasks != 0 || d.CompletedTasks != 0 || d.Meals != 0 || d.Calories != 0 || d.WaterML != 0 {
			t.Fatalf("non-zero day %+v", d)
		}
	}
	s := r.Summary
	if s.TotalTasks != 0 || s.CompletionRate != 0 || s.AvgCaloriesPerMeal != 0 || len(s.ScreenViews) != 0 {
		t.Errorf("summary = %+v", s)
	}
	if r.Progress.TodayWaterPct != 0 || r.Progress.RangeCaloriePct != 0 {
		t.Errorf("progress = %+v", r.Progress)
	}
}

// Scenario E: screen views need a non-empty string screenName.
func TestScreenViews(t *testing.T) {
	w, err := BuildWindow(7, testClock)
	if err != nil {
		t.Fatal(err)
	}
	events := []model.AnalyticsEvent{
		{ID: "1", Type: model.EventScreenViewed, Timestamp: at(0, 9), Properties: map[string]any{"screenName": "Tasks"}},
		{ID: "2", Type: model.EventScreenViewed, Timestamp: at(1, 9), Properties: map[string]any{"screenName": "Tasks"}},
		{ID: "3", Type: model.EventScreenViewed, Timestamp: at(1, 9), Properties: map[string]any{"screenName": "Water"}},
		{ID: "4", Type: model.EventScreenViewed, Timestamp: at(0, 9)},
		{ID: "5", Type: model.EventScreenViewed, Timestamp: at(0, 9), Properties: map[string]any{"screenName": 7}},
		{ID: "6", Type: model.EventTaskCreated, Timestamp: at(0, 9), Properties: map[string]any{"screenName": "Tasks"}},
		{ID: "7", Type: model.EventScreenViewed, Timestamp: at(20, 9), Properties: map[string]any{"screenName": "Old"}},
	}
	got := ScreenViews(events, w)
	if len(got) != 2 || got["Tasks"] != 2 || got["Water"] != 1 {
		t.Errorf("ScreenViews = %v", got)
	}

	ranked := RankScreens(got)
	if len(ranked) != 2 || ranked[0].Screen != "Tasks" || ranked[1].Screen != "Water" {
		t.Errorf("RankScreens = %+v", ranked)
	}
}

// Scenario F and the other validation failures.
func TestAnalyze_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"zero calorie goal", Input{Days: 7, Preferences: goals(2000, 0)}, "goals.daily_calorie_goal"},
		{"negative water goal", Input{Days: 7, Preferences: goals(-1, 2000)}, "goals.daily_water_goal"},
		{"zero window", Input{Days: 0, Preferences: goals(2000, 2000)}, "days"},
		{"malformed task time", Input{Days: 7, Preferences: goals(2000, 2000),
			Tasks: []model.Task{{ID: "ok", CreatedAt: at(0, 1)}, {ID: "bad"}}}, "tasks[1] id=bad"},
		{"negative calories", Input{Days: 7, Preferences: goals(2000, 2000),
			Meals: []model.Meal{{ID: "m", Calories: -10, CreatedAt: at(0, 1)}}}, "meals[0] id=m"},
		{"zero water amount", Input{Days: 7, Preferences: goals(2000, 2000),
			Water: []model.WaterLog{{ID: "w", AmountML: 0, CreatedAt: at(0, 1)}}}, "water[0] id=w"},
		{"event without timestamp", Input{Days: 7, Preferences: goals(2000, 2000),
			Events: []model.AnalyticsEvent{{ID: "e", Type: model.EventThemeChanged}}}, "events[0] id=e"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Analyze(tt.in, testClock)
			if r != nil {
				t.Errorf("expected no report, got %+v", r)
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
			var iie *InvalidInputError
			if !errors.As(err, &iie) {
				t.Fatalf("err %T is not *InvalidInputError", err)
			}
			if iie.Field != tt.field {
				t.Errorf("field = %q, want %q (err %v)", iie.Field, tt.field, err)
			}
		})
	}
}

func TestAnalyze_OutOfWindowRecordsIgnored(t *testing.T) {
	in := Input{
		Days:        3,
		Preferences: goals(2000, 2000),
		Tasks: []model.Task{
			{ID: "in", Completed: false, CreatedAt: at(1, 9)},
			{ID: "old", Completed: true, CreatedAt: at(3, 9)},
			{ID: "future", Completed: true, CreatedAt: at(-1, 9)},
		},
		Meals: []model.Meal{{ID: "old", Calories: 900, CreatedAt: at(10, 9)}},
		Events: []model.AnalyticsEvent{
			{ID: "e-old", Type: model.EventScreenViewed, Timestamp: at(5, 9), Properties: map[string]any{"screenName": "Tasks"}},
		},
	}
	r, err := Analyze(in, testClock)
	if err != nil {
		t.Fatal(err)
	}
	s := r.Summary
	if s.TotalTasks != 1 || s.CompletedTasks != 0 || s.TotalMeals != 0 || s.TotalEvents != 0 || len(s.ScreenViews) != 0 {
		t.Errorf("summary = %+v", s)
	}
	if len(r.RecentEvents) != 0 {
		t.Errorf("recent events = %+v", r.RecentEvents)
	}
}

func TestAnalyze_Properties(t *testing.T) {
	var tasks []model.Task
	var meals []model.Meal
	var water []model.WaterLog
	for i := 0; i < 60; i++ {
		tasks = append(tasks, model.Task{ID: fmt.Sprintf("t%d", i), Completed: i%3 == 0, CreatedAt: at(i%40, i%24)})
		meals = append(meals, model.Meal{ID: fmt.Sprintf("m%d", i), Calories: i * 37, CreatedAt: at(i%35, 12)})
		water = append(water, model.WaterLog{ID: fmt.Sprintf("w%d", i), AmountML: 100 + i*50, CreatedAt: at(i%10, 7)})
	}

	for _, days := range []int{1, 7, 30, 90} {
		in := Input{Days: days, Preferences: goals(1500, 1800), Tasks: tasks, Meals: meals, Water: water}
		r, err := Analyze(in, testClock)
		if err != nil {
			t.Fatalf("days=%d: %v", days, err)
		}
		if len(r.Daily) != days {
			t.Fatalf("days=%d: %d entries", days, len(r.Daily))
		}
		sumTasks := 0
		for _, d := range r.Daily {
			if d.CompletedTasks > d.Tasks {
				t.Errorf("days=%d: completed > tasks on %s", days, d.DateKey())
			}
			for _, pct := range []float64{d.WaterPct, d.CaloriePct} {
				if pct < 0 || pct > 100 {
					t.Errorf("days=%d: pct %v out of range", days, pct)
				}
			}
			sumTasks += d.Tasks
		}
		if sumTasks != r.Summary.TotalTasks || r.Summary.CompletedTasks > r.Summary.TotalTasks {
			t.Errorf("days=%d: totals inconsistent %+v", days, r.Summary)
		}
		p := r.Progress
		for _, pct := range []float64{p.TodayWaterPct, p.TodayCaloriePct, p.RangeWaterPct, p.RangeCaloriePct} {
			if pct < 0 || pct > 100 {
				t.Errorf("days=%d: progress %v out of range", days, pct)
			}
		}
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	in := Input{
		Days:        14,
		Preferences: goals(2000, 2200),
		Tasks:       []model.Task{{ID: "t", Completed: true, CreatedAt: at(3, 3)}},
		Meals:       []model.Meal{{ID: "m", Calories: 640, CreatedAt: at(0, 20)}},
		Water:       []model.WaterLog{{ID: "w", AmountML: 330, CreatedAt: at(5, 11)}},
		Events: []model.AnalyticsEvent{
			{ID: "a", Type: model.EventScreenViewed, Timestamp: at(1, 1), Properties: map[string]any{"screenName": "Water"}},
			{ID: "b", Type: model.EventScreenViewed, Timestamp: at(2, 1), Properties: map[string]any{"screenName": "Tasks"}},
		},
	}
	first, err := Analyze(in, testClock)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Analyze(in, testClock)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("outputs differ:\n%s\n%s", a, b)
	}
}

func TestAnalyze_DoesNotMutateInput(t *testing.T) {
	tasks := []model.Task{{ID: "b", CreatedAt: at(0, 1)}, {ID: "a", CreatedAt: at(1, 1)}}
	events := []model.AnalyticsEvent{
		{ID: "x", Type: model.EventMealLogged, Timestamp: at(2, 1)},
		{ID: "y", Type: model.EventMealLogged, Timestamp: at(0, 1)},
	}
	if _, err := Analyze(Input{Days: 5, Preferences: goals(1, 1), Tasks: tasks, Events: events}, testClock); err != nil {
		t.Fatal(err)
	}
	if tasks[0].ID != "b" || events[0].ID != "x" {
		t.Error("input slices were reordered")
	}
}

func TestRecentEvents(t *testing.T) {
	w, _ := BuildWindow(7, testClock)
	events := []model.AnalyticsEvent{
		{ID: "a", Timestamp: at(3, 1)},
		{ID: "b", Timestamp: at(0, 5)},
		{ID: "c", Timestamp: at(0, 5)},
		{ID: "d", Timestamp: at(1, 1)},
	}
	got := RecentEvents(events, w, 3)
	var order []string
	for _, e := range got {
		order = append(order, e.ID)
	}
	if strings.Join(order, "") != "bcd" {
		t.Errorf("order = %v, want b c d", order)
	}
}

func TestInputFromSnapshot_DefaultGoals(t *testing.T) {
	in := InputFromSnapshot(&model.Snapshot{
		Preferences: &model.UserPreferences{DailyWaterGoalML: 2400},
	}, 7, DefaultWaterGoalML, DefaultCalorieGoal)
	if in.Preferences.DailyWaterGoalML != 2400 || in.Preferences.DailyCalorieGoal != DefaultCalorieGoal {
		t.Errorf("preferences = %+v", in.Preferences)
	}
	in = InputFromSnapshot(nil, 7, 1000, 1200)
	if in.Preferences.DailyWaterGoalML != 1000 || in.Preferences.DailyCalorieGoal != 1200 || in.Days != 7 {
		t.Errorf("nil snapshot input = %+v", in)
	}
}
