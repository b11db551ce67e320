// Package pipeline loads user records and turns them into daily statistics,
// totals and goal progress.
package pipeline

import (
	"sort"
	"time"

	"github.com/productivity-nox/noxstat/internal/clock"
	"github.com/productivity-nox/noxstat/internal/model"
)

// Default goals applied when a user has no preferences row.
const (
	DefaultWaterGoalML   = 2000
	DefaultCalorieGoal   = 2000
	DefaultWindowDays    = 30
	recentEventsInReport = 10
)

// Input is everything Analyze needs for one invocation.
// Records may span more than the window; only in-window records count.
type Input struct {
	Tasks       []model.Task
	Meals       []model.Meal
	Water       []model.WaterLog
	Events      []model.AnalyticsEvent
	Preferences model.UserPreferences
	Days        int
}

// InputFromSnapshot builds an Input, filling missing goals with the defaults.
func InputFromSnapshot(s *model.Snapshot, days, waterGoal, calorieGoal int) Input {
	in := Input{Days: days}
	if s == nil {
		in.Preferences = model.UserPreferences{DailyWaterGoalML: waterGoal, DailyCalorieGoal: calorieGoal}
		return in
	}
	in.Tasks = s.Tasks
	in.Meals = s.Meals
	in.Water = s.Water
	in.Events = s.Events
	if s.Preferences != nil {
		in.Preferences = *s.Preferences
	}
	if in.Preferences.DailyWaterGoalML == 0 {
		in.Preferences.DailyWaterGoalML = waterGoal
	}
	if in.Preferences.DailyCalorieGoal == 0 {
		in.Preferences.DailyCalorieGoal = calorieGoal
	}
	return in
}

// Window is a run of consecutive calendar days ending today.
type Window struct {
	Days []time.Time // midnight of each day in Loc, oldest first
	Loc  *time.Location

	index map[string]int
}

// BuildWindow returns the last n calendar days, today included, in the
// clock's location.
func BuildWindow(n int, clk clock.Clock) (Window, error) {
	if n <= 0 {
		return Window{}, invalidArg("days", "window must be positive, got %d", n)
	}
	loc := clk.Location()
	today := clock.Today(clk)

	w := Window{
		Days:  make([]time.Time, n),
		Loc:   loc,
		index: make(map[string]int, n),
	}
	for i := 0; i < n; i++ {
		// time.Date normalizes the negative day offset and stays on midnight
		// across DST changes, unlike Add(-24h).
		day := time.Date(today.Year(), today.Month(), today.Day()-(n-1-i), 0, 0, 0, 0, loc)
		w.Days[i] = day
		w.index[day.Format("2006-01-02")] = i
	}
	return w, nil
}

// Index returns the position of t's calendar day in the window.
func (w Window) Index(t time.Time) (int, bool) {
	if t.IsZero() {
		return 0, false
	}
	i, ok := w.index[clock.DayKey(t, w.Loc)]
	return i, ok
}

// Contains reports whether t falls on a day of the window.
func (w Window) Contains(t time.Time) bool {
	_, ok := w.Index(t)
	return ok
}

// Analyze validates the input and computes the full report.
// It never mutates the input slices.
func Analyze(in Input, clk clock.Clock) (*model.Report, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	w, err := BuildWindow(in.Days, clk)
	if err != nil {
		return nil, err
	}

	daily := AggregateDays(w, in.Tasks, in.Meals, in.Water)
	goals := in.Preferences
	for i := range daily {
		daily[i].WaterPct = clampPercent(float64(daily[i].WaterML), float64(goals.DailyWaterGoalML))
		daily[i].CaloriePct = clampPercent(float64(daily[i].Calories), float64(goals.DailyCalorieGoal))
	}

	summary := Summarize(daily)
	summary.ScreenViews = ScreenViews(in.Events, w)
	summary.TotalEvents = countEvents(in.Events, w)

	progress, err := ComputeProgress(daily, goals.DailyWaterGoalML, goals.DailyCalorieGoal)
	if err != nil {
		return nil, err
	}

	return &model.Report{
		GeneratedAt:  clk.Now(),
		Days:         in.Days,
		From:         w.Days[0],
		To:           w.Days[len(w.Days)-1],
		Daily:        daily,
		Summary:      summary,
		Progress:     progress,
		RecentEvents: RecentEvents(in.Events, w, recentEventsInReport),
	}, nil
}

// Validate checks window size, goals and every record's required fields.
func Validate(in Input) error {
	if in.Days <= 0 {
		return invalidArg("days", "window must be positive, got %d", in.Days)
	}
	if in.Preferences.DailyWaterGoalML <= 0 {
		return invalidArg("goals.daily_water_goal", "must be positive, got %d", in.Preferences.DailyWaterGoalML)
	}
	if in.Preferences.DailyCalorieGoal <= 0 {
		return invalidArg("goals.daily_calorie_goal", "must be positive, got %d", in.Preferences.DailyCalorieGoal)
	}
	for i, t := range in.Tasks {
		if t.CreatedAt.IsZero() {
			return invalidRecord("tasks", i, t.ID, "missing or malformed created_at")
		}
	}
	for i, m := range in.Meals {
		if m.CreatedAt.IsZero() {
			return invalidRecord("meals", i, m.ID, "missing or malformed created_at")
		}
		if m.Calories < 0 {
			return invalidRecord("meals", i, m.ID, "calories must be >= 0, got %d", m.Calories)
		}
	}
	for i, wl := range in.Water {
		if wl.CreatedAt.IsZero() {
			return invalidRecord("water", i, wl.ID, "missing or malformed created_at")
		}
		if wl.AmountML <= 0 {
			return invalidRecord("water", i, wl.ID, "amount must be > 0, got %d", wl.AmountML)
		}
	}
	for i, e := range in.Events {
		if e.Timestamp.IsZero() {
			return invalidRecord("events", i, e.ID, "missing or malformed timestamp")
		}
	}
	return nil
}

// AggregateDays buckets records into one zero-filled DailyStat per window day.
// Records whose day is outside the window are skipped.
func AggregateDays(w Window, tasks []model.Task, meals []model.Meal, water []model.WaterLog) []model.DailyStat {
	days := make([]model.DailyStat, len(w.Days))
	for i, d := range w.Days {
		days[i].Date = d
	}

	for _, t := range tasks {
		i, ok := w.Index(t.CreatedAt)
		if !ok {
			continue
		}
		days[i].Tasks++
		if t.Completed {
			days[i].CompletedTasks++
		}
	}
	for _, m := range meals {
		i, ok := w.Index(m.CreatedAt)
		if !ok {
			continue
		}
		days[i].Meals++
		days[i].Calories += m.Calories
	}
	for _, wl := range water {
		i, ok := w.Index(wl.CreatedAt)
		if !ok {
			continue
		}
		days[i].WaterML += wl.AmountML
	}
	return days
}

// Summarize totals a daily sequence and derives its rates.
// ScreenViews and TotalEvents are left for the caller.
func Summarize(daily []model.DailyStat) model.Summary {
	var s model.Summary
	for _, d := range daily {
		s.TotalTasks += d.Tasks
		s.CompletedTasks += d.CompletedTasks
		s.TotalMeals += d.Meals
		s.TotalCalories += d.Calories
		s.TotalWaterML += d.WaterML
	}
	s.CompletionRate = CompletionRate(s.CompletedTasks, s.TotalTasks)
	s.AvgCaloriesPerMeal = AverageCaloriesPerMeal(s.TotalCalories, s.TotalMeals)
	s.ScreenViews = map[string]int{}
	return s
}

// ScreenViews counts in-window screen_viewed events by their screenName
// property. Events without a usable screenName are ignored.
func ScreenViews(events []model.AnalyticsEvent, w Window) map[string]int {
	views := make(map[string]int)
	for _, e := range events {
		if e.Type != model.EventScreenViewed || !w.Contains(e.Timestamp) {
			continue
		}
		name, ok := e.ScreenName()
		if !ok {
			continue
		}
		views[name]++
	}
	return views
}

// ScreenCount is one row of a ranked screen-view table.
type ScreenCount struct {
	Screen string
	Views  int
}

// RankScreens sorts screen views by count descending, then name.
func RankScreens(views map[string]int) []ScreenCount {
	out := make([]ScreenCount, 0, len(views))
	for name, n := range views {
		out = append(out, ScreenCount{Screen: name, Views: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Views != out[j].Views {
			return out[i].Views > out[j].Views
		}
		return out[i].Screen < out[j].Screen
	})
	return out
}

// RecentEvents returns up to n in-window events, newest first.
func RecentEvents(events []model.AnalyticsEvent, w Window, n int) []model.AnalyticsEvent {
	var out []model.AnalyticsEvent
	for _, e := range events {
		if w.Contains(e.Timestamp) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func countEvents(events []model.AnalyticsEvent, w Window) int {
	n := 0
	for _, e := range events {
		if w.Contains(e.Timestamp) {
			n++
		}
	}
	return n
}
