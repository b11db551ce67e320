package model

import "time"

// DailyStat holds metrics for a single calendar day of a window.
type DailyStat struct {
	Date           time.Time `json:"date"`
	Tasks          int       `json:"tasks"`
	CompletedTasks int       `json:"completed_tasks"`
	Meals          int       `json:"meals"`
	Calories       int       `json:"calories"`
	WaterML        int       `json:"water_ml"`
	WaterPct       float64   `json:"water_pct"`
	CaloriePct     float64   `json:"calorie_pct"`
}

// DateKey formats the stat's date as YYYY-MM-DD.
func (d DailyStat) DateKey() string {
	return d.Date.Format("2006-01-02")
}

// Summary holds the window-level totals.
type Summary struct {
	TotalTasks         int            `json:"total_tasks"`
	CompletedTasks     int            `json:"completed_tasks"`
	TotalMeals         int            `json:"total_meals"`
	TotalCalories      int            `json:"total_calories"`
	TotalWaterML       int            `json:"total_water_ml"`
	TotalEvents        int            `json:"total_events"`
	CompletionRate     int            `json:"completion_rate"`
	AvgCaloriesPerMeal int            `json:"avg_calories_per_meal"`
	ScreenViews        map[string]int `json:"screen_views"`
}

// Progress holds goal progress for today and for the whole window.
// Percentages are clamped to [0, 100].
type Progress struct {
	WaterGoalML        int     `json:"water_goal_ml"`
	CalorieGoal        int     `json:"calorie_goal"`
	TodayWaterML       int     `json:"today_water_ml"`
	TodayCalories      int     `json:"today_calories"`
	TodayWaterPct      float64 `json:"today_water_pct"`
	TodayCaloriePct    float64 `json:"today_calorie_pct"`
	RangeWaterPct      float64 `json:"range_water_pct"`
	RangeCaloriePct    float64 `json:"range_calorie_pct"`
	DaysWaterGoalMet   int     `json:"days_water_goal_met"`
	DaysCalorieGoalMet int     `json:"days_calorie_goal_met"`
}

// Report is the engine's output for one window.
type Report struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Days        int         `json:"days"`
	From        time.Time   `json:"from"`
	To          time.Time   `json:"to"`
	Daily       []DailyStat `json:"daily"`
	Summary     Summary     `json:"summary"`
	Progress    Progress    `json:"progress"`

	// RecentEvents holds the latest in-window events, newest first.
	RecentEvents []AnalyticsEvent `json:"recent_events"`
}

// Today returns the last (current) day of the report.
func (r *Report) Today() DailyStat {
	if r == nil || len(r.Daily) == 0 {
		return DailyStat{}
	}
	return r.Daily[len(r.Daily)-1]
}
