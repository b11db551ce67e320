// Package model defines domain types for noxstat records and derived metrics.
package model

import "time"

// EventType tags an analytics event. The set is closed; see EventTypes.
type EventType string

const (
	EventTaskCreated     EventType = "task_created"
	EventTaskCompleted   EventType = "task_completed"
	EventTaskDeleted     EventType = "task_deleted"
	EventMealLogged      EventType = "meal_logged"
	EventWaterLogged     EventType = "water_logged"
	EventThemeChanged    EventType = "theme_changed"
	EventScreenViewed    EventType = "screen_viewed"
	EventSearchPerformed EventType = "search_performed"
	EventSettingsUpdated EventType = "settings_updated"
)

// EventTypes lists every accepted event type.
var EventTypes = []EventType{
	EventTaskCreated,
	EventTaskCompleted,
	EventTaskDeleted,
	EventMealLogged,
	EventWaterLogged,
	EventThemeChanged,
	EventScreenViewed,
	EventSearchPerformed,
	EventSettingsUpdated,
}

// Valid reports whether e is one of EventTypes.
func (e EventType) Valid() bool {
	for _, t := range EventTypes {
		if e == t {
			return true
		}
	}
	return false
}

// ScreenNameProperty is the event property carrying the viewed screen.
const ScreenNameProperty = "screenName"

// Task is a to-do item owned by a user.
type Task struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	CreatedAt time.Time  `json:"created_at"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	// DueAllDay marks a date-only due value. DueDate then holds that civil
	// date at UTC midnight and belongs to the same date in every zone.
	DueAllDay bool       `json:"due_all_day,omitempty"`
}

// Key returns the record id.
func (t Task) Key() string { return t.ID }

// DateLayout is the YYYY-MM-DD form used for civil dates.
const DateLayout = "2006-01-02"

// ParseDueDay parses a YYYY-MM-DD string as an all-day due value.
func ParseDueDay(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// DueKey returns the calendar date the task is due on as YYYY-MM-DD.
// Timed due dates are placed in loc; all-day ones keep their date.
// ok is false when the task has no due date.
func (t Task) DueKey(loc *time.Location) (key string, ok bool) {
	if t.DueDate == nil || t.DueDate.IsZero() {
		return "", false
	}
	if t.DueAllDay {
		return t.DueDate.UTC().Format(DateLayout), true
	}
	if loc == nil {
		loc = time.Local
	}
	return t.DueDate.In(loc).Format(DateLayout), true
}

// Meal is a logged meal with its calorie count.
type Meal struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Calories  int       `json:"calories"`
	CreatedAt time.Time `json:"created_at"`
}

// Key returns the record id.
func (m Meal) Key() string { return m.ID }

// WaterLog is a single water intake entry.
type WaterLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	AmountML  int       `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// Key returns the record id.
func (w WaterLog) Key() string { return w.ID }

// UserPreferences holds per-user settings and daily goals.
// There is at most one per user.
type UserPreferences struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	Theme                string    `json:"theme"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	DailyWaterGoalML     int       `json:"daily_water_goal"`
	DailyCalorieGoal     int       `json:"daily_calorie_goal"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Key returns the record id.
func (p UserPreferences) Key() string { return p.ID }

// AnalyticsEvent is one tracked user action.
type AnalyticsEvent struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Type       EventType      `json:"event_type"`
	Timestamp  time.Time      `json:"timestamp"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Key returns the record id.
func (e AnalyticsEvent) Key() string { return e.ID }

// ScreenName returns the screenName property when it is a non-empty string.
func (e AnalyticsEvent) ScreenName() (string, bool) {
	v, ok := e.Properties[ScreenNameProperty]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Snapshot is the full set of records for one user at a point in time.
type Snapshot struct {
	UserID      string
	Tasks       []Task
	Meals       []Meal
	Water       []WaterLog
	Events      []AnalyticsEvent
	Preferences *UserPreferences
}

// Table names a backend collection.
type Table string

const (
	TableTasks       Table = "tasks"
	TableMeals       Table = "meals"
	TableWaterLogs   Table = "water_logs"
	TablePreferences Table = "user_preferences"
	TableEvents      Table = "analytics_events"
)

// Tables lists every collection in sync order.
var Tables = []Table{TableTasks, TableMeals, TableWaterLogs, TablePreferences, TableEvents}
