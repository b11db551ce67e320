package backend

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/productivity-nox/noxstat/internal/model"
)

// Row types mirror the backend's JSON. Timestamps and numbers are kept raw
// and parsed leniently; a timestamp that cannot be parsed becomes the zero
// time so the engine rejects the record by name.

type taskRow struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Title     string  `json:"title"`
	Completed bool    `json:"completed"`
	CreatedAt string  `json:"created_at"`
	DueDate   *string `json:"due_date"`
}

type mealRow struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Calories  json.RawMessage `json:"calories"`
	CreatedAt string          `json:"created_at"`
}

type waterRow struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Amount    json.RawMessage `json:"amount"`
	CreatedAt string          `json:"created_at"`
}

type preferencesRow struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"user_id"`
	Theme                string          `json:"theme"`
	NotificationsEnabled *bool           `json:"notifications_enabled"`
	WaterGoal            json.RawMessage `json:"water_goal"`
	DailyWaterGoal       json.RawMessage `json:"daily_water_goal"`
	CalorieGoal          json.RawMessage `json:"calorie_goal"`
	DailyCalorieGoal     json.RawMessage `json:"daily_calorie_goal"`
	CreatedAt            string          `json:"created_at"`
	UpdatedAt            string          `json:"updated_at"`
}

type eventRow struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	EventType  string         `json:"event_type"`
	Timestamp  string         `json:"timestamp"`
	Properties map[string]any `json:"properties"`
}

func (r taskRow) toModel() model.Task {
	t := model.Task{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Completed: r.Completed,
		CreatedAt: ParseTimestamp(r.CreatedAt),
	}
	if r.DueDate != nil {
		t.DueDate, t.DueAllDay = ParseDueDate(*r.DueDate)
	}
	return t
}

func (r mealRow) toModel() (model.Meal, error) {
	cal, _, err := parseNumber("calories", r.Calories)
	if err != nil {
		return model.Meal{}, err
	}
	return model.Meal{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Calories:  int(math.Round(cal)),
		CreatedAt: ParseTimestamp(r.CreatedAt),
	}, nil
}

func (r waterRow) toModel() (model.WaterLog, error) {
	amt, _, err := parseNumber("amount", r.Amount)
	if err != nil {
		return model.WaterLog{}, err
	}
	return model.WaterLog{
		ID:        r.ID,
		UserID:    r.UserID,
		AmountML:  int(math.Round(amt)),
		CreatedAt: ParseTimestamp(r.CreatedAt),
	}, nil
}

func (r preferencesRow) toModel() (model.UserPreferences, error) {
	p := model.UserPreferences{
		ID:                   r.ID,
		UserID:               r.UserID,
		Theme:                r.Theme,
		NotificationsEnabled: true,
		CreatedAt:            ParseTimestamp(r.CreatedAt),
		UpdatedAt:            ParseTimestamp(r.UpdatedAt),
	}
	if r.NotificationsEnabled != nil {
		p.NotificationsEnabled = *r.NotificationsEnabled
	}
	water, ok, err := firstNumber("water goal", r.DailyWaterGoal, r.WaterGoal)
	if err != nil {
		return model.UserPreferences{}, err
	}
	if ok {
		p.DailyWaterGoalML = int(math.Round(water))
	}
	calories, ok, err := firstNumber("calorie goal", r.DailyCalorieGoal, r.CalorieGoal)
	if err != nil {
		return model.UserPreferences{}, err
	}
	if ok {
		p.DailyCalorieGoal = int(math.Round(calories))
	}
	return p, nil
}

func (r eventRow) toModel() model.AnalyticsEvent {
	return model.AnalyticsEvent{
		ID:         r.ID,
		UserID:     r.UserID,
		Type:       model.EventType(r.EventType),
		Timestamp:  ParseTimestamp(r.Timestamp),
		Properties: r.Properties,
	}
}

// DecodeTask decodes one backend task row.
func DecodeTask(raw []byte) (model.Task, error) {
	var r taskRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.Task{}, fmt.Errorf("backend: parsing task: %w", err)
	}
	return r.toModel(), nil
}

// DecodeMeal decodes one backend meal row.
func DecodeMeal(raw []byte) (model.Meal, error) {
	var r mealRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.Meal{}, fmt.Errorf("backend: parsing meal: %w", err)
	}
	v, err := r.toModel()
	if err != nil {
		return model.Meal{}, fmt.Errorf("backend: parsing meal %s: %w", r.ID, err)
	}
	return v, nil
}

// DecodeWaterLog decodes one backend water_logs row.
func DecodeWaterLog(raw []byte) (model.WaterLog, error) {
	var r waterRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.WaterLog{}, fmt.Errorf("backend: parsing water log: %w", err)
	}
	v, err := r.toModel()
	if err != nil {
		return model.WaterLog{}, fmt.Errorf("backend: parsing water log %s: %w", r.ID, err)
	}
	return v, nil
}

// DecodePreferences decodes one backend user_preferences row.
func DecodePreferences(raw []byte) (model.UserPreferences, error) {
	var r preferencesRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.UserPreferences{}, fmt.Errorf("backend: parsing preferences: %w", err)
	}
	v, err := r.toModel()
	if err != nil {
		return model.UserPreferences{}, fmt.Errorf("backend: parsing preferences %s: %w", r.ID, err)
	}
	return v, nil
}

// DecodeEvent decodes one backend analytics_events row.
func DecodeEvent(raw []byte) (model.AnalyticsEvent, error) {
	var r eventRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.AnalyticsEvent{}, fmt.Errorf("backend: parsing event: %w", err)
	}
	return r.toModel(), nil
}

// timestampLayouts are tried in order. Postgres timestamptz text uses a
// space separator and a short zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats the backend emits. Values
// without a zone are UTC. Unparseable input yields the zero time.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseDueDate parses a task due value. A bare YYYY-MM-DD is a civil date
// and is reported as all-day. Empty or unparseable input yields nil.
func ParseDueDate(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) == len(model.DateLayout) {
		if d, err := model.ParseDueDay(s); err == nil {
			return &d, true
		}
	}
	if t := ParseTimestamp(s); !t.IsZero() {
		return &t, false
	}
	return nil, false
}

// FormatDueDate renders a task's due value for the backend, or "" if unset.
func FormatDueDate(t model.Task) string {
	switch {
	case t.DueDate == nil:
		return ""
	case t.DueAllDay:
		return t.DueDate.UTC().Format(model.DateLayout)
	}
	return FormatTimestamp(*t.DueDate)
}

// FormatTimestamp renders t the way the backend stores timestamptz.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseNumber accepts JSON numbers and numeric strings ("250", "250.0").
// An absent or null value reports ok=false; any other non-number is an
// error naming field.
func parseNumber(field string, raw json.RawMessage) (v float64, ok bool, err error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false, nil
	}

	if err := json.Unmarshal(raw, &v); err == nil {
		return v, true, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v, true, nil
		}
	}
	return 0, false, fmt.Errorf("%s: %s is not a number", field, raw)
}

// firstNumber returns the first present value among raws.
func firstNumber(field string, raws ...json.RawMessage) (float64, bool, error) {
	for _, raw := range raws {
		v, ok, err := parseNumber(field, raw)
		if err != nil || ok {
			return v, ok, err
		}
	}
	return 0, false, nil
}

func taskToRow(t model.Task) map[string]any {
	row := map[string]any{
		"id":         t.ID,
		"user_id":    t.UserID,
		"title":      t.Title,
		"completed":  t.Completed,
		"created_at": FormatTimestamp(t.CreatedAt),
	}
	if due := FormatDueDate(t); due != "" {
		row["due_date"] = due
	}
	return row
}

func mealToRow(m model.Meal) map[string]any {
	return map[string]any{
		"id":         m.ID,
		"user_id":    m.UserID,
		"name":       m.Name,
		"calories":   m.Calories,
		"created_at": FormatTimestamp(m.CreatedAt),
	}
}

func waterToRow(w model.WaterLog) map[string]any {
	return map[string]any{
		"id":         w.ID,
		"user_id":    w.UserID,
		"amount":     w.AmountML,
		"created_at": FormatTimestamp(w.CreatedAt),
	}
}

func eventToRow(e model.AnalyticsEvent) map[string]any {
	row := map[string]any{
		"id":         e.ID,
		"user_id":    e.UserID,
		"event_type": string(e.Type),
		"timestamp":  FormatTimestamp(e.Timestamp),
	}
	if len(e.Properties) > 0 {
		row["properties"] = e.Properties
	}
	return row
}
