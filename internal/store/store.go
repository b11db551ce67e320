// Package store keeps a SQLite mirror of the user's backend records so
// reports work offline and locally logged records survive until pushed.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/productivity-nox/noxstat/internal/backend"
	"github.com/productivity-nox/noxstat/internal/model"
	"github.com/productivity-nox/noxstat/internal/realtime"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Mirror is the SQLite-backed local copy of backend records.
type Mirror struct {
	db *sql.DB
}

// Open opens or creates the mirror database at the given path.
func Open(dbPath string) (*Mirror, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening mirror db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Mirror{db: db}, nil
}

// Close closes the mirror database.
func (m *Mirror) Close() error {
	return m.db.Close()
}

// DefaultDir returns the platform-appropriate data directory.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "noxstat")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "noxstat")
}

// PathIn returns the mirror database path inside dir.
func PathIn(dir string) string {
	return filepath.Join(dir, "mirror.db")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s.String)
	return t
}

// parseDue reads a due_date column: YYYY-MM-DD for all-day tasks,
// RFC 3339 otherwise.
func parseDue(s sql.NullString) (*time.Time, bool) {
	if !s.Valid || s.String == "" {
		return nil, false
	}
	if len(s.String) == len(model.DateLayout) {
		if d, err := model.ParseDueDay(s.String); err == nil {
			return &d, true
		}
	}
	if t := parseTime(s); !t.IsZero() {
		return &t, false
	}
	return nil, false
}

func (m *Mirror) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertTask(tx *sql.Tx, t model.Task, pending bool) error {
	var due any
	switch {
	case t.DueDate != nil && t.DueAllDay:
		due = t.DueDate.UTC().Format(model.DateLayout)
	case t.DueDate != nil:
		due = formatTime(*t.DueDate)
	}
	_, err := tx.Exec(`INSERT OR REPLACE INTO tasks
		(id, user_id, title, completed, created_at, due_date, pending)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Title, boolInt(t.Completed), formatTime(t.CreatedAt), due, boolInt(pending),
	)
	return err
}

func upsertMeal(tx *sql.Tx, ml model.Meal, pending bool) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO meals
		(id, user_id, name, calories, created_at, pending)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ml.ID, ml.UserID, ml.Name, ml.Calories, formatTime(ml.CreatedAt), boolInt(pending),
	)
	return err
}

func upsertWater(tx *sql.Tx, w model.WaterLog, pending bool) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO water_logs
		(id, user_id, amount, created_at, pending)
		VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.AmountML, formatTime(w.CreatedAt), boolInt(pending),
	)
	return err
}

func upsertEvent(tx *sql.Tx, e model.AnalyticsEvent, pending bool) error {
	var props any
	if len(e.Properties) > 0 {
		data, err := json.Marshal(e.Properties)
		if err != nil {
			return fmt.Errorf("encoding properties: %w", err)
		}
		props = string(data)
	}
	_, err := tx.Exec(`INSERT OR REPLACE INTO analytics_events
		(id, user_id, event_type, timestamp, properties, pending)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, string(e.Type), formatTime(e.Timestamp), props, boolInt(pending),
	)
	return err
}

func upsertPreferences(tx *sql.Tx, p model.UserPreferences) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO user_preferences
		(user_id, id, theme, notifications, daily_water_goal, daily_calorie_goal, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.ID, p.Theme, boolInt(p.NotificationsEnabled), p.DailyWaterGoalML, p.DailyCalorieGoal,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	return err
}

// SaveTask stores a task. pending marks it as not yet pushed to the backend.
func (m *Mirror) SaveTask(t model.Task, pending bool) error {
	return m.withTx(func(tx *sql.Tx) error { return upsertTask(tx, t, pending) })
}

// SaveMeal stores a meal.
func (m *Mirror) SaveMeal(ml model.Meal, pending bool) error {
	return m.withTx(func(tx *sql.Tx) error { return upsertMeal(tx, ml, pending) })
}

// SaveWaterLog stores a water log.
func (m *Mirror) SaveWaterLog(w model.WaterLog, pending bool) error {
	return m.withTx(func(tx *sql.Tx) error { return upsertWater(tx, w, pending) })
}

// SaveEvent stores an analytics event.
func (m *Mirror) SaveEvent(e model.AnalyticsEvent, pending bool) error {
	return m.withTx(func(tx *sql.Tx) error { return upsertEvent(tx, e, pending) })
}

// SavePreferences stores the user's preferences, replacing any existing row.
func (m *Mirror) SavePreferences(p model.UserPreferences) error {
	return m.withTx(func(tx *sql.Tx) error { return upsertPreferences(tx, p) })
}

// SetTaskCompleted updates a task's completed flag and marks it pending.
func (m *Mirror) SetTaskCompleted(id string, completed bool) (model.Task, error) {
	res, err := m.db.Exec("UPDATE tasks SET completed = ?, pending = 1 WHERE id = ?", boolInt(completed), id)
	if err != nil {
		return model.Task{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Task{}, fmt.Errorf("task %s not found", id)
	}
	var t model.Task
	var completedInt int
	var created, due sql.NullString
	err = m.db.QueryRow("SELECT id, user_id, title, completed, created_at, due_date FROM tasks WHERE id = ?", id).
		Scan(&t.ID, &t.UserID, &t.Title, &completedInt, &created, &due)
	if err != nil {
		return model.Task{}, err
	}
	t.Completed = completedInt != 0
	t.CreatedAt = parseTime(created)
	t.DueDate, t.DueAllDay = parseDue(due)
	return t, nil
}

// ReplaceSnapshot makes the mirror match a full backend pull for the user.
// Rows still pending push are kept unless the snapshot contains them.
func (m *Mirror) ReplaceSnapshot(s *model.Snapshot) error {
	return m.withTx(func(tx *sql.Tx) error {
		for _, table := range []string{"tasks", "meals", "water_logs", "analytics_events"} {
			if _, err := tx.Exec("DELETE FROM "+table+" WHERE user_id = ? AND pending = 0", s.UserID); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}
		for _, t := range s.Tasks {
			if err := upsertTask(tx, t, false); err != nil {
				return fmt.Errorf("saving task %s: %w", t.ID, err)
			}
		}
		for _, ml := range s.Meals {
			if err := upsertMeal(tx, ml, false); err != nil {
				return fmt.Errorf("saving meal %s: %w", ml.ID, err)
			}
		}
		for _, w := range s.Water {
			if err := upsertWater(tx, w, false); err != nil {
				return fmt.Errorf("saving water log %s: %w", w.ID, err)
			}
		}
		for _, e := range s.Events {
			if err := upsertEvent(tx, e, false); err != nil {
				return fmt.Errorf("saving event %s: %w", e.ID, err)
			}
		}
		if s.Preferences != nil {
			if err := upsertPreferences(tx, *s.Preferences); err != nil {
				return fmt.Errorf("saving preferences: %w", err)
			}
		}
		return nil
	})
}

// LoadSnapshot reads every mirrored record for the user.
func (m *Mirror) LoadSnapshot(userID string) (*model.Snapshot, error) {
	return m.load(userID, false)
}

// Pending reads only the records not yet pushed to the backend.
func (m *Mirror) Pending(userID string) (*model.Snapshot, error) {
	return m.load(userID, true)
}

func (m *Mirror) load(userID string, pendingOnly bool) (*model.Snapshot, error) {
	filter := "user_id = ?"
	if pendingOnly {
		filter += " AND pending = 1"
	}
	s := &model.Snapshot{UserID: userID}

	var err error
	if s.Tasks, err = m.loadTasks(filter, userID); err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	if s.Meals, err = m.loadMeals(filter, userID); err != nil {
		return nil, fmt.Errorf("loading meals: %w", err)
	}
	if s.Water, err = m.loadWater(filter, userID); err != nil {
		return nil, fmt.Errorf("loading water logs: %w", err)
	}
	if s.Events, err = m.loadEvents(filter, userID); err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	if !pendingOnly {
		if s.Preferences, err = m.loadPreferences(userID); err != nil {
			return nil, fmt.Errorf("loading preferences: %w", err)
		}
	}
	return s, nil
}

func (m *Mirror) loadTasks(filter, userID string) ([]model.Task, error) {
	rows, err := m.db.Query(`SELECT id, user_id, title, completed, created_at, due_date
		FROM tasks WHERE `+filter+` ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var completed int
		var created, due sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &completed, &created, &due); err != nil {
			return nil, err
		}
		t.Completed = completed != 0
		t.CreatedAt = parseTime(created)
		t.DueDate, t.DueAllDay = parseDue(due)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (m *Mirror) loadMeals(filter, userID string) ([]model.Meal, error) {
	rows, err := m.db.Query(`SELECT id, user_id, name, calories, created_at
		FROM meals WHERE `+filter+` ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var meals []model.Meal
	for rows.Next() {
		var ml model.Meal
		var created sql.NullString
		if err := rows.Scan(&ml.ID, &ml.UserID, &ml.Name, &ml.Calories, &created); err != nil {
			return nil, err
		}
		ml.CreatedAt = parseTime(created)
		meals = append(meals, ml)
	}
	return meals, rows.Err()
}

func (m *Mirror) loadWater(filter, userID string) ([]model.WaterLog, error) {
	rows, err := m.db.Query(`SELECT id, user_id, amount, created_at
		FROM water_logs WHERE `+filter+` ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var logs []model.WaterLog
	for rows.Next() {
		var w model.WaterLog
		var created sql.NullString
		if err := rows.Scan(&w.ID, &w.UserID, &w.AmountML, &created); err != nil {
			return nil, err
		}
		w.CreatedAt = parseTime(created)
		logs = append(logs, w)
	}
	return logs, rows.Err()
}

func (m *Mirror) loadEvents(filter, userID string) ([]model.AnalyticsEvent, error) {
	rows, err := m.db.Query(`SELECT id, user_id, event_type, timestamp, properties
		FROM analytics_events WHERE `+filter+` ORDER BY timestamp DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []model.AnalyticsEvent
	for rows.Next() {
		var e model.AnalyticsEvent
		var eventType string
		var ts, props sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &eventType, &ts, &props); err != nil {
			return nil, err
		}
		e.Type = model.EventType(eventType)
		e.Timestamp = parseTime(ts)
		if props.Valid && props.String != "" {
			if err := json.Unmarshal([]byte(props.String), &e.Properties); err != nil {
				return nil, fmt.Errorf("decoding properties of %s: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (m *Mirror) loadPreferences(userID string) (*model.UserPreferences, error) {
	var p model.UserPreferences
	var notifications int
	var theme, created, updated sql.NullString
	err := m.db.QueryRow(`SELECT id, user_id, theme, notifications, daily_water_goal, daily_calorie_goal, created_at, updated_at
		FROM user_preferences WHERE user_id = ?`, userID).
		Scan(&p.ID, &p.UserID, &theme, &notifications, &p.DailyWaterGoalML, &p.DailyCalorieGoal, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Theme = theme.String
	p.NotificationsEnabled = notifications != 0
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

// MarkPushed clears the pending flag on a record.
func (m *Mirror) MarkPushed(table model.Table, id string) error {
	switch table {
	case model.TableTasks, model.TableMeals, model.TableWaterLogs, model.TableEvents:
	default:
		return fmt.Errorf("table %s has no pending rows", table)
	}
	_, err := m.db.Exec("UPDATE "+string(table)+" SET pending = 0 WHERE id = ?", id)
	return err
}

// Delete removes a record by id.
func (m *Mirror) Delete(table model.Table, id string) error {
	var err error
	switch table {
	case model.TableTasks, model.TableMeals, model.TableWaterLogs, model.TableEvents:
		_, err = m.db.Exec("DELETE FROM "+string(table)+" WHERE id = ?", id)
	case model.TablePreferences:
		_, err = m.db.Exec("DELETE FROM user_preferences WHERE id = ?", id)
	default:
		err = fmt.Errorf("unknown table %s", table)
	}
	return err
}

// ApplyEnvelope persists a realtime change. Inserts and updates upsert the
// record as synced; deletes remove it.
func (m *Mirror) ApplyEnvelope(env realtime.Envelope) error {
	if env.Kind == realtime.Delete {
		var old struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(env.OldRecord, &old); err != nil || old.ID == "" {
			return fmt.Errorf("delete on %s: %w", env.Table, realtime.ErrMissingID)
		}
		return m.Delete(env.Table, old.ID)
	}

	return m.withTx(func(tx *sql.Tx) error {
		switch env.Table {
		case model.TableTasks:
			t, err := backend.DecodeTask(env.Record)
			if err != nil {
				return err
			}
			return upsertTask(tx, t, false)
		case model.TableMeals:
			ml, err := backend.DecodeMeal(env.Record)
			if err != nil {
				return err
			}
			return upsertMeal(tx, ml, false)
		case model.TableWaterLogs:
			w, err := backend.DecodeWaterLog(env.Record)
			if err != nil {
				return err
			}
			return upsertWater(tx, w, false)
		case model.TableEvents:
			e, err := backend.DecodeEvent(env.Record)
			if err != nil {
				return err
			}
			return upsertEvent(tx, e, false)
		case model.TablePreferences:
			p, err := backend.DecodePreferences(env.Record)
			if err != nil {
				return err
			}
			return upsertPreferences(tx, p)
		}
		return fmt.Errorf("%w: %q", realtime.ErrUnknownTable, env.Table)
	})
}

// LastSync returns when the user's records were last pulled from the
// backend, or the zero time if never.
func (m *Mirror) LastSync(userID string) (time.Time, error) {
	var s sql.NullString
	err := m.db.QueryRow("SELECT last_sync FROM sync_state WHERE user_id = ?", userID).Scan(&s)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return parseTime(s), nil
}

// MarkSynced records a successful pull.
func (m *Mirror) MarkSynced(userID string, at time.Time) error {
	_, err := m.db.Exec("INSERT OR REPLACE INTO sync_state (user_id, last_sync) VALUES (?, ?)", userID, formatTime(at))
	return err
}

// Counts returns the number of mirrored rows per table for the user.
func (m *Mirror) Counts(userID string) (map[model.Table]int, error) {
	counts := make(map[model.Table]int, len(model.Tables))
	for _, table := range model.Tables {
		var n int
		if err := m.db.QueryRow("SELECT COUNT(*) FROM "+string(table)+" WHERE user_id = ?", userID).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
