// Package postgres reads and writes noxstat records directly in the
// backend's Postgres database, bypassing the REST layer.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/productivity-nox/noxstat/internal/backend"
	"github.com/productivity-nox/noxstat/internal/model"
)

const connectTimeout = 10 * time.Second

// Source is a backend.Source and backend.Writer over a pgx pool.
type Source struct {
	pool *pgxpool.Pool
}

var (
	_ backend.Source = (*Source)(nil)
	_ backend.Writer = (*Source)(nil)
)

// Open connects to databaseURL and pings it.
func Open(ctx context.Context, databaseURL string) (*Source, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing database url: %w", err)
	}
	cfg.MaxConns = 4

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connecting: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Source{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Source {
	return &Source{pool: pool}
}

// Close releases the pool.
func (s *Source) Close() {
	s.pool.Close()
}

// FetchTasks returns the user's tasks, newest first.
func (s *Source) FetchTasks(ctx context.Context, userID string) ([]model.Task, error) {
	query := `
		SELECT id::text, user_id::text, title, completed, created_at, due_date::text
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetching tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var due *string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Completed, &t.CreatedAt, &due); err != nil {
			return nil, fmt.Errorf("postgres: scanning task: %w", err)
		}
		if due != nil {
			t.DueDate, t.DueAllDay = backend.ParseDueDate(*due)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating tasks: %w", err)
	}
	return tasks, nil
}

// FetchMeals returns the user's meals, newest first.
func (s *Source) FetchMeals(ctx context.Context, userID string) ([]model.Meal, error) {
	query := `
		SELECT id::text, user_id::text, name, round(calories)::bigint, created_at
		FROM meals
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetching meals: %w", err)
	}
	defer rows.Close()

	var meals []model.Meal
	for rows.Next() {
		var m model.Meal
		var cal int64
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &cal, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning meal: %w", err)
		}
		m.Calories = int(cal)
		meals = append(meals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating meals: %w", err)
	}
	return meals, nil
}

// FetchWaterLogs returns the user's water logs, newest first.
func (s *Source) FetchWaterLogs(ctx context.Context, userID string) ([]model.WaterLog, error) {
	query := `
		SELECT id::text, user_id::text, round(amount)::bigint, created_at
		FROM water_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetching water logs: %w", err)
	}
	defer rows.Close()

	var logs []model.WaterLog
	for rows.Next() {
		var w model.WaterLog
		var amt int64
		if err := rows.Scan(&w.ID, &w.UserID, &amt, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning water log: %w", err)
		}
		w.AmountML = int(amt)
		logs = append(logs, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating water logs: %w", err)
	}
	return logs, nil
}

// FetchEvents returns the user's analytics events in [since, until].
// A zero bound leaves that side open.
func (s *Source) FetchEvents(ctx context.Context, userID string, since, until time.Time) ([]model.AnalyticsEvent, error) {
	query := `
		SELECT id::text, user_id::text, event_type, timestamp, COALESCE(properties, '{}'::jsonb)
		FROM analytics_events
		WHERE user_id = $1
		  AND ($2::timestamptz IS NULL OR timestamp >= $2)
		  AND ($3::timestamptz IS NULL OR timestamp <= $3)
		ORDER BY timestamp DESC, id
	`
	rows, err := s.pool.Query(ctx, query, userID, nullTime(since), nullTime(until))
	if err != nil {
		return nil, fmt.Errorf("postgres: fetching events: %w", err)
	}
	defer rows.Close()

	var events []model.AnalyticsEvent
	for rows.Next() {
		var e model.AnalyticsEvent
		var eventType string
		var props map[string]any
		if err := rows.Scan(&e.ID, &e.UserID, &eventType, &e.Timestamp, &props); err != nil {
			return nil, fmt.Errorf("postgres: scanning event: %w", err)
		}
		e.Type = model.EventType(eventType)
		if len(props) > 0 {
			e.Properties = props
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating events: %w", err)
	}
	return events, nil
}

// FetchPreferences returns the user's preferences, or nil if none exist.
// The row is read as JSON so legacy and current goal column names both work.
func (s *Source) FetchPreferences(ctx context.Context, userID string) (*model.UserPreferences, error) {
	query := `SELECT to_jsonb(p) FROM user_preferences p WHERE p.user_id = $1 LIMIT 1`

	var raw []byte
	err := s.pool.QueryRow(ctx, query, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: fetching preferences: %w", err)
	}
	p, err := backend.DecodePreferences(raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertTask creates a task row.
func (s *Source) InsertTask(ctx context.Context, t model.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, title, completed, created_at, due_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	// The due value goes as text so the server casts it to the column's
	// date or timestamptz type without shifting all-day dates.
	var due *string
	if v := backend.FormatDueDate(t); v != "" {
		due = &v
	}
	if _, err := s.pool.Exec(ctx, query, t.ID, t.UserID, t.Title, t.Completed, t.CreatedAt, due); err != nil {
		return fmt.Errorf("postgres: inserting task: %w", err)
	}
	return nil
}

// InsertMeal creates a meal row.
func (s *Source) InsertMeal(ctx context.Context, m model.Meal) error {
	query := `
		INSERT INTO meals (id, user_id, name, calories, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.pool.Exec(ctx, query, m.ID, m.UserID, m.Name, m.Calories, m.CreatedAt); err != nil {
		return fmt.Errorf("postgres: inserting meal: %w", err)
	}
	return nil
}

// InsertWaterLog creates a water_logs row.
func (s *Source) InsertWaterLog(ctx context.Context, w model.WaterLog) error {
	query := `
		INSERT INTO water_logs (id, user_id, amount, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.pool.Exec(ctx, query, w.ID, w.UserID, w.AmountML, w.CreatedAt); err != nil {
		return fmt.Errorf("postgres: inserting water log: %w", err)
	}
	return nil
}

// InsertEvent creates an analytics_events row.
func (s *Source) InsertEvent(ctx context.Context, e model.AnalyticsEvent) error {
	query := `
		INSERT INTO analytics_events (id, user_id, event_type, timestamp, properties)
		VALUES ($1, $2, $3, $4, $5)
	`
	var props any
	if len(e.Properties) > 0 {
		props = e.Properties
	}
	if _, err := s.pool.Exec(ctx, query, e.ID, e.UserID, string(e.Type), e.Timestamp, props); err != nil {
		return fmt.Errorf("postgres: inserting event: %w", err)
	}
	return nil
}

// UpdateTaskCompleted sets a task's completed flag.
func (s *Source) UpdateTaskCompleted(ctx context.Context, id string, completed bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE tasks SET completed = $2 WHERE id = $1`, id, completed)
	if err != nil {
		return fmt.Errorf("postgres: updating task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: task %s not found", id)
	}
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
