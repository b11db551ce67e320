// Package tracker records analytics events for the signed-in user.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/productivity-nox/noxstat/internal/clock"
	"github.com/productivity-nox/noxstat/internal/model"
)

var (
	// ErrNoUser is returned when an event is tracked without a signed-in user.
	ErrNoUser = errors.New("tracker: no user id set")
	// ErrUnknownEvent is returned for event types outside the closed set.
	ErrUnknownEvent = errors.New("tracker: unknown event type")
)

// Session identifies the user events are attributed to.
type Session struct {
	UserID string
}

// Sink receives tracked events.
type Sink interface {
	Track(ctx context.Context, e model.AnalyticsEvent) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, e model.AnalyticsEvent) error

// Track calls f.
func (f SinkFunc) Track(ctx context.Context, e model.AnalyticsEvent) error { return f(ctx, e) }

// Tracker builds events for one session and hands them to a sink.
type Tracker struct {
	session Session
	sink    Sink
	clock   clock.Clock
	newID   func() string
}

// New creates a tracker. A nil clock uses the system clock in local time.
func New(session Session, sink Sink, clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.System(nil)
	}
	return &Tracker{
		session: session,
		sink:    sink,
		clock:   clk,
		newID:   uuid.NewString,
	}
}

// Track records one event. Without a user id the event is dropped with a
// warning and ErrNoUser is returned.
func (t *Tracker) Track(ctx context.Context, eventType model.EventType, props map[string]any) (model.AnalyticsEvent, error) {
	if !eventType.Valid() {
		return model.AnalyticsEvent{}, fmt.Errorf("%w: %q", ErrUnknownEvent, eventType)
	}
	if t.session.UserID == "" {
		log.Printf("tracker: no user id set, dropping %s event", eventType)
		return model.AnalyticsEvent{}, ErrNoUser
	}

	e := model.AnalyticsEvent{
		ID:         t.newID(),
		UserID:     t.session.UserID,
		Type:       eventType,
		Timestamp:  t.clock.Now(),
		Properties: props,
	}
	if err := t.sink.Track(ctx, e); err != nil {
		return e, fmt.Errorf("tracker: recording %s: %w", eventType, err)
	}
	return e, nil
}

func (t *Tracker) track(ctx context.Context, eventType model.EventType, props map[string]any) error {
	_, err := t.Track(ctx, eventType, props)
	return err
}

// TaskCreated records a task_created event.
func (t *Tracker) TaskCreated(ctx context.Context, taskID string) error {
	return t.track(ctx, model.EventTaskCreated, map[string]any{"taskId": taskID})
}

// TaskCompleted records a task_completed event.
func (t *Tracker) TaskCompleted(ctx context.Context, taskID string) error {
	return t.track(ctx, model.EventTaskCompleted, map[string]any{"taskId": taskID})
}

// TaskDeleted records a task_deleted event.
func (t *Tracker) TaskDeleted(ctx context.Context, taskID string) error {
	return t.track(ctx, model.EventTaskDeleted, map[string]any{"taskId": taskID})
}

// MealLogged records a meal_logged event.
func (t *Tracker) MealLogged(ctx context.Context, mealID string, calories int) error {
	return t.track(ctx, model.EventMealLogged, map[string]any{"mealId": mealID, "calories": calories})
}

// WaterLogged records a water_logged event.
func (t *Tracker) WaterLogged(ctx context.Context, amountML int) error {
	return t.track(ctx, model.EventWaterLogged, map[string]any{"amount": amountML})
}

// ThemeChanged records a theme_changed event.
func (t *Tracker) ThemeChanged(ctx context.Context, theme string) error {
	return t.track(ctx, model.EventThemeChanged, map[string]any{"theme": theme})
}

// ScreenViewed records a screen_viewed event.
func (t *Tracker) ScreenViewed(ctx context.Context, screenName string) error {
	return t.track(ctx, model.EventScreenViewed, map[string]any{model.ScreenNameProperty: screenName})
}

// Search records a search_performed event.
func (t *Tracker) Search(ctx context.Context, query string) error {
	return t.track(ctx, model.EventSearchPerformed, map[string]any{"query": query})
}

// SettingsUpdated records a settings_updated event.
func (t *Tracker) SettingsUpdated(ctx context.Context, setting string, value any) error {
	return t.track(ctx, model.EventSettingsUpdated, map[string]any{"setting": setting, "value": value})
}

// Multi fans an event out to several sinks. Every sink is tried and their
// errors are joined; nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, e model.AnalyticsEvent) error {
		var errs []error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s.Track(ctx, e); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
