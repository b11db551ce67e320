package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/productivity-nox/noxstat/internal/model"
)

func TestNullTime(t *testing.T) {
	if nullTime(time.Time{}) != nil {
		t.Error("zero time should map to NULL")
	}
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := nullTime(ts); got == nil || !got.Equal(ts) {
		t.Errorf("nullTime(%v) = %v", ts, got)
	}
}

// TestSource_RoundTrip runs against a real database when
// NOX_TEST_DATABASE_URL points at one with the backend schema.
func TestSource_RoundTrip(t *testing.T) {
	dsn := os.Getenv("NOX_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("NOX_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	src, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	userID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Second)
	task := model.Task{ID: uuid.NewString(), UserID: userID, Title: "roundtrip", CreatedAt: now}
	if err := src.InsertTask(ctx, task); err != nil {
		t.Fatalf("InsertTask: %v", err)
	}
	if err := src.UpdateTaskCompleted(ctx, task.ID, true); err != nil {
		t.Fatalf("UpdateTaskCompleted: %v", err)
	}
	tasks, err := src.FetchTasks(ctx, userID)
	if err != nil {
		t.Fatalf("FetchTasks: %v", err)
	}
	if len(tasks) != 1 || !tasks[0].Completed || !tasks[0].CreatedAt.Equal(now) {
		t.Errorf("tasks = %+v", tasks)
	}

	ev := model.AnalyticsEvent{
		ID: uuid.NewString(), UserID: userID, Type: model.EventScreenViewed, Timestamp: now,
		Properties: map[string]any{"screenName": "Dashboard"},
	}
	if err := src.InsertEvent(ctx, ev); err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	events, err := src.FetchEvents(ctx, userID, now.Add(-time.Minute), time.Time{})
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	if name, _ := events[0].ScreenName(); name != "Dashboard" {
		t.Errorf("screenName = %q", name)
	}
}
