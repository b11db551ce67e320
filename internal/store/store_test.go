package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/productivity-nox/noxstat/internal/model"
	"github.com/productivity-nox/noxstat/internal/realtime"
)

func openTestMirror(t *testing.T) *Mirror {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "mirror.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

var base = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func TestReplaceSnapshot_KeepsPending(t *testing.T) {
	m := openTestMirror(t)

	if err := m.SaveMeal(model.Meal{ID: "local", UserID: "u1", Name: "apple", Calories: 95, CreatedAt: base}, true); err != nil {
		t.Fatal(err)
	}
	if err := m.SaveMeal(model.Meal{ID: "stale", UserID: "u1", Name: "gone", Calories: 10, CreatedAt: base}, false); err != nil {
		t.Fatal(err)
	}

	due := base.AddDate(0, 0, 2)
	snap := &model.Snapshot{
		UserID: "u1",
		Tasks:  []model.Task{{ID: "t1", UserID: "u1", Title: "write", Completed: true, CreatedAt: base, DueDate: &due}},
		Meals:  []model.Meal{{ID: "m1", UserID: "u1", Name: "soup", Calories: 300, CreatedAt: base}},
		Water:  []model.WaterLog{{ID: "w1", UserID: "u1", AmountML: 250, CreatedAt: base}},
		Events: []model.AnalyticsEvent{{
			ID: "e1", UserID: "u1", Type: model.EventScreenViewed, Timestamp: base,
			Properties: map[string]any{"screenName": "Tasks"},
		}},
		Preferences: &model.UserPreferences{ID: "p1", UserID: "u1", Theme: "dark", NotificationsEnabled: true, DailyWaterGoalML: 2500, DailyCalorieGoal: 1800},
	}
	if err := m.ReplaceSnapshot(snap); err != nil {
		t.Fatalf("ReplaceSnapshot: %v", err)
	}

	got, err := m.LoadSnapshot("u1")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(got.Meals) != 2 {
		t.Fatalf("meals = %+v, want m1 and the pending local meal", got.Meals)
	}
	for _, ml := range got.Meals {
		if ml.ID == "stale" {
			t.Error("synced row missing from the pull should be removed")
		}
	}
	if len(got.Tasks) != 1 || !got.Tasks[0].Completed || got.Tasks[0].DueDate == nil || !got.Tasks[0].DueDate.Equal(due) {
		t.Errorf("tasks = %+v", got.Tasks)
	}
	if got.Tasks[0].DueAllDay {
		t.Error("timed due date read back as all-day")
	}
	if !got.Tasks[0].CreatedAt.Equal(base) {
		t.Errorf("created_at = %v, want %v", got.Tasks[0].CreatedAt, base)
	}
	if name, _ := got.Events[0].ScreenName(); name != "Tasks" {
		t.Errorf("event properties = %v", got.Events[0].Properties)
	}
	if got.Preferences == nil || got.Preferences.DailyWaterGoalML != 2500 || got.Preferences.Theme != "dark" {
		t.Errorf("preferences = %+v", got.Preferences)
	}

	pending, err := m.Pending("u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending.Meals) != 1 || pending.Meals[0].ID != "local" {
		t.Errorf("pending meals = %+v", pending.Meals)
	}
	if err := m.MarkPushed(model.TableMeals, "local"); err != nil {
		t.Fatal(err)
	}
	pending, _ = m.Pending("u1")
	if len(pending.Meals) != 0 {
		t.Errorf("pending after MarkPushed = %+v", pending.Meals)
	}
}

func TestLoadSnapshot_OtherUserIsolated(t *testing.T) {
	m := openTestMirror(t)
	if err := m.SaveWaterLog(model.WaterLog{ID: "w", UserID: "u2", AmountML: 100, CreatedAt: base}, false); err != nil {
		t.Fatal(err)
	}
	got, err := m.LoadSnapshot("u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Water) != 0 || got.Preferences != nil {
		t.Errorf("snapshot leaked other user data: %+v", got)
	}
}

func TestSetTaskCompleted(t *testing.T) {
	m := openTestMirror(t)
	if err := m.SaveTask(model.Task{ID: "t1", UserID: "u1", Title: "x", CreatedAt: base}, false); err != nil {
		t.Fatal(err)
	}
	task, err := m.SetTaskCompleted("t1", true)
	if err != nil {
		t.Fatalf("SetTaskCompleted: %v", err)
	}
	if !task.Completed || task.Title != "x" {
		t.Errorf("task = %+v", task)
	}
	pending, _ := m.Pending("u1")
	if len(pending.Tasks) != 1 {
		t.Errorf("completed task should be pending push, got %+v", pending.Tasks)
	}
	if _, err := m.SetTaskCompleted("missing", true); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestApplyEnvelope(t *testing.T) {
	m := openTestMirror(t)

	insert, err := realtime.DecodeWebhook([]byte(`{"type":"INSERT","table":"water_logs","record":{"id":"w1","user_id":"u1","amount":400,"created_at":"2026-03-01T10:00:00Z"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ApplyEnvelope(insert); err != nil {
		t.Fatalf("apply insert: %v", err)
	}
	counts, err := m.Counts("u1")
	if err != nil {
		t.Fatal(err)
	}
	if counts[model.TableWaterLogs] != 1 {
		t.Errorf("counts = %v", counts)
	}

	del, err := realtime.DecodeWebhook([]byte(`{"type":"DELETE","table":"water_logs","old_record":{"id":"w1"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ApplyEnvelope(del); err != nil {
		t.Fatalf("apply delete: %v", err)
	}
	counts, _ = m.Counts("u1")
	if counts[model.TableWaterLogs] != 0 {
		t.Errorf("counts after delete = %v", counts)
	}
}

func TestSyncState(t *testing.T) {
	m := openTestMirror(t)
	last, err := m.LastSync("u1")
	if err != nil || !last.IsZero() {
		t.Fatalf("LastSync before any sync = %v, %v", last, err)
	}
	if err := m.MarkSynced("u1", base); err != nil {
		t.Fatal(err)
	}
	last, err = m.LastSync("u1")
	if err != nil || !last.Equal(base) {
		t.Errorf("LastSync = %v, %v; want %v", last, err, base)
	}
}

func TestSaveTask_AllDayDueRoundTrips(t *testing.T) {
	m := openTestMirror(t)
	day, err := model.ParseDueDay("2024-05-10")
	if err != nil {
		t.Fatal(err)
	}
	task := model.Task{ID: "t2", UserID: "u1", Title: "taxes", CreatedAt: time.Now(), DueDate: &day, DueAllDay: true}
	if err := m.SaveTask(task, true); err != nil {
		t.Fatal(err)
	}

	snap, err := m.LoadSnapshot("u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Tasks) != 1 {
		t.Fatalf("tasks = %+v", snap.Tasks)
	}
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("zone unavailable: %v", err)
	}
	if key, ok := snap.Tasks[0].DueKey(ny); !ok || key != "2024-05-10" || !snap.Tasks[0].DueAllDay {
		t.Errorf("due = %q, %v, all-day %v", key, ok, snap.Tasks[0].DueAllDay)
	}
}
