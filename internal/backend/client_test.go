package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/productivity-nox/noxstat/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, "anon-key", "user-token")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RequiresURLAndKey(t *testing.T) {
	if c, err := NewClient("", "k", ""); c != nil || !errors.Is(err, ErrNotConfigured) {
		t.Errorf("without URL: %v, %v", c, err)
	}
	if c, err := NewClient("https://x.example", "  ", ""); c != nil || !errors.Is(err, ErrNotConfigured) {
		t.Errorf("without key: %v, %v", c, err)
	}
	if c, err := NewClient("https://x.example/", "k", ""); c == nil || err != nil {
		t.Errorf("expected client, got %v", err)
	}
}

func TestFetchTasks_HeadersAndDecoding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/tasks" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("apikey = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer user-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("user_id"); got != "eq.u1" {
			t.Errorf("user_id filter = %q", got)
		}
		_, _ = io.WriteString(w, `[
			{"id":"t1","user_id":"u1","title":"a","completed":true,"created_at":"2026-03-01T10:00:00+00:00","due_date":"2026-03-05"},
			{"id":"t2","user_id":"u1","title":"b","completed":false,"created_at":"2026-03-01 22:15:00.123+00"},
			{"id":"t3","user_id":"u1","title":"c","completed":false,"created_at":"not a time"}
		]`)
	})

	tasks, err := c.FetchTasks(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FetchTasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(tasks))
	}
	if !tasks[0].Completed || tasks[0].DueDate == nil || tasks[0].DueDate.Day() != 5 || !tasks[0].DueAllDay {
		t.Errorf("task 0 = %+v", tasks[0])
	}
	want := time.Date(2026, 3, 1, 22, 15, 0, 123e6, time.UTC)
	if !tasks[1].CreatedAt.Equal(want) {
		t.Errorf("postgres timestamp = %v, want %v", tasks[1].CreatedAt, want)
	}
	if !tasks[2].CreatedAt.IsZero() {
		t.Errorf("malformed timestamp should decode to zero, got %v", tasks[2].CreatedAt)
	}
}

func TestFetchMeals_Paginates(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var rows []map[string]any
		n := pageSize
		if r.URL.Query().Get("offset") != "0" {
			n = 2
		}
		for i := 0; i < n; i++ {
			rows = append(rows, map[string]any{
				"id": "m", "user_id": "u1", "name": "x", "calories": "150", "created_at": "2026-03-01T10:00:00Z",
			})
		}
		_ = json.NewEncoder(w).Encode(rows)
	})

	meals, err := c.FetchMeals(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FetchMeals: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(meals) != pageSize+2 {
		t.Errorf("got %d meals", len(meals))
	}
	if meals[0].Calories != 150 {
		t.Errorf("string calories decoded as %d", meals[0].Calories)
	}
}

func TestFetchEvents_TimeBounds(t *testing.T) {
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		bounds := r.URL.Query()["timestamp"]
		if len(bounds) != 1 || !strings.HasPrefix(bounds[0], "gte.2026-03-01T00:00:00") {
			t.Errorf("timestamp filters = %v", bounds)
		}
		_, _ = io.WriteString(w, `[{"id":"e1","user_id":"u1","event_type":"screen_viewed","timestamp":"2026-03-02T08:00:00Z","properties":{"screenName":"Tasks"}}]`)
	})

	events, err := c.FetchEvents(context.Background(), "u1", since, time.Time{})
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if len(events) != 1 || events[0].Type != model.EventScreenViewed {
		t.Fatalf("events = %+v", events)
	}
	if name, ok := events[0].ScreenName(); !ok || name != "Tasks" {
		t.Errorf("screen name = %q, %v", name, ok)
	}
}

func TestFetchPreferences(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantNil   bool
		wantWater int
		wantCal   int
	}{
		{"none", `[]`, true, 0, 0},
		{"legacy water_goal", `[{"id":"p","user_id":"u1","theme":"dark","water_goal":2500}]`, false, 2500, 0},
		{"daily goals", `[{"id":"p","user_id":"u1","daily_water_goal":1800,"daily_calorie_goal":2200}]`, false, 1800, 2200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			p, err := c.FetchPreferences(context.Background(), "u1")
			if err != nil {
				t.Fatalf("FetchPreferences: %v", err)
			}
			if tt.wantNil {
				if p != nil {
					t.Fatalf("expected nil, got %+v", p)
				}
				return
			}
			if p.DailyWaterGoalML != tt.wantWater || p.DailyCalorieGoal != tt.wantCal {
				t.Errorf("goals = %d/%d, want %d/%d", p.DailyWaterGoalML, p.DailyCalorieGoal, tt.wantWater, tt.wantCal)
			}
			if !p.NotificationsEnabled {
				t.Error("notifications should default to enabled")
			}
		})
	}
}

func TestInsertAndUpdate(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	})

	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	err := c.InsertWaterLog(context.Background(), model.WaterLog{ID: "w1", UserID: "u1", AmountML: 300, CreatedAt: ts})
	if err != nil {
		t.Fatalf("InsertWaterLog: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/rest/v1/water_logs" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotBody["amount"] != float64(300) || gotBody["created_at"] != "2026-03-01T09:00:00Z" {
		t.Errorf("body = %v", gotBody)
	}

	if err := c.UpdateTaskCompleted(context.Background(), "t1", true); err != nil {
		t.Fatalf("UpdateTaskCompleted: %v", err)
	}
	if gotMethod != http.MethodPatch || gotBody["completed"] != true {
		t.Errorf("update = %s %v", gotMethod, gotBody)
	}
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		_, err := c.FetchTasks(context.Background(), "u1")
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	if _, err := c.FetchMeals(context.Background(), "u1"); err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("err = %v, want unexpected status 500", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-01T10:00:00Z", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2026-03-01T10:00:00.5+02:00", time.Date(2026, 3, 1, 8, 0, 0, 5e8, time.UTC)},
		{"2026-03-01T10:00:00", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2026-03-01 10:00:00+00", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"yesterday", time.Time{}},
	}
	for _, tt := range tests {
		if got := ParseTimestamp(tt.in); !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInspectToken(t *testing.T) {
	exp := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-123",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	info, err := InspectToken(tok)
	if err != nil {
		t.Fatalf("InspectToken: %v", err)
	}
	if info.Subject != "user-123" || !info.ExpiresAt.Equal(exp) {
		t.Errorf("info = %+v", info)
	}
	if !info.Expired(exp.Add(time.Second)) || info.Expired(exp.Add(-time.Second)) {
		t.Error("Expired boundary wrong")
	}

	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte("secret"))
	if _, err := SubjectFromToken(noSub); !errors.Is(err, ErrNoSubject) {
		t.Errorf("err = %v, want ErrNoSubject", err)
	}
	if _, err := SubjectFromToken("garbage"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestParseDueDate(t *testing.T) {
	tests := []struct {
		in      string
		wantNil bool
		allDay  bool
		want    string
	}{
		{"2024-05-10", false, true, "2024-05-10T00:00:00Z"},
		{"2024-05-10T15:30:00+02:00", false, false, "2024-05-10T13:30:00Z"},
		{"2024-05-10 15:30:00+00", false, false, "2024-05-10T15:30:00Z"},
		{"", true, false, ""},
		{"soon", true, false, ""},
	}
	for _, tt := range tests {
		got, allDay := ParseDueDate(tt.in)
		if (got == nil) != tt.wantNil {
			t.Errorf("%q: got %v", tt.in, got)
			continue
		}
		if got == nil {
			continue
		}
		if allDay != tt.allDay || got.UTC().Format(time.RFC3339) != tt.want {
			t.Errorf("%q: %s all-day=%v, want %s all-day=%v", tt.in, got.UTC().Format(time.RFC3339), allDay, tt.want, tt.allDay)
		}
	}

	day, _ := ParseDueDate("2024-05-10")
	if got := FormatDueDate(model.Task{DueDate: day, DueAllDay: true}); got != "2024-05-10" {
		t.Errorf("FormatDueDate all-day = %q", got)
	}
}

func TestDecode_NumberFields(t *testing.T) {
	tests := []struct {
		name    string
		decode  func([]byte) (int, error)
		body    string
		want    int
		wantErr bool
	}{
		{"meal numeric string", decodeCalories, `{"id":"m","calories":"412.6"}`, 413, false},
		{"meal null calories", decodeCalories, `{"id":"m","calories":null}`, 0, false},
		{"meal bad calories", decodeCalories, `{"id":"m","calories":"lots"}`, 0, true},
		{"water number", decodeAmount, `{"id":"w","amount":250}`, 250, false},
		{"water object amount", decodeAmount, `{"id":"w","amount":{"ml":250}}`, 0, true},
		{"water bad string", decodeAmount, `{"id":"w","amount":"250ml"}`, 0, true},
		{"prefs bad goal", decodeWaterGoal, `{"id":"p","daily_water_goal":"two litres"}`, 0, true},
		{"prefs legacy fallback", decodeWaterGoal, `{"id":"p","daily_water_goal":null,"water_goal":"2500"}`, 2500, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.decode([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %d", got)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("got %d, %v; want %d", got, err, tt.want)
			}
		})
	}
}

func decodeCalories(raw []byte) (int, error) {
	m, err := DecodeMeal(raw)
	return m.Calories, err
}

func decodeAmount(raw []byte) (int, error) {
	w, err := DecodeWaterLog(raw)
	return w.AmountML, err
}

func decodeWaterGoal(raw []byte) (int, error) {
	p, err := DecodePreferences(raw)
	return p.DailyWaterGoalML, err
}

func TestFetchMeals_MalformedCaloriesFails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"m1","user_id":"u1","name":"soup","calories":"n/a","created_at":"2026-03-01T10:00:00Z"}]`)
	})
	if _, err := c.FetchMeals(context.Background(), "u1"); err == nil || !strings.Contains(err.Error(), "calories") {
		t.Fatalf("err = %v, want a calories parse error", err)
	}
}
