package realtime

import (
	"errors"
	"testing"

	"github.com/productivity-nox/noxstat/internal/model"
)

func TestDecodeWebhook(t *testing.T) {
	body := []byte(`{"type":"INSERT","table":"meals","schema":"public",
		"record":{"id":"m1","user_id":"u1","name":"soup","calories":320,"created_at":"2026-03-01T12:00:00Z"},
		"old_record":null,"commit_timestamp":"2026-03-01T12:00:01Z"}`)
	env, err := DecodeWebhook(body)
	if err != nil {
		t.Fatalf("DecodeWebhook: %v", err)
	}
	if env.Kind != Insert || env.Table != model.TableMeals || env.OldRecord != nil {
		t.Errorf("env = %+v", env)
	}
	if env.UserID() != "u1" || env.CommitAt.IsZero() {
		t.Errorf("UserID = %q, CommitAt = %v", env.UserID(), env.CommitAt)
	}
}

func TestDecodeWebhook_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"bad kind", `{"type":"TRUNCATE","table":"tasks","record":{}}`, ErrUnknownKind},
		{"bad table", `{"type":"INSERT","table":"profiles","record":{"id":"x"}}`, ErrUnknownTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeWebhook([]byte(tt.body)); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := DecodeWebhook([]byte(`{"type":"DELETE","table":"tasks","old_record":null}`)); err == nil {
		t.Error("delete without old_record should fail")
	}
	if _, err := DecodeWebhook([]byte(`not json`)); err == nil {
		t.Error("malformed body should fail")
	}
}

func TestDataset_ApplyEnvelope(t *testing.T) {
	d := Dataset{UserID: "u1", Tasks: []model.Task{{ID: "t1", UserID: "u1", Title: "old"}}}

	steps := []string{
		`{"type":"UPDATE","table":"tasks","record":{"id":"t1","user_id":"u1","title":"old","completed":true,"created_at":"2026-03-01T09:00:00Z"},"old_record":{"id":"t1"}}`,
		`{"type":"INSERT","table":"water_logs","record":{"id":"w1","user_id":"u1","amount":500,"created_at":"2026-03-01T09:30:00Z"}}`,
		`{"type":"INSERT","table":"user_preferences","record":{"id":"p1","user_id":"u1","daily_water_goal":2500,"daily_calorie_goal":1800}}`,
		`{"type":"DELETE","table":"tasks","old_record":{"id":"t1","user_id":"u1"}}`,
	}
	for i, body := range steps {
		env, err := DecodeWebhook([]byte(body))
		if err != nil {
			t.Fatalf("step %d decode: %v", i, err)
		}
		next, applied, err := d.ApplyEnvelope(env)
		if err != nil || !applied {
			t.Fatalf("step %d apply: applied=%v err=%v", i, applied, err)
		}
		if i == 0 && (!next.Tasks[0].Completed || d.Tasks[0].Completed) {
			t.Fatalf("update not applied immutably: new=%+v old=%+v", next.Tasks, d.Tasks)
		}
		d = next
	}

	if len(d.Tasks) != 0 {
		t.Errorf("tasks = %+v, want empty", d.Tasks)
	}
	if len(d.Water) != 1 || d.Water[0].AmountML != 500 {
		t.Errorf("water = %+v", d.Water)
	}
	if d.Preferences == nil || d.Preferences.DailyWaterGoalML != 2500 {
		t.Errorf("preferences = %+v", d.Preferences)
	}
}

func TestDataset_IgnoresOtherUsers(t *testing.T) {
	d := Dataset{UserID: "u1"}
	env, err := DecodeWebhook([]byte(`{"type":"INSERT","table":"meals","record":{"id":"m1","user_id":"u2","calories":100,"created_at":"2026-03-01T12:00:00Z"}}`))
	if err != nil {
		t.Fatal(err)
	}
	got, applied, err := d.ApplyEnvelope(env)
	if err != nil || applied || len(got.Meals) != 0 {
		t.Errorf("applied=%v err=%v meals=%v", applied, err, got.Meals)
	}
}
