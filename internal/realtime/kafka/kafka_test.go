package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/productivity-nox/noxstat/internal/model"
	"github.com/productivity-nox/noxstat/internal/realtime"
)

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestProducer_EventRoundTripsThroughEnvelope(t *testing.T) {
	fw := &fakeWriter{}
	p := &Producer{writer: fw}
	ts := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ev := model.AnalyticsEvent{
		ID: "e1", UserID: "u1", Type: model.EventScreenViewed, Timestamp: ts,
		Properties: map[string]any{"screenName": "Water"},
	}
	if err := p.Track(context.Background(), ev); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if len(fw.msgs) != 1 || string(fw.msgs[0].Key) != "u1" {
		t.Fatalf("messages = %+v", fw.msgs)
	}

	env, err := realtime.DecodeWebhook(fw.msgs[0].Value)
	if err != nil {
		t.Fatalf("DecodeWebhook: %v", err)
	}
	var d realtime.Dataset
	d, applied, err := d.ApplyEnvelope(env)
	if err != nil || !applied {
		t.Fatalf("apply: %v %v", applied, err)
	}
	if len(d.Events) != 1 || !d.Events[0].Timestamp.Equal(ts) {
		t.Fatalf("events = %+v", d.Events)
	}
	if name, _ := d.Events[0].ScreenName(); name != "Water" {
		t.Errorf("screenName = %q", name)
	}
}

func TestProcessMessage_CallsHandler(t *testing.T) {
	var got realtime.Envelope
	c := &Consumer{handler: func(_ context.Context, env realtime.Envelope) error {
		got = env
		return nil
	}}
	msg := kafka.Message{Value: []byte(`{"type":"DELETE","table":"tasks","old_record":{"id":"t9"}}`)}
	if err := c.processMessage(context.Background(), msg); err != nil {
		t.Fatalf("processMessage: %v", err)
	}
	if got.Kind != realtime.Delete || got.Table != model.TableTasks {
		t.Errorf("env = %+v", got)
	}

	if err := c.processMessage(context.Background(), kafka.Message{Value: []byte(`{}`)}); err == nil {
		t.Error("expected decode error for empty envelope")
	}
}

func TestNewConsumer_RequiresTopic(t *testing.T) {
	if _, err := NewConsumer(Config{Brokers: []string{"localhost:9092"}}, nil); err == nil {
		t.Error("expected error without topic")
	}
}
