// Package daemon provides the long-running analytics service: it keeps a
// user's report current by polling the backend and applying realtime
// changes, and serves it over HTTP/SSE.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/productivity-nox/noxstat/internal/backend"
	"github.com/productivity-nox/noxstat/internal/clock"
	"github.com/productivity-nox/noxstat/internal/model"
	"github.com/productivity-nox/noxstat/internal/pipeline"
	"github.com/productivity-nox/noxstat/internal/realtime"
	"github.com/productivity-nox/noxstat/internal/store"
)

// Event types published to subscribers.
const (
	EventSnapshot      = "snapshot"
	EventProgressDelta = "progress_delta"
	EventGoalReached   = "goal_reached"
)

// Config controls the daemon runtime behavior.
type Config struct {
	UserID         string
	Days           int
	WaterGoalML    int // used when the user has no preferences row
	CalorieGoal    int
	Interval       time.Duration
	Addr           string
	EventsBuffer   int
	ExportSchedule string // cron spec; empty disables scheduled exports
	ExportDir      string
	WebhookSecret  string
}

// Snapshot is a compact progress state for status/event payloads.
type Snapshot struct {
	At              time.Time `json:"at"`
	Tasks           int       `json:"tasks"`
	CompletedTasks  int       `json:"completed_tasks"`
	Meals           int       `json:"meals"`
	Calories        int       `json:"calories"`
	WaterML         int       `json:"water_ml"`
	Events          int       `json:"events"`
	CompletionRate  int       `json:"completion_rate"`
	TodayWaterML    int       `json:"today_water_ml"`
	TodayCalories   int       `json:"today_calories"`
	TodayWaterPct   float64   `json:"today_water_pct"`
	TodayCaloriePct float64   `json:"today_calorie_pct"`
}

// Delta captures snapshot deltas between recomputes.
type Delta struct {
	Tasks          int `json:"tasks"`
	CompletedTasks int `json:"completed_tasks"`
	Meals          int `json:"meals"`
	Calories       int `json:"calories"`
	WaterML        int `json:"water_ml"`
	Events         int `json:"events"`
}

func (d Delta) isZero() bool {
	return d == Delta{}
}

// Event is emitted whenever the progress snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
	Goal      string    `json:"goal,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	LastSyncAt      time.Time `json:"last_sync_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	ChangesApplied  int64     `json:"changes_applied"`
	UserID          string    `json:"user_id"`
	Days            int       `json:"days"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg    Config
	src    backend.Source // nil when running from the mirror alone
	mirror *store.Mirror  // optional
	clock  clock.Clock

	// recomputeMu orders recomputes from dataset read to event publish, so
	// a slower recompute cannot publish over a newer one.
	recomputeMu sync.Mutex

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	lastSyncAt  time.Time
	pollCount   int64
	changes     int64
	lastError   string
	dataset     realtime.Dataset
	report      *model.Report
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service. src and mirror may each be nil, but not
// both when Run is used.
func New(cfg Config, src backend.Source, mirror *store.Mirror, clk clock.Clock) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Days <= 0 {
		cfg.Days = pipeline.DefaultWindowDays
	}
	if cfg.WaterGoalML <= 0 {
		cfg.WaterGoalML = pipeline.DefaultWaterGoalML
	}
	if cfg.CalorieGoal <= 0 {
		cfg.CalorieGoal = pipeline.DefaultCalorieGoal
	}
	if clk == nil {
		clk = clock.System(nil)
	}

	return &Service{
		cfg:       cfg,
		src:       src,
		mirror:    mirror,
		clock:     clk,
		startedAt: clk.Now(),
		dataset:   realtime.Dataset{UserID: cfg.UserID},
		subs:      make(map[int]chan Event),
	}
}

// Run starts HTTP endpoints, the optional export schedule and polling until
// ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if s.src == nil && s.mirror == nil {
		return errors.New("daemon: no backend or local mirror configured")
	}

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if s.cfg.ExportSchedule != "" {
		exp := NewExporter(s.cfg.ExportSchedule, s.cfg.ExportDir, s.Report, s.clock)
		if err := exp.Start(); err != nil {
			_ = server.Close()
			return err
		}
		defer exp.Stop()
	}

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	snap, syncedAt, err := s.load(ctx)
	now := s.clock.Now()

	s.mu.Lock()
	s.lastPollAt = now
	s.pollCount++
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	if !syncedAt.IsZero() {
		s.lastSyncAt = syncedAt
	}
	s.mu.Unlock()

	if err != nil {
		pollsTotal.WithLabelValues("error").Inc()
		log.Printf("noxstat daemon poll error: %v", err)
		if snap == nil {
			return
		}
	} else {
		pollsTotal.WithLabelValues("ok").Inc()
	}

	s.mu.Lock()
	s.dataset = realtime.FromSnapshot(snap)
	s.mu.Unlock()
	s.recompute()
}

// load returns the freshest snapshot available. With a mirror, a backend
// failure still yields the mirrored snapshot alongside the error.
func (s *Service) load(ctx context.Context) (*model.Snapshot, time.Time, error) {
	since, err := s.windowStart()
	if err != nil {
		return nil, time.Time{}, err
	}
	if s.mirror != nil {
		res, err := pipeline.LoadWithStore(ctx, s.src, s.clock, s.mirror, s.cfg.UserID, since, nil)
		if err != nil {
			return nil, time.Time{}, err
		}
		return res.Snapshot, res.LastSync, res.SyncErr
	}
	res, err := pipeline.Load(ctx, s.src, s.clock, s.cfg.UserID, since, nil)
	if err != nil {
		return nil, time.Time{}, err
	}
	return res.Snapshot, res.FetchedAt, nil
}

func (s *Service) windowStart() (time.Time, error) {
	w, err := pipeline.BuildWindow(s.cfg.Days, s.clock)
	if err != nil {
		return time.Time{}, err
	}
	return w.Days[0], nil
}

// HandleEnvelope applies one realtime change to the in-memory dataset and
// the mirror, then recomputes. Its signature matches the Kafka consumer's
// handler.
func (s *Service) HandleEnvelope(_ context.Context, env realtime.Envelope) error {
	s.mu.Lock()
	next, applied, err := s.dataset.ApplyEnvelope(env)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !applied {
		s.mu.Unlock()
		return nil
	}
	s.dataset = next
	s.changes++
	s.mu.Unlock()

	if s.mirror != nil {
		if err := s.mirror.ApplyEnvelope(env); err != nil {
			log.Printf("noxstat daemon: mirroring %s %s: %v", env.Kind, env.Table, err)
		}
	}
	changesTotal.WithLabelValues(string(env.Table), string(env.Kind)).Inc()
	s.recompute()
	return nil
}

// recompute runs the engine over the current dataset and publishes the
// resulting event, if any.
func (s *Service) recompute() {
	s.recomputeMu.Lock()
	defer s.recomputeMu.Unlock()

	s.mu.RLock()
	snap := s.dataset.Snapshot()
	s.mu.RUnlock()

	in := pipeline.InputFromSnapshot(snap, s.cfg.Days, s.cfg.WaterGoalML, s.cfg.CalorieGoal)
	report, err := pipeline.Analyze(in, s.clock)
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.mu.Unlock()
		log.Printf("noxstat daemon analyze error: %v", err)
		return
	}

	curr := snapshotFromReport(report)
	todayWaterPct.Set(curr.TodayWaterPct)
	todayCaloriePct.Set(curr.TodayCaloriePct)

	var evs []Event
	s.mu.Lock()
	prev, prevExists := s.snapshot, s.hasSnapshot
	s.report = report
	s.snapshot = curr
	s.hasSnapshot = true

	switch {
	case !prevExists:
		evs = append(evs, s.newEvent(EventSnapshot, curr, Delta{}))
	default:
		if delta := diffSnapshots(prev, curr); !delta.isZero() {
			evs = append(evs, s.newEvent(EventProgressDelta, curr, delta))
		}
		for _, goal := range reachedGoals(prev, curr) {
			ev := s.newEvent(EventGoalReached, curr, Delta{})
			ev.Goal = goal
			evs = append(evs, ev)
		}
	}
	s.mu.Unlock()

	for _, ev := range evs {
		s.publishEvent(ev)
	}
}

// newEvent must be called with s.mu held.
func (s *Service) newEvent(typ string, snap Snapshot, delta Delta) Event {
	s.nextEventID++
	return Event{
		ID:        s.nextEventID,
		Type:      typ,
		Timestamp: snap.At,
		Snapshot:  snap,
		Delta:     delta,
	}
}

func snapshotFromReport(r *model.Report) Snapshot {
	sum := r.Summary
	return Snapshot{
		At:              r.GeneratedAt,
		Tasks:           sum.TotalTasks,
		CompletedTasks:  sum.CompletedTasks,
		Meals:           sum.TotalMeals,
		Calories:        sum.TotalCalories,
		WaterML:         sum.TotalWaterML,
		Events:          sum.TotalEvents,
		CompletionRate:  sum.CompletionRate,
		TodayWaterML:    r.Progress.TodayWaterML,
		TodayCalories:   r.Progress.TodayCalories,
		TodayWaterPct:   r.Progress.TodayWaterPct,
		TodayCaloriePct: r.Progress.TodayCaloriePct,
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Tasks:          curr.Tasks - prev.Tasks,
		CompletedTasks: curr.CompletedTasks - prev.CompletedTasks,
		Meals:          curr.Meals - prev.Meals,
		Calories:       curr.Calories - prev.Calories,
		WaterML:        curr.WaterML - prev.WaterML,
		Events:         curr.Events - prev.Events,
	}
}

// reachedGoals lists the daily goals that crossed 100% between two snapshots.
func reachedGoals(prev, curr Snapshot) []string {
	var goals []string
	if prev.TodayWaterPct < 100 && curr.TodayWaterPct >= 100 {
		goals = append(goals, "water")
	}
	if prev.TodayCaloriePct < 100 && curr.TodayCaloriePct >= 100 {
		goals = append(goals, "calories")
	}
	return goals
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

// Report returns the most recent report, or nil before the first poll.
func (s *Service) Report() *model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		LastSyncAt:      s.lastSyncAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		ChangesApplied:  s.changes,
		UserID:          s.cfg.UserID,
		Days:            s.cfg.Days,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
