// Package cmd implements the noxstat CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/productivity-nox/noxstat/internal/backend"
	"github.com/productivity-nox/noxstat/internal/backend/postgres"
	"github.com/productivity-nox/noxstat/internal/cli"
	"github.com/productivity-nox/noxstat/internal/clock"
	"github.com/productivity-nox/noxstat/internal/config"
	"github.com/productivity-nox/noxstat/internal/model"
	"github.com/productivity-nox/noxstat/internal/pipeline"
	"github.com/productivity-nox/noxstat/internal/realtime/kafka"
	"github.com/productivity-nox/noxstat/internal/store"
	"github.com/productivity-nox/noxstat/internal/tracker"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagDays    int
	flagDataDir string
	flagNoSync  bool
	flagQuiet   bool
	flagTZ      string
)

var errNoUser = errors.New("no user id: set general.user_id, NOX_USER_ID or an access token (run `noxstat setup`)")

var rootCmd = &cobra.Command{
	Use:   "noxstat",
	Short: "Productivity analytics for tasks, meals and water",
	Long:  "Summarize your tasks, meals, water intake and app activity, and track daily goals.",
	RunE:  runSummary,

	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadDotEnv)

	rootCmd.PersistentFlags().IntVarP(&flagDays, "days", "n", 0, "Time window in days (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Local mirror directory (default "+store.DefaultDir()+")")
	rootCmd.PersistentFlags().BoolVar(&flagNoSync, "no-sync", false, "Skip the backend and read the local mirror only")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagTZ, "tz", "", "IANA time zone for day boundaries (default from config, then local)")
}

// loadDotEnv reads .env from the working directory so NOX_* variables can
// live next to a project. A missing file is not an error.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "  Warning: reading .env: %v\n", err)
	}
}

func progressf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// session is the resolved runtime shared by commands: config, clock, user,
// backend source and local mirror.
type session struct {
	cfg    config.Config
	clock  clock.Clock
	userID string
	days   int
	src    backend.Source // nil when offline or --no-sync
	mirror *store.Mirror

	closers []func()
}

// openSession resolves config and opens the mirror and backend source.
// requireUser makes a missing user id an error.
func openSession(ctx context.Context, requireUser bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	tz := flagTZ
	if tz == "" {
		tz = cfg.General.Timezone
	}
	loc, err := clock.LoadLocation(tz)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:   cfg,
		clock: clock.System(loc),
		days:  cfg.General.DefaultDays,
	}
	if flagDays > 0 {
		s.days = flagDays
	}
	if s.days <= 0 {
		s.days = pipeline.DefaultWindowDays
	}

	s.userID, err = resolveUser(cfg)
	if err != nil && requireUser {
		return nil, err
	}

	s.mirror, err = store.Open(store.PathIn(dataDir(cfg)))
	if err != nil {
		return nil, fmt.Errorf("opening local mirror: %w", err)
	}

	if !flagNoSync {
		if err := s.openSource(ctx); err != nil {
			// Offline is a normal state; the mirror still answers.
			progressf("  Backend unavailable, using local mirror: %v\n", err)
		}
	}
	return s, nil
}

func dataDir(cfg config.Config) string {
	switch {
	case flagDataDir != "":
		return flagDataDir
	case cfg.General.DataDir != "":
		return cfg.General.DataDir
	}
	return store.DefaultDir()
}

// resolveUser prefers the configured user id, then the access token subject.
func resolveUser(cfg config.Config) (string, error) {
	if cfg.General.UserID != "" {
		return cfg.General.UserID, nil
	}
	if cfg.Backend.AccessToken != "" {
		sub, err := backend.SubjectFromToken(cfg.Backend.AccessToken)
		if err != nil {
			return "", fmt.Errorf("%w (%v)", errNoUser, err)
		}
		return sub, nil
	}
	return "", errNoUser
}

// openSource selects the direct Postgres source when a database URL is
// configured, otherwise the REST client.
func (s *session) openSource(ctx context.Context) error {
	switch {
	case s.cfg.Backend.DatabaseURL != "":
		src, err := postgres.Open(ctx, s.cfg.Backend.DatabaseURL)
		if err != nil {
			return err
		}
		s.src = src
		s.closers = append(s.closers, src.Close)
	case s.cfg.Backend.URL != "":
		if s.cfg.Backend.AccessToken != "" {
			if info, err := backend.InspectToken(s.cfg.Backend.AccessToken); err == nil && info.Expired(s.clock.Now()) {
				return errors.New("access token expired")
			}
		}
		c, err := backend.NewClient(s.cfg.Backend.URL, s.cfg.Backend.AnonKey, s.cfg.Backend.AccessToken)
		if err != nil {
			return err
		}
		s.src = c
	}
	return nil
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	_ = s.mirror.Close()
}

// writer returns the backend writer, or nil when offline.
func (s *session) writer() backend.Writer {
	w, _ := s.src.(backend.Writer)
	return w
}

// tracker records analytics events into the mirror, pushing them when a
// backend is reachable. With Kafka configured, events are also published
// to the change topic for running daemons.
func (s *session) tracker() *tracker.Tracker {
	var sink tracker.Sink = tracker.MirrorSink{Mirror: s.mirror, Writer: s.writer()}
	if d := s.cfg.Daemon; len(d.KafkaBrokers) > 0 && d.KafkaTopic != "" {
		producer := kafka.NewProducer(kafka.Config{Brokers: d.KafkaBrokers, Topic: d.KafkaTopic})
		s.closers = append(s.closers, func() { _ = producer.Close() })
		sink = tracker.Multi(sink, producer)
	}
	return tracker.New(tracker.Session{UserID: s.userID}, sink, s.clock)
}

func (s *session) goals() (water, calories int) {
	return s.cfg.Goals.DailyWaterML, s.cfg.Goals.DailyCalories
}

// load syncs the mirror with the backend, when there is one, and reads it.
func (s *session) load(ctx context.Context, progressFn pipeline.ProgressFunc) (*pipeline.MirrorLoadResult, error) {
	w, err := pipeline.BuildWindow(s.days, s.clock)
	if err != nil {
		return nil, err
	}
	return pipeline.LoadWithStore(ctx, s.src, s.clock, s.mirror, s.userID, w.Days[0], progressFn)
}

// loadData is the shared data loading path used by the report commands.
func loadData(ctx context.Context) (*session, *model.Report, error) {
	s, err := openSession(ctx, true)
	if err != nil {
		return nil, nil, err
	}

	if s.src != nil {
		progressf("  Syncing with backend...\n")
	}
	res, err := s.load(ctx, func(current, total int) {
		progressf("\r  Fetching [%d/%d]", current, total)
		if current == total {
			progressf("\n")
		}
	})
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	switch {
	case res.SyncErr != nil:
		progressf("  Offline: %v\n  Showing local mirror (last sync %s)\n",
			res.SyncErr, cli.FormatSince(res.LastSync, s.clock.Now()))
	case res.Pushed > 0:
		progressf("  Pushed %d pending records\n", res.Pushed)
	}

	water, calories := s.goals()
	in := pipeline.InputFromSnapshot(res.Snapshot, s.days, water, calories)
	report, err := pipeline.Analyze(in, s.clock)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, report, nil
}
