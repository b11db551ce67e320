package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/productivity-nox/noxstat/internal/cli"
	"github.com/productivity-nox/noxstat/internal/daemon"
	"github.com/productivity-nox/noxstat/internal/realtime/kafka"
	"github.com/productivity-nox/noxstat/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagDaemonAddr         string
	flagDaemonInterval     time.Duration
	flagDaemonDetach       bool
	flagDaemonLockFile     string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run a background progress daemon with HTTP/SSE endpoints",
	Long: "Polls the backend, keeps the local mirror current, and serves progress over HTTP.\n" +
		"Realtime changes arrive through /v1/webhook or a Kafka topic ([daemon] kafka_* settings).",
	RunE: runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and progress",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	dir := store.DefaultDir()

	pf := daemonCmd.PersistentFlags()
	pf.StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config)")
	pf.DurationVar(&flagDaemonInterval, "interval", 0, "Polling interval (default from config)")
	pf.StringVar(&flagDaemonLockFile, "lock-file", filepath.Join(dir, "noxstatd.json"), "Lock file recording the running daemon")
	pf.StringVar(&flagDaemonLogFile, "log-file", filepath.Join(dir, "noxstatd.log"), "Log file for detached mode")
	pf.IntVar(&flagDaemonEventsBuffer, "events-buffer", 200, "Max in-memory events retained")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

func lock() daemonLock { return daemonLock{path: flagDaemonLockFile} }

func runDaemon(cmd *cobra.Command, _ []string) error {
	switch {
	case flagDaemonDetach && flagDaemonChild:
		return errors.New("invalid daemon launch mode")
	case flagDaemonDetach:
		return spawnDaemon()
	default:
		return serveDaemon(cmd.Context())
	}
}

// spawnDaemon re-executes the current command line without --detach,
// sending output to the log file.
func spawnDaemon() error {
	if err := lock().ensureFree(); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	//nolint:gosec // log path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening daemon log: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, append(filterDetachArg(os.Args[1:]), "--child")...) //nolint:gosec // re-exec of this binary
	child.Stdout, child.Stderr = logf, logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}

	fmt.Print(cli.RenderKV("Daemon started", [][2]string{
		{"PID", fmt.Sprint(child.Process.Pid)},
		{"Lock", flagDaemonLockFile},
		{"Log", flagDaemonLogFile},
	}))
	return nil
}

func serveDaemon(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := openSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := daemonConfig(s)
	lk := lock()
	if err := lk.acquire(daemonState{
		PID:       os.Getpid(),
		Addr:      cfg.Addr,
		StartedAt: s.clock.Now(),
		UserID:    s.userID,
	}); err != nil {
		return err
	}
	defer lk.release()

	svc := daemon.New(cfg, s.src, s.mirror, s.clock)

	dc := s.cfg.Daemon
	if len(dc.KafkaBrokers) > 0 {
		consumer, err := kafka.NewConsumer(kafka.Config{
			Brokers: dc.KafkaBrokers,
			Topic:   dc.KafkaTopic,
			GroupID: dc.KafkaGroup,
		}, svc.HandleEnvelope)
		if err != nil {
			return err
		}
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Printf("change consumer stopped: %v", err)
			}
		}()
	}

	printDaemonBanner(s, cfg)
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// daemonConfig merges [daemon] settings with command-line overrides.
func daemonConfig(s *session) daemon.Config {
	dc := s.cfg.Daemon
	cfg := daemon.Config{
		UserID:         s.userID,
		Days:           s.days,
		Addr:           dc.Addr,
		Interval:       time.Duration(dc.PollIntervalSec) * time.Second,
		EventsBuffer:   flagDaemonEventsBuffer,
		ExportSchedule: dc.ExportSchedule,
		ExportDir:      dc.ExportDir,
		WebhookSecret:  dc.WebhookSecret,
	}
	cfg.WaterGoalML, cfg.CalorieGoal = s.goals()
	if flagDaemonAddr != "" {
		cfg.Addr = flagDaemonAddr
	}
	if flagDaemonInterval > 0 {
		cfg.Interval = flagDaemonInterval
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = filepath.Join(dataDir(s.cfg), "exports")
	}
	return cfg
}

func printDaemonBanner(s *session, cfg daemon.Config) {
	source := "local mirror only"
	if s.src != nil {
		source = "backend"
	}
	pairs := [][2]string{
		{"Listening", "http://" + cfg.Addr},
		{"User", s.userID},
		{"Polling", fmt.Sprintf("%s every %s", source, cfg.Interval)},
	}
	if dc := s.cfg.Daemon; len(dc.KafkaBrokers) > 0 {
		pairs = append(pairs, [2]string{"Changes", dc.KafkaTopic + " @ " + strings.Join(dc.KafkaBrokers, ",")})
	}
	if cfg.ExportSchedule != "" {
		pairs = append(pairs, [2]string{"CSV export", fmt.Sprintf("%s (%s)", cfg.ExportDir, cfg.ExportSchedule)})
	}
	pairs = append(pairs, [2]string{"Stop", "noxstat daemon stop --lock-file " + flagDaemonLockFile})
	fmt.Print(cli.RenderKV("noxstat daemon", pairs))
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	st, ok := lock().live()
	if !ok {
		fmt.Println("  Daemon: not running")
		return nil
	}
	addr := st.Addr
	if flagDaemonAddr != "" {
		addr = flagDaemonAddr
	}

	pairs := [][2]string{
		{"PID", fmt.Sprint(st.PID)},
		{"Address", "http://" + addr},
		{"Up since", cli.FormatSince(st.StartedAt, time.Now())},
	}
	status, err := fetchDaemonStatus(addr)
	if err != nil {
		pairs = append(pairs, [2]string{"API", cli.Warn(err.Error())})
		fmt.Print(cli.RenderKV("Daemon", pairs))
		return nil
	}

	sum := status.Summary
	lastPoll := "pending"
	if !status.LastPollAt.IsZero() {
		lastPoll = cli.FormatSince(status.LastPollAt, time.Now())
	}
	pairs = append(pairs,
		[2]string{"User", fmt.Sprintf("%s (%dd window)", status.UserID, status.Days)},
		[2]string{"Last poll", lastPoll},
		[2]string{"Last sync", cli.FormatSince(status.LastSyncAt, time.Now())},
		[2]string{"Polls", fmt.Sprint(status.PollCount)},
		[2]string{"Changes applied", fmt.Sprint(status.ChangesApplied)},
		[2]string{"Tasks", fmt.Sprintf("%d/%d completed", sum.CompletedTasks, sum.Tasks)},
		[2]string{"Water today", fmt.Sprintf("%s (%s)", cli.FormatML(sum.TodayWaterML), cli.FormatPercent(sum.TodayWaterPct))},
		[2]string{"Calories today", fmt.Sprintf("%s (%s)", cli.FormatKcal(sum.TodayCalories), cli.FormatPercent(sum.TodayCaloriePct))},
		[2]string{"Subscribers", fmt.Sprint(status.SubscriberCount)},
	)
	if status.LastError != "" {
		pairs = append(pairs, [2]string{"Last error", cli.Warn(status.LastError)})
	}
	fmt.Print(cli.RenderKV("Daemon", pairs))
	return nil
}

func fetchDaemonStatus(addr string) (daemon.Status, error) {
	var st daemon.Status
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short local probe
	if err != nil {
		return st, fmt.Errorf("unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed status: %w", err)
	}
	return st, nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	lk := lock()
	st, ok := lk.live()
	if !ok {
		return errDaemonNotRunning
	}

	proc, err := os.FindProcess(st.PID)
	if err != nil {
		return fmt.Errorf("finding daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signalling daemon: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(st.PID) {
			lk.release()
			fmt.Printf("  Stopped daemon (pid %d)\n", st.PID)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("daemon (pid %d) did not exit in time", st.PID)
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}
