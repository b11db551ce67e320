package cmd

import (
	"context"
	"fmt"

	"github.com/productivity-nox/noxstat/internal/config"
	"github.com/productivity-nox/noxstat/internal/pipeline"
	"github.com/productivity-nox/noxstat/internal/tui"
	"github.com/productivity-nox/noxstat/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.userID == "" {
		fmt.Println("  No user configured; showing an empty dashboard. Run `noxstat setup` to connect.")
	}

	theme.SetActive(s.cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	water, calories := s.goals()
	opts := tui.Options{
		Days:        s.days,
		WaterGoalML: water,
		CalorieGoal: calories,
		Clock:       s.clock,
		Load: func(ctx context.Context, progress pipeline.ProgressFunc) (*pipeline.MirrorLoadResult, error) {
			return s.load(ctx, progress)
		},
		NeedSetup: !config.Exists(),
	}
	if s.userID != "" {
		opts.Tracker = s.tracker()
	}

	p := tea.NewProgram(tui.NewApp(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
