package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/productivity-nox/noxstat/internal/cli"
	"github.com/productivity-nox/noxstat/internal/model"
	"github.com/productivity-nox/noxstat/internal/pipeline"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push pending records and pull everything from the backend",
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if flagNoSync {
		return errors.New("sync cannot run with --no-sync")
	}
	ctx := cmd.Context()
	s, err := openSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.src == nil {
		return errors.New("no backend configured: set backend.url or backend.database_url (run `noxstat setup`)")
	}

	progressf("  Syncing with backend...\n")
	// A zero since pulls the full event history.
	res, err := pipeline.LoadWithStore(ctx, s.src, s.clock, s.mirror, s.userID, time.Time{}, func(current, total int) {
		progressf("\r  Fetching [%d/%d]", current, total)
		if current == total {
			progressf("\n")
		}
	})
	if err != nil {
		return err
	}
	if res.SyncErr != nil {
		return fmt.Errorf("sync failed: %w", res.SyncErr)
	}

	counts, err := s.mirror.Counts(s.userID)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(cli.RenderKV("Local mirror", [][2]string{
		{"Tasks", cli.FormatNumber(int64(counts[model.TableTasks]))},
		{"Meals", cli.FormatNumber(int64(counts[model.TableMeals]))},
		{"Water logs", cli.FormatNumber(int64(counts[model.TableWaterLogs]))},
		{"Events", cli.FormatNumber(int64(counts[model.TableEvents]))},
		{"Preferences", cli.FormatNumber(int64(counts[model.TablePreferences]))},
		{"Pushed", cli.FormatNumber(int64(res.Pushed))},
		{"Synced", res.LastSync.In(s.clock.Location()).Format("2006-01-02 15:04:05")},
	}))
	return nil
}
