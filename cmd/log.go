package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/productivity-nox/noxstat/internal/cli"
	"github.com/productivity-nox/noxstat/internal/model"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var flagLogDue string

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Record a task, meal or water intake",
	Long: "Records are written to the local mirror first, then pushed to the backend when it is reachable.\n" +
		"Anything that could not be pushed is retried on the next sync.",
}

var logTaskCmd = &cobra.Command{
	Use:   "task <title>",
	Short: "Add a task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLogTask,
}

var logMealCmd = &cobra.Command{
	Use:   "meal <name> <calories>",
	Short: "Log a meal",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runLogMeal,
}

var logWaterCmd = &cobra.Command{
	Use:   "water <ml>",
	Short: "Log water intake in milliliters",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogWater,
}

var logDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogDone,
}

func init() {
	logTaskCmd.Flags().StringVar(&flagLogDue, "due", "", "Due date (YYYY-MM-DD)")
	logCmd.AddCommand(logTaskCmd, logMealCmd, logWaterCmd, logDoneCmd)
	rootCmd.AddCommand(logCmd)
}

// push runs fn against the backend writer when there is one. A failed push
// leaves the record pending; it is not an error for the command.
func (s *session) push(ctx context.Context, table model.Table, id string, fn func(context.Context) error) {
	if s.writer() == nil {
		progressf("  Saved locally; will sync when the backend is configured\n")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		progressf("  Saved locally; push deferred: %v\n", err)
		return
	}
	if err := s.mirror.MarkPushed(table, id); err != nil {
		progressf("  Warning: %v\n", err)
	}
}

// trackEvent records an analytics event; failures only warn.
func trackEvent(err error) {
	if err != nil {
		progressf("  Warning: event not recorded: %v\n", err)
	}
}

func runLogTask(cmd *cobra.Command, args []string) error {
	in := model.TaskInput{Title: strings.Join(args, " "), Due: flagLogDue}
	if err := model.Validate(in); err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	t := model.Task{
		ID:        uuid.NewString(),
		UserID:    s.userID,
		Title:     in.Title,
		CreatedAt: s.clock.Now(),
	}
	if in.Due != "" {
		due, err := model.ParseDueDay(in.Due)
		if err != nil {
			return fmt.Errorf("parsing due date: %w", err)
		}
		t.DueDate, t.DueAllDay = &due, true
	}

	if err := s.mirror.SaveTask(t, true); err != nil {
		return fmt.Errorf("saving task: %w", err)
	}
	s.push(ctx, model.TableTasks, t.ID, func(ctx context.Context) error { return s.writer().InsertTask(ctx, t) })
	trackEvent(s.tracker().TaskCreated(ctx, t.ID))

	fmt.Printf("  Added task %q (%s)\n", t.Title, t.ID)
	return nil
}

func runLogMeal(cmd *cobra.Command, args []string) error {
	kcal, err := strconv.Atoi(args[len(args)-1])
	if err != nil {
		return fmt.Errorf("calories must be a whole number, got %q", args[len(args)-1])
	}
	in := model.MealInput{Name: strings.Join(args[:len(args)-1], " "), Calories: kcal}
	if err := model.Validate(in); err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	m := model.Meal{
		ID:        uuid.NewString(),
		UserID:    s.userID,
		Name:      in.Name,
		Calories:  in.Calories,
		CreatedAt: s.clock.Now(),
	}
	if err := s.mirror.SaveMeal(m, true); err != nil {
		return fmt.Errorf("saving meal: %w", err)
	}
	s.push(ctx, model.TableMeals, m.ID, func(ctx context.Context) error { return s.writer().InsertMeal(ctx, m) })
	trackEvent(s.tracker().MealLogged(ctx, m.ID, m.Calories))

	fmt.Printf("  Logged %s (%s)\n", m.Name, cli.FormatKcal(m.Calories))
	return nil
}

func runLogWater(cmd *cobra.Command, args []string) error {
	ml, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(args[0]), "ml"))
	if err != nil {
		return fmt.Errorf("amount must be a whole number of ml, got %q", args[0])
	}
	in := model.WaterInput{AmountML: ml}
	if err := model.Validate(in); err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	w := model.WaterLog{
		ID:        uuid.NewString(),
		UserID:    s.userID,
		AmountML:  in.AmountML,
		CreatedAt: s.clock.Now(),
	}
	if err := s.mirror.SaveWaterLog(w, true); err != nil {
		return fmt.Errorf("saving water log: %w", err)
	}
	s.push(ctx, model.TableWaterLogs, w.ID, func(ctx context.Context) error { return s.writer().InsertWaterLog(ctx, w) })
	trackEvent(s.tracker().WaterLogged(ctx, w.AmountML))

	fmt.Printf("  Logged %s of water\n", cli.FormatML(w.AmountML))
	return nil
}

func runLogDone(cmd *cobra.Command, args []string) error {
	id := strings.TrimSpace(args[0])
	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("task id %q is not a valid id", id)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := s.mirror.SetTaskCompleted(id, true)
	if err != nil {
		return fmt.Errorf("completing task: %w (run `noxstat sync` if it was created elsewhere)", err)
	}
	s.push(ctx, model.TableTasks, t.ID, func(ctx context.Context) error {
		return s.writer().UpdateTaskCompleted(ctx, t.ID, true)
	})
	trackEvent(s.tracker().TaskCompleted(ctx, t.ID))

	fmt.Printf("  Completed %q\n", t.Title)
	return nil
}
