package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/productivity-nox/noxstat/internal/backend"
	"github.com/productivity-nox/noxstat/internal/clock"
	"github.com/productivity-nox/noxstat/internal/model"
)

// LoadResult holds the output of a backend pull.
type LoadResult struct {
	Snapshot  *model.Snapshot
	Fetched   int // collections fetched successfully
	Failed    int
	FetchedAt time.Time
}

// ProgressFunc is called during loading to report progress.
// current is the number of collections fetched so far, total is the total count.
type ProgressFunc func(current, total int)

// Load fetches the user's five collections concurrently with a bounded
// worker pool. eventsSince limits the event pull; zero means all events.
// Any failed collection fails the load; no partial snapshot is returned.
// FetchedAt is read from clk.
func Load(ctx context.Context, src backend.Source, clk clock.Clock, userID string, eventsSince time.Time, progressFn ProgressFunc) (*LoadResult, error) {
	if userID == "" {
		return nil, errors.New("loading: no user id configured")
	}

	snap := &model.Snapshot{UserID: userID}
	jobs := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{"tasks", func(ctx context.Context) (err error) {
			snap.Tasks, err = src.FetchTasks(ctx, userID)
			return err
		}},
		{"meals", func(ctx context.Context) (err error) {
			snap.Meals, err = src.FetchMeals(ctx, userID)
			return err
		}},
		{"water_logs", func(ctx context.Context) (err error) {
			snap.Water, err = src.FetchWaterLogs(ctx, userID)
			return err
		}},
		{"analytics_events", func(ctx context.Context) (err error) {
			snap.Events, err = src.FetchEvents(ctx, userID, eventsSince, time.Time{})
			return err
		}},
		{"user_preferences", func(ctx context.Context) (err error) {
			snap.Preferences, err = src.FetchPreferences(ctx, userID)
			return err
		}},
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	work := make(chan int, len(jobs))
	errs := make([]error, len(jobs))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range jobs {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				if err := jobs[idx].run(ctx); err != nil {
					errs[idx] = fmt.Errorf("fetching %s: %w", jobs[idx].name, err)
				}
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(jobs))
				}
			}
		}()
	}

	wg.Wait()

	result := &LoadResult{FetchedAt: clk.Now()}
	for _, err := range errs {
		if err != nil {
			result.Failed++
		} else {
			result.Fetched++
		}
	}
	if err := errors.Join(errs...); err != nil {
		return result, err
	}
	result.Snapshot = snap
	return result, nil
}
