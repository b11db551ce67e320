package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/productivity-nox/noxstat/internal/backend"
	"github.com/productivity-nox/noxstat/internal/clock"
	"github.com/productivity-nox/noxstat/internal/model"
	"github.com/productivity-nox/noxstat/internal/store"
)

// MirrorLoadResult is a snapshot read from the local mirror, with the
// outcome of the backend sync that preceded it.
type MirrorLoadResult struct {
	Snapshot *model.Snapshot
	Synced   bool
	SyncErr  error // backend failure that caused the mirror-only fallback
	LastSync time.Time
	Pushed   int
}

// LoadWithStore pushes pending local records, pulls the backend into the
// mirror, then reads the mirror. When src is nil or the backend fails the
// mirror alone is used and SyncErr explains why.
func LoadWithStore(
	ctx context.Context,
	src backend.Source,
	clk clock.Clock,
	mirror *store.Mirror,
	userID string,
	eventsSince time.Time,
	progressFn ProgressFunc,
) (*MirrorLoadResult, error) {
	result := &MirrorLoadResult{}

	if src != nil {
		if w, ok := src.(backend.Writer); ok {
			n, err := PushPending(ctx, w, mirror, userID)
			result.Pushed = n
			if err != nil {
				result.SyncErr = err
			}
		}
		if result.SyncErr == nil {
			lr, err := Load(ctx, src, clk, userID, eventsSince, progressFn)
			if err != nil {
				result.SyncErr = err
			} else {
				if err := mirror.ReplaceSnapshot(lr.Snapshot); err != nil {
					return nil, fmt.Errorf("updating mirror: %w", err)
				}
				if err := mirror.MarkSynced(userID, lr.FetchedAt); err != nil {
					return nil, fmt.Errorf("recording sync: %w", err)
				}
				result.Synced = true
			}
		}
	}

	snap, err := mirror.LoadSnapshot(userID)
	if err != nil {
		return nil, fmt.Errorf("reading mirror: %w", err)
	}
	result.Snapshot = snap
	result.LastSync, err = mirror.LastSync(userID)
	if err != nil {
		return nil, fmt.Errorf("reading sync state: %w", err)
	}
	return result, nil
}

// PushPending sends every pending mirror record to the backend and clears
// its pending flag. It stops at the first failure.
func PushPending(ctx context.Context, w backend.Writer, mirror *store.Mirror, userID string) (int, error) {
	pending, err := mirror.Pending(userID)
	if err != nil {
		return 0, fmt.Errorf("reading pending records: %w", err)
	}

	pushed := 0
	mark := func(table model.Table, id string) error {
		if err := mirror.MarkPushed(table, id); err != nil {
			return fmt.Errorf("marking %s %s pushed: %w", table, id, err)
		}
		pushed++
		return nil
	}

	for _, t := range pending.Tasks {
		// A pending task may be new or a completion toggle on a synced row.
		if err := w.InsertTask(ctx, t); err != nil {
			if uerr := w.UpdateTaskCompleted(ctx, t.ID, t.Completed); uerr != nil {
				return pushed, fmt.Errorf("pushing task %s: %w", t.ID, err)
			}
		}
		if err := mark(model.TableTasks, t.ID); err != nil {
			return pushed, err
		}
	}
	for _, m := range pending.Meals {
		if err := w.InsertMeal(ctx, m); err != nil {
			return pushed, fmt.Errorf("pushing meal %s: %w", m.ID, err)
		}
		if err := mark(model.TableMeals, m.ID); err != nil {
			return pushed, err
		}
	}
	for _, wl := range pending.Water {
		if err := w.InsertWaterLog(ctx, wl); err != nil {
			return pushed, fmt.Errorf("pushing water log %s: %w", wl.ID, err)
		}
		if err := mark(model.TableWaterLogs, wl.ID); err != nil {
			return pushed, err
		}
	}
	for _, e := range pending.Events {
		if err := w.InsertEvent(ctx, e); err != nil {
			return pushed, fmt.Errorf("pushing event %s: %w", e.ID, err)
		}
		if err := mark(model.TableEvents, e.ID); err != nil {
			return pushed, err
		}
	}
	return pushed, nil
}
