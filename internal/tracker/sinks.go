package tracker

import (
	"context"
	"log"

	"github.com/productivity-nox/noxstat/internal/backend"
	"github.com/productivity-nox/noxstat/internal/model"
	"github.com/productivity-nox/noxstat/internal/store"
)

// MirrorSink stores events in the local mirror as pending, then tries to
// push them through w when it is non-nil. A failed push leaves the event
// pending for the next sync.
type MirrorSink struct {
	Mirror *store.Mirror
	Writer backend.Writer
}

// Track implements Sink.
func (s MirrorSink) Track(ctx context.Context, e model.AnalyticsEvent) error {
	if err := s.Mirror.SaveEvent(e, true); err != nil {
		return err
	}
	if s.Writer == nil {
		return nil
	}
	if err := s.Writer.InsertEvent(ctx, e); err != nil {
		log.Printf("tracker: push of %s deferred: %v", e.ID, err)
		return nil
	}
	return s.Mirror.MarkPushed(model.TableEvents, e.ID)
}
