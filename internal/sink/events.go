package sink

import (
	"context"

	"github.com/ayusman/abhinaya/internal/gesture"
	"github.com/ayusman/abhinaya/internal/store"
)

// EventRecorder is the part of the store an EventSink needs.
type EventRecorder interface {
	Create(ctx context.Context, e *store.Event) error
	Prune(ctx context.Context, keep int) (int64, error)
}

// pruneEvery is how many inserts pass between prunes.
const pruneEvery = 100

// EventSink appends every record to the gesture event log. When keep is
// positive the log is trimmed to the newest keep events now and then.
type EventSink struct {
	events  EventRecorder
	keep    int
	pending int
}

// NewEventSink creates a sink writing to events.
func NewEventSink(events EventRecorder, keep int) *EventSink {
	return &EventSink{events: events, keep: keep}
}

// Send records rec. It is called from the dispatcher goroutine only.
func (s *EventSink) Send(ctx context.Context, rec gesture.Record) error {
	space := rec.CoordinateSpace
	if space == "" {
		space = "gesture"
	}
	err := s.events.Create(ctx, &store.Event{
		Entity:          rec.Entity,
		Type:            string(rec.Type),
		Confidence:      rec.Confidence,
		X:               rec.Position.X,
		Y:               rec.Position.Y,
		Z:               rec.Position.Z,
		CoordinateSpace: space,
		TimestampMs:     rec.Timestamp,
	})
	if err != nil {
		return err
	}

	if s.keep <= 0 {
		return nil
	}
	s.pending++
	if s.pending < pruneEvery {
		return nil
	}
	s.pending = 0
	_, err = s.events.Prune(ctx, s.keep)
	return err
}
