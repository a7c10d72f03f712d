package store

import (
	"context"
	"testing"
)

func TestEventRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Events()

	for i, typ := range []string{"fist", "open_palm", "pinch"} {
		e := &Event{Entity: "right", Type: typ, Confidence: 0.9, X: 0.1, Y: -0.2, TimestampMs: int64(i) * 100}
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if e.ID == "" {
			t.Error("Create should assign an ID")
		}
		if e.CreatedAt.IsZero() {
			t.Error("CreatedAt should be set after create")
		}
	}

	events, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != "pinch" || events[1].Type != "open_palm" {
		t.Errorf("expected newest first, got %q then %q", events[0].Type, events[1].Type)
	}
	if events[0].CoordinateSpace != "gesture" {
		t.Errorf("default coordinate space = %q, want gesture", events[0].CoordinateSpace)
	}
	if events[0].Y != -0.2 || events[0].TimestampMs != 200 {
		t.Errorf("fields not round-tripped: %+v", events[0])
	}
}

func TestEventRepository_KeepsGivenID(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Events()

	e := &Event{ID: "evt-1", Entity: "both", Type: "clap", CoordinateSpace: "projector"}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	events, _ := repo.ListRecent(ctx, 10)
	if len(events) != 1 || events[0].ID != "evt-1" || events[0].CoordinateSpace != "projector" {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestEventRepository_Prune(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Events()

	for i := 0; i < 5; i++ {
		repo.Create(ctx, &Event{Entity: "left", Type: "wave", TimestampMs: int64(i)})
	}

	removed, err := repo.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("Prune() removed %d, want 3", removed)
	}

	events, _ := repo.ListRecent(ctx, 10)
	if len(events) != 2 {
		t.Fatalf("expected 2 events left, got %d", len(events))
	}
	if events[0].TimestampMs != 4 || events[1].TimestampMs != 3 {
		t.Errorf("expected the newest events to survive, got %d and %d", events[0].TimestampMs, events[1].TimestampMs)
	}
}
