package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Event is one emitted gesture as recorded in the event log.
type Event struct {
	ID              string    `json:"id"`
	Entity          string    `json:"entity"`
	Type            string    `json:"type"`
	Confidence      float64   `json:"confidence"`
	X               float64   `json:"x"`
	Y               float64   `json:"y"`
	Z               float64   `json:"z"`
	CoordinateSpace string    `json:"coordinate_space"`
	TimestampMs     int64     `json:"timestamp_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// EventRepository appends to and reads from the gesture event log.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts a new event. An empty ID is filled with a random UUID.
func (r *EventRepository) Create(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CoordinateSpace == "" {
		e.CoordinateSpace = "gesture"
	}
	e.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO gesture_events (id, entity, type, confidence, x, y, z, coordinate_space, timestamp_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Entity, e.Type, e.Confidence, e.X, e.Y, e.Z, e.CoordinateSpace, e.TimestampMs, e.CreatedAt,
	)
	return err
}

// ListRecent returns at most limit events, newest first.
func (r *EventRepository) ListRecent(ctx context.Context, limit int) ([]*Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entity, type, confidence, x, y, z, coordinate_space, timestamp_ms, created_at
		 FROM gesture_events ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		err := rows.Scan(&e.ID, &e.Entity, &e.Type, &e.Confidence, &e.X, &e.Y, &e.Z,
			&e.CoordinateSpace, &e.TimestampMs, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// Prune deletes all but the newest keep events and returns how many were removed.
func (r *EventRepository) Prune(ctx context.Context, keep int) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM gesture_events WHERE rowid NOT IN (
			SELECT rowid FROM gesture_events ORDER BY created_at DESC, rowid DESC LIMIT ?
		 )`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
