package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ayusman/abhinaya/internal/gesture"
)

type recorder struct {
	mu   sync.Mutex
	recs []gesture.Record
}

func (r *recorder) Send(ctx context.Context, rec gesture.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return nil
}

func (r *recorder) types() []gesture.Label {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]gesture.Label, len(r.recs))
	for i, rec := range r.recs {
		out[i] = rec.Type
	}
	return out
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	r := &recorder{}
	d := NewDispatcher(r)

	for _, l := range []gesture.Label{gesture.Fist, gesture.OpenPalm, gesture.Wave} {
		if !d.Submit(gesture.Record{Type: l}) {
			t.Fatalf("Submit(%s) rejected", l)
		}
	}
	d.Close()

	got := r.types()
	want := []gesture.Label{gesture.Fist, gesture.OpenPalm, gesture.Wave}
	if len(got) != len(want) {
		t.Fatalf("delivered %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %s, want %s", i, got[i], want[i])
		}
	}
	if s := d.Stats(); s.Sent != 3 || s.Failed != 0 || s.Dropped != 0 {
		t.Errorf("Stats() = %+v, want 3 sent", s)
	}
}

func TestDispatcher_FailuresAreCountedAndRateLimited(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	failing := Func(func(ctx context.Context, rec gesture.Record) error {
		return errors.New("connection refused")
	})
	d := NewDispatcher(failing,
		WithLogger(zap.New(core).Sugar()),
		WithFailureLogRate(time.Hour),
	)

	for i := 0; i < 5; i++ {
		d.Submit(gesture.Record{Type: gesture.Pinch})
	}
	d.Close()

	if s := d.Stats(); s.Failed != 5 || s.Sent != 0 {
		t.Errorf("Stats() = %+v, want 5 failed", s)
	}
	if logs.Len() != 1 {
		t.Errorf("logged %d failures, want 1", logs.Len())
	}
}

func TestDispatcher_SubmitNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	blocking := Func(func(ctx context.Context, rec gesture.Record) error {
		<-release
		return nil
	})
	d := NewDispatcher(blocking, WithQueueSize(1), WithTimeout(time.Minute))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 4; i++ {
			d.Submit(gesture.Record{Type: gesture.Fist})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked on a full queue")
	}

	close(release)
	d.Close()

	s := d.Stats()
	if s.Dropped < 2 {
		t.Errorf("Dropped = %d, want at least 2", s.Dropped)
	}
	if s.Sent+s.Dropped != 4 {
		t.Errorf("Stats() = %+v, want sent+dropped = 4", s)
	}
}

func TestDispatcher_SendTimeout(t *testing.T) {
	slow := Func(func(ctx context.Context, rec gesture.Record) error {
		<-ctx.Done()
		return ctx.Err()
	})
	d := NewDispatcher(slow, WithTimeout(20*time.Millisecond))

	start := time.Now()
	d.Submit(gesture.Record{Type: gesture.Fist})
	d.Close()

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Close took %v, want the send cut off by its timeout", elapsed)
	}
	if s := d.Stats(); s.Failed != 1 {
		t.Errorf("Failed = %d, want 1", s.Failed)
	}
}

func TestDispatcher_SubmitAfterClose(t *testing.T) {
	d := NewDispatcher(&recorder{})
	d.Close()
	d.Close()

	if d.Submit(gesture.Record{Type: gesture.Fist}) {
		t.Error("Submit() after Close accepted a record")
	}
	if s := d.Stats(); s.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", s.Dropped)
	}
}
