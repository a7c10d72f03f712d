package sink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ayusman/abhinaya/internal/gesture"
)

// Dispatcher defaults.
const (
	DefaultQueueSize   = 64
	DefaultSendTimeout = 500 * time.Millisecond
)

// Stats counts dispatcher outcomes.
type Stats struct {
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
}

// Dispatcher moves records off the capture loop. Submit never blocks:
// records are dropped when the queue is full. A single goroutine delivers
// them in order, each with its own timeout. Failures are counted and logged
// at a limited rate, never returned.
type Dispatcher struct {
	sink    Sink
	timeout time.Duration
	logger  *zap.SugaredLogger
	limiter *rate.Limiter

	mu     sync.RWMutex
	closed bool
	queue  chan gesture.Record
	done   chan struct{}

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTimeout sets the per-record send timeout.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(p *Dispatcher) { p.timeout = d }
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) DispatcherOption {
	return func(p *Dispatcher) { p.queue = make(chan gesture.Record, n) }
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *zap.SugaredLogger) DispatcherOption {
	return func(p *Dispatcher) { p.logger = l }
}

// WithFailureLogRate limits failure logs to one per interval.
func WithFailureLogRate(interval time.Duration) DispatcherOption {
	return func(p *Dispatcher) { p.limiter = rate.NewLimiter(rate.Every(interval), 1) }
}

// NewDispatcher starts a dispatcher delivering to s.
func NewDispatcher(s Sink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sink:    s,
		timeout: DefaultSendTimeout,
		logger:  zap.NewNop().Sugar(),
		limiter: rate.NewLimiter(rate.Every(5*time.Second), 1),
		queue:   make(chan gesture.Record, DefaultQueueSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.run()
	return d
}

// Submit queues rec for delivery and reports whether it was accepted.
func (d *Dispatcher) Submit(rec gesture.Record) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return false
	}
	select {
	case d.queue <- rec:
		return true
	default:
		d.dropped.Add(1)
		return false
	}
}

// Close stops accepting records and waits for the queue to drain.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
	return nil
}

// Stats returns the delivery counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Sent:    d.sent.Load(),
		Failed:  d.failed.Load(),
		Dropped: d.dropped.Load(),
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for rec := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.sink.Send(ctx, rec)
		cancel()

		if err != nil {
			d.failed.Add(1)
			if d.limiter.Allow() {
				d.logger.Warnf("Failed to push %s gesture: %v", rec.Type, err)
			}
			continue
		}
		d.sent.Add(1)
	}
}
