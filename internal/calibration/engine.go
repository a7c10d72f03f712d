package calibration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"go.uber.org/zap"

	"github.com/ayusman/abhinaya/internal/gesture"
)

// DefaultThrottle is the minimum spacing between gesture transforms.
const DefaultThrottle = 33 * time.Millisecond

// Coordinate space and source tags set on transformed gestures.
const (
	SpaceProjector  = "projector"
	SourceProjector = "projector"
)

// State is an immutable calibration snapshot.
type State struct {
	Calibrated       bool
	Homography       *Homography
	CameraCorners    [4]r2.Point
	ProjectorCorners [4]r2.Point
	CreatedAt        time.Time
}

// track is the smoothing and throttle state of one gesture entity.
type track struct {
	smoother *Smoother
	lastAt   time.Time
	lastPos  r2.Point
	hasPos   bool
}

// Engine owns the active calibration. Calibrate and Clear replace the
// snapshot whole, so concurrent transforms see either the old or the new
// state. Each gesture entity is smoothed and throttled on its own track;
// TransformPoint smooths on a separate one. Tracks sit behind their own lock.
type Engine struct {
	storage   Storage
	logger    *zap.SugaredLogger
	clock     clock.Clock
	throttle  time.Duration
	alpha     float64
	threshold float64

	state atomic.Pointer[State]

	mu     sync.Mutex
	tracks map[string]*track
	points *Smoother
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the clock used for transform throttling.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithThrottle sets the minimum spacing between gesture transforms.
func WithThrottle(d time.Duration) Option {
	return func(e *Engine) { e.throttle = d }
}

// WithSmoothing sets the smoothing factor and outlier threshold.
func WithSmoothing(alpha, outlierThreshold float64) Option {
	return func(e *Engine) { e.alpha, e.threshold = alpha, outlierThreshold }
}

// NewEngine creates an uncalibrated Engine. storage may be nil, in which case
// calibrations only live in memory.
func NewEngine(storage Storage, opts ...Option) *Engine {
	e := &Engine{
		storage:  storage,
		logger:   zap.NewNop().Sugar(),
		clock:    clock.New(),
		throttle:  DefaultThrottle,
		alpha:     DefaultAlpha,
		threshold: DefaultOutlierThreshold,
		tracks:    make(map[string]*track),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.points = NewSmoother(e.alpha, e.threshold)
	return e
}

// Load restores a saved calibration. A missing calibration is not an error.
func (e *Engine) Load(ctx context.Context) error {
	if e.storage == nil {
		return nil
	}
	rec, err := e.storage.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoCalibration) {
			return nil
		}
		return err
	}
	st, err := stateFromRecord(rec)
	if err != nil {
		return fmt.Errorf("invalid saved calibration: %w", err)
	}
	e.swap(st)
	if st != nil {
		e.logger.Infof("Loaded calibration from %s", st.CreatedAt.Format(TimeFormat))
	}
	return nil
}

// Calibrate computes the homography from camera corners (TL, TR, BR, BL) to
// projector corners. A nil projector set means the unit square. On failure
// the current calibration is left untouched.
func (e *Engine) Calibrate(ctx context.Context, camera, projector []r2.Point) (*Record, error) {
	if projector == nil {
		projector = unitSquare[:]
	}
	if err := ValidateCorners(camera); err != nil {
		return nil, fmt.Errorf("camera corners: %w", err)
	}
	if err := ValidateCorners(projector); err != nil {
		return nil, fmt.Errorf("projector corners: %w", err)
	}

	var src, dst [4]r2.Point
	copy(src[:], camera)
	copy(dst[:], projector)

	h, err := ComputeHomography(src, dst)
	if err != nil {
		return nil, err
	}

	st := &State{
		Calibrated:       true,
		Homography:       h,
		CameraCorners:    src,
		ProjectorCorners: dst,
		CreatedAt:        e.clock.Now().UTC().Truncate(time.Second),
	}
	e.swap(st)

	rec := st.record()
	if e.storage != nil {
		if err := e.storage.Save(ctx, rec); err != nil {
			e.logger.Warnf("Failed to save calibration: %v", err)
		}
	}
	e.logger.Infof("Calibration successful")
	return rec, nil
}

// Clear drops the calibration and its persisted copy.
func (e *Engine) Clear(ctx context.Context) error {
	e.swap(nil)
	if e.storage == nil {
		return nil
	}
	if err := e.storage.Clear(ctx); err != nil {
		e.logger.Warnf("Failed to remove calibration: %v", err)
		return err
	}
	return nil
}

// Status reports the current calibration.
func (e *Engine) Status() *Record {
	return e.state.Load().record()
}

// Calibrated reports whether a homography is active.
func (e *Engine) Calibrated() bool {
	st := e.state.Load()
	return st != nil && st.Calibrated
}

func (e *Engine) swap(st *State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Store(st)
	clear(e.tracks)
	e.points.Reset()
}

func (e *Engine) trackFor(entity string) *track {
	t, ok := e.tracks[entity]
	if !ok {
		t = &track{smoother: NewSmoother(e.alpha, e.threshold)}
		e.tracks[entity] = t
	}
	return t
}

// TransformPoint maps a camera-normalized point onto the projector surface,
// clamped to [0,1]. It reports false when uncalibrated or when the point
// maps to infinity. Smoothed calls share one smoother that gesture
// transforms never touch.
func (e *Engine) TransformPoint(x, y float64, smooth bool) (r2.Point, bool) {
	p, ok := project(e.state.Load(), x, y)
	if !ok || !smooth {
		return p, ok
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.points.Smooth(p), true
}

func project(st *State, x, y float64) (r2.Point, bool) {
	if st == nil || !st.Calibrated {
		return r2.Point{}, false
	}
	p, ok := st.Homography.Apply(r2.Point{X: x, Y: y})
	if !ok {
		return r2.Point{}, false
	}
	return r2.Point{X: clamp01(p.X), Y: clamp01(p.Y)}, true
}

// TransformGesture moves a gesture record from gesture coordinates ([-1,1],
// y up) onto the projector surface. Each entity is smoothed on its own, and
// calls for the same entity closer together than the throttle reuse its
// previous position. Uncalibrated engines and failed transforms return rec
// unchanged.
func (e *Engine) TransformGesture(rec gesture.Record) gesture.Record {
	if !e.Calibrated() {
		return rec
	}

	e.mu.Lock()
	now := e.clock.Now()
	t := e.trackFor(rec.Entity)
	var pos r2.Point
	if t.hasPos && now.Sub(t.lastAt) < e.throttle {
		pos = t.lastPos
	} else {
		camX := (rec.Position.X + 1) / 2
		camY := (1 - rec.Position.Y) / 2
		p, ok := project(e.state.Load(), camX, camY)
		if !ok {
			e.mu.Unlock()
			return rec
		}
		pos = t.smoother.Smooth(p)
		t.lastPos = pos
		t.lastAt = now
		t.hasPos = true
	}
	e.mu.Unlock()

	out := rec
	out.Position.X = pos.X
	out.Position.Y = pos.Y
	pinching := rec.Type == gesture.Pinch
	out.IsPinching = &pinching
	out.Source = SourceProjector
	out.CoordinateSpace = SpaceProjector
	return out
}
