// Package app runs the capture worker: it reads camera frames, feeds them
// through detection and tracking, hands emitted gestures to a submitter and
// keeps the latest result and annotated frame for readers.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"golang.org/x/time/rate"

	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/gesture"
	"github.com/ayusman/abhinaya/internal/tracking"
)

// Worker timing.
const (
	StopTimeout        = 2 * time.Second
	ReadRetryDelay     = 50 * time.Millisecond
	FixedFrameInterval = 33 * time.Millisecond
	JPEGQuality        = 80
)

var (
	// ErrAlreadyRunning is returned by Start while the worker is running.
	ErrAlreadyRunning = errors.New("tracking already running")
	// ErrStopping is returned by Start while a previous worker has not exited yet.
	ErrStopping = errors.New("previous tracking worker still stopping")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("app closed")
	// ErrNoFrame is returned by LatestFrameJPEG before the first frame.
	ErrNoFrame = errors.New("no frame available")
)

// Submitter accepts emitted gesture records without blocking.
type Submitter interface {
	Submit(rec gesture.Record) bool
}

// Settings controls worker pacing.
type Settings struct {
	AdaptiveFPS       bool
	IdleFPS           int
	ActiveFPS         int
	IdleTimeout       time.Duration
	ActivityThreshold float64
}

// SettingsFrom extracts the worker settings from cfg.
func SettingsFrom(cfg config.Config) Settings {
	return Settings{
		AdaptiveFPS:       cfg.AdaptiveFPS,
		IdleFPS:           cfg.AdaptiveIdleFPS,
		ActiveFPS:         cfg.AdaptiveActiveFPS,
		IdleTimeout:       cfg.IdleTimeout(),
		ActivityThreshold: cfg.Camera.MotionThreshold,
	}
}

// TrackingFrom extracts the processor settings from cfg.
func TrackingFrom(cfg config.Config) tracking.Config {
	return tracking.Config{
		FrameSkipInterval: cfg.FrameSkipInterval,
		PushCooldown:      cfg.PushCooldown(),
		EnableFace:        cfg.EnableFaceTracking,
		EnablePose:        cfg.EnablePoseTracking,
	}
}

// Status is a snapshot of the worker state.
type Status struct {
	Running     bool   `json:"running"`
	FPSTarget   int    `json:"fps_target"`
	AdaptiveFPS bool   `json:"adaptive_fps"`
	Frames      uint64 `json:"frames"`
	CameraError string `json:"camera_error,omitempty"`
}

// App owns the camera and detector for the lifetime of the process and runs
// at most one worker at a time.
type App struct {
	camera    capture.Camera
	detector  detector.Detector
	processor *tracking.Processor
	activity  *capture.ActivityMeter
	submitter Submitter
	clock     clock.Clock
	logger    *zap.SugaredLogger
	readLog   *rate.Sometimes

	stopTimeout time.Duration

	mu        sync.RWMutex
	settings  Settings
	running   bool
	alive     bool
	closed    bool
	released  bool
	cancel    context.CancelFunc
	done      chan struct{}
	start     time.Time
	cameraErr error
	fpsTarget int
	frames    uint64
	latest    tracking.Result
	hasResult bool
	frame     gocv.Mat
	hasFrame  bool
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(a *App) { a.logger = l }
}

// WithClock replaces the wall clock used for timestamps and pacing.
func WithClock(c clock.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithSubmitter sets where emitted records go.
func WithSubmitter(s Submitter) Option {
	return func(a *App) { a.submitter = s }
}

// WithSettings sets the pacing settings.
func WithSettings(s Settings) Option {
	return func(a *App) { a.settings = s }
}

// New returns an idle App. Start launches the worker.
func New(cam capture.Camera, det detector.Detector, proc *tracking.Processor, opts ...Option) *App {
	a := &App{
		camera:      cam,
		detector:    det,
		processor:   proc,
		clock:       clock.New(),
		logger:      zap.NewNop().Sugar(),
		readLog:     &rate.Sometimes{Interval: 5 * time.Second},
		stopTimeout: StopTimeout,
		settings:    Settings{IdleFPS: 10, ActiveFPS: 15, IdleTimeout: 5 * time.Second},
		frame:       gocv.NewMat(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.activity = capture.NewActivityMeter(a.settings.ActivityThreshold)
	return a
}

// Start opens the camera and launches the worker.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.running {
		return ErrAlreadyRunning
	}
	if a.alive {
		return ErrStopping
	}

	if err := a.camera.Open(); err != nil {
		a.cameraErr = err
		return fmt.Errorf("start tracking: %w", err)
	}
	a.cameraErr = nil
	a.activity.Reset()
	a.processor.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	a.running = true
	a.alive = true
	a.start = a.clock.Now()

	go a.run(ctx, a.done, a.start)

	a.logger.Info("Tracking started")
	return nil
}

// Stop cancels the worker and waits up to the stop timeout for it to exit.
// A worker that overruns is left to finish on its own; Start reports
// ErrStopping until it does.
func (a *App) Stop() error {
	a.stop()
	return nil
}

// stop reports whether no worker is left running once it returns.
func (a *App) stop() bool {
	a.mu.Lock()
	if !a.running {
		alive := a.alive
		a.mu.Unlock()
		return !alive
	}
	cancel, done := a.cancel, a.done
	a.running = false
	a.cancel = nil
	a.mu.Unlock()

	cancel()

	t := time.NewTimer(a.stopTimeout)
	defer t.Stop()
	select {
	case <-done:
		a.logger.Info("Tracking stopped")
		return true
	case <-t.C:
		a.logger.Warnf("Tracking worker did not stop within %v", a.stopTimeout)
		return false
	}
}

// Close stops the worker and releases the detector and frame buffers. If the
// worker overruns the stop timeout it still owns them, and releases them
// itself when it exits.
func (a *App) Close() error {
	a.stop()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.alive {
		a.logger.Warn("Tracking worker still running, deferring release to it")
		return nil
	}
	return a.releaseLocked()
}

// releaseLocked frees the frame buffers and the detector once. a.mu must be
// held.
func (a *App) releaseLocked() error {
	if a.released {
		return nil
	}
	a.released = true
	a.frame.Close()
	a.hasFrame = false
	a.activity.Close()
	return a.detector.Close()
}

// IsRunning reports whether the worker is running.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// CameraError returns the last camera failure, or nil.
func (a *App) CameraError() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cameraErr
}

// Status returns a snapshot of the worker state.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := Status{
		Running:     a.running,
		FPSTarget:   a.fpsTarget,
		AdaptiveFPS: a.settings.AdaptiveFPS,
		Frames:      a.frames,
	}
	if a.cameraErr != nil {
		st.CameraError = a.cameraErr.Error()
	}
	return st
}

// LatestResult returns the most recent tracking result and whether any
// frame has been processed.
func (a *App) LatestResult() (tracking.Result, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest, a.hasResult
}

// LatestFrameJPEG encodes the most recent annotated frame.
func (a *App) LatestFrameJPEG() ([]byte, error) {
	a.mu.RLock()
	if !a.hasFrame {
		a.mu.RUnlock()
		return nil, ErrNoFrame
	}
	frame := a.frame.Clone()
	a.mu.RUnlock()
	defer frame.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, JPEGQuality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}

// Settings returns the current pacing settings.
func (a *App) Settings() Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// ApplyConfig pushes runtime-tunable settings into the worker and processor.
// A running worker picks them up on its next frame.
func (a *App) ApplyConfig(cfg config.Config) {
	s := SettingsFrom(cfg)

	a.mu.Lock()
	a.settings = s
	a.mu.Unlock()

	a.activity.SetThreshold(s.ActivityThreshold)
	a.processor.Configure(TrackingFrom(cfg))
}
