package app

import (
	"context"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/abhinaya/internal/tracking"
)

// pacer picks the delay between frames. In adaptive mode the worker drops to
// the idle rate once nothing has been seen for the idle timeout.
type pacer struct {
	lastActive time.Time
}

func (p *pacer) observe(active bool, now time.Time) {
	if active {
		p.lastActive = now
	}
}

// interval returns the delay before the next frame and the FPS it targets.
func (p *pacer) interval(s Settings, now time.Time) (time.Duration, int) {
	if !s.AdaptiveFPS {
		return FixedFrameInterval, int(time.Second / FixedFrameInterval)
	}
	fps := s.ActiveFPS
	if now.Sub(p.lastActive) > s.IdleTimeout {
		fps = s.IdleFPS
	}
	if fps <= 0 {
		return FixedFrameInterval, int(time.Second / FixedFrameInterval)
	}
	return time.Second / time.Duration(fps), fps
}

func (a *App) run(ctx context.Context, done chan struct{}, start time.Time) {
	defer close(done)
	defer a.exit()
	defer func() {
		if err := a.camera.Close(); err != nil {
			a.logger.Warnf("Error closing camera: %v", err)
		}
	}()

	p := &pacer{lastActive: a.clock.Now()}

	for ctx.Err() == nil {
		frame, err := a.camera.ReadFrame()
		if err != nil {
			a.readLog.Do(func() { a.logger.Warnf("Error reading frame: %v", err) })
			if !a.sleep(ctx, ReadRetryDelay) {
				return
			}
			continue
		}

		active := a.step(frame, start)
		now := a.clock.Now()
		p.observe(active, now)

		delay, fps := p.interval(a.Settings(), now)
		a.mu.Lock()
		a.fpsTarget = fps
		a.mu.Unlock()

		if !a.sleep(ctx, delay) {
			return
		}
	}
}

// exit marks the worker gone and, if Close ran while it was still busy,
// releases what Close left behind.
func (a *App) exit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alive = false
	if !a.closed {
		return
	}
	if err := a.releaseLocked(); err != nil {
		a.logger.Warnf("Error closing detector: %v", err)
	}
}

// step runs one frame through detection and tracking and publishes the
// outcome. It reports whether anything was active in the frame. Timestamps
// are milliseconds since start on the monotonic clock.
func (a *App) step(frame *gocv.Mat, start time.Time) bool {
	defer frame.Close()

	ts := a.clock.Since(start).Milliseconds()
	change := a.activity.Measure(frame)

	det, err := a.detector.Detect(frame, ts)
	if err != nil {
		a.readLog.Do(func() { a.logger.Warnf("Detection failed: %v", err) })
		a.publish(frame, nil)
		return change.Active
	}

	res := a.processor.Process(det)
	if a.submitter != nil {
		for _, rec := range res.Emitted {
			if !a.submitter.Submit(rec) {
				a.logger.Debugf("Dropped %s gesture, push queue full", rec.Type)
			}
		}
	}

	drawOverlays(frame, res)
	a.publish(frame, &res)
	return res.Active || change.Active
}

// publish stores a copy of the annotated frame and, when present, the result.
func (a *App) publish(frame *gocv.Mat, res *tracking.Result) {
	a.mu.Lock()
	defer a.mu.Unlock()

	frame.CopyTo(&a.frame)
	a.hasFrame = true
	a.frames++
	if res != nil {
		a.latest = *res
		a.hasResult = true
	}
}

// sleep waits for d on the app clock and reports false if ctx ended first.
func (a *App) sleep(ctx context.Context, d time.Duration) bool {
	t := a.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
