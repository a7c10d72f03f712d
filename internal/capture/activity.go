package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// DefaultActivityThreshold is the percentage of changed pixels that counts as activity.
	DefaultActivityThreshold = 1.0

	blurKernel    = 21
	pixelDelta    = 25
	analysisWidth = 160
)

// Change describes the difference between a frame and the one before it.
type Change struct {
	Percent float64
	Active  bool
}

// ActivityMeter reports how much of the scene changed between consecutive
// frames. It lets the capture loop notice someone stepping into view before
// the landmark models find them.
type ActivityMeter struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewActivityMeter returns a meter that flags frames where more than
// threshold percent of pixels changed. Non-positive thresholds use the default.
func NewActivityMeter(threshold float64) *ActivityMeter {
	if threshold <= 0 {
		threshold = DefaultActivityThreshold
	}
	return &ActivityMeter{threshold: threshold, prev: gocv.NewMat()}
}

// Measure compares frame against the previous one. The first frame after
// construction or Reset only primes the meter.
func (m *ActivityMeter) Measure(frame *gocv.Mat) Change {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return Change{}
	}

	small := gocv.NewMat()
	defer small.Close()
	scale := float64(analysisWidth) / float64(frame.Cols())
	if scale < 1 {
		gocv.Resize(*frame, &small, image.Point{}, scale, scale, gocv.InterpolationArea)
	} else {
		frame.CopyTo(&small)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if small.Channels() > 1 {
		gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)
	} else {
		small.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, &gray, image.Point{X: blurKernel, Y: blurKernel}, 0, 0, gocv.BorderDefault)

	if !m.primed || m.prev.Rows() != gray.Rows() || m.prev.Cols() != gray.Cols() {
		gray.CopyTo(&m.prev)
		m.primed = true
		return Change{}
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, m.prev, &diff)
	gocv.Threshold(diff, &diff, pixelDelta, 255, gocv.ThresholdBinary)

	percent := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	gray.CopyTo(&m.prev)

	return Change{Percent: percent, Active: percent > m.threshold}
}

// Threshold returns the active threshold in percent.
func (m *ActivityMeter) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// SetThreshold ignores non-positive values.
func (m *ActivityMeter) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// Reset drops the baseline frame.
func (m *ActivityMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primed = false
}

// Close releases the baseline frame. The meter may be reused afterwards.
func (m *ActivityMeter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primed = false
	if err := m.prev.Close(); err != nil {
		return err
	}
	m.prev = gocv.NewMat()
	return nil
}
