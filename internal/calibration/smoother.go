package calibration

import "github.com/golang/geo/r2"

// Smoothing defaults.
const (
	DefaultAlpha            = 0.3
	DefaultOutlierThreshold = 0.3
	smootherHistory         = 5
)

// Smoother applies exponential smoothing to transformed positions and
// rejects single-frame jumps larger than the outlier threshold.
type Smoother struct {
	alpha     float64
	threshold float64
	history   []r2.Point
	last      *r2.Point
}

// NewSmoother creates a Smoother. alpha weights the new sample.
func NewSmoother(alpha, outlierThreshold float64) *Smoother {
	return &Smoother{
		alpha:     alpha,
		threshold: outlierThreshold,
		history:   make([]r2.Point, 0, smootherHistory),
	}
}

// Smooth returns the smoothed position for p. The first point passes through
// unchanged; an outlier returns the previous smoothed point.
func (s *Smoother) Smooth(p r2.Point) r2.Point {
	if len(s.history) == smootherHistory {
		s.history = append(s.history[:0], s.history[1:]...)
	}
	s.history = append(s.history, p)

	if s.last == nil {
		s.last = &p
		return p
	}

	if p.Sub(*s.last).Norm() > s.threshold {
		return *s.last
	}

	next := p.Mul(s.alpha).Add(s.last.Mul(1 - s.alpha))
	s.last = &next
	return next
}

// Last returns the most recent smoothed position.
func (s *Smoother) Last() (r2.Point, bool) {
	if s.last == nil {
		return r2.Point{}, false
	}
	return *s.last, true
}

// History returns a copy of the last raw positions, oldest first.
func (s *Smoother) History() []r2.Point {
	return append([]r2.Point(nil), s.history...)
}

// Reset forgets all previous positions.
func (s *Smoother) Reset() {
	s.history = s.history[:0]
	s.last = nil
}
