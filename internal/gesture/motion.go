package gesture

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Motion analysis thresholds. Positions are camera-normalized, times in ms.
const (
	MinMotionSamples = 8
	MinWaveSamples   = 10
	PatternWindow    = 16
	MinPairSamples   = 5

	swipeMinDuration = 0.1 // seconds
	swipeMinSpeed    = 0.3 // units per second
	swipeMinDistance = 0.1
	axisDominance    = 1.5

	waveMinReversals = 3
	waveMinRange     = 0.1

	circleMaxCV      = 0.3
	circleMinRadius  = 0.02
	circleMinSpeed   = 0.3
	circleMinSweep   = 1.5 * math.Pi
	shakeMinTurn     = 2 * math.Pi / 3
	shakeMinTurns    = 3
	shakeMinSpeed    = 0.5
	clapContraction  = 0.7
	stretchExpansion = 1.3
	minPairDistance  = 1e-6
	minStepLength    = 1e-9
)

// Rotation is the turning direction of a windowed trajectory. Clockwise is as
// seen on screen, with y growing downward.
type Rotation int

const (
	RotationNone Rotation = iota
	Clockwise
	CounterClockwise
)

// MotionSignature summarizes a hand's recent trajectory.
type MotionSignature struct {
	// Pattern is a motion-tier label, or None.
	Pattern Label
	// VerticalSwipe is SwipeUp or SwipeDown when the history shows one.
	VerticalSwipe Label
	Velocity      float64 // units per second, oldest to newest
	Direction     float64 // radians
	RangeX        float64
	RangeY        float64
	Rotation      Rotation
	Samples       int
}

// PairTrend is the two-hand distance analysis for one frame.
type PairTrend struct {
	Trend    Label // Clap, Stretch or None
	Distance float64
	Samples  int
}

// MotionTracker keeps a bounded position history per hand and one inter-hand
// distance history. It is not safe for concurrent use.
type MotionTracker struct {
	hands map[string]*History
	pair  *History
}

// NewMotionTracker creates an empty tracker.
func NewMotionTracker() *MotionTracker {
	return &MotionTracker{
		hands: make(map[string]*History),
		pair:  NewHistory(PairHistoryCapacity),
	}
}

// Observe records the hand position and analyses the updated history.
func (t *MotionTracker) Observe(label string, x, y float64, ts int64) MotionSignature {
	h, ok := t.hands[label]
	if !ok {
		h = NewHistory(HandHistoryCapacity)
		t.hands[label] = h
	}
	h.Push(MotionSample{X: x, Y: y, Timestamp: ts})

	sig := analyze(h.Samples())
	if sig.Pattern.oneShot() || sig.VerticalSwipe != None {
		h.Clear()
	}
	return sig
}

// Forget drops the history of a hand that left the frame.
func (t *MotionTracker) Forget(label string) {
	delete(t.hands, label)
}

// HistoryLen returns the number of buffered samples for a hand.
func (t *MotionTracker) HistoryLen(label string) int {
	if h, ok := t.hands[label]; ok {
		return h.Len()
	}
	return 0
}

// ObservePair records the inter-wrist distance and reports a clap or stretch.
// The pair history is cleared when either fires.
func (t *MotionTracker) ObservePair(distance float64, ts int64) PairTrend {
	t.pair.Push(MotionSample{X: distance, Timestamp: ts})
	trend := PairTrend{Trend: None, Distance: distance, Samples: t.pair.Len()}
	if t.pair.Len() < MinPairSamples {
		return trend
	}

	minD, maxD := distance, distance
	for _, s := range t.pair.Samples() {
		minD = math.Min(minD, s.X)
		maxD = math.Max(maxD, s.X)
	}

	switch {
	case distance <= clapContraction*maxD:
		trend.Trend = Clap
	case minD > minPairDistance && distance >= stretchExpansion*minD:
		trend.Trend = Stretch
	}
	if trend.Trend != None {
		t.pair.Clear()
	}
	return trend
}

// ForgetPair drops the inter-hand history.
func (t *MotionTracker) ForgetPair() {
	t.pair.Clear()
}

func (l Label) oneShot() bool {
	switch l {
	case SwipeLeft, SwipeRight, SwipeUp, SwipeDown,
		CircleClockwise, CircleCounterClockwise, FigureEight:
		return true
	}
	return false
}

func analyze(samples []MotionSample) MotionSignature {
	sig := MotionSignature{Pattern: None, VerticalSwipe: None, Samples: len(samples)}
	if len(samples) < MinMotionSamples {
		return sig
	}

	first, last := samples[0], samples[len(samples)-1]
	dx, dy := last.X-first.X, last.Y-first.Y
	dt := float64(last.Timestamp-first.Timestamp) / 1000
	if dt > 0 {
		sig.Velocity = math.Hypot(dx, dy) / dt
	}
	sig.Direction = math.Atan2(dy, dx)
	sig.RangeX, sig.RangeY = ranges(samples)

	// An oscillating hand can also span a swipe's net displacement, so the
	// wave check runs first.
	if len(samples) >= MinWaveSamples && isWave(samples, sig.RangeX, sig.RangeY) {
		sig.Pattern = Wave
		return sig
	}

	switch swipe := detectSwipe(dx, dy, dt, sig.Velocity); swipe {
	case None:
	case SwipeUp, SwipeDown:
		sig.VerticalSwipe = swipe
		return sig
	default:
		sig.Pattern = swipe
		return sig
	}

	if len(samples) >= PatternWindow {
		window := samples[len(samples)-PatternWindow:]
		sig.Pattern, sig.Rotation = detectWindowPattern(window)
	}
	return sig
}

func detectSwipe(dx, dy, dt, speed float64) Label {
	if dt < swipeMinDuration || speed < swipeMinSpeed {
		return None
	}
	ax, ay := math.Abs(dx), math.Abs(dy)
	switch {
	case ax >= axisDominance*ay && ax >= swipeMinDistance:
		if dx > 0 {
			return SwipeRight
		}
		return SwipeLeft
	case ay >= axisDominance*ax && ay >= swipeMinDistance:
		if dy < 0 {
			return SwipeUp
		}
		return SwipeDown
	}
	return None
}

func ranges(samples []MotionSample) (float64, float64) {
	minX, maxX := samples[0].X, samples[0].X
	minY, maxY := samples[0].Y, samples[0].Y
	for _, s := range samples[1:] {
		minX, maxX = math.Min(minX, s.X), math.Max(maxX, s.X)
		minY, maxY = math.Min(minY, s.Y), math.Max(maxY, s.Y)
	}
	return maxX - minX, maxY - minY
}

// reversals counts sign changes in the step deltas, skipping zero steps.
func reversals(samples []MotionSample, coord func(MotionSample) float64) int {
	count, prev := 0, 0.0
	for i := 1; i < len(samples); i++ {
		d := coord(samples[i]) - coord(samples[i-1])
		if d == 0 {
			continue
		}
		if prev != 0 && (d > 0) != (prev > 0) {
			count++
		}
		prev = d
	}
	return count
}

func isWave(samples []MotionSample, rangeX, rangeY float64) bool {
	revX := reversals(samples, func(s MotionSample) float64 { return s.X })
	revY := reversals(samples, func(s MotionSample) float64 { return s.Y })

	axis := func(rev int, r, other float64) bool {
		return rev >= waveMinReversals && r > waveMinRange && r >= axisDominance*other
	}
	return axis(revX, rangeX, rangeY) || axis(revY, rangeY, rangeX)
}

// windowStats holds the per-window quantities shared by the circle,
// figure-eight and shake checks.
type windowStats struct {
	meanSpeed float64
	turns     []float64 // signed angle between consecutive steps
}

func computeWindowStats(w []MotionSample) windowStats {
	var speeds []float64
	var steps [][2]float64
	for i := 1; i < len(w); i++ {
		dx, dy := w[i].X-w[i-1].X, w[i].Y-w[i-1].Y
		if dt := float64(w[i].Timestamp-w[i-1].Timestamp) / 1000; dt > 0 {
			speeds = append(speeds, math.Hypot(dx, dy)/dt)
		}
		if math.Hypot(dx, dy) > minStepLength {
			steps = append(steps, [2]float64{dx, dy})
		}
	}

	ws := windowStats{}
	if mean, err := stats.Mean(speeds); err == nil {
		ws.meanSpeed = mean
	}
	for i := 1; i < len(steps); i++ {
		a, b := steps[i-1], steps[i]
		cross := a[0]*b[1] - a[1]*b[0]
		dot := a[0]*b[0] + a[1]*b[1]
		ws.turns = append(ws.turns, math.Atan2(cross, dot))
	}
	return ws
}

// centroidSpread returns the centroid of the points and the mean distance
// and coefficient of variation of the radii around it.
func centroidSpread(w []MotionSample) (cx, cy, meanRadius, cv float64) {
	for _, s := range w {
		cx += s.X
		cy += s.Y
	}
	cx /= float64(len(w))
	cy /= float64(len(w))

	radii := make([]float64, len(w))
	for i, s := range w {
		radii[i] = math.Hypot(s.X-cx, s.Y-cy)
	}
	meanRadius, _ = stats.Mean(radii)
	sd, _ := stats.StandardDeviation(radii)
	if meanRadius > 0 {
		cv = sd / meanRadius
	} else {
		cv = math.Inf(1)
	}
	return cx, cy, meanRadius, cv
}

func sum(xs []float64) float64 {
	s, _ := stats.Sum(xs)
	return s
}

func detectWindowPattern(w []MotionSample) (Label, Rotation) {
	ws := computeWindowStats(w)
	sweep := sum(ws.turns)

	rotation := RotationNone
	if len(ws.turns) > 0 {
		switch mean := sweep / float64(len(ws.turns)); {
		case mean > 0:
			rotation = Clockwise
		case mean < 0:
			rotation = CounterClockwise
		}
	}

	turns := 0
	for _, a := range ws.turns {
		if math.Abs(a) > shakeMinTurn {
			turns++
		}
	}
	if turns >= shakeMinTurns && ws.meanSpeed >= shakeMinSpeed {
		return Shake, rotation
	}

	_, _, radius, cv := centroidSpread(w)
	if cv < circleMaxCV && radius >= circleMinRadius && ws.meanSpeed >= circleMinSpeed &&
		math.Abs(sweep) >= circleMinSweep {
		if rotation == Clockwise {
			return CircleClockwise, rotation
		}
		return CircleCounterClockwise, rotation
	}

	if ws.meanSpeed >= circleMinSpeed && isFigureEight(w) {
		return FigureEight, rotation
	}
	return None, rotation
}

// isFigureEight splits the window in half and looks for two separate loops
// turning in opposite directions.
func isFigureEight(w []MotionSample) bool {
	half := len(w) / 2
	a, b := w[:half], w[half:]

	ax, ay, ar, _ := centroidSpread(a)
	bx, by, br, _ := centroidSpread(b)
	sep := math.Hypot(ax-bx, ay-by)
	if sep <= ar || sep <= br || ar < circleMinRadius || br < circleMinRadius {
		return false
	}

	sa := sum(computeWindowStats(a).turns)
	sb := sum(computeWindowStats(b).turns)
	return sa*sb < 0
}
