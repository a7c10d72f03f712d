package gesture

import "github.com/ayusman/abhinaya/internal/detector"

// Stateful gesture windows.
const (
	DoubleTapMinGap    = 200 // ms
	DoubleTapMaxGap    = 800 // ms
	ZoomRatio          = 0.2
	PinchReleaseThresh = 0.12
)

type handState struct {
	pinchCandidate int64
	hasCandidate   bool

	pinching      bool
	prevPinchDist float64
	prevCount     int
	seen          bool

	last       Label
	holdFrames int
	holdSince  int64
}

// Resolver applies the tiers to one hand per call and keeps the cross-frame
// state that derived gestures need. It is not safe for concurrent use.
type Resolver struct {
	tiers []Tier
	hands map[string]*handState
}

// NewResolver returns a Resolver using DefaultTiers.
func NewResolver() *Resolver {
	return NewResolverWithTiers(DefaultTiers())
}

// NewResolverWithTiers returns a Resolver evaluating the given tiers in order.
func NewResolverWithTiers(tiers []Tier) *Resolver {
	return &Resolver{tiers: tiers, hands: make(map[string]*handState)}
}

// Resolve classifies one hand for the frame at ts.
func (r *Resolver) Resolve(entity string, feat Features, sig MotionSignature, ts int64) Classification {
	st, ok := r.hands[entity]
	if !ok {
		st = &handState{}
		r.hands[entity] = st
	}

	frame := Frame{Features: feat, Motion: sig, Timestamp: ts, Zoom: None}
	r.prepare(st, &frame)

	label, conf := Unknown, UnknownConfidence
	if rule, ok := r.match(&frame); ok {
		label, conf = rule.Label, rule.Confidence
	}

	features := feat
	c := Classification{
		Type:       label,
		Confidence: conf,
		Position:   toGesturePosition(feat.Wrist),
		Timestamp:  ts,
		Entity:     entity,
		Fingers:    feat.Fingers,
		Features:   &features,
	}
	r.hold(st, &c)
	return c
}

func (r *Resolver) match(f *Frame) (Rule, bool) {
	for _, tier := range r.tiers {
		for _, rule := range tier {
			if rule.Match(f) {
				return rule, true
			}
		}
	}
	return Rule{}, false
}

// prepare fills the derived fields of f and advances the hand's state.
func (r *Resolver) prepare(st *handState, f *Frame) {
	dist := f.Features.ThumbIndexDistance
	count := f.Features.ExtendedCount()

	if dist < PinchThreshold {
		gap := f.Timestamp - st.pinchCandidate
		if st.hasCandidate && gap >= DoubleTapMinGap && gap < DoubleTapMaxGap {
			f.DoubleTap = true
			st.hasCandidate = false
		} else {
			st.pinchCandidate = f.Timestamp
			st.hasCandidate = true
		}
	}

	switch {
	case dist < PinchThreshold:
		st.pinching = true
	case dist > PinchReleaseThresh:
		st.pinching = false
	}

	if st.seen {
		if st.pinching && st.prevPinchDist > 0 {
			change := (dist - st.prevPinchDist) / st.prevPinchDist
			switch {
			case change >= ZoomRatio:
				f.Zoom = ZoomIn
			case change <= -ZoomRatio:
				f.Zoom = ZoomOut
			}
		}
		f.FingerDelta = count - st.prevCount
	}

	st.prevPinchDist = dist
	st.prevCount = count
	st.seen = true
}

func (r *Resolver) hold(st *handState, c *Classification) {
	if st.holdFrames > 0 && st.last == c.Type {
		st.holdFrames++
	} else {
		st.last = c.Type
		st.holdFrames = 1
		st.holdSince = c.Timestamp
	}
	c.HoldFrames = st.holdFrames
	c.HoldSince = st.holdSince
}

// ResolvePair turns a two-hand distance trend into a clap or stretch placed
// at the midpoint of the wrists.
func (r *Resolver) ResolvePair(trend PairTrend, left, right Features, ts int64) (Classification, bool) {
	if trend.Trend != Clap && trend.Trend != Stretch {
		return Classification{}, false
	}
	mid := detector.Point3D{
		X: (left.Wrist.X + right.Wrist.X) / 2,
		Y: (left.Wrist.Y + right.Wrist.Y) / 2,
		Z: (left.Wrist.Z + right.Wrist.Z) / 2,
	}

	return Classification{
		Type:       trend.Trend,
		Confidence: confShape,
		Position:   toGesturePosition(mid),
		Timestamp:  ts,
		Entity:     EntityBoth,
	}, true
}

// Reset drops all state kept for the entity.
func (r *Resolver) Reset(entity string) {
	delete(r.hands, entity)
}

// Unclassified is the result for a frame whose sample could not be analysed.
func Unclassified(entity string, ts int64) Classification {
	return Classification{
		Type:       Unknown,
		Confidence: UnknownConfidence,
		Timestamp:  ts,
		Entity:     entity,
	}
}
