package gesture

// Rule confidences. These are fixed per rule rather than estimated.
const (
	confMotion = 0.85
	confHigh   = 0.9
	confShape  = 0.85
	confDelta  = 0.8
)

// Frame is the per-frame context a Rule matches against.
type Frame struct {
	Features  Features
	Motion    MotionSignature
	Timestamp int64

	// Derived by the resolver from the hand's previous frames.
	DoubleTap   bool
	Zoom        Label // ZoomIn, ZoomOut or None
	FingerDelta int   // extended count now minus previous frame
}

// Rule assigns Label when Match reports true.
type Rule struct {
	Label      Label
	Confidence float64
	Match      func(*Frame) bool
}

// Tier is an ordered group of rules; the first match wins.
type Tier []Rule

// DefaultTiers returns the motion, high, medium and low priority tiers in
// evaluation order.
func DefaultTiers() []Tier {
	return []Tier{motionTier(), highTier(), mediumTier(), lowTier()}
}

func motionTier() Tier {
	labels := []Label{
		SwipeLeft, SwipeRight, Wave,
		CircleClockwise, CircleCounterClockwise, FigureEight, Shake,
	}
	tier := make(Tier, 0, len(labels))
	for _, l := range labels {
		l := l
		tier = append(tier, Rule{l, confMotion, func(f *Frame) bool { return f.Motion.Pattern == l }})
	}
	return tier
}

func highTier() Tier {
	return Tier{
		{DoubleTap, confHigh, func(f *Frame) bool { return f.DoubleTap }},
		{Pinch, confHigh, func(f *Frame) bool { return f.Features.ThumbIndexDistance < PinchThreshold }},
		{OK, confShape, func(f *Frame) bool {
			fs := f.Features.Fingers
			return f.Features.ThumbIndexDistance < OKThreshold && fs.Middle && fs.Ring && fs.Pinky
		}},
		{Peace, confShape, func(f *Frame) bool {
			fs := f.Features.Fingers
			return fs.Index && fs.Middle && !fs.Ring && !fs.Pinky
		}},
	}
}

func mediumTier() Tier {
	return Tier{
		{ZoomIn, confShape, func(f *Frame) bool { return f.Zoom == ZoomIn }},
		{ZoomOut, confShape, func(f *Frame) bool { return f.Zoom == ZoomOut }},
		{Grab, confDelta, func(f *Frame) bool { return f.FingerDelta < -1 }},
		{Release, confDelta, func(f *Frame) bool { return f.FingerDelta > 1 }},
		{PointUp, confShape, pointing(PointUp)},
		{PointRight, confShape, pointing(PointRight)},
		{PointDown, confShape, pointing(PointDown)},
		{PointLeft, confShape, pointing(PointLeft)},
		{SwipeUp, confShape, func(f *Frame) bool { return f.Motion.VerticalSwipe == SwipeUp }},
		{SwipeDown, confShape, func(f *Frame) bool { return f.Motion.VerticalSwipe == SwipeDown }},
	}
}

func lowTier() Tier {
	only := func(thumb, index, middle, ring, pinky bool) func(*Frame) bool {
		return func(f *Frame) bool { return f.Features.Fingers.Only(thumb, index, middle, ring, pinky) }
	}
	thumbOnly := only(true, false, false, false, false)

	return Tier{
		{Fist, confHigh, only(false, false, false, false, false)},
		{OpenPalm, confHigh, only(true, true, true, true, true)},
		{ThumbsUp, confShape, func(f *Frame) bool {
			return thumbOnly(f) && f.Features.ThumbTip.Y < f.Features.Wrist.Y
		}},
		{ThumbsDown, confShape, func(f *Frame) bool {
			return thumbOnly(f) && f.Features.ThumbTip.Y > f.Features.Wrist.Y
		}},
		{Spiderman, confShape, only(true, true, false, false, true)},
		{Rock, confShape, only(false, true, false, false, true)},
		{Gun, confShape, only(true, true, false, false, false)},
		{Four, confDelta, func(f *Frame) bool { return f.Features.ExtendedCount() == 4 }},
		{Three, confDelta, func(f *Frame) bool { return f.Features.ExtendedCount() == 3 }},
	}
}

// pointing matches an index-only hand whose yaw falls in the label's quadrant.
func pointing(want Label) func(*Frame) bool {
	return func(f *Frame) bool {
		if !f.Features.Fingers.Only(false, true, false, false, false) {
			return false
		}
		return yawQuadrant(f.Features.Orientation.Yaw) == want
	}
}

func yawQuadrant(yaw float64) Label {
	switch {
	case yaw >= -45 && yaw < 45:
		return PointUp
	case yaw >= 45 && yaw < 135:
		return PointRight
	case yaw >= -135 && yaw < -45:
		return PointLeft
	default:
		return PointDown
	}
}
