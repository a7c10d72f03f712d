// Package gesture turns per-frame landmark samples into discrete gesture classifications.
package gesture

import "github.com/ayusman/abhinaya/internal/detector"

// Label names a recognized gesture.
type Label string

// Motion patterns.
const (
	None                   Label = "none"
	SwipeLeft              Label = "swipe_left"
	SwipeRight             Label = "swipe_right"
	SwipeUp                Label = "swipe_up"
	SwipeDown              Label = "swipe_down"
	Wave                   Label = "wave"
	CircleClockwise        Label = "circle_clockwise"
	CircleCounterClockwise Label = "circle_counterclockwise"
	FigureEight            Label = "figure_eight"
	Shake                  Label = "shake"
)

// Poses and derived gestures.
const (
	Pinch      Label = "pinch"
	OK         Label = "ok"
	Peace      Label = "peace"
	DoubleTap  Label = "double_tap"
	ZoomIn     Label = "zoom_in"
	ZoomOut    Label = "zoom_out"
	Grab       Label = "grab"
	Release    Label = "release"
	PointUp    Label = "point_up"
	PointDown  Label = "point_down"
	PointLeft  Label = "point_left"
	PointRight Label = "point_right"
	Fist       Label = "fist"
	OpenPalm   Label = "open_palm"
	ThumbsUp   Label = "thumbs_up"
	ThumbsDown Label = "thumbs_down"
	Three      Label = "three"
	Four       Label = "four"
	Rock       Label = "rock"
	Spiderman  Label = "spiderman"
	Gun        Label = "gun"
	Unknown    Label = "unknown"
)

// Two-hand interactions.
const (
	Clap    Label = "clap"
	Stretch Label = "stretch"
)

// Labels lists every gesture the resolver can report, excluding None and Unknown.
func Labels() []Label {
	return []Label{
		SwipeLeft, SwipeRight, SwipeUp, SwipeDown, Wave,
		CircleClockwise, CircleCounterClockwise, FigureEight, Shake,
		Pinch, OK, Peace, DoubleTap, ZoomIn, ZoomOut, Grab, Release,
		PointUp, PointDown, PointLeft, PointRight,
		Fist, OpenPalm, ThumbsUp, ThumbsDown, Three, Four, Rock, Spiderman, Gun,
		Clap, Stretch,
	}
}

// UnknownConfidence is reported when no rule matches.
const UnknownConfidence = 0.5

// Entity keys for classifications that are not tied to a single hand.
const (
	EntityLeft  = "left"
	EntityRight = "right"
	EntityBoth  = "both"
)

// Classification is the resolver's decision for one entity in one frame.
// Position uses the gesture convention: x and y in [-1, 1] with y pointing up.
type Classification struct {
	Type       Label
	Confidence float64
	Position   detector.Point3D
	Timestamp  int64
	Entity     string
	Fingers    FingerStates
	Features   *Features
	HoldFrames int
	HoldSince  int64
}

// Record is the JSON shape pushed to downstream consumers.
type Record struct {
	Type            Label            `json:"type"`
	Entity          string           `json:"hand,omitempty"`
	Position        detector.Point3D `json:"position"`
	Confidence      float64          `json:"confidence"`
	Timestamp       int64            `json:"timestamp"`
	Fingers         *FingerStates    `json:"fingers,omitempty"`
	ExtendedCount   int              `json:"extended_count"`
	PinchDistance   float64          `json:"pinch_distance,omitempty"`
	Orientation     *Orientation     `json:"orientation,omitempty"`
	HoldFrames      int              `json:"hold_frames,omitempty"`
	IsPinching      *bool            `json:"isPinching,omitempty"`
	Source          string           `json:"source,omitempty"`
	CoordinateSpace string           `json:"coordinate_space,omitempty"`
}

// Record converts the classification to its wire form.
func (c Classification) Record() Record {
	r := Record{
		Type:       c.Type,
		Entity:     c.Entity,
		Position:   c.Position,
		Confidence: c.Confidence,
		Timestamp:  c.Timestamp,
		HoldFrames: c.HoldFrames,
	}
	if c.Features != nil {
		fingers := c.Features.Fingers
		orientation := c.Features.Orientation
		r.Fingers = &fingers
		r.ExtendedCount = c.Features.ExtendedCount()
		r.PinchDistance = c.Features.ThumbIndexDistance
		r.Orientation = &orientation
	}
	return r
}

// toGesturePosition maps a camera-normalized point into the gesture convention.
func toGesturePosition(p detector.Point3D) detector.Point3D {
	return detector.Point3D{X: p.X*2 - 1, Y: 1 - p.Y*2, Z: p.Z}
}
