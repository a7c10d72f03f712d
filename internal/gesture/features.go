package gesture

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"

	"github.com/ayusman/abhinaya/internal/detector"
)

// Pose thresholds.
const (
	PinchThreshold = 0.05
	OKThreshold    = 0.06
	thumbLateral   = 0.5
)

// FingerStates records which fingers are extended.
type FingerStates struct {
	Thumb  bool `json:"thumb"`
	Index  bool `json:"index"`
	Middle bool `json:"middle"`
	Ring   bool `json:"ring"`
	Pinky  bool `json:"pinky"`
}

func (f FingerStates) slice() []bool {
	return []bool{f.Thumb, f.Index, f.Middle, f.Ring, f.Pinky}
}

// Count returns the number of extended fingers.
func (f FingerStates) Count() int {
	return lo.Count(f.slice(), true)
}

// Only reports whether exactly the given fingers are extended, in thumb to
// pinky order.
func (f FingerStates) Only(thumb, index, middle, ring, pinky bool) bool {
	return f == FingerStates{Thumb: thumb, Index: index, Middle: middle, Ring: ring, Pinky: pinky}
}

// Orientation is the hand's rotation in degrees plus the unit palm normal.
type Orientation struct {
	Yaw        float64   `json:"yaw"`
	Pitch      float64   `json:"pitch"`
	Roll       float64   `json:"roll"`
	PalmNormal r3.Vector `json:"palm_normal"`
}

// Features is everything the resolver needs from one hand sample.
type Features struct {
	Fingers             FingerStates
	ThumbIndexDistance  float64
	IndexMiddleDistance float64
	Orientation         Orientation
	Wrist               detector.Point3D
	ThumbTip            detector.Point3D
	IndexTip            detector.Point3D
}

// ExtendedCount returns the number of extended fingers.
func (f Features) ExtendedCount() int { return f.Fingers.Count() }

// ExtractFeatures derives finger states, key distances and orientation from a
// 21-point hand sample.
func ExtractFeatures(s detector.Sample) (Features, error) {
	if len(s.Points) != detector.NumHandLandmarks {
		return Features{}, fmt.Errorf("%w: hand has %d points, want %d",
			detector.ErrLandmarkCount, len(s.Points), detector.NumHandLandmarks)
	}
	p := s.Points

	return Features{
		Fingers:             fingerStates(p),
		ThumbIndexDistance:  detector.Distance2D(p[detector.ThumbTip], p[detector.IndexTip]),
		IndexMiddleDistance: detector.Distance2D(p[detector.IndexTip], p[detector.MiddleTip]),
		Orientation:         orientation(p),
		Wrist:               p[detector.Wrist],
		ThumbTip:            p[detector.ThumbTip],
		IndexTip:            p[detector.IndexTip],
	}, nil
}

func fingerStates(p []detector.Point3D) FingerStates {
	up := func(tip, pip int) bool { return p[tip].Y < p[pip].Y }

	thumbReach := math.Abs(p[detector.ThumbTip].X - p[detector.ThumbMCP].X)
	thumbJoint := math.Abs(p[detector.ThumbIP].X - p[detector.ThumbMCP].X)

	return FingerStates{
		Thumb:  thumbReach > thumbLateral*thumbJoint,
		Index:  up(detector.IndexTip, detector.IndexPIP),
		Middle: up(detector.MiddleTip, detector.MiddlePIP),
		Ring:   up(detector.RingTip, detector.RingPIP),
		Pinky:  up(detector.PinkyTip, detector.PinkyPIP),
	}
}

func vec(from, to detector.Point3D) r3.Vector {
	return r3.Vector{X: to.X - from.X, Y: to.Y - from.Y, Z: to.Z - from.Z}
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// orientation treats wrist->middle MCP as the hand axis. Yaw 0 means fingers
// up in the image, positive yaw leans to the right.
func orientation(p []detector.Point3D) Orientation {
	v1 := vec(p[detector.Wrist], p[detector.MiddleMCP])
	v2 := vec(p[detector.IndexMCP], p[detector.PinkyMCP])
	v3 := vec(p[detector.Wrist], p[detector.IndexMCP])

	normal := v3.Cross(v2)
	if normal.Norm() > 0 {
		normal = normal.Normalize()
	}

	return Orientation{
		Yaw:        degrees(math.Atan2(v1.X, -v1.Y)),
		Pitch:      degrees(math.Atan2(-v1.Z, math.Hypot(v1.X, v1.Y))),
		Roll:       degrees(math.Atan2(v2.Y, v2.X)),
		PalmNormal: normal,
	}
}

// InferHandedness labels a hand "right" when the thumb tip sits left of the
// wrist in image coordinates. This assumes a mirrored selfie camera.
func InferHandedness(s detector.Sample) string {
	if len(s.Points) != detector.NumHandLandmarks {
		return EntityRight
	}
	if s.Points[detector.ThumbTip].X < s.Points[detector.Wrist].X {
		return EntityRight
	}
	return EntityLeft
}
