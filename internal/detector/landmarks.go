// Package detector provides landmark detection interfaces and types for gesture recognition.
package detector

import (
	"errors"
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Landmark counts for the other entity kinds. Face meshes come with or
// without the ten iris points.
const (
	NumFaceLandmarks       = 478
	NumFaceLandmarksNoIris = 468
	NumPoseLandmarks       = 33
	NumHandLandmarks       = NumLandmarks
)

// ErrLandmarkCount is returned when a sample does not carry the fixed number
// of points for its entity kind.
var ErrLandmarkCount = errors.New("unexpected landmark count")

// Kind identifies the tracked entity a sample belongs to.
type Kind string

const (
	KindHand Kind = "hand"
	KindFace Kind = "face"
	KindPose Kind = "pose"
)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance2D returns the Euclidean distance between a and b ignoring depth.
func Distance2D(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Sample is one entity's landmarks for a single frame.
type Sample struct {
	Kind      Kind      `json:"kind"`
	Label     string    `json:"label,omitempty"` // "left"/"right" for hands
	Points    []Point3D `json:"points"`
	Score     float64   `json:"score,omitempty"`
	Timestamp int64     `json:"timestamp"` // monotonic milliseconds
}

// Detection is everything the landmark model returned for one frame.
type Detection struct {
	Timestamp int64    `json:"timestamp"`
	Hands     []Sample `json:"hands"`
	Face      *Sample  `json:"face,omitempty"`
	Pose      *Sample  `json:"pose,omitempty"`
}

// Empty reports whether no entity was detected.
func (d Detection) Empty() bool {
	return len(d.Hands) == 0 && d.Face == nil && d.Pose == nil
}

// Validate checks that the sample carries the landmark count its kind requires.
func (s Sample) Validate() error {
	n := len(s.Points)
	switch s.Kind {
	case KindHand:
		if n != NumHandLandmarks {
			return fmt.Errorf("%w: hand has %d points, want %d", ErrLandmarkCount, n, NumHandLandmarks)
		}
	case KindFace:
		if n != NumFaceLandmarks && n != NumFaceLandmarksNoIris {
			return fmt.Errorf("%w: face has %d points, want %d or %d", ErrLandmarkCount, n, NumFaceLandmarksNoIris, NumFaceLandmarks)
		}
	case KindPose:
		if n != NumPoseLandmarks {
			return fmt.Errorf("%w: pose has %d points, want %d", ErrLandmarkCount, n, NumPoseLandmarks)
		}
	default:
		return fmt.Errorf("unknown entity kind %q", s.Kind)
	}
	return nil
}
