// Package pose estimates body orientation and posture from the 33-point
// body landmarks.
package pose

import (
	"fmt"
	"math"

	"github.com/ayusman/abhinaya/internal/detector"
)

const (
	nose          = 0
	leftShoulder  = 11
	rightShoulder = 12
	leftHip       = 23
	rightHip      = 24
	leftKnee      = 25
	rightKnee     = 26
)

const (
	sittingKneeGap = 0.1
	leaningPitch   = 20
	yawScale       = 30
)

// Posture is a coarse body posture.
type Posture string

const (
	Standing Posture = "standing"
	Sitting  Posture = "sitting"
	Leaning  Posture = "leaning"
	Unknown  Posture = "unknown"
)

// Orientation angles are in degrees except Yaw, which is a scaled
// shoulder-over-hip offset. Pitch is the torso's lean from vertical, zero
// when the shoulders sit straight above the hips.
type Orientation struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type KeyPoints struct {
	Nose          Point2D `json:"nose"`
	LeftShoulder  Point2D `json:"left_shoulder"`
	RightShoulder Point2D `json:"right_shoulder"`
	LeftHip       Point2D `json:"left_hip"`
	RightHip      Point2D `json:"right_hip"`
}

// Analysis is the per-frame body summary.
type Analysis struct {
	Detected      bool               `json:"detected"`
	Landmarks     []detector.Point3D `json:"landmarks"`
	LandmarkCount int                `json:"landmarks_count"`
	Posture       Posture            `json:"posture"`
	Orientation   Orientation        `json:"orientation"`
	KeyPoints     KeyPoints          `json:"key_points"`
	Timestamp     int64              `json:"timestamp"`
}

// Analyze classifies posture and body orientation.
func Analyze(s detector.Sample) (*Analysis, error) {
	if len(s.Points) != detector.NumPoseLandmarks {
		return nil, fmt.Errorf("%w: pose has %d points", detector.ErrLandmarkCount, len(s.Points))
	}
	p := s.Points
	ls, rs := p[leftShoulder], p[rightShoulder]
	lh, rh := p[leftHip], p[rightHip]

	shX, shY := (ls.X+rs.X)/2, (ls.Y+rs.Y)/2
	hipX, hipY := (lh.X+rh.X)/2, (lh.Y+rh.Y)/2
	kneeY := (p[leftKnee].Y + p[rightKnee].Y) / 2

	o := Orientation{
		Pitch: degrees(math.Atan2(math.Abs(shX-hipX), hipY-shY)),
		Yaw:   (shX - hipX) * yawScale,
		Roll:  degrees(math.Atan2(rs.Y-ls.Y, rs.X-ls.X)),
	}

	return &Analysis{
		Detected:      true,
		Landmarks:     append([]detector.Point3D(nil), p...),
		LandmarkCount: len(p),
		Posture:       classify(hipY, kneeY, o.Pitch),
		Orientation:   o,
		KeyPoints: KeyPoints{
			Nose:          flat(p[nose]),
			LeftShoulder:  flat(ls),
			RightShoulder: flat(rs),
			LeftHip:       flat(lh),
			RightHip:      flat(rh),
		},
		Timestamp: s.Timestamp,
	}, nil
}

func classify(hipY, kneeY, pitch float64) Posture {
	switch {
	case math.Abs(kneeY-hipY) < sittingKneeGap:
		return Sitting
	case math.Abs(pitch) > leaningPitch:
		return Leaning
	case hipY < kneeY:
		return Standing
	default:
		return Unknown
	}
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func flat(p detector.Point3D) Point2D { return Point2D{X: p.X, Y: p.Y} }
