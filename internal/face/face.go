// Package face derives head pose, eye state, gaze, mouth and engagement
// measures from a face mesh.
package face

import (
	"fmt"
	"math"

	"github.com/ayusman/abhinaya/internal/detector"
)

// Face mesh indices.
const (
	noseTip        = 4
	mouthCenter    = 13
	mouthBottom    = 14
	leftEyeOuter   = 33
	leftEyeInner   = 133
	leftEyeTop     = 159
	leftEyeBottom  = 145
	rightEyeOuter  = 263
	rightEyeInner  = 362
	rightEyeTop    = 386
	rightEyeBottom = 374
	mouthLeft      = 61
	mouthRight     = 291
	leftIris       = 468
	rightIris      = 473
)

// Thresholds on normalized image distances.
const (
	eyeOpenHeight   = 0.01
	mouthOpenHeight = 0.015
	smileThreshold  = 0.1
	engagedScore    = 0.6
	turnScale       = 30
	maxTilt         = 45
)

// Point2D is a normalized image point.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func flat(p detector.Point3D) Point2D { return Point2D{X: p.X, Y: p.Y} }

// BoundingBox encloses every mesh point.
type BoundingBox struct {
	XMin   float64 `json:"x_min"`
	YMin   float64 `json:"y_min"`
	XMax   float64 `json:"x_max"`
	YMax   float64 `json:"y_max"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// KeyPoints are the landmarks reported alongside the analysis.
type KeyPoints struct {
	LeftEye     Point2D `json:"left_eye"`
	RightEye    Point2D `json:"right_eye"`
	NoseTip     Point2D `json:"nose_tip"`
	MouthCenter Point2D `json:"mouth_center"`
}

// HeadPose holds the tilt in degrees and a turn estimate where ±30 is a
// strong turn.
type HeadPose struct {
	Tilt float64 `json:"tilt"`
	Turn float64 `json:"turn"`
}

// Mouth describes mouth openness and smile.
type Mouth struct {
	Open      bool    `json:"mouth_open"`
	OpenRatio float64 `json:"mouth_open_ratio"`
	Smile     float64 `json:"smile_score"`
	Smiling   bool    `json:"is_smiling"`
	Width     float64 `json:"mouth_width"`
}

// Engagement combines head straightness and eye state.
type Engagement struct {
	Score            float64 `json:"score"`
	HeadStraightness float64 `json:"head_straightness"`
	EyeEngagement    float64 `json:"eye_engagement"`
	Engaged          bool    `json:"is_engaged"`
}

// Eye is the state of one eye.
type Eye struct {
	Gaze   detector.Point3D `json:"gaze_direction"`
	Iris   Point2D          `json:"iris_position"`
	Open   bool             `json:"is_open"`
	Height float64          `json:"eye_height"`
}

// Eyes groups both eyes with the combined gaze.
type Eyes struct {
	Left      Eye              `json:"left_eye"`
	Right     Eye              `json:"right_eye"`
	Combined  detector.Point3D `json:"combined_gaze"`
	Attention float64          `json:"attention_score"`
}

// Analysis is the per-frame face summary.
type Analysis struct {
	LandmarkCount int         `json:"landmarks_count"`
	Box           BoundingBox `json:"bounding_box"`
	KeyPoints     KeyPoints   `json:"key_points"`
	HeadPose      HeadPose    `json:"head_pose"`
	Mouth         Mouth       `json:"mouth_features"`
	Engagement    Engagement  `json:"engagement"`
	Eyes          Eyes        `json:"eyes"`
	Timestamp     int64       `json:"timestamp"`
}

// Analyze summarizes a face mesh of 468 or 478 points. Without the iris
// points the gaze falls back to the eye corners.
func Analyze(s detector.Sample) (*Analysis, error) {
	n := len(s.Points)
	if n != detector.NumFaceLandmarks && n != detector.NumFaceLandmarksNoIris {
		return nil, fmt.Errorf("%w: face has %d points", detector.ErrLandmarkCount, n)
	}
	p := s.Points

	a := &Analysis{
		LandmarkCount: n,
		Box:           boundingBox(p),
		KeyPoints: KeyPoints{
			LeftEye:     flat(p[leftEyeOuter]),
			RightEye:    flat(p[rightEyeOuter]),
			NoseTip:     flat(p[noseTip]),
			MouthCenter: flat(p[mouthCenter]),
		},
		Timestamp: s.Timestamp,
	}

	le, re := p[leftEyeOuter], p[rightEyeOuter]
	a.HeadPose = HeadPose{
		Tilt: math.Atan2(re.Y-le.Y, re.X-le.X) * 180 / math.Pi,
		Turn: (p[noseTip].X - (le.X+re.X)/2) * turnScale,
	}

	li, ri := le, re
	if n > rightIris {
		li, ri = p[leftIris], p[rightIris]
	}
	a.Eyes.Left = eye(p, leftEyeOuter, leftEyeInner, leftEyeTop, leftEyeBottom, li)
	a.Eyes.Right = eye(p, rightEyeInner, rightEyeOuter, rightEyeTop, rightEyeBottom, ri)
	convergence := math.Abs(a.Eyes.Left.Gaze.X - a.Eyes.Right.Gaze.X)
	a.Eyes.Combined = detector.Point3D{
		X: (a.Eyes.Left.Gaze.X + a.Eyes.Right.Gaze.X) / 2,
		Y: (a.Eyes.Left.Gaze.Y + a.Eyes.Right.Gaze.Y) / 2,
		Z: 1 - math.Min(1, convergence*2),
	}

	a.Mouth = mouth(p)

	straight := 1 - math.Abs(a.HeadPose.Tilt)/maxTilt - math.Abs(a.HeadPose.Turn)/turnScale
	straight = math.Max(0, math.Min(1, straight))
	bothOpen := a.Eyes.Left.Open && a.Eyes.Right.Open
	eyes := 0.5
	if bothOpen {
		eyes = 1
	}
	score := straight*0.6 + eyes*0.4
	a.Engagement = Engagement{
		Score:            score,
		HeadStraightness: straight,
		EyeEngagement:    eyes,
		Engaged:          score > engagedScore,
	}

	a.Eyes.Attention = score * 0.7
	if bothOpen {
		a.Eyes.Attention = score
	}
	return a, nil
}

func boundingBox(p []detector.Point3D) BoundingBox {
	b := BoundingBox{XMin: p[0].X, XMax: p[0].X, YMin: p[0].Y, YMax: p[0].Y}
	for _, pt := range p[1:] {
		b.XMin = math.Min(b.XMin, pt.X)
		b.XMax = math.Max(b.XMax, pt.X)
		b.YMin = math.Min(b.YMin, pt.Y)
		b.YMax = math.Max(b.YMax, pt.Y)
	}
	b.Width = b.XMax - b.XMin
	b.Height = b.YMax - b.YMin
	return b
}

// eye measures one eye given its left and right corners in image order.
func eye(p []detector.Point3D, left, right, top, bottom int, iris detector.Point3D) Eye {
	height := math.Abs(p[top].Y - p[bottom].Y)
	cx := (p[left].X + p[right].X) / 2
	cy := (p[top].Y + p[bottom].Y) / 2
	return Eye{
		Gaze:   detector.Point3D{X: (iris.X - cx) * 2, Y: (iris.Y - cy) * 2},
		Iris:   flat(iris),
		Open:   height > eyeOpenHeight,
		Height: height,
	}
}

func mouth(p []detector.Point3D) Mouth {
	l, r := p[mouthLeft], p[mouthRight]
	height := math.Abs(p[mouthCenter].Y - p[mouthBottom].Y)
	width := math.Abs(r.X - l.X)

	m := Mouth{Open: height > mouthOpenHeight, Width: width}
	if width > 0 {
		m.OpenRatio = height / width
	}
	m.Smile = math.Max(0, (p[mouthCenter].Y-(l.Y+r.Y)/2)*10)
	m.Smiling = m.Smile > smileThreshold
	return m
}
