package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu        sync.Mutex
	detection Detection
	err       error
	calls     int
	stamps    []int64
	block     <-chan struct{}
	closed    bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detection.Hands = hands
}

// SetDetection replaces the whole detection returned by Detect.
func (m *MockDetector) SetDetection(d Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detection = d
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetBlock makes Detect wait until ch is closed before returning.
func (m *MockDetector) SetBlock(ch <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block = ch
}

// Timestamps returns the timestamps Detect has been called with.
func (m *MockDetector) Timestamps() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.stamps...)
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured detection stamped with timestampMs.
func (m *MockDetector) Detect(frame *gocv.Mat, timestampMs int64) (Detection, error) {
	m.mu.Lock()
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.stamps = append(m.stamps, timestampMs)
	if m.err != nil {
		return Detection{}, m.err
	}

	d := m.detection
	d.Timestamp = timestampMs
	d.Hands = make([]Sample, len(m.detection.Hands))
	for i, h := range m.detection.Hands {
		h.Timestamp = timestampMs
		d.Hands[i] = h
	}
	return d, nil
}

// Close records that the detector was released.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Fixture geometry: a right hand seen palm-on with the wrist at (0.5, 0.8).
// Y grows downward, so extended fingers have tips with smaller Y than their PIP.
var fixtureMCP = map[int]Point3D{
	IndexMCP:  {X: 0.55, Y: 0.68},
	MiddleMCP: {X: 0.50, Y: 0.66},
	RingMCP:   {X: 0.45, Y: 0.68},
	PinkyMCP:  {X: 0.40, Y: 0.70},
}

// HandWithFingers builds a 21-point hand sample with the given fingers
// extended and the rest curled.
func HandWithFingers(thumb, index, middle, ring, pinky bool) Sample {
	points := make([]Point3D, NumLandmarks)
	points[Wrist] = Point3D{X: 0.5, Y: 0.8}
	points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75}

	if thumb {
		points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70}
		points[ThumbIP] = Point3D{X: 0.68, Y: 0.65}
		points[ThumbTip] = Point3D{X: 0.73, Y: 0.60}
	} else {
		points[ThumbMCP] = Point3D{X: 0.56, Y: 0.72}
		points[ThumbIP] = Point3D{X: 0.53, Y: 0.70}
		points[ThumbTip] = Point3D{X: 0.57, Y: 0.68}
	}

	fingers := []struct {
		mcp      int
		extended bool
	}{
		{IndexMCP, index},
		{MiddleMCP, middle},
		{RingMCP, ring},
		{PinkyMCP, pinky},
	}
	for _, f := range fingers {
		mcp := fixtureMCP[f.mcp]
		points[f.mcp] = mcp
		if f.extended {
			points[f.mcp+1] = Point3D{X: mcp.X, Y: mcp.Y - 0.13}
			points[f.mcp+2] = Point3D{X: mcp.X, Y: mcp.Y - 0.23}
			points[f.mcp+3] = Point3D{X: mcp.X, Y: mcp.Y - 0.33}
		} else {
			points[f.mcp+1] = Point3D{X: mcp.X, Y: mcp.Y - 0.02}
			points[f.mcp+2] = Point3D{X: mcp.X - 0.03, Y: mcp.Y}
			points[f.mcp+3] = Point3D{X: mcp.X - 0.05, Y: mcp.Y + 0.02}
		}
	}

	return Sample{Kind: KindHand, Points: points, Score: 0.95}
}

// ThumbsUpLandmarks returns a preset hand with the thumb pointing up and the
// other fingers curled.
func ThumbsUpLandmarks() Sample {
	s := HandWithFingers(false, false, false, false, false)
	s.Points[ThumbMCP] = Point3D{X: 0.56, Y: 0.65}
	s.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50}
	s.Points[ThumbTip] = Point3D{X: 0.61, Y: 0.35}
	return s
}

// ThumbsDownLandmarks returns a preset hand with the thumb pointing below the wrist.
func ThumbsDownLandmarks() Sample {
	s := HandWithFingers(false, false, false, false, false)
	s.Points[ThumbMCP] = Point3D{X: 0.56, Y: 0.85}
	s.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.95}
	s.Points[ThumbTip] = Point3D{X: 0.61, Y: 1.05}
	return s
}

// OpenPalmLandmarks returns a preset hand with all five fingers extended.
func OpenPalmLandmarks() Sample {
	return HandWithFingers(true, true, true, true, true)
}

// FistLandmarks returns a preset hand with every finger curled.
func FistLandmarks() Sample {
	return HandWithFingers(false, false, false, false, false)
}

// PeaceLandmarks returns a preset hand with index and middle extended.
func PeaceLandmarks() Sample {
	return HandWithFingers(false, true, true, false, false)
}

// PointUpLandmarks returns a preset hand with only the index finger extended.
func PointUpLandmarks() Sample {
	return HandWithFingers(false, true, false, false, false)
}

// PinchLandmarks returns an open hand whose thumb tip sits distance to the
// right of the index tip.
func PinchLandmarks(distance float64) Sample {
	s := HandWithFingers(true, true, true, true, true)
	tip := s.Points[IndexTip]
	s.Points[ThumbTip] = Point3D{X: tip.X + distance, Y: tip.Y}
	return s
}

// Translate returns a copy of s with every point shifted by (dx, dy).
func Translate(s Sample, dx, dy float64) Sample {
	out := s
	out.Points = make([]Point3D, len(s.Points))
	for i, p := range s.Points {
		out.Points[i] = Point3D{X: p.X + dx, Y: p.Y + dy, Z: p.Z}
	}
	return out
}
