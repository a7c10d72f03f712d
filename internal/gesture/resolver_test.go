package gesture

import (
	"math"
	"testing"

	"github.com/ayusman/abhinaya/internal/detector"
)

var still = MotionSignature{Pattern: None, VerticalSwipe: None}

func resolveSample(t *testing.T, r *Resolver, s detector.Sample, ts int64) Classification {
	t.Helper()
	f, err := ExtractFeatures(s)
	if err != nil {
		t.Fatalf("ExtractFeatures() error = %v", err)
	}
	return r.Resolve(EntityRight, f, still, ts)
}

func withMiddleMCP(s detector.Sample, x, y float64) detector.Sample {
	s.Points[detector.MiddleMCP] = detector.Point3D{X: x, Y: y}
	return s
}

func TestResolver_StaticShapes(t *testing.T) {
	tests := []struct {
		name     string
		sample   detector.Sample
		wantType Label
		wantConf float64
	}{
		{"pinch", detector.PinchLandmarks(0.03), Pinch, 0.9},
		{"ok", detector.PinchLandmarks(0.055), OK, 0.85},
		{"peace", detector.PeaceLandmarks(), Peace, 0.85},
		{"point up", detector.PointUpLandmarks(), PointUp, 0.85},
		{"point right", withMiddleMCP(detector.PointUpLandmarks(), 0.64, 0.8), PointRight, 0.85},
		{"point left", withMiddleMCP(detector.PointUpLandmarks(), 0.36, 0.8), PointLeft, 0.85},
		{"point down", withMiddleMCP(detector.PointUpLandmarks(), 0.5, 0.94), PointDown, 0.85},
		{"fist", detector.FistLandmarks(), Fist, 0.9},
		{"open palm", detector.OpenPalmLandmarks(), OpenPalm, 0.9},
		{"thumbs up", detector.ThumbsUpLandmarks(), ThumbsUp, 0.85},
		{"thumbs down", detector.ThumbsDownLandmarks(), ThumbsDown, 0.85},
		{"spiderman", detector.HandWithFingers(true, true, false, false, true), Spiderman, 0.85},
		{"rock", detector.HandWithFingers(false, true, false, false, true), Rock, 0.85},
		{"gun", detector.HandWithFingers(true, true, false, false, false), Gun, 0.85},
		{"four", detector.HandWithFingers(false, true, true, true, true), Four, 0.8},
		{"three", detector.HandWithFingers(false, true, true, true, false), Three, 0.8},
		{"unmatched shape", detector.HandWithFingers(true, false, true, false, false), Unknown, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := resolveSample(t, NewResolver(), tt.sample, 0)
			if c.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", c.Type, tt.wantType)
			}
			if c.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", c.Confidence, tt.wantConf)
			}
		})
	}
}

func TestResolver_MotionOverridesPose(t *testing.T) {
	r := NewResolver()
	f, _ := ExtractFeatures(detector.PinchLandmarks(0.02))

	c := r.Resolve(EntityRight, f, MotionSignature{Pattern: Wave, VerticalSwipe: None}, 0)
	if c.Type != Wave || c.Confidence != 0.85 {
		t.Errorf("got %q/%v, want wave/0.85", c.Type, c.Confidence)
	}
}

func TestResolver_VerticalSwipeIsMediumTier(t *testing.T) {
	t.Run("beats low tier", func(t *testing.T) {
		f, _ := ExtractFeatures(detector.FistLandmarks())
		c := NewResolver().Resolve(EntityRight, f, MotionSignature{Pattern: None, VerticalSwipe: SwipeUp}, 0)
		if c.Type != SwipeUp {
			t.Errorf("Type = %q, want swipe_up", c.Type)
		}
	})

	t.Run("loses to high tier", func(t *testing.T) {
		f, _ := ExtractFeatures(detector.PinchLandmarks(0.02))
		c := NewResolver().Resolve(EntityRight, f, MotionSignature{Pattern: None, VerticalSwipe: SwipeDown}, 0)
		if c.Type != Pinch {
			t.Errorf("Type = %q, want pinch", c.Type)
		}
	})
}

func TestResolver_DoubleTap(t *testing.T) {
	tests := []struct {
		name   string
		second int64
		want   Label
	}{
		{"within window", 500, DoubleTap},
		{"at lower bound", 200, DoubleTap},
		{"too soon", 100, Pinch},
		{"at upper bound", 800, Pinch},
		{"too late", 1000, Pinch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			first := resolveSample(t, r, detector.PinchLandmarks(0.02), 0)
			if first.Type != Pinch {
				t.Fatalf("first frame Type = %q, want pinch", first.Type)
			}
			second := resolveSample(t, r, detector.PinchLandmarks(0.02), tt.second)
			if second.Type != tt.want {
				t.Errorf("second frame Type = %q, want %q", second.Type, tt.want)
			}
		})
	}

	t.Run("pair consumes the candidate", func(t *testing.T) {
		r := NewResolver()
		resolveSample(t, r, detector.PinchLandmarks(0.02), 0)
		resolveSample(t, r, detector.PinchLandmarks(0.02), 500)
		third := resolveSample(t, r, detector.PinchLandmarks(0.02), 1000)
		if third.Type != Pinch {
			t.Errorf("third frame Type = %q, want pinch", third.Type)
		}
	})

	t.Run("unpaired pinch becomes the candidate", func(t *testing.T) {
		r := NewResolver()
		resolveSample(t, r, detector.PinchLandmarks(0.02), 0)
		resolveSample(t, r, detector.PinchLandmarks(0.02), 1000)
		third := resolveSample(t, r, detector.PinchLandmarks(0.02), 1400)
		if third.Type != DoubleTap {
			t.Errorf("third frame Type = %q, want double_tap", third.Type)
		}
	})
}

func TestResolver_Zoom(t *testing.T) {
	r := NewResolver()
	// Between 0.04 and 0.10 the fixture's thumb tip sits over its MCP and
	// reads as folded, leaving four fingers up.
	steps := []struct {
		distance float64
		want     Label
	}{
		{0.03, Pinch},
		{0.08, ZoomIn},
		{0.062, ZoomOut},
		{0.065, Four},
		{0.2, OpenPalm},
		{0.08, Four},
	}
	for i, s := range steps {
		c := resolveSample(t, r, detector.PinchLandmarks(s.distance), int64(i)*1000)
		if c.Type != s.want {
			t.Errorf("step %d (distance %.3f): Type = %q, want %q", i, s.distance, c.Type, s.want)
		}
	}
}

func TestResolver_GrabRelease(t *testing.T) {
	r := NewResolver()
	steps := []struct {
		sample detector.Sample
		want   Label
	}{
		{detector.OpenPalmLandmarks(), OpenPalm},
		{detector.FistLandmarks(), Grab},
		{detector.FistLandmarks(), Fist},
		{detector.OpenPalmLandmarks(), Release},
		{detector.HandWithFingers(false, true, true, true, true), Four},
	}
	for i, s := range steps {
		c := resolveSample(t, r, s.sample, int64(i)*33)
		if c.Type != s.want {
			t.Errorf("step %d: Type = %q, want %q", i, c.Type, s.want)
		}
	}
}

func TestResolver_HoldTracking(t *testing.T) {
	r := NewResolver()
	var c Classification
	for i := 0; i < 3; i++ {
		c = resolveSample(t, r, detector.FistLandmarks(), 100+int64(i)*33)
	}
	if c.HoldFrames != 3 || c.HoldSince != 100 {
		t.Errorf("got HoldFrames=%d HoldSince=%d, want 3 and 100", c.HoldFrames, c.HoldSince)
	}

	c = resolveSample(t, r, detector.ThumbsUpLandmarks(), 300)
	if c.HoldFrames != 1 || c.HoldSince != 300 {
		t.Errorf("after change got HoldFrames=%d HoldSince=%d, want 1 and 300", c.HoldFrames, c.HoldSince)
	}
}

func TestResolver_Position(t *testing.T) {
	c := resolveSample(t, NewResolver(), detector.FistLandmarks(), 0)
	if math.Abs(c.Position.X) > 1e-9 || math.Abs(c.Position.Y+0.6) > 1e-9 {
		t.Errorf("Position = %+v, want (0, -0.6)", c.Position)
	}
	if c.Entity != EntityRight || c.Features == nil {
		t.Errorf("classification missing entity or features: %+v", c)
	}
}

func TestResolver_Reset(t *testing.T) {
	r := NewResolver()
	resolveSample(t, r, detector.PinchLandmarks(0.02), 0)
	r.Reset(EntityRight)

	c := resolveSample(t, r, detector.PinchLandmarks(0.02), 500)
	if c.Type != Pinch {
		t.Errorf("Type after Reset = %q, want pinch", c.Type)
	}
}

func TestResolver_ResolvePair(t *testing.T) {
	r := NewResolver()
	left, _ := ExtractFeatures(detector.Translate(detector.OpenPalmLandmarks(), -0.2, 0))
	right, _ := ExtractFeatures(detector.Translate(detector.OpenPalmLandmarks(), 0.2, 0))

	c, ok := r.ResolvePair(PairTrend{Trend: Clap}, left, right, 42)
	if !ok {
		t.Fatal("expected a classification for a clap")
	}
	if c.Type != Clap || c.Entity != EntityBoth || c.Confidence != 0.85 {
		t.Errorf("unexpected classification %+v", c)
	}
	if math.Abs(c.Position.X) > 1e-9 {
		t.Errorf("clap should sit between the wrists, X = %f", c.Position.X)
	}

	if _, ok := r.ResolvePair(PairTrend{Trend: None}, left, right, 42); ok {
		t.Error("expected no classification without a trend")
	}
}

func TestResolver_CustomTiers(t *testing.T) {
	r := NewResolverWithTiers([]Tier{{
		{Label: Fist, Confidence: 0.7, Match: func(f *Frame) bool { return true }},
	}})
	c := resolveSample(t, r, detector.OpenPalmLandmarks(), 0)
	if c.Type != Fist || c.Confidence != 0.7 {
		t.Errorf("got %q/%v, want fist/0.7", c.Type, c.Confidence)
	}
}

func TestYawQuadrant(t *testing.T) {
	tests := []struct {
		yaw  float64
		want Label
	}{
		{0, PointUp},
		{-45, PointUp},
		{44.9, PointUp},
		{45, PointRight},
		{134, PointRight},
		{135, PointDown},
		{-180, PointDown},
		{-135, PointLeft},
		{-46, PointLeft},
	}
	for _, tt := range tests {
		if got := yawQuadrant(tt.yaw); got != tt.want {
			t.Errorf("yawQuadrant(%v) = %q, want %q", tt.yaw, got, tt.want)
		}
	}
}
