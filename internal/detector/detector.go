package detector

import "gocv.io/x/gocv"

// Detector defines the interface for landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame captured at timestampMs and returns the
	// landmarks of every tracked entity. An empty Detection means nothing was found.
	Detect(frame *gocv.Mat, timestampMs int64) (Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for landmark detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// EnableFace and EnablePose ask the model service for the face mesh and
	// body pose in addition to hands.
	EnableFace bool
	EnablePose bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.7,
		MinTrackingConf: 0.5,
		EnableFace:      true,
		EnablePose:      true,
	}
}
