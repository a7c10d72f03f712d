package tracking

import (
	"encoding/json"

	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/face"
	"github.com/ayusman/abhinaya/internal/gesture"
	"github.com/ayusman/abhinaya/internal/pose"
)

// HandResult is one hand's outcome for a frame.
type HandResult struct {
	Classification gesture.Classification
	Landmarks      []detector.Point3D
}

// Result is everything the processor derived from one frame. Results are
// shared between readers and must not be modified.
type Result struct {
	Timestamp   int64
	Hands       map[string]*HandResult
	Interaction *gesture.Classification
	Face        *face.Analysis
	Pose        *pose.Analysis
	// Emitted holds the records that passed the push gate, already mapped
	// onto the projector when calibration is active.
	Emitted []gesture.Record
	// Active reports whether any entity was detected.
	Active bool
	// Skipped marks a frame dropped by the frame-skip interval.
	Skipped bool
}

func emptyResult(ts int64) Result {
	return Result{Timestamp: ts, Hands: make(map[string]*HandResult, MaxHands)}
}

// Hand returns the classification for entity, if present.
func (r Result) Hand(entity string) (gesture.Classification, bool) {
	h, ok := r.Hands[entity]
	if !ok || h == nil {
		return gesture.Classification{}, false
	}
	return h.Classification, true
}

// Primary returns the classification to report when a single gesture is
// wanted: the interaction if any, then the right hand, then the left.
func (r Result) Primary() (gesture.Classification, bool) {
	if r.Interaction != nil {
		return *r.Interaction, true
	}
	if c, ok := r.Hand(gesture.EntityRight); ok {
		return c, true
	}
	return r.Hand(gesture.EntityLeft)
}

type handJSON struct {
	Detected  bool               `json:"detected"`
	Gesture   gesture.Record     `json:"gesture"`
	Landmarks []detector.Point3D `json:"landmarks,omitempty"`
}

type resultJSON struct {
	Timestamp   int64                `json:"timestamp"`
	Hands       map[string]*handJSON `json:"hands"`
	Interaction *gesture.Record      `json:"interaction"`
	Face        *face.Analysis       `json:"face"`
	Body        *pose.Analysis       `json:"body"`
	Active      bool                 `json:"active"`
}

// MarshalJSON renders the result with both hand slots always present.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Timestamp: r.Timestamp,
		Hands: map[string]*handJSON{
			gesture.EntityLeft:  nil,
			gesture.EntityRight: nil,
		},
		Face:   r.Face,
		Body:   r.Pose,
		Active: r.Active,
	}
	for entity, h := range r.Hands {
		if h == nil {
			continue
		}
		out.Hands[entity] = &handJSON{
			Detected:  true,
			Gesture:   h.Classification.Record(),
			Landmarks: h.Landmarks,
		}
	}
	if r.Interaction != nil {
		rec := r.Interaction.Record()
		out.Interaction = &rec
	}
	return json.Marshal(out)
}
