package app

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/tracking"
)

var (
	handColor = color.RGBA{G: 255}
	faceColor = color.RGBA{R: 255, G: 255}
	poseColor = color.RGBA{R: 255, B: 255}
)

const (
	handRadius = 4
	poseRadius = 5
)

// poseKeyPoints are the body landmarks drawn on the preview: head, shoulders,
// arms, hips and legs.
var poseKeyPoints = []int{0, 2, 5, 7, 11, 12, 13, 14, 15, 16, 23, 24, 25, 26, 27, 28}

// drawOverlays marks hand landmarks, the face box and body key points on frame.
func drawOverlays(frame *gocv.Mat, res tracking.Result) {
	w, h := frame.Cols(), frame.Rows()
	if w == 0 || h == 0 {
		return
	}

	for _, hand := range res.Hands {
		if hand == nil {
			continue
		}
		for _, p := range hand.Landmarks {
			gocv.Circle(frame, pixel(p, w, h), handRadius, handColor, -1)
		}
	}

	if f := res.Face; f != nil {
		box := image.Rect(
			int(f.Box.XMin*float64(w)), int(f.Box.YMin*float64(h)),
			int(f.Box.XMax*float64(w)), int(f.Box.YMax*float64(h)),
		)
		gocv.Rectangle(frame, box, faceColor, 2)
	}

	if b := res.Pose; b != nil {
		for _, i := range poseKeyPoints {
			if i < len(b.Landmarks) {
				gocv.Circle(frame, pixel(b.Landmarks[i], w, h), poseRadius, poseColor, -1)
			}
		}
	}
}

func pixel(p detector.Point3D, w, h int) image.Point {
	return image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
}
