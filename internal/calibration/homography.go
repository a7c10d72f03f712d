// Package calibration maps camera-space positions onto a projection surface
// through a four-corner homography.
package calibration

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

const (
	// cornerTolerance is the per-axis distance under which two corners coincide.
	cornerTolerance = 0.01
	// collinearTolerance bounds the cross products of the corner vectors.
	collinearTolerance = 1e-4
	// epsilon guards divisions by the homogeneous coordinate.
	epsilon = 1e-10
)

var (
	// ErrCornerCount is returned when a corner set does not hold exactly four points.
	ErrCornerCount = errors.New("expected 4 corners")
	// ErrDegenerateCorners is returned for coincident or collinear corners.
	ErrDegenerateCorners = errors.New("corner points are degenerate (collinear or overlapping)")
	// ErrSingularHomography is returned when the solved matrix cannot be normalized.
	ErrSingularHomography = errors.New("failed to compute homography matrix")
)

// Homography is a 3x3 projective transform normalized so that H[2][2] == 1.
type Homography [3][3]float64

// At returns the element at row, col.
func (h *Homography) At(row, col int) float64 {
	return h[row][col]
}

// Apply maps pt through the homography. It reports false when the point maps
// to infinity.
func (h *Homography) Apply(pt r2.Point) (r2.Point, bool) {
	x := h.At(0, 0)*pt.X + h.At(0, 1)*pt.Y + h.At(0, 2)
	y := h.At(1, 0)*pt.X + h.At(1, 1)*pt.Y + h.At(1, 2)
	z := h.At(2, 0)*pt.X + h.At(2, 1)*pt.Y + h.At(2, 2)
	if math.Abs(z) < epsilon {
		return r2.Point{}, false
	}
	return r2.Point{X: x / z, Y: y / z}, true
}

// ValidateCorners checks that pts holds four distinct, non-collinear points.
func ValidateCorners(pts []r2.Point) error {
	if len(pts) != 4 {
		return fmt.Errorf("%w, got %d", ErrCornerCount, len(pts))
	}

	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			if math.Abs(pts[i].X-pts[j].X) <= cornerTolerance &&
				math.Abs(pts[i].Y-pts[j].Y) <= cornerTolerance {
				return fmt.Errorf("%w: corners %d and %d overlap", ErrDegenerateCorners, i, j)
			}
		}
	}

	v1 := pts[1].Sub(pts[0])
	v2 := pts[2].Sub(pts[0])
	v3 := pts[3].Sub(pts[0])
	if math.Abs(v1.Cross(v2)) < collinearTolerance && math.Abs(v1.Cross(v3)) < collinearTolerance {
		return fmt.Errorf("%w: corners are collinear", ErrDegenerateCorners)
	}
	return nil
}

// ComputeHomography solves the direct linear transform mapping each src
// corner onto the matching dst corner.
func ComputeHomography(src, dst [4]r2.Point) (*Homography, error) {
	a := mat.NewDense(8, 9, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y, -u})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y, -v})
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return nil, fmt.Errorf("%w: SVD did not converge", ErrSingularHomography)
	}
	var v mat.Dense
	svd.VTo(&v)

	// The null vector is the right singular vector of the smallest singular
	// value, the last column of V.
	var h Homography
	for k := 0; k < 9; k++ {
		h[k/3][k%3] = v.At(k, 8)
	}

	scale := h[2][2]
	if math.Abs(scale) < epsilon {
		return nil, ErrSingularHomography
	}
	for r := range h {
		for c := range h[r] {
			h[r][c] /= scale
		}
	}
	return &h, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// unitSquare is the default projector surface: TL, TR, BR, BL.
var unitSquare = [4]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
