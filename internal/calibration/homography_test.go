package calibration

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
)

var (
	unit      = []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	inset     = []r2.Point{{X: 0.1, Y: 0.1}, {X: 0.9, Y: 0.1}, {X: 0.9, Y: 0.9}, {X: 0.1, Y: 0.9}}
	trapezoid = []r2.Point{{X: 0.2, Y: 0.1}, {X: 0.8, Y: 0.15}, {X: 0.9, Y: 0.9}, {X: 0.1, Y: 0.85}}
)

func corners(pts []r2.Point) [4]r2.Point {
	var out [4]r2.Point
	copy(out[:], pts)
	return out
}

func near(a, b r2.Point, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

func TestComputeHomography_MapsCorners(t *testing.T) {
	tests := []struct {
		name string
		src  []r2.Point
		dst  []r2.Point
	}{
		{"identity", unit, unit},
		{"inset square", inset, unit},
		{"perspective quad", trapezoid, unit},
		{"onto a sub-rectangle", unit, []r2.Point{{X: 0.25, Y: 0.25}, {X: 0.75, Y: 0.25}, {X: 0.75, Y: 0.75}, {X: 0.25, Y: 0.75}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ComputeHomography(corners(tt.src), corners(tt.dst))
			if err != nil {
				t.Fatalf("ComputeHomography() error = %v", err)
			}
			if math.Abs(h.At(2, 2)-1) > 1e-12 {
				t.Errorf("H[2][2] = %v, want 1", h.At(2, 2))
			}
			for i := range tt.src {
				got, ok := h.Apply(tt.src[i])
				if !ok {
					t.Fatalf("Apply(%v) failed", tt.src[i])
				}
				if !near(got, tt.dst[i], 1e-6) {
					t.Errorf("corner %d: Apply(%v) = %v, want %v", i, tt.src[i], got, tt.dst[i])
				}
			}
		})
	}
}

func TestComputeHomography_Scaling(t *testing.T) {
	h, err := ComputeHomography(corners(inset), corners(unit))
	if err != nil {
		t.Fatalf("ComputeHomography() error = %v", err)
	}

	center, _ := h.Apply(r2.Point{X: 0.5, Y: 0.5})
	if !near(center, r2.Point{X: 0.5, Y: 0.5}, 0.1) {
		t.Errorf("center maps to %v, want (0.5, 0.5)", center)
	}
	corner, _ := h.Apply(r2.Point{X: 0.1, Y: 0.1})
	if !near(corner, r2.Point{X: 0, Y: 0}, 0.01) {
		t.Errorf("corner maps to %v, want (0, 0)", corner)
	}
	mid, _ := h.Apply(r2.Point{X: 0.3, Y: 0.7})
	if !near(mid, r2.Point{X: 0.25, Y: 0.75}, 1e-6) {
		t.Errorf("(0.3, 0.7) maps to %v, want (0.25, 0.75)", mid)
	}
}

func TestHomography_ApplyAtInfinity(t *testing.T) {
	h := Homography{{1, 0, 0}, {0, 1, 0}, {1, 0, -0.5}}
	if _, ok := h.Apply(r2.Point{X: 0.5, Y: 0.3}); ok {
		t.Error("expected Apply to fail where the homogeneous divisor vanishes")
	}
	if _, ok := h.Apply(r2.Point{X: 0.9, Y: 0.3}); !ok {
		t.Error("expected Apply to succeed away from the vanishing line")
	}
}

func TestValidateCorners(t *testing.T) {
	tests := []struct {
		name    string
		pts     []r2.Point
		wantErr error
	}{
		{"valid square", unit, nil},
		{"valid quad", trapezoid, nil},
		{"three corners", unit[:3], ErrCornerCount},
		{"five corners", append(append([]r2.Point{}, unit...), r2.Point{X: 0.5, Y: 0.5}), ErrCornerCount},
		{"coincident corners", []r2.Point{{X: 0, Y: 0}, {X: 0.005, Y: 0.005}, {X: 1, Y: 1}, {X: 0, Y: 1}}, ErrDegenerateCorners},
		{"collinear corners", []r2.Point{{X: 0, Y: 0}, {X: 0.3, Y: 0.3}, {X: 0.6, Y: 0.6}, {X: 0.9, Y: 0.9}}, ErrDegenerateCorners},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCorners(tt.pts)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
