package gesture

import "testing"

func TestHistory(t *testing.T) {
	t.Run("evicts oldest when full", func(t *testing.T) {
		h := NewHistory(3)
		for i := 0; i < 5; i++ {
			h.Push(MotionSample{X: float64(i), Timestamp: int64(i)})
		}
		if h.Len() != 3 {
			t.Fatalf("Len() = %d, want 3", h.Len())
		}
		if h.Oldest().X != 2 || h.Newest().X != 4 {
			t.Errorf("got oldest %v newest %v, want 2 and 4", h.Oldest().X, h.Newest().X)
		}
		got := h.Samples()
		for i, want := range []float64{2, 3, 4} {
			if got[i].X != want {
				t.Errorf("Samples()[%d] = %v, want %v", i, got[i].X, want)
			}
		}
	})

	t.Run("last n", func(t *testing.T) {
		h := NewHistory(5)
		for i := 0; i < 4; i++ {
			h.Push(MotionSample{X: float64(i)})
		}
		last := h.Last(2)
		if len(last) != 2 || last[0].X != 2 || last[1].X != 3 {
			t.Errorf("Last(2) = %+v", last)
		}
		if len(h.Last(10)) != 4 {
			t.Errorf("Last beyond length should be capped")
		}
	})

	t.Run("clear", func(t *testing.T) {
		h := NewHistory(2)
		h.Push(MotionSample{X: 1})
		h.Clear()
		if h.Len() != 0 {
			t.Errorf("Len() after Clear = %d", h.Len())
		}
		h.Push(MotionSample{X: 7})
		if h.Oldest().X != 7 {
			t.Errorf("Oldest() after Clear and Push = %v", h.Oldest().X)
		}
	})

	t.Run("capacity is at least one", func(t *testing.T) {
		if NewHistory(0).Cap() != 1 {
			t.Error("expected capacity 1")
		}
	})
}
