package gesture

// History capacities.
const (
	HandHistoryCapacity = 20
	PairHistoryCapacity = 20
)

// MotionSample is one buffered position.
type MotionSample struct {
	X         float64
	Y         float64
	Timestamp int64 // milliseconds
}

// History is a fixed-capacity ring buffer of motion samples. Once full, each
// push evicts the oldest sample.
type History struct {
	buf   []MotionSample
	start int
	size  int
}

// NewHistory creates an empty History holding at most capacity samples.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]MotionSample, capacity)}
}

// Push appends a sample, evicting the oldest when full.
func (h *History) Push(s MotionSample) {
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = s
		h.size++
		return
	}
	h.buf[h.start] = s
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of buffered samples.
func (h *History) Len() int { return h.size }

// Cap returns the buffer capacity.
func (h *History) Cap() int { return len(h.buf) }

// At returns the i-th sample, oldest first.
func (h *History) At(i int) MotionSample {
	return h.buf[(h.start+i)%len(h.buf)]
}

// Oldest returns the oldest buffered sample.
func (h *History) Oldest() MotionSample { return h.At(0) }

// Newest returns the most recently pushed sample.
func (h *History) Newest() MotionSample { return h.At(h.size - 1) }

// Last returns a copy of the newest n samples, oldest first.
func (h *History) Last(n int) []MotionSample {
	if n > h.size {
		n = h.size
	}
	out := make([]MotionSample, n)
	for i := 0; i < n; i++ {
		out[i] = h.At(h.size - n + i)
	}
	return out
}

// Samples returns a copy of every buffered sample, oldest first.
func (h *History) Samples() []MotionSample {
	return h.Last(h.size)
}

// Clear drops every sample.
func (h *History) Clear() {
	h.start = 0
	h.size = 0
}
