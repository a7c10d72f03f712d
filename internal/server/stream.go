package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/abhinaya/internal/app"
)

// streamInterval paces the MJPEG stream at about 25 FPS.
const streamInterval = 40 * time.Millisecond

// FrameSource yields the latest annotated camera frame as JPEG.
type FrameSource interface {
	LatestFrameJPEG() ([]byte, error)
}

// StreamHandler serves the annotated preview as an MJPEG stream.
type StreamHandler struct {
	frames   FrameSource
	interval time.Duration
}

// NewStreamHandler creates a StreamHandler reading from frames.
func NewStreamHandler(frames FrameSource) *StreamHandler {
	return &StreamHandler{frames: frames, interval: streamInterval}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, _ := w.(http.Flusher)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if jpg, err := h.frames.LatestFrameJPEG(); err == nil {
			fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpg))
			if _, err := w.Write(jpg); err != nil {
				return
			}
			fmt.Fprint(w, "\r\n")
			if flusher != nil {
				flusher.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// FrameHandler serves a single JPEG snapshot.
type FrameHandler struct {
	frames FrameSource
}

// NewFrameHandler creates a FrameHandler reading from frames.
func NewFrameHandler(frames FrameSource) *FrameHandler {
	return &FrameHandler{frames: frames}
}

func (h *FrameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jpg, err := h.frames.LatestFrameJPEG()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, app.ErrNoFrame) {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(jpg)
}
