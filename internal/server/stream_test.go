package server

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/store"
)

var fakeJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0xFF, 0xD9}

type stubFrames struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubFrames) LatestFrameJPEG() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return fakeJPEG, nil
}

type stubEvents struct{}

func (stubEvents) ListRecent(context.Context, int) ([]*store.Event, error) { return nil, nil }

func TestFrameHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantType string
	}{
		{"frame", nil, http.StatusOK, "image/jpeg"},
		{"no frame yet", app.ErrNoFrame, http.StatusServiceUnavailable, "application/json"},
		{"encode failure", errors.New("encode frame: bad mat"), http.StatusInternalServerError, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(NewFrameHandler(&stubFrames{err: tt.err}), "/api/frame")
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if ct := rec.Header().Get("Content-Type"); ct != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.wantType)
			}
			if tt.err == nil && rec.Body.String() != string(fakeJPEG) {
				t.Errorf("body = % x", rec.Body.Bytes())
			}
		})
	}
}

func TestStreamHandler_WritesParts(t *testing.T) {
	h := NewStreamHandler(&stubFrames{})
	h.interval = 5 * time.Millisecond
	ts := httptest.NewServer(h)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	boundaries := 0
	for boundaries < 2 {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read error after %d parts: %v", boundaries, err)
		}
		if strings.HasPrefix(line, "--frame") {
			boundaries++
		}
	}
}

func TestStreamHandler_SkipsMissingFramesUntilCancelled(t *testing.T) {
	frames := &stubFrames{err: app.ErrNoFrame}
	h := NewStreamHandler(frames)
	h.interval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if strings.Contains(rec.Body.String(), "--frame") {
		t.Error("stream wrote a part without a frame")
	}
	if frames.calls < 2 {
		t.Errorf("frame source polled %d times, want repeated polling", frames.calls)
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	NewStreamHandler(&stubFrames{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
