package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/gesture"
	"github.com/ayusman/abhinaya/internal/tracking"
)

type fakeTracker struct {
	running  bool
	startErr error
	stopErr  error
	result   tracking.Result
	hasRes   bool
	starts   int
	stops    int
}

func (f *fakeTracker) Start() error {
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	return nil
}

func (f *fakeTracker) Stop() error {
	f.stops++
	f.running = false
	return f.stopErr
}

func (f *fakeTracker) IsRunning() bool { return f.running }

func (f *fakeTracker) Status() app.Status { return app.Status{Running: f.running} }

func (f *fakeTracker) LatestResult() (tracking.Result, bool) { return f.result, f.hasRes }

func serve(h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, stringReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestTrackingHandler_StartStop(t *testing.T) {
	tests := []struct {
		name       string
		startErr   error
		running    bool
		wantCode   int
		wantStatus string
	}{
		{name: "starts", wantCode: http.StatusOK, wantStatus: "started"},
		{name: "already running", startErr: app.ErrAlreadyRunning, running: true, wantCode: http.StatusOK, wantStatus: "already_running"},
		{name: "camera failure", startErr: errors.New("camera 0 unavailable"), wantCode: http.StatusServiceUnavailable},
		{name: "still stopping", startErr: app.ErrStopping, wantCode: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTracker{startErr: tt.startErr, running: tt.running}
			rec := serve(NewTrackingHandler(ft), http.MethodPost, "/api/tracking/start", "")

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var resp map[string]string
			decode(t, rec, &resp)
			if tt.wantStatus != "" && resp["status"] != tt.wantStatus {
				t.Errorf("status field = %q, want %q", resp["status"], tt.wantStatus)
			}
			if tt.wantStatus == "" && resp["error"] == "" {
				t.Error("expected an error message")
			}
		})
	}

	t.Run("stop", func(t *testing.T) {
		ft := &fakeTracker{running: true}
		rec := serve(NewTrackingHandler(ft), http.MethodPost, "/api/tracking/stop", "")
		if rec.Code != http.StatusOK || ft.running || ft.stops != 1 {
			t.Errorf("status = %d, running = %v, stops = %d", rec.Code, ft.running, ft.stops)
		}
	})
}

func TestTrackingHandler_Routing(t *testing.T) {
	h := NewTrackingHandler(&fakeTracker{})

	tests := []struct {
		method string
		target string
		want   int
	}{
		{http.MethodGet, "/api/tracking", http.StatusOK},
		{http.MethodPost, "/api/tracking", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/tracking/start", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/tracking/stop", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/tracking/pause", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			if rec := serve(h, tt.method, tt.target, ""); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestTrackingHandler_Latest(t *testing.T) {
	c := gesture.Classification{Type: gesture.Fist, Confidence: 0.9, Entity: gesture.EntityRight, Timestamp: 77}
	ft := &fakeTracker{
		hasRes: true,
		result: tracking.Result{
			Timestamp: 77,
			Hands:     map[string]*tracking.HandResult{gesture.EntityRight: {Classification: c}},
			Active:    true,
		},
	}

	rec := serve(NewTrackingHandler(ft), http.MethodGet, "/api/tracking", "")
	var resp struct {
		Timestamp int64 `json:"timestamp"`
		Active    bool  `json:"active"`
		Hands     map[string]struct {
			Detected bool           `json:"detected"`
			Gesture  gesture.Record `json:"gesture"`
		} `json:"hands"`
	}
	decode(t, rec, &resp)

	if resp.Timestamp != 77 || !resp.Active {
		t.Errorf("timestamp = %d, active = %v", resp.Timestamp, resp.Active)
	}
	if r := resp.Hands["right"]; !r.Detected || r.Gesture.Type != gesture.Fist {
		t.Errorf("right hand = %+v", r)
	}
	if resp.Hands["left"].Detected {
		t.Error("left hand reported as detected")
	}
}

func TestGestureHandler(t *testing.T) {
	c := gesture.Classification{Type: gesture.Peace, Confidence: 0.85, Entity: gesture.EntityLeft}

	tests := []struct {
		name    string
		tracker *fakeTracker
		want    gesture.Label
	}{
		{"no result", &fakeTracker{}, gesture.None},
		{"no hands", &fakeTracker{hasRes: true, result: tracking.Result{}}, gesture.None},
		{
			name: "left hand",
			tracker: &fakeTracker{hasRes: true, result: tracking.Result{
				Hands: map[string]*tracking.HandResult{gesture.EntityLeft: {Classification: c}},
			}},
			want: gesture.Peace,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(NewGestureHandler(tt.tracker), http.MethodGet, "/api/gesture", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var resp gesture.Record
			decode(t, rec, &resp)
			if resp.Type != tt.want {
				t.Errorf("type = %q, want %q", resp.Type, tt.want)
			}
		})
	}

	if rec := serve(NewGestureHandler(&fakeTracker{}), http.MethodPost, "/api/gesture", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
