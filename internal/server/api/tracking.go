package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/tracking"
)

// Tracker is the tracking worker as seen by the HTTP layer.
type Tracker interface {
	Start() error
	Stop() error
	IsRunning() bool
	Status() app.Status
	LatestResult() (tracking.Result, bool)
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// TrackingHandler serves /api/tracking and its start and stop actions.
type TrackingHandler struct {
	tracker Tracker
}

// NewTrackingHandler returns a handler driving t.
func NewTrackingHandler(t Tracker) *TrackingHandler {
	return &TrackingHandler{tracker: t}
}

func (h *TrackingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tracking"), "/")

	switch action {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.latest(w)
	case "start":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.start(w)
	case "stop":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.stop(w)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// latest returns the most recent result, or an empty one before the first frame.
func (h *TrackingHandler) latest(w http.ResponseWriter) {
	res, _ := h.tracker.LatestResult()
	writeJSON(w, http.StatusOK, res)
}

func (h *TrackingHandler) start(w http.ResponseWriter) {
	err := h.tracker.Start()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, statusResponse{Status: "started", Message: "Tracking started"})
	case errors.Is(err, app.ErrAlreadyRunning):
		writeJSON(w, http.StatusOK, statusResponse{Status: "already_running"})
	case errors.Is(err, app.ErrStopping):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}

func (h *TrackingHandler) stop(w http.ResponseWriter) {
	if err := h.tracker.Stop(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "stopped", Message: "Tracking stopped"})
}

// GestureHandler serves the single most relevant current gesture.
type GestureHandler struct {
	tracker Tracker
}

// NewGestureHandler returns a handler reading from t.
func NewGestureHandler(t Tracker) *GestureHandler {
	return &GestureHandler{tracker: t}
}

type noGestureResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (h *GestureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	if res, ok := h.tracker.LatestResult(); ok {
		if c, ok := res.Primary(); ok {
			writeJSON(w, http.StatusOK, c.Record())
			return
		}
	}
	writeJSON(w, http.StatusOK, noGestureResponse{Type: "none", Message: "No gesture detected"})
}
