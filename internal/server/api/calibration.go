package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/samber/lo"

	"github.com/ayusman/abhinaya/internal/calibration"
)

// CalibrationHandler serves /api/calibration and /api/calibration/transform.
type CalibrationHandler struct {
	engine *calibration.Engine
}

// NewCalibrationHandler returns a handler for e.
func NewCalibrationHandler(e *calibration.Engine) *CalibrationHandler {
	return &CalibrationHandler{engine: e}
}

type calibrateRequest struct {
	CameraCorners    []calibration.Corner `json:"camera_corners"`
	ProjectorCorners []calibration.Corner `json:"projector_corners"`
}

type calibrateResponse struct {
	Success     bool                `json:"success"`
	Error       string              `json:"error,omitempty"`
	Calibration *calibration.Record `json:"calibration,omitempty"`
}

type transformRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Smooth *bool   `json:"smooth"`
}

type transformResponse struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/calibration"), "/")

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, h.engine.Status())
		case http.MethodPost:
			h.calibrate(w, r)
		case http.MethodDelete:
			h.clear(w, r)
		default:
			methodNotAllowed(w)
		}
	case "transform":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.transform(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func toPoints(cs []calibration.Corner) []r2.Point {
	if cs == nil {
		return nil
	}
	return lo.Map(cs, func(c calibration.Corner, _ int) r2.Point {
		return r2.Point{X: c.X, Y: c.Y}
	})
}

// isInputError reports whether err came from rejected corners rather than
// the service itself.
func isInputError(err error) bool {
	return errors.Is(err, calibration.ErrCornerCount) ||
		errors.Is(err, calibration.ErrDegenerateCorners) ||
		errors.Is(err, calibration.ErrSingularHomography)
}

func (h *CalibrationHandler) calibrate(w http.ResponseWriter, r *http.Request) {
	var req calibrateRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, calibrateResponse{Error: err.Error()})
		return
	}

	rec, err := h.engine.Calibrate(r.Context(), toPoints(req.CameraCorners), toPoints(req.ProjectorCorners))
	if err != nil {
		status := http.StatusInternalServerError
		if isInputError(err) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, calibrateResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, calibrateResponse{Success: true, Calibration: rec})
}

func (h *CalibrationHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Clear(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, calibrateResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, calibrateResponse{Success: true})
}

func (h *CalibrationHandler) transform(w http.ResponseWriter, r *http.Request) {
	var req transformRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.engine.Calibrated() {
		writeError(w, http.StatusConflict, "not calibrated")
		return
	}

	smooth := req.Smooth == nil || *req.Smooth
	p, ok := h.engine.TransformPoint(req.X, req.Y, smooth)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "point has no projection")
		return
	}
	writeJSON(w, http.StatusOK, transformResponse{X: p.X, Y: p.Y})
}
