// Package server exposes the tracking service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/abhinaya/internal/calibration"
	"github.com/ayusman/abhinaya/internal/gesture"
	"github.com/ayusman/abhinaya/internal/server/api"
)

// Service identification reported by /api/status.
const (
	ServiceName = "abhinaya"
	Version     = "0.3.0"
)

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 5 * time.Second

// Config holds the server dependencies. Routes whose dependency is nil are
// not registered.
type Config struct {
	StaticDir   string
	Tracker     api.Tracker
	Frames      FrameSource
	Calibration *calibration.Engine
	Events      api.EventLister
	Settings    *api.ConfigHandler
	Hub         *Hub
	Logger      *zap.SugaredLogger
}

// Server routes HTTP requests to the API handlers.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger *zap.SugaredLogger
}

// New creates a Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: config.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)

	if s.config.Tracker != nil {
		tracking := api.NewTrackingHandler(s.config.Tracker)
		s.mux.Handle("/api/tracking", tracking)
		s.mux.Handle("/api/tracking/", tracking)
		s.mux.Handle("/api/gesture", api.NewGestureHandler(s.config.Tracker))
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
		s.mux.Handle("/api/frame", NewFrameHandler(s.config.Frames))
	}

	if s.config.Calibration != nil {
		calib := api.NewCalibrationHandler(s.config.Calibration)
		s.mux.Handle("/api/calibration", calib)
		s.mux.Handle("/api/calibration/", calib)
	}

	if s.config.Settings != nil {
		s.mux.Handle("/api/config", s.config.Settings)
	}

	if s.config.Events != nil {
		s.mux.Handle("/api/events", api.NewEventsHandler(s.config.Events))
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/ws", s.config.Hub)
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	running := s.config.Tracker != nil && s.config.Tracker.IsRunning()
	writeJSON(w, map[string]any{
		"status":    "ok",
		"service":   ServiceName,
		"tracking":  running,
		"uptime":    time.Since(s.start).Round(time.Second).String(),
		"timestamp": time.Now().UnixMilli(),
	})
}

type statusResponse struct {
	Service     string          `json:"service"`
	Version     string          `json:"version"`
	Gestures    []gesture.Label `json:"gestures"`
	Tracking    bool            `json:"tracking"`
	FPSTarget   int             `json:"fps_target"`
	AdaptiveFPS bool            `json:"adaptive_fps"`
	Frames      uint64          `json:"frames"`
	FaceEnabled bool            `json:"face_tracking"`
	PoseEnabled bool            `json:"pose_tracking"`
	Calibrated  bool            `json:"calibrated"`
	Clients     int             `json:"ws_clients"`
	CameraError *string         `json:"camera_error"`
	Timestamp   int64           `json:"timestamp"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{
		Service:   ServiceName,
		Version:   Version,
		Gestures:  gesture.Labels(),
		Timestamp: time.Now().UnixMilli(),
	}
	if t := s.config.Tracker; t != nil {
		st := t.Status()
		resp.Tracking = st.Running
		resp.FPSTarget = st.FPSTarget
		resp.AdaptiveFPS = st.AdaptiveFPS
		resp.Frames = st.Frames
		if st.CameraError != "" {
			resp.CameraError = &st.CameraError
		}
	}
	if s.config.Settings != nil {
		cfg := s.config.Settings.Config()
		resp.FaceEnabled = cfg.EnableFaceTracking
		resp.PoseEnabled = cfg.EnablePoseTracking
	}
	if s.config.Calibration != nil {
		resp.Calibrated = s.config.Calibration.Calibrated()
	}
	if s.config.Hub != nil {
		resp.Clients = s.config.Hub.Clients()
	}
	writeJSON(w, resp)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		// Long-lived streams end with ctx instead of holding up Shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Infof("Listening on %s", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if s.config.Hub != nil {
		s.config.Hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
