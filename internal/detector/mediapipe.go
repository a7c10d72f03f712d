package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// idleShutdown is how long the model service may sit unused before it is stopped.
const idleShutdown = 30 * time.Second

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Each request is a 13-byte header (8-byte big-endian timestamp, 1 flag byte,
// 4-byte big-endian length) followed by a JPEG frame. The service answers
// with one JSON line.
type MediaPipeDetector struct {
	config    Config
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// Request flags understood by the model service.
const (
	flagFace byte = 1 << iota
	flagPose
)

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	if findMediaPipeScript() == "" {
		return nil, fmt.Errorf("mediapipe_service.py not found")
	}

	return &MediaPipeDetector{config: config}, nil
}

// Detect encodes the frame, hands it to the model service and converts the reply.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat, timestampMs int64) (Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return Detection{}, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return Detection{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	var flags byte
	if d.config.EnableFace {
		flags |= flagFace
	}
	if d.config.EnablePose {
		flags |= flagPose
	}

	header := make([]byte, 13)
	binary.BigEndian.PutUint64(header[0:8], uint64(timestampMs))
	header[8] = flags
	binary.BigEndian.PutUint32(header[9:13], uint32(len(data)))

	if _, err := d.stdin.Write(header); err != nil {
		return Detection{}, fmt.Errorf("write header: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return Detection{}, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return Detection{}, fmt.Errorf("read response: %w", err)
	}

	det, err := parseResponse([]byte(line), timestampMs, d.config.MaxHands)
	if err != nil {
		return Detection{}, err
	}

	d.resetIdleTimer()
	return det, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	scriptPath := findMediaPipeScript()
	if scriptPath == "" {
		return fmt.Errorf("mediapipe_service.py not found")
	}

	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, scriptPath,
		"--max-hands", fmt.Sprint(d.config.MaxHands),
		"--min-confidence", fmt.Sprint(d.config.MinConfidence),
		"--min-tracking", fmt.Sprint(d.config.MinTrackingConf),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findMediaPipeScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/mediapipe_service.py",
		"../scripts/mediapipe_service.py",
		filepath.Join(execDir, "scripts/mediapipe_service.py"),
		filepath.Join(os.Getenv("HOME"), ".abhinaya/scripts/mediapipe_service.py"),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".abhinaya/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonEntity represents one entity in the JSON reply from the Python service.
type jsonEntity struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

type jsonResponse struct {
	Hands []jsonEntity `json:"hands"`
	Face  *jsonEntity  `json:"face"`
	Pose  *jsonEntity  `json:"pose"`
}

// parseResponse converts a service reply into a Detection. Hand labels are
// left empty: handedness is inferred downstream from the landmarks themselves.
func parseResponse(line []byte, timestampMs int64, maxHands int) (Detection, error) {
	var response jsonResponse
	if err := json.Unmarshal(line, &response); err != nil {
		return Detection{}, fmt.Errorf("parse response: %w", err)
	}

	det := Detection{Timestamp: timestampMs}

	for i, h := range response.Hands {
		if maxHands > 0 && i >= maxHands {
			break
		}
		det.Hands = append(det.Hands, h.toSample(KindHand, timestampMs))
	}

	if response.Face != nil {
		s := response.Face.toSample(KindFace, timestampMs)
		det.Face = &s
	}
	if response.Pose != nil {
		s := response.Pose.toSample(KindPose, timestampMs)
		det.Pose = &s
	}

	return det, nil
}

func (e jsonEntity) toSample(kind Kind, timestampMs int64) Sample {
	return Sample{
		Kind:      kind,
		Points:    e.Points,
		Score:     e.Score,
		Timestamp: timestampMs,
	}
}
