package calibration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/geo/r2"

	"github.com/ayusman/abhinaya/internal/store"
)

// TimeFormat is the layout of Record.CreatedAt.
const TimeFormat = "2006-01-02T15:04:05Z"

// SettingsKey is the settings table key SettingsStorage writes to.
const SettingsKey = "calibration"

// ErrNoCalibration is returned by Storage.Load when nothing has been saved.
var ErrNoCalibration = errors.New("no saved calibration")

// Corner is a normalized point in the persisted format.
type Corner struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Record is the persisted and reported calibration state.
type Record struct {
	Calibrated       bool           `json:"calibrated"`
	HomographyMatrix *[3][3]float64 `json:"homography_matrix"`
	CameraCorners    []Corner       `json:"camera_corners"`
	ProjectorCorners []Corner       `json:"projector_corners"`
	CreatedAt        string         `json:"created_at,omitempty"`
}

// Storage persists calibration records.
type Storage interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Clear(ctx context.Context) error
}

func toCorners(pts [4]r2.Point) []Corner {
	out := make([]Corner, len(pts))
	for i, p := range pts {
		out[i] = Corner{X: p.X, Y: p.Y}
	}
	return out
}

func fromCorners(cs []Corner) ([4]r2.Point, error) {
	var out [4]r2.Point
	if len(cs) != 4 {
		return out, fmt.Errorf("%w, got %d", ErrCornerCount, len(cs))
	}
	for i, c := range cs {
		out[i] = r2.Point{X: c.X, Y: c.Y}
	}
	return out, nil
}

func (s *State) record() *Record {
	if s == nil || !s.Calibrated {
		return &Record{CameraCorners: []Corner{}, ProjectorCorners: []Corner{}}
	}
	m := [3][3]float64(*s.Homography)
	return &Record{
		Calibrated:       true,
		HomographyMatrix: &m,
		CameraCorners:    toCorners(s.CameraCorners),
		ProjectorCorners: toCorners(s.ProjectorCorners),
		CreatedAt:        s.CreatedAt.UTC().Format(TimeFormat),
	}
}

// stateFromRecord rebuilds a State; an uncalibrated record yields nil.
func stateFromRecord(rec *Record) (*State, error) {
	if rec == nil || !rec.Calibrated || rec.HomographyMatrix == nil {
		return nil, nil
	}
	cam, err := fromCorners(rec.CameraCorners)
	if err != nil {
		return nil, fmt.Errorf("camera corners: %w", err)
	}
	proj, err := fromCorners(rec.ProjectorCorners)
	if err != nil {
		return nil, fmt.Errorf("projector corners: %w", err)
	}
	created, err := time.Parse(TimeFormat, rec.CreatedAt)
	if err != nil && rec.CreatedAt != "" {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	h := Homography(*rec.HomographyMatrix)
	return &State{
		Calibrated:       true,
		Homography:       &h,
		CameraCorners:    cam,
		ProjectorCorners: proj,
		CreatedAt:        created,
	}, nil
}

// FileStorage keeps the calibration as an indented JSON file.
type FileStorage struct {
	path string
}

// NewFileStorage creates a FileStorage writing to path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the file location.
func (f *FileStorage) Path() string { return f.path }

// Load reads the calibration file.
func (f *FileStorage) Load(ctx context.Context) (*Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoCalibration
		}
		return nil, fmt.Errorf("failed to read calibration: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse calibration: %w", err)
	}
	return &rec, nil
}

// Save writes rec through a temporary file so readers never see a partial file.
func (f *FileStorage) Save(ctx context.Context, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode calibration: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create calibration directory: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write calibration: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write calibration: %w", err)
	}
	return nil
}

// Clear removes the calibration file. A missing file is not an error.
func (f *FileStorage) Clear(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove calibration: %w", err)
	}
	return nil
}

// SettingsStore is the key-value store SettingsStorage writes through.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// SettingsStorage keeps the calibration JSON under SettingsKey in the
// SQLite settings table.
type SettingsStorage struct {
	settings SettingsStore
}

// NewSettingsStorage creates a SettingsStorage backed by settings.
func NewSettingsStorage(settings SettingsStore) *SettingsStorage {
	return &SettingsStorage{settings: settings}
}

// Load reads the calibration from the settings table.
func (s *SettingsStorage) Load(ctx context.Context) (*Record, error) {
	value, err := s.settings.Get(ctx, SettingsKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoCalibration
		}
		return nil, fmt.Errorf("failed to read calibration: %w", err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		return nil, fmt.Errorf("failed to parse calibration: %w", err)
	}
	return &rec, nil
}

// Save stores rec in the settings table.
func (s *SettingsStorage) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode calibration: %w", err)
	}
	return s.settings.Set(ctx, SettingsKey, string(data))
}

// Clear deletes the stored calibration. A missing entry is not an error.
func (s *SettingsStorage) Clear(ctx context.Context) error {
	if err := s.settings.Delete(ctx, SettingsKey); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}
