// Package config loads service settings from an optional JSON file and the
// environment, and applies runtime updates.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// ErrInvalid is returned for settings that fail validation.
var ErrInvalid = errors.New("invalid config")

// Config is the complete service configuration. The top-level tracking
// fields can be changed at runtime with Update.
type Config struct {
	FrameSkipInterval          int  `json:"frame_skip_interval" mapstructure:"frame_skip_interval"`
	EnableFaceTracking         bool `json:"enable_face_tracking" mapstructure:"enable_face_tracking"`
	EnablePoseTracking         bool `json:"enable_pose_tracking" mapstructure:"enable_pose_tracking"`
	BackendPushCooldownMs      int  `json:"backend_push_cooldown_ms" mapstructure:"backend_push_cooldown_ms"`
	AdaptiveFPS                bool `json:"adaptive_fps" mapstructure:"adaptive_fps"`
	AdaptiveIdleFPS            int  `json:"adaptive_idle_fps" mapstructure:"adaptive_idle_fps"`
	AdaptiveActiveFPS          int  `json:"adaptive_active_fps" mapstructure:"adaptive_active_fps"`
	AdaptiveIdleTimeoutSeconds int  `json:"adaptive_idle_timeout_seconds" mapstructure:"adaptive_idle_timeout_seconds"`

	Camera  CameraConfig  `json:"camera" mapstructure:"-"`
	Backend BackendConfig `json:"backend" mapstructure:"-"`
	Server  ServerConfig  `json:"server" mapstructure:"-"`
	Redis   RedisConfig   `json:"redis" mapstructure:"-"`
	Storage StorageConfig `json:"storage" mapstructure:"-"`
	Plugins PluginConfig  `json:"plugins" mapstructure:"-"`
	Log     LogConfig     `json:"log" mapstructure:"-"`
}

// CameraConfig selects the capture device.
type CameraConfig struct {
	Index int `json:"index"`
	// MotionThreshold is the percentage of changed pixels that counts as
	// scene activity for adaptive FPS.
	MotionThreshold float64 `json:"motion_threshold"`
}

// BackendConfig is the downstream gesture consumer.
type BackendConfig struct {
	URL           string `json:"url"`
	Enabled       bool   `json:"enabled"`
	PushTimeoutMs int    `json:"push_timeout_ms"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// RedisConfig holds the optional Redis publisher settings.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

// StorageConfig holds the data directory and event log retention.
type StorageConfig struct {
	DataDir        string `json:"data_dir"`
	EventRetention int    `json:"event_retention"`
}

// PluginConfig holds the action plugin settings.
type PluginConfig struct {
	Dir       string `json:"dir"`
	TimeoutMs int    `json:"timeout_ms"`
}

// LogConfig holds logging settings. An empty File logs to stderr only.
type LogConfig struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		FrameSkipInterval:          2,
		EnableFaceTracking:         true,
		EnablePoseTracking:         true,
		BackendPushCooldownMs:      500,
		AdaptiveFPS:                false,
		AdaptiveIdleFPS:            10,
		AdaptiveActiveFPS:          15,
		AdaptiveIdleTimeoutSeconds: 5,

		Camera:  CameraConfig{Index: 0, MotionThreshold: 1.0},
		Backend: BackendConfig{URL: "http://localhost:3001", Enabled: true, PushTimeoutMs: 500},
		Server:  ServerConfig{Addr: "127.0.0.1:8765"},
		Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "abhinaya"},
		Storage: StorageConfig{DataDir: defaultDataDir(), EventRetention: 10000},
		Plugins: PluginConfig{TimeoutMs: 5000},
		Log:     LogConfig{Level: "info", MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 28},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".abhinaya"
	}
	return filepath.Join(home, ".abhinaya")
}

// Load reads path over the defaults when path is non-empty and the file
// exists, then applies environment overrides.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}
	check(c.FrameSkipInterval >= 1, "frame_skip_interval must be at least 1")
	check(c.BackendPushCooldownMs >= 0, "backend_push_cooldown_ms must not be negative")
	check(c.AdaptiveIdleFPS >= 1, "adaptive_idle_fps must be at least 1")
	check(c.AdaptiveActiveFPS >= 1, "adaptive_active_fps must be at least 1")
	check(c.AdaptiveIdleTimeoutSeconds >= 0, "adaptive_idle_timeout_seconds must not be negative")
	check(c.Camera.Index >= 0, "camera.index must not be negative")
	check(c.Backend.PushTimeoutMs > 0, "backend.push_timeout_ms must be positive")
	check(c.Storage.EventRetention >= 0, "storage.event_retention must not be negative")

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalid, problems)
}

// Update applies runtime changes keyed by the JSON names of the top-level
// tracking fields. Values are converted loosely ("3" and 3.0 both set an
// int). Unknown keys and invalid results leave c unchanged.
func (c *Config) Update(updates map[string]any) error {
	next := *c
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &next,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(updates); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// PushCooldown returns the push cooldown as a duration.
func (c Config) PushCooldown() time.Duration {
	return time.Duration(c.BackendPushCooldownMs) * time.Millisecond
}

// IdleTimeout returns the adaptive FPS idle timeout as a duration.
func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.AdaptiveIdleTimeoutSeconds) * time.Second
}

// PushTimeout returns the per-record backend timeout.
func (c Config) PushTimeout() time.Duration {
	return time.Duration(c.Backend.PushTimeoutMs) * time.Millisecond
}

// PluginTimeout returns the per-run plugin timeout.
func (c Config) PluginTimeout() time.Duration {
	return time.Duration(c.Plugins.TimeoutMs) * time.Millisecond
}

// DatabasePath is the SQLite file inside the data directory.
func (c Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataDir, "abhinaya.db")
}

// Tunables returns the runtime-updatable fields keyed by their JSON names.
func (c Config) Tunables() map[string]any {
	return map[string]any{
		"frame_skip_interval":           c.FrameSkipInterval,
		"enable_face_tracking":          c.EnableFaceTracking,
		"enable_pose_tracking":          c.EnablePoseTracking,
		"backend_push_cooldown_ms":      c.BackendPushCooldownMs,
		"adaptive_fps":                  c.AdaptiveFPS,
		"adaptive_idle_fps":             c.AdaptiveIdleFPS,
		"adaptive_active_fps":           c.AdaptiveActiveFPS,
		"adaptive_idle_timeout_seconds": c.AdaptiveIdleTimeoutSeconds,
	}
}
