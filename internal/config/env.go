package config

import (
	"fmt"

	"github.com/spf13/cast"
)

type envVar struct {
	name  string
	apply func(c *Config, v string) error
}

func intVar(name string, field func(*Config) *int) envVar {
	return envVar{name, func(c *Config, v string) error {
		n, err := cast.ToIntE(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}}
}

func boolVar(name string, field func(*Config) *bool) envVar {
	return envVar{name, func(c *Config, v string) error {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}}
}

func stringVar(name string, field func(*Config) *string) envVar {
	return envVar{name, func(c *Config, v string) error {
		*field(c) = v
		return nil
	}}
}

var envVars = []envVar{
	intVar("FRAME_SKIP_INTERVAL", func(c *Config) *int { return &c.FrameSkipInterval }),
	boolVar("ENABLE_FACE_TRACKING", func(c *Config) *bool { return &c.EnableFaceTracking }),
	boolVar("ENABLE_POSE_TRACKING", func(c *Config) *bool { return &c.EnablePoseTracking }),
	intVar("BACKEND_PUSH_COOLDOWN_MS", func(c *Config) *int { return &c.BackendPushCooldownMs }),
	boolVar("ADAPTIVE_FPS", func(c *Config) *bool { return &c.AdaptiveFPS }),
	stringVar("BACKEND_URL", func(c *Config) *string { return &c.Backend.URL }),
	intVar("CAMERA_INDEX", func(c *Config) *int { return &c.Camera.Index }),
	stringVar("SERVER_ADDR", func(c *Config) *string { return &c.Server.Addr }),
	boolVar("REDIS_ENABLED", func(c *Config) *bool { return &c.Redis.Enabled }),
	stringVar("REDIS_ADDR", func(c *Config) *string { return &c.Redis.Addr }),
	stringVar("REDIS_PASSWORD", func(c *Config) *string { return &c.Redis.Password }),
	stringVar("DATA_DIR", func(c *Config) *string { return &c.Storage.DataDir }),
	stringVar("PLUGIN_DIR", func(c *Config) *string { return &c.Plugins.Dir }),
	stringVar("LOG_LEVEL", func(c *Config) *string { return &c.Log.Level }),
	stringVar("LOG_FILE", func(c *Config) *string { return &c.Log.File }),
}

func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(ev.name)
		if !ok || v == "" {
			continue
		}
		if err := ev.apply(c, v); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, ev.name, v, err)
		}
	}
	return nil
}
