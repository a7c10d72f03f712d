// Package plugin runs external executables in response to emitted gestures.
// Each plugin lives in its own directory with a plugin.json manifest that
// binds gesture types to the plugin's actions.
package plugin

import (
	"encoding/json"

	"github.com/ayusman/abhinaya/internal/gesture"
)

// ManifestFile is the manifest name looked up in each plugin directory.
const ManifestFile = "plugin.json"

// Manifest describes a plugin's metadata and gesture bindings.
type Manifest struct {
	Name        string                   `json:"name"`
	Version     string                   `json:"version"`
	Description string                   `json:"description"`
	Executable  string                   `json:"executable"`
	Actions     []string                 `json:"actions"`
	Bindings    map[gesture.Label]string `json:"bindings"`
	Config      json.RawMessage          `json:"config,omitempty"`
}

// Request is written to the plugin's stdin.
type Request struct {
	Action  string          `json:"action"`
	Gesture gesture.Record  `json:"gesture"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// ActionFor returns the action bound to the gesture type. Bindings to
// actions the manifest does not declare are ignored.
func (p *Plugin) ActionFor(l gesture.Label) (string, bool) {
	action, ok := p.Manifest.Bindings[l]
	if !ok {
		return "", false
	}
	for _, a := range p.Manifest.Actions {
		if a == action {
			return action, true
		}
	}
	return "", false
}
