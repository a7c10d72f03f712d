package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writePlugin creates dir/<name> holding a manifest and a shell script that
// runs script. It returns the plugin directory.
func writePlugin(t *testing.T, dir string, m Manifest, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("plugin scripts need a POSIX shell")
	}

	pluginDir := filepath.Join(dir, m.Name)
	if err := os.MkdirAll(pluginDir, 0o755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, ManifestFile), data, 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	if m.Executable != "" {
		body := "#!/bin/sh\n" + script + "\n"
		if err := os.WriteFile(filepath.Join(pluginDir, m.Executable), []byte(body), 0o755); err != nil {
			t.Fatalf("failed to write script: %v", err)
		}
	}
	return pluginDir
}

func scriptPlugin(t *testing.T, name, script string) *Plugin {
	t.Helper()
	m := Manifest{Name: name, Version: "1.0.0", Executable: "run.sh", Actions: []string{"run"}}
	dir := writePlugin(t, t.TempDir(), m, script)
	return &Plugin{Manifest: m, Path: dir, Executable: filepath.Join(dir, "run.sh")}
}
