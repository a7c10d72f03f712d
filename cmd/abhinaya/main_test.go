package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/urfave/cli/v2"

	"github.com/ayusman/abhinaya/internal/calibration"
	"github.com/ayusman/abhinaya/internal/gesture"
	"github.com/ayusman/abhinaya/internal/plugin"
	"github.com/ayusman/abhinaya/internal/store"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	if err := app.Run(append([]string{"abhinaya"}, args...)); err != nil {
		t.Fatalf("run %v error = %v", args, err)
	}
	return out.String()
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	dir := t.TempDir()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String(flagConfig, "", "")
	set.String(flagDataDir, "", "")
	set.String(flagLogLevel, "", "")
	set.String(flagAddr, "", "")
	set.Int(flagCamera, -1, "")
	if err := set.Parse([]string{"--data-dir", dir, "--log-level", "debug", "--addr", ":9999", "--camera", "2"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(cli.NewContext(nil, set, nil))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Storage.DataDir != dir || cfg.Log.Level != "debug" || cfg.Server.Addr != ":9999" || cfg.Camera.Index != 2 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestEventsCommand(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "abhinaya.db"))
	if err != nil {
		t.Fatal(err)
	}
	for _, typ := range []string{"fist", "peace", "wave"} {
		if err := st.Events().Create(context.Background(), &store.Event{Entity: "right", Type: typ}); err != nil {
			t.Fatal(err)
		}
	}
	st.Close()

	out := run(t, "--data-dir", dir, "events", "--limit", "2")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out)
	}
	var e store.Event
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("line is not an event: %v", err)
	}
	if e.Type != "wave" {
		t.Errorf("newest event = %q, want wave", e.Type)
	}
}

func TestCalibrationCommands(t *testing.T) {
	dir := t.TempDir()

	var rec calibration.Record
	if err := json.Unmarshal([]byte(run(t, "--data-dir", dir, "calibration", "show")), &rec); err != nil {
		t.Fatalf("show output is not a record: %v", err)
	}
	if rec.Calibrated {
		t.Error("fresh store reports a calibration")
	}

	st, err := store.New(filepath.Join(dir, "abhinaya.db"))
	if err != nil {
		t.Fatal(err)
	}
	engine := calibrationEngine(st)
	if _, err := engine.Calibrate(context.Background(), []r2.Point{{X: 0.1, Y: 0.1}, {X: 0.9, Y: 0.1}, {X: 0.9, Y: 0.9}, {X: 0.1, Y: 0.9}}, nil); err != nil {
		t.Fatal(err)
	}
	st.Close()

	if err := json.Unmarshal([]byte(run(t, "--data-dir", dir, "calibration", "show")), &rec); err != nil {
		t.Fatal(err)
	}
	if !rec.Calibrated {
		t.Error("saved calibration not shown")
	}

	if out := run(t, "--data-dir", dir, "calibration", "clear"); !strings.Contains(out, "cleared") {
		t.Errorf("clear output = %q", out)
	}
	rec = calibration.Record{}
	if err := json.Unmarshal([]byte(run(t, "--data-dir", dir, "calibration", "show")), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Calibrated {
		t.Error("calibration still present after clear")
	}
}

func TestPluginsCommand_NoDirectory(t *testing.T) {
	if out := run(t, "--data-dir", t.TempDir(), "plugins"); !strings.Contains(out, "no plugin directory") {
		t.Errorf("output = %q", out)
	}
}

func TestPrintPlugins(t *testing.T) {
	var out bytes.Buffer
	printPlugins(&out, []*plugin.Plugin{{
		Manifest: plugin.Manifest{
			Name:    "slides",
			Version: "1.0.0",
			Bindings: map[gesture.Label]string{
				gesture.SwipeRight: "next",
				gesture.SwipeLeft:  "previous",
			},
		},
	}})
	if got, want := out.String(), "slides 1.0.0\tswipe_left=previous, swipe_right=next\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}

	out.Reset()
	printPlugins(&out, nil)
	if out.String() != "no plugins found\n" {
		t.Errorf("empty output = %q", out.String())
	}
}
