package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ayusman/abhinaya/internal/calibration"
	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/gesture"
	"github.com/ayusman/abhinaya/internal/plugin"
	"github.com/ayusman/abhinaya/internal/store"
)

// withStore loads the configuration, opens the store and runs fn.
func withStore(c *cli.Context, fn func(cfg config.Config, st *store.Store) error) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()
	return fn(cfg, st)
}

func eventsAction(c *cli.Context) error {
	limit := c.Int(flagLimit)
	if limit <= 0 {
		return fmt.Errorf("--%s must be positive", flagLimit)
	}
	return withStore(c, func(_ config.Config, st *store.Store) error {
		events, err := st.Events().ListRecent(c.Context, limit)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(c.App.Writer)
		for _, e := range events {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	})
}

func calibrationEngine(st *store.Store) *calibration.Engine {
	return calibration.NewEngine(calibration.NewSettingsStorage(st.Settings()))
}

func calibrationShowAction(c *cli.Context) error {
	return withStore(c, func(_ config.Config, st *store.Store) error {
		engine := calibrationEngine(st)
		if err := engine.Load(c.Context); err != nil {
			return err
		}
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(engine.Status())
	})
}

func calibrationClearAction(c *cli.Context) error {
	return withStore(c, func(_ config.Config, st *store.Store) error {
		if err := calibrationEngine(st).Clear(c.Context); err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, "calibration cleared")
		return nil
	})
}

func pluginsAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	dir := pluginDir(cfg)
	if dir == "" {
		fmt.Fprintln(c.App.Writer, "no plugin directory")
		return nil
	}

	mgr := plugin.NewManager(dir, zap.NewNop().Sugar())
	if err := mgr.Discover(); err != nil {
		return err
	}
	printPlugins(c.App.Writer, mgr.List())
	return nil
}

func printPlugins(w io.Writer, plugins []*plugin.Plugin) {
	if len(plugins) == 0 {
		fmt.Fprintln(w, "no plugins found")
		return
	}
	for _, p := range plugins {
		bindings := lo.MapToSlice(p.Manifest.Bindings, func(l gesture.Label, action string) string {
			return fmt.Sprintf("%s=%s", l, action)
		})
		slices.Sort(bindings)
		fmt.Fprintf(w, "%s %s\t%s\n", p.Manifest.Name, p.Manifest.Version, strings.Join(bindings, ", "))
	}
}
