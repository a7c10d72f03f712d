package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/calibration"
	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/gesture"
	"github.com/ayusman/abhinaya/internal/logging"
	"github.com/ayusman/abhinaya/internal/plugin"
	"github.com/ayusman/abhinaya/internal/server"
	"github.com/ayusman/abhinaya/internal/server/api"
	"github.com/ayusman/abhinaya/internal/sink"
	"github.com/ayusman/abhinaya/internal/store"
	"github.com/ayusman/abhinaya/internal/tracking"
)

// loadConfig reads the config file and environment, then applies flags.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return cfg, err
	}
	if v := c.String(flagDataDir); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := c.String(flagLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := c.String(flagAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := c.Int(flagCamera); v >= 0 {
		cfg.Camera.Index = v
	}
	return cfg, cfg.Validate()
}

func openStore(cfg config.Config) (*store.Store, error) {
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return store.New(cfg.DatabasePath())
}

// submitters hands each record to every dispatcher.
type submitters []*sink.Dispatcher

func (s submitters) Submit(rec gesture.Record) bool {
	ok := true
	for _, d := range s {
		ok = d.Submit(rec) && ok
	}
	return ok
}

func (s submitters) Close() error {
	var err error
	for _, d := range s {
		err = multierr.Append(err, d.Close())
	}
	return err
}

// buildSinks gives each downstream consumer its own dispatcher so a slow
// backend cannot starve the others. The returned closers run after the
// dispatchers drain.
func buildSinks(cfg config.Config, st *store.Store, hub *server.Hub, logger *zap.SugaredLogger) (submitters, []func() error) {
	opts := []sink.DispatcherOption{sink.WithLogger(logger), sink.WithTimeout(cfg.PushTimeout())}
	var closers []func() error

	subs := submitters{
		sink.NewDispatcher(sink.Multi{hub, sink.NewEventSink(st.Events(), cfg.Storage.EventRetention)}, opts...),
	}

	if cfg.Backend.Enabled && cfg.Backend.URL != "" {
		backend := sink.NewHTTPSink(cfg.Backend.URL, &http.Client{})
		subs = append(subs, sink.NewDispatcher(backend, opts...))
		logger.Infof("Pushing gestures to %s", backend.URL())
	}

	if cfg.Redis.Enabled {
		rs := sink.NewRedisSink(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), cfg.Redis.Prefix)
		subs = append(subs, sink.NewDispatcher(rs, opts...))
		closers = append(closers, rs.Close)
		logger.Infof("Publishing gestures on %s", rs.Channel())
	}

	if dir := pluginDir(cfg); dir != "" {
		mgr := plugin.NewManager(dir, logger)
		if err := mgr.Discover(); err != nil {
			logger.Warnf("Plugin discovery failed: %v", err)
		}
		hooks := plugin.NewHooks(mgr, plugin.NewExecutor(cfg.PluginTimeout()))
		subs = append(subs, sink.NewDispatcher(hooks,
			sink.WithLogger(logger),
			sink.WithTimeout(cfg.PluginTimeout()),
		))
	}

	return subs, closers
}

func pluginDir(cfg config.Config) string {
	if cfg.Plugins.Dir != "" {
		return cfg.Plugins.Dir
	}
	dir := filepath.Join(cfg.Storage.DataDir, "plugins")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}

// newDetector prefers the MediaPipe service and falls back to a detector
// that never finds anything.
func newDetector(logger *zap.SugaredLogger) detector.Detector {
	dc := detector.DefaultConfig()
	dc.MaxHands = tracking.MaxHands
	mp, err := detector.NewMediaPipeDetector(dc)
	if err != nil {
		logger.Warnf("MediaPipe not available (%v), using mock detector", err)
		return detector.NewMockDetector()
	}
	logger.Info("Using MediaPipe landmark detection")
	return mp
}

func serveAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger, cleanup, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	engine := calibration.NewEngine(
		calibration.NewSettingsStorage(st.Settings()),
		calibration.WithLogger(logger),
	)
	if err := engine.Load(c.Context); err != nil {
		logger.Warnf("Ignoring saved calibration: %v", err)
	}

	hub := server.NewHub(logger)
	subs, closers := buildSinks(cfg, st, hub, logger)
	defer func() {
		err = multierr.Append(err, subs.Close())
		for _, closeFn := range closers {
			err = multierr.Append(err, closeFn())
		}
	}()

	proc := tracking.NewProcessor(app.TrackingFrom(cfg),
		tracking.WithLogger(logger),
		tracking.WithCalibration(engine),
	)
	cam := capture.NewCamera(cfg.Camera.Index, capture.WithFPS(cfg.AdaptiveActiveFPS))
	worker := app.New(cam, newDetector(logger), proc,
		app.WithLogger(logger),
		app.WithSubmitter(subs),
		app.WithSettings(app.SettingsFrom(cfg)),
	)
	defer func() { err = multierr.Append(err, worker.Close()) }()

	srv := server.New(server.Config{
		StaticDir:   findWebDir(cfg.Storage.DataDir),
		Tracker:     worker,
		Frames:      worker,
		Calibration: engine,
		Events:      st.Events(),
		Settings:    api.NewConfigHandler(cfg, worker.ApplyConfig),
		Hub:         hub,
		Logger:      logger,
	})

	if c.Bool(flagStart) {
		if err := worker.Start(); err != nil {
			logger.Warnf("Tracking not started: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, cfg.Server.Addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		return worker.Stop()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// findWebDir returns the first existing preview UI directory, or "".
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
