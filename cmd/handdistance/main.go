package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/handdistance/internal/app"
	"github.com/ayusman/handdistance/internal/capture"
	"github.com/ayusman/handdistance/internal/config"
	"github.com/ayusman/handdistance/internal/detector"
	"github.com/ayusman/handdistance/internal/gesture"
	"github.com/ayusman/handdistance/internal/logger"
	"github.com/ayusman/handdistance/internal/store"
	"github.com/ayusman/handdistance/internal/ui"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load(os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	if cfg.DumpFSM {
		fmt.Println(app.Visualize())
		return
	}

	log, err := logger.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return errors.Wrap(err, "create data directory")
	}

	st, err := store.New(filepath.Join(cfg.DataDir, "handdistance.db"))
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer st.Close()

	stored, err := st.Settings().All()
	if err != nil {
		return err
	}
	if err := cfg.MergeSettings(stored); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.SaveSettings {
		if err := st.Settings().SetAll(cfg.Settings()); err != nil {
			return err
		}
		log.Infof("saved settings to %s", st.Path())
	}

	// The session closes the camera, source and monitor when it ends.
	source := landmarkSource(log)
	activity := capture.NewActivityMonitor(cfg.MotionThreshold, capture.DefaultIdleAfter)

	entry := log.WithField("camera", cfg.CameraID)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithLogEntry(ctx, entry)

	a := app.New(app.Config{
		Camera:        capture.NewCamera(cfg.Camera()),
		Source:        source,
		Tracker:       gesture.NewTracker(gesture.NewClassifier(cfg.Gesture()), cfg.MaxHeldFrames),
		Activity:      activity,
		IdleFPS:       cfg.IdleFPS,
		ActiveFPS:     cfg.ActiveFPS,
		SurfaceWidth:  cfg.SurfaceWidth,
		SurfaceHeight: cfg.SurfaceHeight,
		Mirror:        cfg.Mirror,
		ForwardFrames: cfg.UI == config.UIWindow,
		Sessions:      st.Sessions(),
	})
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer a.Stop()

	entry.Infof("pinch counter running with %s presentation", cfg.UI)

	// The presenter owns the main goroutine until the user quits or the
	// process is signalled.
	if err := presenter(cfg, entry, cancel).Run(ctx, a.Updates()); err != nil {
		return err
	}

	if err := a.Stop(); err != nil {
		entry.WithError(err).Warn("session ended with an error")
	}
	entry.WithField("pinches", a.State().Count).Info("session ended")
	return nil
}

func landmarkSource(log logrus.FieldLogger) detector.Source {
	d, err := detector.NewServiceDetector(detector.DefaultConfig(), log)
	if err != nil {
		log.WithError(err).Warn("landmark service unavailable, no hands will be detected")
		return detector.NewMockDetector()
	}
	return d
}

func presenter(cfg config.Config, log logrus.FieldLogger, quit func()) ui.Presenter {
	switch cfg.UI {
	case config.UITray:
		return ui.NewTray(quit)
	case config.UILog:
		return ui.NewLogPresenter(log)
	default:
		return ui.NewOverlay("Hand Distance", cfg.Mirror, cfg.SurfaceWidth, cfg.SurfaceHeight)
	}
}
