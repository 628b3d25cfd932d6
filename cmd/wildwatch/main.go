// Package main runs the wildwatch control panel.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hybridgroup/mjpeg"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rangerlab/wildwatch"
	"github.com/rangerlab/wildwatch/alert"
	"github.com/rangerlab/wildwatch/detector"
	"github.com/rangerlab/wildwatch/source"
	"github.com/rangerlab/wildwatch/stream"
	"github.com/rangerlab/wildwatch/web"
)

const (
	flagConfig = "config"
	flagListen = "listen"
	flagDebug  = "debug"

	shutdownTimeout = 10 * time.Second
)

func main() {

	app := &cli.App{
		Name:  "wildwatch",
		Usage: "watch a camera or video for hunters near wildlife and raise Telegram alerts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "JSON configuration `FILE`, built in defaults are used when not set",
				EnvVars: []string{"WILDWATCH_CONFIG"},
			},
			&cli.StringFlag{
				Name:  flagListen,
				Usage: "address to serve the control panel on, overrides the config",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {

	var l *zap.Logger
	var err error

	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}

	if err != nil {
		return nil, errors.Wrap(err, "error creating logger")
	}

	return l.Sugar(), nil
}

func loadConfig(c *cli.Context) (*wildwatch.Config, error) {

	cfg := wildwatch.DefaultConfig()

	if path := c.String(flagConfig); path != "" {
		var err error

		if cfg, err = wildwatch.ReadConfig(path); err != nil {
			return nil, err
		}
	}

	if listen := c.String(flagListen); listen != "" {
		cfg.Listen = listen
	}

	return cfg, nil
}

func run(c *cli.Context) (err error) {

	logger, err := newLogger(c.Bool(flagDebug))

	if err != nil {
		return err
	}

	defer logger.Sync()

	cfg, err := loadConfig(c)

	if err != nil {
		return err
	}

	if cfg.Alert.Token == "" || cfg.Alert.ChatID == "" {
		logger.Warnw("telegram bot token or chat id not configured, alerts will fail to send")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory, err := detector.NewFactory(cfg.Model)

	if err != nil {
		return err
	}

	loader := detector.NewLoader(factory, logger.Named("detector"))

	defer func() {
		err = multierr.Append(err, loader.Close())
	}()

	settings := wildwatch.NewSettings(cfg.InitialValues())
	hub := web.NewHub(logger.Named("web"))

	loadInitialModel(cfg, loader, settings, hub, logger)

	opener := source.NewCaptureOpener(cfg.Capture)
	original := mjpeg.NewStream()
	annotated := mjpeg.NewStream()

	runner := stream.NewRunner(stream.Config{
		Settings: settings,
		Opener:   opener,
		Detector: loader,
		Trigger: alert.Trigger{
			Predator:  cfg.Alert.Predator,
			Protected: cfg.Alert.Protected,
		},
		Dispatcher: alert.NewDispatcher(alert.NewTelegram(cfg.Alert), cfg.Alert.ImagePath,
			logger.Named("alert")),
		Message:   cfg.Alert.Message,
		Original:  original,
		Annotated: annotated,
		Reporter:  hub,
	}, logger.Named("stream"))

	panel, err := web.NewServer(ctx, web.Options{
		Config:    cfg,
		Settings:  settings,
		Loader:    loader,
		Runner:    runner,
		Uploads:   opener.Uploads,
		Original:  original,
		Annotated: annotated,
		Hub:       hub,
	}, logger.Named("web"))

	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           panel.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		logger.Infow("control panel listening", "url", "http://"+cfg.Listen)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return errors.Wrap(err, "control panel server failed")
	case <-ctx.Done():
	}

	logger.Infow("shutting down")

	runner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// MJPEG and websocket clients never finish on their own so Shutdown
	// gives up at the timeout and the listener is closed regardless
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
	}

	select {
	case <-runner.Done():
	case <-shutdownCtx.Done():
		logger.Warnw("inference loop did not stop in time")
	}

	return nil
}

// loadInitialModel loads the default preset so the panel starts with a
// model.  A failure is reported on the panel, the operator can pick another
// preset.
func loadInitialModel(cfg *wildwatch.Config, loader *detector.Loader,
	settings *wildwatch.Settings, reporter wildwatch.Reporter, logger *zap.SugaredLogger) {

	p, err := detector.ResolvePreset(cfg.Model.Presets, settings.Snapshot().Presets)

	if err == nil {
		_, err = loader.Load(p)
	}

	if err != nil {
		logger.Warnw("initial model not loaded", "error", err)
		reporter.Report(wildwatch.NewNotice(wildwatch.LevelError, err.Error()))
		return
	}

	_, labels, _ := loader.Loaded()
	settings.SetClasses(labels.HeadIndices(cfg.Defaults.ClassCount))
}
