package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gen2brain/alsad/card"
	"github.com/gen2brain/alsad/internal/config"
	"github.com/gen2brain/alsad/internal/hotplug"
	"github.com/gen2brain/alsad/internal/logging"
	"github.com/gen2brain/alsad/internal/metrics"
)

func newServeCmd(opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Bring up the sound cards and follow jacks and hotplug until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, opts)
		},
	}
}

func serve(ctx context.Context, opts *config.Options) error {
	s, err := newServer(opts, card.ALSA{})
	if err != nil {
		return err
	}

	if err := prometheus.Register(s.collector); err != nil {
		logger.Warn("Failed to register device metrics", "error", err)
	}
	unsubscribe := metrics.Subscribe(s.bus)
	defer unsubscribe()

	if err := s.thread.Start(); err != nil {
		s.close()

		return fmt.Errorf("failed to start audio thread: %w", err)
	}

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	defer cancelLoop()

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- s.loop.Run(loopCtx)
	}()

	monitor := startHotplug(s, opts)

	if opts.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, opts.MetricsAddr); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	watcher := config.NewWatcher(opts.Config, config.LoadLoggingConfig, logger,
		config.WithDebounce[logging.Config](opts.ReloadDebounce))
	watcher.OnReload(func(cfg logging.Config) {
		logging.Initialize(cfg)
		logger.Info("Logging config reloaded", "level", cfg.Level, "format", cfg.Format)
	})
	if err := watcher.Start(); err != nil {
		logger.Warn("Config reload disabled", "path", opts.Config, "error", err)
	}

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn("Failed to notify systemd", "error", err)
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case runErr = <-loopDone:
		logger.Error("Main loop stopped", "error", runErr)
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if err := watcher.Stop(); err != nil {
		logger.Warn("Failed to stop config watcher", "error", err)
	}

	if monitor != nil {
		if err := monitor.Stop(); err != nil {
			logger.Warn("Failed to stop hotplug monitor", "error", err)
		}
	}

	if ctx.Err() != nil {
		cancelLoop()
		runErr = <-loopDone
	}

	s.close()

	return runErr
}

// startHotplug reports the present cards and, when enabled, follows cards coming and going.
func startHotplug(s *server, opts *config.Options) *hotplug.Monitor {
	if opts.Hotplug {
		m := hotplug.New(opts.DevDir, s)
		err := m.Start()
		if err == nil {
			return m
		}
		logger.Warn("Hotplug disabled", "dir", opts.DevDir, "error", err)
	}

	indices, err := hotplug.Scan(opts.DevDir)
	if err != nil {
		logger.Error("Failed to list cards", "dir", opts.DevDir, "error", err)

		return nil
	}

	for _, index := range indices {
		s.CardAdded(index)
	}

	return nil
}
