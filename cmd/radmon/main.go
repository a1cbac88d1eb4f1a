package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/radmon/internal/alert"
	"codeberg.org/mutker/radmon/internal/clock"
	"codeberg.org/mutker/radmon/internal/config"
	"codeberg.org/mutker/radmon/internal/device"
	"codeberg.org/mutker/radmon/internal/errors"
	"codeberg.org/mutker/radmon/internal/logger"
	"codeberg.org/mutker/radmon/internal/logstore"
	"codeberg.org/mutker/radmon/internal/pid"
	"codeberg.org/mutker/radmon/internal/pulse"
	"codeberg.org/mutker/radmon/internal/sampling"
	"codeberg.org/mutker/radmon/internal/sensor"
	"codeberg.org/mutker/radmon/internal/status"
	"codeberg.org/mutker/radmon/internal/telemetry"
	"codeberg.org/mutker/radmon/internal/uploader"
)

// Exit code the service unit maps to an unconditional restart.
const restartExitCode = 2

// Counts are normalized to a one-minute measurement period (CPM).
const measurementPeriod = time.Minute

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	debug := cfg.Debug || cfg.LogLevel == "debug"
	verbose := cfg.Verbose || cfg.LogLevel == "info"
	logger.Init(debug, verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := run(); err != nil {
		if errors.IsFatal(err) {
			logger.Error().Err(err).Msg("fatal error, exiting for supervisor restart")
			os.Exit(restartExitCode)
		}
		logger.Error().Err(err).Msg("error in main loop")
		os.Exit(1)
	}
}

func run() error {
	if err := pid.Write(); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Warn().Err(err).Msg("failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	clk := clock.System{}

	counter := &pulse.Counter{}
	if cfg.PulsePort != "" {
		src, err := pulse.OpenSerial(cfg.PulsePort, cfg.PulseBaud, counter)
		if err != nil {
			return err
		}
		defer src.Close()
		go src.Run(ctx)
		logger.Info().Str("port", cfg.PulsePort).Msg("pulse source attached")
	} else {
		logger.Warn().Msg("no pulse source configured, counting nothing")
	}

	var caseSensor sampling.TempSensor = sensor.Disabled{}
	if cfg.ProbePort != "" {
		bus, err := sensor.OpenUARTBus(cfg.ProbePort)
		if err != nil {
			return err
		}
		defer bus.Close()
		caseSensor = sensor.NewProbe(bus)
		logger.Info().Str("port", cfg.ProbePort).Msg("case probe attached")
	}

	window := time.Duration(cfg.Window) * time.Second
	agg := sampling.NewAggregator(counter, caseSensor, sensor.NewCPUTemp(),
		window, measurementPeriod, cfg.TubeFactor)

	store, err := logstore.New(cfg.LogPath, clk)
	if err != nil {
		// The loop is still attempted; every append will fail on its own
		// and be logged until storage comes back.
		logger.Error().Err(err).Msg("failed to initialize log store")
	}

	var notifier alert.Notifier = alert.NopNotifier{}
	if cfg.AlertURL != "" {
		notifier = alert.NewHTTPNotifier(cfg.AlertURL, cfg.AlertAPIKey)
	}
	evaluator := alert.NewEvaluator(notifier, cfg.DoseThreshold, cfg.TempThreshold,
		time.Duration(cfg.AlertCooldown)*time.Minute)

	var link uploader.Link = uploader.StaticLink{}
	if cfg.LinkUpCmd != "" {
		link = &uploader.ExecLink{UpCmd: cfg.LinkUpCmd, DownCmd: cfg.LinkDownCmd}
	}
	client := uploader.NewClient(cfg.CollectorURL, cfg.ChannelID, cfg.WriteAPIKey)
	up, err := uploader.New(link, client, cfg.BatchSize,
		time.Duration(cfg.BatchDelay)*time.Second,
		time.Duration(cfg.LinkTimeout)*time.Second)
	if err != nil {
		return err
	}

	archive, err := telemetry.NewService(telemetry.Config{
		DBPath:  cfg.TelemetryDB,
		Enabled: cfg.Telemetry,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := archive.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close telemetry archive")
		}
	}()

	dev := device.New(device.Params{
		Clock:             clk,
		Aggregator:        agg,
		Store:             store,
		Uploader:          up,
		Evaluator:         evaluator,
		Archive:           archive,
		Tick:              time.Duration(cfg.Interval) * time.Second,
		Window:            window,
		TransmitThreshold: cfg.TransmitThreshold,
	})

	if cfg.StatusAddr != "" {
		srv := status.New(cfg.StatusAddr, dev)
		srv.Start()
		defer srv.Shutdown()
	}

	return dev.Run(ctx)
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
