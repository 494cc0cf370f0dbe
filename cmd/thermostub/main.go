package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/thermochart/internal/config"
	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/history"
	"codeberg.org/mutker/thermochart/internal/logger"
	"codeberg.org/mutker/thermochart/internal/simulator"
	"codeberg.org/mutker/thermochart/internal/stub"
)

const shutdownTimeout = 5 * time.Second

var cfg *config.StubConfig

func init() {
	var err error
	cfg, err = config.LoadStub()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	errFactory := errors.New()

	store, err := history.NewService(history.Config{
		DBPath:          cfg.Database,
		BackupOnMigrate: true,
		Enabled:         cfg.History,
		BatchSize:       cfg.BatchSize,
		BatchTimeout:    time.Duration(cfg.BatchTimeout) * time.Second,
	}, logger.With("history"))
	if err != nil {
		logger.FatalWithCode(errFactory.Wrap(errors.ErrInitApp, err)).Msg("Failed to open history")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	hub := stub.NewHub()
	recorder, err := stub.NewRecorder(ctx, store, hub)
	if err != nil {
		logger.FatalWithCode(errFactory.Wrap(errors.ErrInitApp, err)).Msg("Failed to load history")
	}

	simCfg := simulator.DefaultConfig()
	simCfg.Desired = cfg.Desired
	thermostat, err := simulator.New(simCfg)
	if err != nil {
		logger.FatalWithCode(errFactory.Wrap(errors.ErrInitApp, err)).Msg("Invalid setpoint")
	}

	server := stub.NewServer(cfg.Listen, recorder, hub, thermostat)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			var coded errors.Error
			if errors.As(err, &coded) {
				logger.ErrorWithCode(coded).Msg("HTTP server stopped")
			}
			cancel()
		}
	}()

	logger.Info().
		Dur("interval", cfg.Interval).
		Float64("desired", cfg.Desired).
		Bool("history", store.IsPersistent()).
		Msg("Simulating thermostat")

	if err := thermostat.Run(ctx, cfg.Interval, recorder); err != nil {
		logger.ErrorWithCode(errFactory.Wrap(errors.ErrMainLoop, err)).Msg("Error in simulation loop")
	}

	cleanup(server, store)
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup(server *stub.Server, store history.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.ErrorWithCode(errors.New().Wrap(errors.ErrShutdownFailed, err)).Msg("Failed to stop HTTP server")
	}
	if err := store.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close history")
	}
	logger.Info().Msg("Exiting...")
}
