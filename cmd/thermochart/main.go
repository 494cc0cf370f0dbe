package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/thermochart/internal/config"
	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/ingest"
	"codeberg.org/mutker/thermochart/internal/kiosk"
	"codeberg.org/mutker/thermochart/internal/logger"
	"codeberg.org/mutker/thermochart/internal/pid"
	"codeberg.org/mutker/thermochart/internal/telemetry"
)

const (
	appName         = "thermochart"
	shutdownTimeout = 5 * time.Second
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().
		Str("server", cfg.Server).
		Str("listen", cfg.Listen).
		Msg("Config loaded")
}

func main() {
	errFactory := errors.New()

	if err := pid.Write(cfg.PIDDir, appName); err != nil {
		var coded errors.Error
		if errors.As(err, &coded) {
			logger.FatalWithCode(coded).Msg("Failed to write PID file")
		}
		logger.Fatal().Err(err).Msg("Failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(cfg.PIDDir, appName); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	collector, err := telemetry.NewService(telemetry.Config{Enabled: cfg.Metrics, Namespace: appName})
	if err != nil {
		logger.FatalWithCode(errFactory.Wrap(errors.ErrInitApp, err)).Msg("Failed to initialize telemetry")
	}

	transport, err := ingest.NewHTTPTransport(cfg.Server, &http.Client{})
	if err != nil {
		logger.FatalWithCode(errFactory.Wrap(errors.ErrInitApp, err)).Msg("Invalid server address")
	}

	opts, err := kiosk.OptionsFromConfig(cfg, collector)
	if err != nil {
		logger.FatalWithCode(errFactory.Wrap(errors.ErrInitApp, err)).Msg("Invalid display options")
	}

	display := kiosk.New(transport, opts)
	server := kiosk.NewServer(cfg.Listen, display, collector.Handler())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	go func() {
		if err := server.ListenAndServe(); err != nil {
			var coded errors.Error
			if errors.As(err, &coded) {
				logger.ErrorWithCode(coded).Msg("HTTP server stopped")
			}
			cancel()
		}
	}()

	if err := display.Run(ctx); err != nil {
		logger.ErrorWithCode(errFactory.Wrap(errors.ErrMainLoop, err)).Msg("Error in display loop")
	}

	cleanup(server)
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup(server *kiosk.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.ErrorWithCode(errors.New().Wrap(errors.ErrShutdownFailed, err)).Msg("Failed to stop HTTP server")
	}
	logger.Info().Msg("Exiting...")
}
