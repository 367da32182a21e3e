package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/sensoragent/internal/agent"
	"codeberg.org/mutker/sensoragent/internal/config"
	"codeberg.org/mutker/sensoragent/internal/errors"
	"codeberg.org/mutker/sensoragent/internal/logger"
	"codeberg.org/mutker/sensoragent/internal/pid"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, ok := logger.ParseLevel(cfg.LogLevel)
	if !ok {
		level = logger.InfoLevel
	}
	logger.Init(level, logger.IsService())
	logger.Debug().
		Str("endpoint", cfg.Endpoint).
		Str("sensor_source", cfg.SensorSource).
		Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.FatalWithCode(appErr).Msg("Failed to write PID file")
		}
		logger.Fatal().Err(err).Msg("Failed to write PID file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go handleSignals(cancel)

	res, err := agent.New(cfg, agent.Options{OpenWait: agent.DefaultOpenWait}).Run(ctx)
	cancel()
	cleanup()

	if err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.FatalWithCode(appErr).Msg("Session failed")
		}
		logger.Fatal().Err(err).Msg("Session failed")
	}

	logger.Info().
		Str("session", res.SessionID).
		Str("device", res.DeviceID).
		Str("reason", res.Summary.Reason).
		Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup() {
	if err := pid.Remove(); err != nil {
		logger.Error().Err(err).Msg("Failed to remove PID file")
	}
}
