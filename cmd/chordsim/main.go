package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/zde37/chordsim/internal/api"
	"github.com/zde37/chordsim/internal/chord"
	"github.com/zde37/chordsim/internal/config"
	"github.com/zde37/chordsim/internal/script"
	"github.com/zde37/chordsim/pkg"
)

func main() {
	defaults := config.DefaultConfig()

	// Parse command-line flags
	m := flag.Int("m", defaults.M, "Identifier space size in bits (2^m positions)")
	workers := flag.Int("refresh-workers", defaults.RefreshWorkers, "Goroutines used to refresh finger tables")
	scriptPath := flag.String("script", "", "Scenario script to run (default: built-in reference scenario)")
	httpPort := flag.Int("http-port", defaults.HTTPPort, "Port for HTTP API server, 0 disables it")
	interactive := flag.Bool("interactive", false, "Drive the ring from an interactive menu after the script")
	skipScript := flag.Bool("no-script", false, "Start from an empty ring without running any script")
	logLevel := flag.String("log-level", "warn", "Log level (trace, debug, info, warn, error)")
	logFormat := flag.String("log-format", defaults.LogFormat, "Log format (json, console)")
	logFile := flag.String("log-file", "", "Also write logs to this rotated file")
	flag.Parse()

	// Create configuration
	cfg := &config.Config{
		M:              *m,
		RefreshWorkers: *workers,
		HTTPPort:       *httpPort,
		ScriptPath:     *scriptPath,
		LogLevel:       *logLevel,
		LogFormat:      *logFormat,
		LogFile:        *logFile,
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	loggerConfig := pkg.DefaultConfig()
	loggerConfig.Level = cfg.LogLevel
	loggerConfig.Format = cfg.LogFormat
	if cfg.LogFile != "" {
		loggerConfig.File.Enable = true
		loggerConfig.File.Path = cfg.LogFile
	}

	logger, err := pkg.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	pkg.SetGlobal(logger)

	logger.Info().
		Int("m", cfg.M).
		Int("http_port", cfg.HTTPPort).
		Str("script", cfg.ScriptPath).
		Msg("Starting chordsim")

	ring, err := chord.NewRing(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create ring")
		exit(logger, 1)
	}

	var httpServer *api.Server
	if cfg.HTTPPort > 0 {
		httpServer, err = api.NewServer(&api.Config{HTTPPort: cfg.HTTPPort}, ring, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create HTTP API server")
			cleanup(ring, nil, logger)
			exit(logger, 1)
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start HTTP API server")
			cleanup(ring, nil, logger)
			exit(logger, 1)
		}
	}

	reporter := newTreeReporter(os.Stdout)
	runner, err := script.NewRunner(ring, reporter, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create script runner")
		cleanup(ring, httpServer, logger)
		exit(logger, 1)
	}

	if !*skipScript {
		name, src, err := loadScript(cfg.ScriptPath)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to load script")
			cleanup(ring, httpServer, logger)
			exit(logger, 1)
		}

		if err := runner.Run(name, src); err != nil {
			color.Red("Script failed: %v\n", err)
			cleanup(ring, httpServer, logger)
			exit(logger, 1)
		}
	}

	if *interactive {
		newMenu(ring, runner).loop()
	}

	if httpServer != nil {
		logger.Info().Int("port", cfg.HTTPPort).Msg("chordsim is serving, press Ctrl+C to stop")

		// Wait for interrupt signal
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		sig := <-sigChan
		logger.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
	}

	cleanup(ring, httpServer, logger)
	exit(logger, 0)
}

// loadScript returns the script at path, or the reference scenario when path is empty.
func loadScript(path string) (string, string, error) {
	if path == "" {
		return "reference.chord", script.Reference, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read script: %w", err)
	}
	return path, string(data), nil
}

// cleanup performs graceful shutdown of all components
func cleanup(ring *chord.Ring, httpServer *api.Server, logger *pkg.Logger) {
	logger.Debug().Msg("Starting graceful shutdown")

	// Stop HTTP server
	if httpServer != nil {
		if err := httpServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping HTTP server")
		}
	}

	if err := ring.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Error shutting down ring")
	}
}

// exit flushes the logger before leaving the process.
func exit(logger *pkg.Logger, code int) {
	if err := logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close logger: %v\n", err)
	}
	os.Exit(code)
}
