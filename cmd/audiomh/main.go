package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asoltys/audiomh/internal/capture"
	"github.com/asoltys/audiomh/internal/config"
	"github.com/asoltys/audiomh/internal/delivery"
	"github.com/asoltys/audiomh/internal/dispatch"
	"github.com/asoltys/audiomh/internal/engine"
	"github.com/asoltys/audiomh/internal/metrics"
	"github.com/asoltys/audiomh/internal/segmenter"
	"github.com/asoltys/audiomh/internal/server"
	"github.com/asoltys/audiomh/internal/transcribe"
)

const (
	serviceName    = "audiomh"
	serviceVersion = "1.0.0"

	shutdownTimeout = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional, defaults are built in)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	apiKey, err := config.LoadAPIKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load credential: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
	)

	logger.Info("Configuration loaded",
		slog.Int("sample_rate", cfg.Capture.SampleRate),
		slog.Int("channels", cfg.Capture.Channels),
		slog.Float64("energy_threshold", cfg.Segmenter.EnergyThreshold),
		slog.Float64("min_speech_duration", cfg.Segmenter.MinSpeechDuration),
		slog.Float64("silence_duration", cfg.Segmenter.SilenceDuration),
		slog.Float64("max_segment_duration", cfg.Segmenter.MaxSegmentDuration),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("pipe_path", cfg.Delivery.PipePath),
	)

	appMetrics := metrics.NewMetrics()

	transcriber, err := transcribe.NewClient(transcribe.Config{
		Endpoint: cfg.Transcription.Endpoint,
		APIKey:   apiKey,
		Model:    cfg.Transcription.Model,
		Timeout:  cfg.Transcription.GetTimeoutDuration(),
	})
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sink, err := delivery.NewFIFOWriter(cfg.Delivery.PipePath, logger)
	if err != nil {
		logger.Error("Failed to create delivery writer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dispatcher, err := dispatch.New(dispatch.Config{
		ExportTimeout: cfg.Transcription.GetTimeoutDuration(),
	}, transcriber, sink, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create dispatcher", slog.String("error", err.Error()))
		os.Exit(1)
	}

	seg, err := segmenter.New(segmenter.Config{
		EnergyThreshold:    cfg.Segmenter.EnergyThreshold,
		MinSpeechDuration:  cfg.Segmenter.GetMinSpeechDuration(),
		SilenceDuration:    cfg.Segmenter.GetSilenceDuration(),
		MaxSegmentDuration: cfg.Segmenter.GetMaxSegmentDuration(),
		PollInterval:       cfg.Segmenter.GetPollInterval(),
		SampleRate:         cfg.Capture.SampleRate,
		Channels:           cfg.Capture.Channels,
	}, dispatcher, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create segmenter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	source, err := capture.NewSource(capture.Config{
		SampleRate: cfg.Capture.SampleRate,
		Channels:   cfg.Capture.Channels,
		QueueSize:  cfg.Capture.QueueSize,
	}, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create capture source", slog.String("error", err.Error()))
		os.Exit(1)
	}

	eng, err := engine.New(source, seg, dispatcher, logger)
	if err != nil {
		logger.Error("Failed to create engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := eng.Start(); err != nil {
		logger.Error("Failed to start engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var monitoring *server.HTTPServer
	if cfg.Monitoring.Enabled {
		monitoring = server.NewHTTPServer(cfg.Monitoring.Address, logger, eng)
		if err := monitoring.Start(); err != nil {
			logger.Error("Failed to start monitoring server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started, listening to microphone")

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := eng.Stop(shutdownCtx); err != nil {
		logger.Error("Error during engine shutdown", slog.String("error", err.Error()))
	}

	if monitoring != nil {
		if err := monitoring.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping monitoring server", slog.String("error", err.Error()))
		}
	}

	status := eng.GetStatus()
	logger.Info("Final statistics",
		slog.Uint64("blocks_captured", status.Capture.BlocksCaptured),
		slog.Uint64("blocks_dropped", status.Capture.BlocksDropped),
		slog.Uint64("segments_emitted", status.Segmenter.SegmentsEmitted),
		slog.Uint64("segments_discarded", status.Segmenter.SegmentsDiscarded),
		slog.Uint64("transcriptions_delivered", status.Dispatch.Delivered),
		slog.Uint64("exports_failed", status.Dispatch.Failed),
	)

	logger.Info("Service stopped")
}

// initLogger creates the structured logger from the logging configuration.
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
