package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/contrib/bridges/otelslog"

	"voice-chat/config"
	"voice-chat/internal/application"
	"voice-chat/internal/infra/anthropic"
	"voice-chat/internal/infra/audio"
	"voice-chat/internal/infra/gemini"
	"voice-chat/internal/infra/openai"
	"voice-chat/internal/infra/speech"
	"voice-chat/internal/infra/surface"
	"voice-chat/internal/infra/terminal"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("voice chat stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recognizer := speech.NewRecognizer(
		createAudioSource(cfg.Speech, logger),
		createSpeechToText(cfg.Speech),
		cfg.Speech.ListenTimeout,
		logger.With("component", "speech"),
	)
	if err := recognizer.Open(ctx); err != nil {
		// the orchestrator reports capture as unavailable when the mic is tapped
		logger.Warn("speech capture unavailable", "error", err)
	}

	orchestrator := application.NewOrchestrator(
		recognizer,
		createGateway(cfg.Gateway, logger.With("component", "gateway")),
		application.NewTranscript(cfg.Conversation.MaxTurns),
		logger.With("component", "orchestrator"),
	)

	logger.Info("starting voice chat",
		"provider", cfg.Gateway.Provider,
		"model", cfg.Gateway.Model,
		"speech_source", cfg.Speech.Source,
		"surface", cfg.Surface.Kind,
	)

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := orchestrator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("orchestrator error", "error", err)
		}
	})

	var surfaceErr error
	wg.Go(func() {
		defer cancel()
		switch cfg.Surface.Kind {
		case "terminal":
			surfaceErr = terminal.Run(ctx, orchestrator)
		default:
			surfaceErr = surface.NewServer(cfg.Surface.HTTPAddr, orchestrator, logger.With("component", "surface")).Run(ctx)
		}
	})

	wg.Wait()
	logger.Info("shutting down")
	return surfaceErr
}

func createAudioSource(cfg config.SpeechConfig, logger *slog.Logger) application.AudioSource {
	switch cfg.Source {
	case "http":
		return audio.NewHTTPSource(cfg.HTTPAddr, cfg.AuthToken, logger)
	case "file":
		return audio.NewFileSource(cfg.FileDir)
	case "microphone":
		return audio.NewMicrophoneSource(cfg.SampleRate, logger)
	default:
		logger.Warn("unknown speech source, using http", "source", cfg.Source)
		return audio.NewHTTPSource(cfg.HTTPAddr, cfg.AuthToken, logger)
	}
}

func createSpeechToText(cfg config.SpeechConfig) application.SpeechToText {
	if cfg.OpenAIAPIKey == "" {
		return &application.NoopSTT{}
	}
	return openai.NewWhisperClient(cfg.OpenAIAPIKey, cfg.Language)
}

func createGateway(cfg config.GatewayConfig, logger *slog.Logger) application.Gateway {
	if cfg.Provider == "gemini" {
		if cfg.BaseURL != "" {
			return gemini.NewGatewayWithURL(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.BaseURL, logger)
		}
		return gemini.NewGateway(cfg.APIKey, cfg.Model, cfg.MaxTokens, logger)
	}
	return anthropic.NewGateway(anthropic.Options{
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		Model:          cfg.Model,
		MaxTokens:      cfg.MaxTokens,
		APIVersion:     cfg.APIVersion,
		ConnectTimeout: cfg.ConnectTimeout,
		Timeout:        cfg.Timeout,
	}, logger)
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	if cfg.Format == "otel" {
		return otelslog.NewLogger("voice-chat")
	}

	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
