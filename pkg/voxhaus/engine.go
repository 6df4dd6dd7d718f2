package voxhaus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/voxhaus/voxhaus/pkg/adapters/stt"
	"github.com/voxhaus/voxhaus/pkg/bus"
	"github.com/voxhaus/voxhaus/pkg/configutil"
	"github.com/voxhaus/voxhaus/pkg/logging"
	"github.com/voxhaus/voxhaus/pkg/providers/deepgram"
	"github.com/voxhaus/voxhaus/pkg/providers/mock"
	"github.com/voxhaus/voxhaus/pkg/recognizer"
	"github.com/voxhaus/voxhaus/pkg/service"
	"github.com/voxhaus/voxhaus/pkg/transcode"
	"github.com/voxhaus/voxhaus/pkg/transports/telegram"
)

// Engine owns the assembled plugin: provider registry, orchestrator,
// event bus, chat session and the HTTP service surface.
type Engine struct {
	cfg     Config
	logger  *slog.Logger
	events  *bus.Bus
	session *telegram.Session
	app     *fiber.App

	cancelEvents func()
}

func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	engineLogger := logging.NewComponentLogger(logger, "engine")

	registry := recognizer.NewRegistry()
	for entityID, vendor := range cfg.Vendors {
		capability, err := buildCapability(vendor, logger)
		if err != nil {
			return nil, fmt.Errorf("vendor %s: %w", entityID, err)
		}
		registry.Register(entityID, capability)
		engineLogger.Info("capability_registered",
			slog.String("entity_id", entityID),
			slog.String("provider", vendor.Provider))
	}

	transcoder := transcode.New(transcode.Config{
		FFmpegPath: cfg.Transcoder.FFmpegPath,
		Timeout:    time.Duration(cfg.Transcoder.TimeoutSeconds) * time.Second,
		Logger:     logger,
	})
	orch := recognizer.NewOrchestrator(recognizer.Config{
		Registry:        registry,
		Transcoder:      transcoder,
		DefaultLanguage: cfg.DefaultLanguage,
		ChunkSize:       cfg.Recognition.ChunkSize,
		Timeout:         time.Duration(cfg.Recognition.TimeoutSeconds) * time.Second,
		Logger:          logger,
	})

	events := bus.New(logger)
	telegramCfg := cfg.Telegram
	session := telegram.NewSession(telegram.Config{
		Options: func() telegram.Options {
			return telegram.Options{
				Enabled:            telegramCfg.Enabled,
				BotToken:           telegramCfg.BotToken,
				ChatIDs:            telegramCfg.ChatIDs,
				STTEntityID:        telegramCfg.STTEntityID,
				SendReply:          telegramCfg.SendReply,
				MaxDurationSeconds: telegramCfg.MaxDurationSeconds,
			}
		},
		Orchestrator: orch,
		Events:       events,
		Logger:       logger,
	})

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	service.New(orch, session, logger).Register(app)

	return &Engine{
		cfg:     cfg,
		logger:  engineLogger,
		events:  events,
		session: session,
		app:     app,
	}, nil
}

// Start brings the HTTP surface and, when enabled, the chat session up.
func (e *Engine) Start(ctx context.Context) error {
	go func() {
		if err := e.app.Listen(e.cfg.ServerAddr); err != nil {
			e.logger.Error("http_server_error", slog.String("error", err.Error()))
		}
	}()
	e.logger.Info("service_listening", slog.String("addr", e.cfg.ServerAddr))

	eventCh, cancel := e.events.Subscribe(bus.EventTranscriptionReceived)
	e.cancelEvents = cancel
	go func() {
		for evt := range eventCh {
			e.logger.Info("transcription_event",
				slog.String("chat_id", evt.Payload["chat_id"]),
				slog.String("username", evt.Payload["username"]),
				slog.Int("text_length", len(evt.Payload["text"])))
		}
	}()

	return e.session.Start(ctx)
}

// Drain stops the chat session and the HTTP surface, best-effort.
func (e *Engine) Drain() error {
	if err := e.session.Stop(); err != nil {
		e.logger.Error("session_stop_failed", slog.String("error", err.Error()))
	}
	if e.cancelEvents != nil {
		e.cancelEvents()
	}
	if err := e.app.Shutdown(); err != nil {
		e.logger.Error("http_shutdown_failed", slog.String("error", err.Error()))
	}
	return nil
}

func buildCapability(vendor VendorConfig, logger *slog.Logger) (stt.Capability, error) {
	switch vendor.Provider {
	case "deepgram":
		if err := configutil.ValidateSettings(vendor.Settings, configutil.Schema{
			Required: []string{"api_key"},
			Optional: []string{"model", "languages"},
		}); err != nil {
			return nil, err
		}
		var settings struct {
			APIKey    string   `mapstructure:"api_key"`
			Model     string   `mapstructure:"model"`
			Languages []string `mapstructure:"languages"`
		}
		if err := configutil.DecodeSettings(vendor.Settings, &settings); err != nil {
			return nil, err
		}
		return deepgram.NewSTT(deepgram.Config{
			APIKey:    settings.APIKey,
			Model:     settings.Model,
			Languages: configutil.CleanList(settings.Languages),
			Logger:    logger,
		})
	case "mock":
		if err := configutil.ValidateSettings(vendor.Settings, configutil.Schema{
			Optional: []string{"transcript", "languages"},
		}); err != nil {
			return nil, err
		}
		var settings struct {
			Transcript string   `mapstructure:"transcript"`
			Languages  []string `mapstructure:"languages"`
		}
		if err := configutil.DecodeSettings(vendor.Settings, &settings); err != nil {
			return nil, err
		}
		return mock.NewSTT(mock.STTConfig{
			Transcript: settings.Transcript,
			Languages:  configutil.CleanList(settings.Languages),
		}), nil
	default:
		return nil, fmt.Errorf("stt provider not registered: %s", vendor.Provider)
	}
}
