// Package telegram hosts the chat-message ingress: a long-polling bot
// session that feeds voice and audio messages into the recognition
// pipeline and replies with transcripts.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/voxhaus/voxhaus/pkg/bus"
	"github.com/voxhaus/voxhaus/pkg/logging"
	"github.com/voxhaus/voxhaus/pkg/recognizer"
)

// State models the session lifecycle. Transitions happen only inside
// Start/Stop, guarded by compare-and-swap, so repeated calls are no-ops.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// Options is the chat transport configuration, re-read per incoming
// message so a host reload takes effect without a session restart.
type Options struct {
	Enabled            bool
	BotToken           string
	ChatIDs            string
	STTEntityID        string
	SendReply          bool
	MaxDurationSeconds int
}

type botClient interface {
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type downloadFunc func(ctx context.Context, url string) ([]byte, error)

// Config carries session collaborators. NewBot and Download are
// overridable in tests.
type Config struct {
	Options      func() Options
	Orchestrator *recognizer.Orchestrator
	Events       *bus.Bus
	Logger       *slog.Logger
	NewBot       func(token string) (botClient, error)
	Download     downloadFunc
	PollTimeout  time.Duration
	StopTimeout  time.Duration
}

// Session is the long-lived bot resource, one per plugin instance. Start
// and Stop are idempotent and safe to call from lifecycle hooks.
type Session struct {
	options  func() Options
	orch     *recognizer.Orchestrator
	events   *bus.Bus
	logger   *slog.Logger
	newBot   func(token string) (botClient, error)
	download downloadFunc

	pollTimeout time.Duration
	stopTimeout time.Duration

	state  int32
	bot    botClient
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSession(cfg Config) *Session {
	if cfg.NewBot == nil {
		cfg.NewBot = func(token string) (botClient, error) {
			return tgbotapi.NewBotAPI(token)
		}
	}
	if cfg.Download == nil {
		cfg.Download = downloadMedia
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 5 * time.Second
	}
	return &Session{
		options:     cfg.Options,
		orch:        cfg.Orchestrator,
		events:      cfg.Events,
		logger:      logging.NewComponentLogger(cfg.Logger, "telegram"),
		newBot:      cfg.NewBot,
		download:    cfg.Download,
		pollTimeout: cfg.PollTimeout,
		stopTimeout: cfg.StopTimeout,
	}
}

func (s *Session) State() State {
	return State(atomic.LoadInt32(&s.state))
}

// Start brings the session up when the transport is enabled. A disabled
// transport or missing token leaves the session stopped without error;
// the latter is an operator misconfiguration and is logged.
func (s *Session) Start(ctx context.Context) error {
	if !s.casState(StateStopped, StateStarting) {
		return nil
	}
	opts := s.options()
	if !opts.Enabled {
		s.setState(StateStopped)
		return nil
	}
	if opts.BotToken == "" {
		s.logger.Error("bot_enabled_without_token")
		s.setState(StateStopped)
		return nil
	}

	s.logger.Info("starting_bot")
	bot, err := s.newBot(opts.BotToken)
	if err != nil {
		s.setState(StateStopped)
		return fmt.Errorf("create bot: %w", err)
	}
	s.bot = bot

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = int(s.pollTimeout.Seconds())
	updates := bot.GetUpdatesChan(updateCfg)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.setState(StateRunning)
	s.logger.Info("bot_started_and_polling")

	go s.run(runCtx, updates, done)
	return nil
}

// Stop shuts the session down best-effort: every teardown step runs even
// if an earlier one reports a problem, logging rather than raising.
func (s *Session) Stop() error {
	if !s.casState(StateRunning, StateStopping) {
		return nil
	}
	s.logger.Info("stopping_bot")

	if s.bot != nil {
		s.bot.StopReceivingUpdates()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		select {
		case <-s.done:
		case <-time.After(s.stopTimeout):
			s.logger.Error("bot_shutdown_timed_out", slog.Duration("timeout", s.stopTimeout))
		}
	}

	// The bot, cancel and done stay set: a handler that outlived the
	// drain timeout may still be using them. Start replaces them.
	s.setState(StateStopped)
	s.logger.Info("bot_stopped")
	return nil
}

// SendMessage delivers text to a chat by id, for the send-reply service.
func (s *Session) SendMessage(ctx context.Context, chatID, text string) error {
	if s.State() != StateRunning || s.bot == nil {
		return errors.New("telegram session is not running")
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	if _, err := s.bot.Send(tgbotapi.NewMessage(id, text)); err != nil {
		s.logger.Error("send_message_failed",
			slog.String("chat_id", chatID),
			slog.String("error", err.Error()))
		return fmt.Errorf("send message to chat %s: %w", chatID, err)
	}
	return nil
}

func (s *Session) run(ctx context.Context, updates tgbotapi.UpdatesChannel, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			s.handleMessage(ctx, update.Message)
		}
	}
}

func (s *Session) casState(from, to State) bool {
	return atomic.CompareAndSwapInt32(&s.state, int32(from), int32(to))
}

func (s *Session) setState(state State) {
	atomic.StoreInt32(&s.state, int32(state))
}

func downloadMedia(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media download returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
