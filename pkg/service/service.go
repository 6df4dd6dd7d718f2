// Package service exposes the platform service calls over HTTP: file
// recognition and chat replies.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/voxhaus/voxhaus/pkg/audio"
	"github.com/voxhaus/voxhaus/pkg/errorsx"
	"github.com/voxhaus/voxhaus/pkg/logging"
	"github.com/voxhaus/voxhaus/pkg/recognizer"
)

// Replier delivers a text message to a chat by id. Implemented by the
// telegram session.
type Replier interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Service wires the ingress adapters to the orchestrator and the chat
// transport.
type Service struct {
	orch    *recognizer.Orchestrator
	replier Replier
	logger  *slog.Logger
}

func New(orch *recognizer.Orchestrator, replier Replier, logger *slog.Logger) *Service {
	return &Service{
		orch:    orch,
		replier: replier,
		logger:  logging.NewComponentLogger(logger, "service"),
	}
}

type recognizeFileRequest struct {
	FilePath string `json:"file_path"`
	EntityID string `json:"entity_id"`
	Language string `json:"language"`
}

type recognizeFileResponse struct {
	Text string `json:"text"`
}

type sendReplyRequest struct {
	ChatID  any    `json:"chat_id"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// Register mounts the service routes on the app.
func (s *Service) Register(app *fiber.App) {
	api := app.Group("/api/services")
	api.Post("/recognize_file", s.handleRecognizeFile)
	api.Post("/send_reply", s.handleSendReply)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
}

func (s *Service) handleRecognizeFile(c *fiber.Ctx) error {
	var req recognizeFileRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, errorsx.New(errorsx.ReasonMissingArgument, "invalid request body: %v", err))
	}
	if req.FilePath == "" {
		return s.fail(c, errorsx.New(errorsx.ReasonMissingArgument, "service call failed: 'file_path' is required"))
	}
	if req.EntityID == "" {
		return s.fail(c, errorsx.New(errorsx.ReasonMissingArgument, "service call failed: 'entity_id' is required"))
	}

	text, err := s.orch.Recognize(c.UserContext(), audio.FromPath(req.FilePath), req.EntityID, req.Language)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(recognizeFileResponse{Text: text})
}

func (s *Service) handleSendReply(c *fiber.Ctx) error {
	var req sendReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, errorsx.New(errorsx.ReasonMissingArgument, "invalid request body: %v", err))
	}
	chatID := coerceChatID(req.ChatID)
	if chatID == "" {
		return s.fail(c, errorsx.New(errorsx.ReasonMissingArgument, "service call failed: 'chat_id' is required"))
	}
	if req.Message == "" {
		return s.fail(c, errorsx.New(errorsx.ReasonMissingArgument, "service call failed: 'message' is required"))
	}

	if err := s.replier.SendMessage(c.UserContext(), chatID, req.Message); err != nil {
		return s.fail(c, errorsx.Wrap(err, errorsx.ReasonInternal))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// fail surfaces every failure kind as a user-visible message; the file
// service never swallows an error.
func (s *Service) fail(c *fiber.Ctx, err error) error {
	reason := errorsx.Reason(err)
	s.logger.Warn("service_call_failed",
		slog.String("path", c.Path()),
		slog.String("reason", string(reason)),
		slog.String("error", err.Error()))
	return c.Status(statusFor(reason)).JSON(errorResponse{
		Error:  err.Error(),
		Reason: string(reason),
	})
}

func statusFor(reason errorsx.ReasonCode) int {
	switch reason {
	case errorsx.ReasonInternal:
		return fiber.StatusInternalServerError
	case errorsx.ReasonTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusBadRequest
	}
}

// coerceChatID accepts both string and numeric JSON chat ids.
func coerceChatID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", id)
	}
}
