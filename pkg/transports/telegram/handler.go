package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/voxhaus/voxhaus/pkg/audio"
	"github.com/voxhaus/voxhaus/pkg/bus"
	"github.com/voxhaus/voxhaus/pkg/errorsx"
)

const (
	replyTranscriptPrefix = "\U0001F5E3️: "

	replyNoAudioTrack  = "Could not process: the media file has no audio track."
	replyNotRecognized = "Could not recognize any speech."
	replyErrorTemplate = "An error occurred: %v"
	replyTooLongFormat = "The file is too long (%d s). Maximum duration: %d s."
)

type media struct {
	fileID   string
	duration int
}

// handleMessage processes one incoming chat message: authorization check,
// duration check, recognition, reply. Unauthorized senders and operator
// misconfiguration terminate silently with zero observable feedback.
func (s *Session) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	m, ok := pickMedia(msg)
	if !ok {
		return
	}

	opts := s.options()
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	logger := s.logger.With(slog.String("chat_id", chatID))

	allowed := parseAllowList(opts.ChatIDs)
	if len(allowed) > 0 && !allowed[chatID] {
		logger.Warn("ignoring_unauthorized_chat")
		return
	}

	if opts.STTEntityID == "" {
		logger.Error("no_stt_entity_configured")
		return
	}

	if opts.MaxDurationSeconds > 0 && m.duration > 0 && m.duration > opts.MaxDurationSeconds {
		logger.Warn("media_too_long",
			slog.Int("duration_s", m.duration),
			slog.Int("limit_s", opts.MaxDurationSeconds))
		s.replyIf(opts, msg, fmt.Sprintf(replyTooLongFormat, m.duration, opts.MaxDurationSeconds))
		return
	}

	url, err := s.bot.GetFileDirectURL(m.fileID)
	if err != nil {
		logger.Error("media_url_lookup_failed", slog.String("error", err.Error()))
		s.replyIf(opts, msg, fmt.Sprintf(replyErrorTemplate, err))
		return
	}
	data, err := s.download(ctx, url)
	if err != nil {
		logger.Error("media_download_failed", slog.String("error", err.Error()))
		s.replyIf(opts, msg, fmt.Sprintf(replyErrorTemplate, err))
		return
	}

	// Chat messages never carry an explicit language; the host default
	// plus resolver fallback decides.
	text, err := s.orch.Recognize(ctx, audio.FromBytes(data), opts.STTEntityID, "")
	if err != nil {
		if errorsx.HasReason(err, errorsx.ReasonNoAudioStream) {
			logger.Warn("media_has_no_audio_stream")
			s.replyIf(opts, msg, replyNoAudioTrack)
			return
		}
		logger.Error("recognition_error", slog.String("error", err.Error()),
			slog.String("reason", string(errorsx.Reason(err))))
		s.replyIf(opts, msg, fmt.Sprintf(replyErrorTemplate, err))
		return
	}

	if text == "" {
		logger.Warn("recognition_returned_empty_text")
		s.replyIf(opts, msg, replyNotRecognized)
		return
	}

	logger.Info("transcription_received", slog.Int("text_length", len(text)))
	var username string
	if msg.From != nil {
		username = msg.From.UserName
	}
	// The event fires regardless of the reply toggle.
	s.events.Publish(bus.Event{
		Name: bus.EventTranscriptionReceived,
		Payload: map[string]string{
			"text":     text,
			"chat_id":  chatID,
			"username": username,
		},
	})
	s.replyIf(opts, msg, replyTranscriptPrefix+text)
}

func (s *Session) replyIf(opts Options, msg *tgbotapi.Message, text string) {
	if !opts.SendReply {
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyToMessageID = msg.MessageID
	if _, err := s.bot.Send(reply); err != nil {
		s.logger.Error("reply_failed",
			slog.Int64("chat_id", msg.Chat.ID),
			slog.String("error", err.Error()))
	}
}

// pickMedia extracts the recognizable attachment: voice notes, audio
// files, or documents with an audio mime type.
func pickMedia(msg *tgbotapi.Message) (media, bool) {
	switch {
	case msg.Voice != nil:
		return media{fileID: msg.Voice.FileID, duration: msg.Voice.Duration}, true
	case msg.Audio != nil:
		return media{fileID: msg.Audio.FileID, duration: msg.Audio.Duration}, true
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "audio/"):
		return media{fileID: msg.Document.FileID}, true
	}
	return media{}, false
}

func parseAllowList(raw string) map[string]bool {
	allowed := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			allowed[id] = true
		}
	}
	return allowed
}
