package deepgram

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/voxhaus/voxhaus/pkg/adapters/stt"
	"github.com/voxhaus/voxhaus/pkg/audio"
	"github.com/voxhaus/voxhaus/pkg/logging"

	listenapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

type Config struct {
	APIKey string
	Model  string
	// Languages is the declared preference order exposed to the language
	// resolver. Deepgram does not publish a per-key list, so operators
	// declare it in the vendor settings.
	Languages []string
	Logger    *slog.Logger
}

// STT recognizes finite PCM buffers through Deepgram's prerecorded REST
// API. One request per recognition attempt, no retries.
type STT struct {
	cfg    Config
	api    *listenapi.Client
	logger *slog.Logger
}

func NewSTT(cfg Config) (*STT, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("deepgram api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"en-US", "en", "ru", "de", "fr", "es", "id"}
	}

	rest := client.NewREST(cfg.APIKey, &interfaces.ClientOptions{})
	return &STT{
		cfg:    cfg,
		api:    listenapi.New(rest),
		logger: logging.NewComponentLogger(cfg.Logger, "deepgram_stt"),
	}, nil
}

func (s *STT) Name() string { return "deepgram_stt" }

func (s *STT) SupportedLanguages() []string {
	return append([]string(nil), s.cfg.Languages...)
}

func (s *STT) Process(ctx context.Context, meta audio.Metadata, chunks <-chan []byte) (stt.Result, error) {
	var buf bytes.Buffer
	for {
		chunk, ok := <-chunks
		if !ok {
			break
		}
		if _, err := buf.Write(chunk); err != nil {
			return stt.Result{}, err
		}
		if ctx.Err() != nil {
			return stt.Result{}, ctx.Err()
		}
	}

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:      s.cfg.Model,
		Language:   meta.Language,
		Encoding:   "linear16",
		SampleRate: meta.SampleRate,
		Channels:   meta.Channels,
	}

	s.logger.Debug("sending_audio_to_deepgram",
		slog.Int("size_bytes", buf.Len()),
		slog.String("language", meta.Language),
		slog.String("model", s.cfg.Model))

	res, err := s.api.FromStream(ctx, &buf, options)
	if err != nil {
		s.logger.Error("deepgram_request_failed", slog.String("error", err.Error()))
		return stt.Result{}, err
	}
	if res == nil || len(res.Results.Channels) == 0 ||
		len(res.Results.Channels[0].Alternatives) == 0 {
		s.logger.Warn("deepgram_empty_response")
		return stt.Result{State: stt.StateError}, nil
	}

	transcript := res.Results.Channels[0].Alternatives[0].Transcript
	s.logger.Debug("transcript_received", slog.Int("length", len(transcript)))
	return stt.Result{State: stt.StateSuccess, Text: transcript}, nil
}

var _ stt.Capability = (*STT)(nil)
