package recognizer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voxhaus/voxhaus/pkg/adapters/stt"
	"github.com/voxhaus/voxhaus/pkg/audio"
	"github.com/voxhaus/voxhaus/pkg/errorsx"
	"github.com/voxhaus/voxhaus/pkg/language"
	"github.com/voxhaus/voxhaus/pkg/logging"
	"github.com/voxhaus/voxhaus/pkg/transcode"
)

// Config carries orchestrator collaborators and policy.
type Config struct {
	Registry        *Registry
	Transcoder      *transcode.Transcoder
	DefaultLanguage string
	ChunkSize       int
	// Timeout bounds the backend recognition call. Zero disables the
	// bound, restoring one-shot unbounded behavior.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Orchestrator drives one recognition attempt end to end: capability
// lookup, language resolution, transcoding, chunked streaming and result
// classification. Every failure it returns carries exactly one reason
// code; raw backend errors never escape.
type Orchestrator struct {
	registry        *Registry
	transcoder      *transcode.Transcoder
	defaultLanguage string
	chunkSize       int
	timeout         time.Duration
	logger          *slog.Logger
}

func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = audio.DefaultChunkSize
	}
	return &Orchestrator{
		registry:        cfg.Registry,
		transcoder:      cfg.Transcoder,
		defaultLanguage: cfg.DefaultLanguage,
		chunkSize:       cfg.ChunkSize,
		timeout:         cfg.Timeout,
		logger:          logging.NewComponentLogger(cfg.Logger, "recognizer"),
	}
}

// Recognize runs one recognition attempt against the capability registered
// for entityID. requested is the caller's explicit language; empty means
// "use the host default with resolver fallback". It returns the transcript
// on success.
func (o *Orchestrator) Recognize(ctx context.Context, src audio.Source, entityID, requested string) (string, error) {
	attemptID := uuid.NewString()
	logger := o.logger.With(slog.String("attempt_id", attemptID), slog.String("entity_id", entityID))

	capability, ok := o.registry.Lookup(entityID)
	if !ok {
		return "", errorsx.New(errorsx.ReasonEntityNotFound, "STT provider %q not found", entityID)
	}

	effective, err := language.Resolve(requested, o.defaultLanguage, capability.SupportedLanguages())
	if err != nil {
		return "", err
	}
	if requested != "" && requested != effective {
		logger.Debug("language_variant_matched",
			slog.String("requested", requested),
			slog.String("effective", effective))
	}

	pcm, err := o.pcmPayload(ctx, src)
	if err != nil {
		return "", err
	}

	meta := audio.NewMetadata(effective)

	procCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		procCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	logger.Info("starting_recognition",
		slog.String("capability", capability.Name()),
		slog.String("language", effective),
		slog.Int("pcm_bytes", len(pcm)))

	result, err := capability.Process(procCtx, meta, audio.Stream(procCtx, pcm, o.chunkSize))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(procCtx.Err(), context.DeadlineExceeded) {
			logger.Error("recognition_timed_out", slog.Duration("timeout", o.timeout))
			return "", errorsx.New(errorsx.ReasonTimeout, "recognition timed out after %s", o.timeout)
		}
		logger.Error("unexpected_recognition_error", slog.String("error", err.Error()))
		return "", errorsx.Wrap(errors.New("an unexpected error occurred during recognition"), errorsx.ReasonInternal)
	}
	if result.State != stt.StateSuccess {
		logger.Warn("recognition_failed", slog.String("state", string(result.State)))
		return "", errorsx.New(errorsx.ReasonRecognitionFailed, "recognition failed: result state %q", result.State)
	}

	logger.Info("recognition_successful", slog.Int("text_length", len(result.Text)))
	return result.Text, nil
}

func (o *Orchestrator) pcmPayload(ctx context.Context, src audio.Source) ([]byte, error) {
	if src.RawPCM {
		if len(src.Data) == 0 {
			return nil, errorsx.New(errorsx.ReasonNoAudioStream, "the source contains no PCM data")
		}
		return src.Data, nil
	}
	if src.Path != "" {
		return o.transcoder.FromPath(ctx, src.Path)
	}
	return o.transcoder.FromBytes(ctx, src.Data)
}
