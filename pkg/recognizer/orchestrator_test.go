package recognizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voxhaus/voxhaus/pkg/adapters/stt"
	"github.com/voxhaus/voxhaus/pkg/audio"
	"github.com/voxhaus/voxhaus/pkg/errorsx"
	"github.com/voxhaus/voxhaus/pkg/providers/mock"
	"github.com/voxhaus/voxhaus/pkg/transcode"
)

const wavHeaderSize = 44

func countingRunner(calls *int, pcmLen int) transcode.Runner {
	return func(ctx context.Context, name string, args []string, stdin []byte) ([]byte, []byte, error) {
		*calls++
		return make([]byte, wavHeaderSize+pcmLen), nil, nil
	}
}

func newOrchestrator(t *testing.T, capability stt.Capability, runner transcode.Runner) *Orchestrator {
	t.Helper()
	registry := NewRegistry()
	if capability != nil {
		registry.Register("stt.test", capability)
	}
	return NewOrchestrator(Config{
		Registry:        registry,
		Transcoder:      transcode.New(transcode.Config{Runner: runner}),
		DefaultLanguage: "en",
	})
}

func TestRecognizeSuccessFromPath(t *testing.T) {
	calls := 0
	capability := mock.NewSTT(mock.STTConfig{Transcript: "turn on the lights", Languages: []string{"en-US", "ru"}})
	orch := newOrchestrator(t, capability, countingRunner(&calls, 9000))

	text, err := orch.Recognize(context.Background(), audio.FromPath("/media/voice.ogg"), "stt.test", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "turn on the lights" {
		t.Fatalf("unexpected transcript: %q", text)
	}
	if calls != 1 {
		t.Fatalf("expected one transcode, got %d", calls)
	}
	if got := capability.LastBytes(); got != 9000 {
		t.Fatalf("expected 9000 pcm bytes streamed, got %d", got)
	}
	meta := capability.LastMeta()
	if meta.Language != "en-US" {
		t.Fatalf("expected variant-matched language en-US, got %q", meta.Language)
	}
	if meta.SampleRate != audio.SampleRate || meta.Channels != audio.Channels || meta.BitDepth != audio.BitDepth {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

func TestRecognizeEntityNotFoundSkipsTranscoder(t *testing.T) {
	calls := 0
	orch := newOrchestrator(t, nil, countingRunner(&calls, 100))

	_, err := orch.Recognize(context.Background(), audio.FromPath("/media/voice.ogg"), "stt.missing", "")
	if !errorsx.HasReason(err, errorsx.ReasonEntityNotFound) {
		t.Fatalf("expected entity_not_found, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("transcoder must not be invoked, got %d calls", calls)
	}
}

func TestRecognizeExplicitUnsupportedLanguage(t *testing.T) {
	calls := 0
	capability := mock.NewSTT(mock.STTConfig{Languages: []string{"en-US"}})
	orch := newOrchestrator(t, capability, countingRunner(&calls, 100))

	_, err := orch.Recognize(context.Background(), audio.FromPath("/media/voice.ogg"), "stt.test", "de")
	if !errorsx.HasReason(err, errorsx.ReasonUnsupportedLanguage) {
		t.Fatalf("expected unsupported_language, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("transcoder must not run after language failure, got %d calls", calls)
	}
}

func TestRecognizePropagatesTranscodeFailure(t *testing.T) {
	runner := func(ctx context.Context, name string, args []string, stdin []byte) ([]byte, []byte, error) {
		return nil, []byte("moov atom not found"), errors.New("ffmpeg exited with code 1")
	}
	capability := mock.NewSTT(mock.STTConfig{})
	orch := newOrchestrator(t, capability, runner)

	_, err := orch.Recognize(context.Background(), audio.FromBytes([]byte("media")), "stt.test", "")
	if !errorsx.HasReason(err, errorsx.ReasonTranscodeFailed) {
		t.Fatalf("expected transcode_failed, got %v", err)
	}
	if capability.Calls() != 0 {
		t.Fatalf("capability must not be invoked after transcode failure")
	}
}

func TestRecognizeRawPCMBypassesTranscoder(t *testing.T) {
	calls := 0
	capability := mock.NewSTT(mock.STTConfig{})
	orch := newOrchestrator(t, capability, countingRunner(&calls, 100))

	pcm := make([]byte, 320)
	if _, err := orch.Recognize(context.Background(), audio.FromPCM(pcm), "stt.test", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("raw PCM source must bypass the transcoder")
	}
	if capability.LastBytes() != len(pcm) {
		t.Fatalf("expected %d bytes streamed, got %d", len(pcm), capability.LastBytes())
	}
}

func TestRecognizeEmptyRawPCMIsNoAudioStream(t *testing.T) {
	capability := mock.NewSTT(mock.STTConfig{})
	orch := newOrchestrator(t, capability, countingRunner(new(int), 100))

	_, err := orch.Recognize(context.Background(), audio.FromPCM(nil), "stt.test", "")
	if !errorsx.HasReason(err, errorsx.ReasonNoAudioStream) {
		t.Fatalf("expected no_audio_stream, got %v", err)
	}
}

func TestRecognizeNonSuccessState(t *testing.T) {
	capability := mock.NewSTT(mock.STTConfig{FailState: stt.StateError})
	orch := newOrchestrator(t, capability, countingRunner(new(int), 100))

	_, err := orch.Recognize(context.Background(), audio.FromBytes([]byte("media")), "stt.test", "")
	if !errorsx.HasReason(err, errorsx.ReasonRecognitionFailed) {
		t.Fatalf("expected recognition_failed, got %v", err)
	}
}

func TestRecognizeWrapsUnexpectedBackendError(t *testing.T) {
	capability := mock.NewSTT(mock.STTConfig{Err: errors.New("socket reset by vendor")})
	orch := newOrchestrator(t, capability, countingRunner(new(int), 100))

	_, err := orch.Recognize(context.Background(), audio.FromBytes([]byte("media")), "stt.test", "")
	if !errorsx.HasReason(err, errorsx.ReasonInternal) {
		t.Fatalf("expected internal, got %v", err)
	}
	if err.Error() == "socket reset by vendor" {
		t.Fatalf("raw backend error must not escape")
	}
}

type hangingCapability struct{}

func (hangingCapability) Name() string                 { return "hanging" }
func (hangingCapability) SupportedLanguages() []string { return []string{"en"} }
func (hangingCapability) Process(ctx context.Context, meta audio.Metadata, chunks <-chan []byte) (stt.Result, error) {
	<-ctx.Done()
	return stt.Result{}, ctx.Err()
}

func TestRecognizeBackendTimeout(t *testing.T) {
	registry := NewRegistry()
	registry.Register("stt.hang", hangingCapability{})
	orch := NewOrchestrator(Config{
		Registry:        registry,
		Transcoder:      transcode.New(transcode.Config{Runner: countingRunner(new(int), 100)}),
		DefaultLanguage: "en",
		Timeout:         20 * time.Millisecond,
	})

	_, err := orch.Recognize(context.Background(), audio.FromBytes([]byte("media")), "stt.hang", "")
	if !errorsx.HasReason(err, errorsx.ReasonTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestRecognizeCallerCancellationIsNotATimeout(t *testing.T) {
	registry := NewRegistry()
	registry.Register("stt.hang", hangingCapability{})
	orch := NewOrchestrator(Config{
		Registry:        registry,
		Transcoder:      transcode.New(transcode.Config{Runner: countingRunner(new(int), 100)}),
		DefaultLanguage: "en",
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := orch.Recognize(ctx, audio.FromBytes([]byte("media")), "stt.hang", "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if errorsx.HasReason(err, errorsx.ReasonTimeout) {
		t.Fatalf("caller cancellation must not report a timeout: %v", err)
	}
	if !errorsx.HasReason(err, errorsx.ReasonInternal) {
		t.Fatalf("expected internal reason, got %s", errorsx.Reason(err))
	}
}
