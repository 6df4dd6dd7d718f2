package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"github.com/voxhaus/voxhaus/pkg/audio"
	"github.com/voxhaus/voxhaus/pkg/errorsx"
	"github.com/voxhaus/voxhaus/pkg/logging"
)

// wavHeaderSize is the canonical minimal WAV container header length that
// ffmpeg prepends to the PCM stream on stdout.
const wavHeaderSize = 44

// Runner executes an external command with optional stdin and returns its
// stdout and stderr separately. Overridable in tests.
type Runner func(ctx context.Context, name string, args []string, stdin []byte) (stdout, stderr []byte, err error)

// Config carries transcoder settings.
type Config struct {
	// FFmpegPath is the executable name or path. Defaults to "ffmpeg".
	FFmpegPath string
	// Timeout bounds a single invocation. Zero disables the bound.
	Timeout time.Duration
	// Runner replaces the subprocess execution, for tests.
	Runner Runner
	Logger *slog.Logger
}

// Transcoder converts arbitrary input media into canonical raw PCM
// (16 kHz, mono, s16le) by invoking ffmpeg once per call. A failed
// transcode is terminal for the request; there are no retries.
type Transcoder struct {
	ffmpegPath string
	timeout    time.Duration
	run        Runner
	logger     *slog.Logger
}

func New(cfg Config) *Transcoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.Runner == nil {
		cfg.Runner = runCommand
	}
	return &Transcoder{
		ffmpegPath: cfg.FFmpegPath,
		timeout:    cfg.Timeout,
		run:        cfg.Runner,
		logger:     logging.NewComponentLogger(cfg.Logger, "transcode"),
	}
}

// FromPath transcodes the media file at path to raw PCM bytes.
func (t *Transcoder) FromPath(ctx context.Context, path string) ([]byte, error) {
	return t.transcode(ctx, t.args(path), nil)
}

// FromBytes transcodes an in-memory media buffer to raw PCM bytes,
// feeding ffmpeg through stdin.
func (t *Transcoder) FromBytes(ctx context.Context, data []byte) ([]byte, error) {
	return t.transcode(ctx, t.args("-"), data)
}

func (t *Transcoder) args(input string) []string {
	return []string{
		"-i", input,
		"-vn",
		"-f", audio.FormatWAV,
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"-",
	}
}

func (t *Transcoder) transcode(ctx context.Context, args []string, stdin []byte) ([]byte, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	stdout, stderr, err := t.run(ctx, t.ffmpegPath, args, stdin)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			t.logger.Error("ffmpeg_timed_out", slog.Duration("timeout", t.timeout))
			return nil, errorsx.Wrap(fmt.Errorf("ffmpeg timed out after %s", t.timeout), errorsx.ReasonTimeout)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			t.logger.Warn("ffmpeg_canceled")
			return nil, errorsx.Wrap(fmt.Errorf("transcode canceled: %w", ctx.Err()), errorsx.ReasonInternal)
		}
		diag := string(bytes.TrimSpace(stderr))
		t.logger.Error("ffmpeg_failed",
			slog.String("error", err.Error()),
			slog.String("stderr", diag))
		return nil, errorsx.Wrap(fmt.Errorf("failed to transcode audio: %s", diag), errorsx.ReasonTranscodeFailed)
	}

	if len(stdout) <= wavHeaderSize {
		t.logger.Warn("transcode_produced_no_audio", slog.Int("stdout_bytes", len(stdout)))
		return nil, errorsx.New(errorsx.ReasonNoAudioStream, "the source media does not contain an audio stream")
	}
	return stdout[wavHeaderSize:], nil
}

func runCommand(ctx context.Context, name string, args []string, stdin []byte) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			err = fmt.Errorf("ffmpeg exited with code %d", exitErr.ExitCode())
		}
	}
	return stdout.Bytes(), stderr.Bytes(), err
}
