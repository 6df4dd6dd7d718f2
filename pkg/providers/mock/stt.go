package mock

import (
	"context"
	"sync"

	"github.com/voxhaus/voxhaus/pkg/adapters/stt"
	"github.com/voxhaus/voxhaus/pkg/audio"
)

type STTConfig struct {
	Transcript string
	Languages  []string
	// FailState forces a non-success result when set.
	FailState stt.ResultState
	// Err is returned from Process as a transport-level failure.
	Err error
}

// STT is a canned capability for tests and offline configurations. It
// drains the chunk stream fully and records what it consumed.
type STT struct {
	cfg STTConfig

	mu        sync.Mutex
	calls     int
	lastMeta  audio.Metadata
	lastBytes int
}

func NewSTT(cfg STTConfig) *STT {
	if cfg.Transcript == "" {
		cfg.Transcript = "mock transcript"
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"en-US"}
	}
	return &STT{cfg: cfg}
}

func (s *STT) Name() string { return "mock_stt" }

func (s *STT) SupportedLanguages() []string {
	return append([]string(nil), s.cfg.Languages...)
}

func (s *STT) Process(ctx context.Context, meta audio.Metadata, chunks <-chan []byte) (stt.Result, error) {
	consumed := 0
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				s.mu.Lock()
				s.calls++
				s.lastMeta = meta
				s.lastBytes = consumed
				s.mu.Unlock()
				if s.cfg.Err != nil {
					return stt.Result{}, s.cfg.Err
				}
				if s.cfg.FailState != "" {
					return stt.Result{State: s.cfg.FailState}, nil
				}
				return stt.Result{State: stt.StateSuccess, Text: s.cfg.Transcript}, nil
			}
			consumed += len(chunk)
		case <-ctx.Done():
			return stt.Result{}, ctx.Err()
		}
	}
}

// Calls reports how many recognition attempts completed.
func (s *STT) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// LastMeta returns the metadata of the most recent attempt.
func (s *STT) LastMeta() audio.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMeta
}

// LastBytes returns how many PCM bytes the most recent attempt consumed.
func (s *STT) LastBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBytes
}

var _ stt.Capability = (*STT)(nil)
