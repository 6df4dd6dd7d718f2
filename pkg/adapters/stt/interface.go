package stt

import (
	"context"

	"github.com/voxhaus/voxhaus/pkg/audio"
)

// ResultState classifies the outcome of a recognition call.
type ResultState string

const (
	StateSuccess ResultState = "success"
	StateError   ResultState = "error"
)

// Result is what a capability returns for one finite audio stream.
// Text is only meaningful when State is StateSuccess.
type Result struct {
	State ResultState
	Text  string
}

// Capability defines the contract for any STT vendor implementation that
// recognizes a finite audio stream.
type Capability interface {
	// Name returns the capability name for logging/metrics.
	Name() string
	// SupportedLanguages returns the backend's language preference order.
	SupportedLanguages() []string
	// Process consumes the chunk sequence to completion and returns a
	// classified result. The error return is reserved for transport-level
	// failures; a recognized-but-unsuccessful outcome is a non-success
	// Result with a nil error.
	Process(ctx context.Context, meta audio.Metadata, chunks <-chan []byte) (Result, error)
}
