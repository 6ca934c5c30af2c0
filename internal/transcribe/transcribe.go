// Package transcribe adapts speech-recognition engines that turn
// extracted audio into time-aligned text segments.
package transcribe

import (
	"context"
	"fmt"

	"github.com/subgen/backend/internal/segment"
)

// Request is the input for one transcription run. AudioPath points at
// the mono 16 kHz WAV produced by the extractor.
type Request struct {
	AudioPath string
	Language  string // "auto" or an ISO 639 code
}

// Result is the ordered transcript plus the engine-reported language.
type Result struct {
	Segments []segment.Segment
	Language string
}

// Transcriber is the common interface for all recognition engines.
// Engines that cannot report incremental progress may call the
// callback sparsely or not at all.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request, progress func(float64)) (*Result, error)
	Name() string
}

// TranscriptionError reports an engine or model failure.
type TranscriptionError struct {
	Engine  string
	Message string
	Err     error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcribe (%s): %s", e.Engine, e.Message)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }
