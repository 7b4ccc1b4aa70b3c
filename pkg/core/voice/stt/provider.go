// Package stt provides speech-to-text functionality.
package stt

import "context"

// Provider is the interface for speech-to-text services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// NewStreamingSTT opens a streaming recognition session.
	NewStreamingSTT(ctx context.Context, opts TranscribeOptions) (*StreamingSTT, error)
}

// TranscribeOptions configures transcription.
type TranscribeOptions struct {
	Model          string // Provider-specific model
	Language       string // ISO language code; empty enables language detection
	Encoding       string // Audio encoding (linear16, mulaw, opus, ...)
	SampleRate     int    // Audio sample rate in Hz
	DetectLanguage bool   // Ask the provider to report the spoken language
}

// TranscriptDelta is a streaming transcript update. Language is the detected
// language tag for the utterance, populated on final segments when the
// provider supports detection.
type TranscriptDelta struct {
	Text     string
	IsFinal  bool
	Language string
}
