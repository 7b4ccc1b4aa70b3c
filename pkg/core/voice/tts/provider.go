// Package tts provides text-to-speech functionality.
package tts

import (
	"context"
	"sync"
)

// Provider is the interface for text-to-speech services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to audio.
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error)

	// SynthesizeStream converts text to streaming audio.
	SynthesizeStream(ctx context.Context, text string, opts SynthesizeOptions) (*SynthesisStream, error)
}

// SynthesizeOptions configures synthesis.
type SynthesizeOptions struct {
	Voice      string // Voice/model identifier
	Encoding   string // Output encoding: "linear16", "mulaw", "mp3"
	SampleRate int    // Output sample rate in Hz
}

// Synthesis is the result of synthesis.
type Synthesis struct {
	Audio    []byte // Audio data
	Encoding string // Audio encoding
	Backend  string // Provider that produced the audio
}

// SynthesisStream provides streaming audio output.
type SynthesisStream struct {
	chunks   chan []byte
	err      error
	done     chan struct{}
	doneOnce sync.Once
	backend  string
}

// NewSynthesisStream creates a new synthesis stream.
func NewSynthesisStream(backend string) *SynthesisStream {
	return &SynthesisStream{
		chunks:  make(chan []byte, 100),
		done:    make(chan struct{}),
		backend: backend,
	}
}

// Backend reports the provider the stream was started on. It never changes
// for the lifetime of the stream, even if the active language moves on.
func (s *SynthesisStream) Backend() string {
	return s.backend
}

// Chunks returns the channel of audio chunks.
func (s *SynthesisStream) Chunks() <-chan []byte {
	return s.chunks
}

// Err returns any error after the stream completes.
func (s *SynthesisStream) Err() error {
	<-s.done
	return s.err
}

// Close closes the stream.
func (s *SynthesisStream) Close() error {
	s.doneOnce.Do(func() { close(s.done) })
	return nil
}

// SetError records the stream error. For implementations.
func (s *SynthesisStream) SetError(err error) {
	s.err = err
}

// Send delivers a chunk to the stream. Returns false once closed.
func (s *SynthesisStream) Send(chunk []byte) bool {
	select {
	case s.chunks <- chunk:
		return true
	case <-s.done:
		return false
	}
}

// FinishSending closes the chunks channel to signal completion and releases
// any Err waiters. Callers that drained Chunks must not need a Close to
// observe the final error.
func (s *SynthesisStream) FinishSending() {
	close(s.chunks)
	s.doneOnce.Do(func() { close(s.done) })
}
