// Package stt defines the Provider interface for Speech-to-Text backends.
//
// The co-host listens in short utterance-sized chunks recorded after voice
// activity, so the interface is a batch Transcribe call over one complete
// WAV clip rather than a streaming session.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Transcript is the result of transcribing one audio clip. Silence or
// unintelligible audio yields an empty Text and a nil error.
type Transcript struct {
	Text     string
	Language string
	Duration float64 // seconds of audio transcribed, 0 when unknown
}

// Provider is the abstraction over any STT backend. Transcribe must
// propagate ctx cancellation promptly. wav holds a complete RIFF/WAV clip
// including the header.
type Provider interface {
	Transcribe(ctx context.Context, wav []byte) (Transcript, error)
}
