// Package audio defines playback of synthesized speech.
//
// A Player consumes the chunk stream produced by a tts.Provider. Playback is
// synchronous: Play returns once the stream is exhausted and the audio has
// been handed off, so callers can serialize utterances by simply calling
// Play in sequence.
package audio

import "context"

// Player plays one encoded audio stream to completion.
//
// Play must drain stream even on early failure so the producer goroutine can
// exit, and must honor ctx cancellation. Close releases the underlying
// output device or process.
type Player interface {
	Play(ctx context.Context, stream <-chan []byte) error
	Close() error
}

// Drain consumes and discards the remainder of stream, returning ctx.Err()
// if cancelled first. Players use it to unblock producers after an output
// error.
func Drain(ctx context.Context, stream <-chan []byte) error {
	for {
		select {
		case _, ok := <-stream:
			if !ok {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Collect gathers the whole stream into one buffer. Useful for callers that
// need the complete clip, such as file export.
func Collect(ctx context.Context, stream <-chan []byte) ([]byte, error) {
	var buf []byte
	for {
		select {
		case chunk, ok := <-stream:
			if !ok {
				return buf, nil
			}
			buf = append(buf, chunk...)
		case <-ctx.Done():
			return buf, ctx.Err()
		}
	}
}
