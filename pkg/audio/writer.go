package audio

import (
	"context"
	"fmt"
	"io"
)

// Compile-time interface check.
var _ Player = (*WriterPlayer)(nil)

// WriterPlayer streams audio chunks to an io.Writer, typically the stdin of
// an external decoder such as mpv or ffplay, or a file for later playback.
type WriterPlayer struct {
	w io.Writer
}

// NewWriterPlayer creates a Player writing to w.
func NewWriterPlayer(w io.Writer) *WriterPlayer {
	return &WriterPlayer{w: w}
}

// Play implements Player. On write failure the stream is drained before the
// error is returned.
func (p *WriterPlayer) Play(ctx context.Context, stream <-chan []byte) error {
	for {
		select {
		case chunk, ok := <-stream:
			if !ok {
				return nil
			}
			if _, err := p.w.Write(chunk); err != nil {
				Drain(ctx, stream) //nolint:errcheck // best effort unblock
				return fmt.Errorf("audio: write: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close closes the underlying writer when it is closeable.
func (p *WriterPlayer) Close() error {
	if c, ok := p.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
