// Package mock provides a test double for the audio.Player interface.
package mock

import (
	"context"
	"sync"

	"github.com/strmhost/iris/pkg/audio"
)

// Player is a mock implementation of audio.Player. It collects every played
// stream into Played. Set Err to make Play fail after draining the stream.
type Player struct {
	mu sync.Mutex

	// Err, if non-nil, is returned by Play.
	Err error

	// Played records the concatenated bytes of each played stream.
	Played [][]byte

	closed bool
}

// Compile-time interface check.
var _ audio.Player = (*Player)(nil)

// Play drains the stream, recording its contents.
func (p *Player) Play(ctx context.Context, stream <-chan []byte) error {
	buf, err := audio.Collect(ctx, stream)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.Played = append(p.Played, buf)
	err = p.Err
	p.mu.Unlock()
	return err
}

// Close marks the player closed.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *Player) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// PlayCount returns the number of completed Play calls.
func (p *Player) PlayCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Played)
}
