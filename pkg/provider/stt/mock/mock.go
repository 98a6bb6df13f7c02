// Package mock provides a test double for the stt.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/strmhost/iris/pkg/provider/stt"
)

// Provider is a mock implementation of stt.Provider. Transcripts are
// returned in order, one per call; once exhausted, an empty transcript is
// returned. Set Err to inject a failure instead.
type Provider struct {
	mu sync.Mutex

	// Transcripts is the queue of results to return.
	Transcripts []stt.Transcript

	// Err, if non-nil, is returned by every Transcribe call.
	Err error

	// Clips records the audio passed to each Transcribe call.
	Clips [][]byte
}

// Compile-time interface check.
var _ stt.Provider = (*Provider)(nil)

// Transcribe records the clip and returns the next queued transcript.
func (p *Provider) Transcribe(_ context.Context, wav []byte) (stt.Transcript, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	clip := make([]byte, len(wav))
	copy(clip, wav)
	p.Clips = append(p.Clips, clip)

	if p.Err != nil {
		return stt.Transcript{}, p.Err
	}
	if len(p.Transcripts) == 0 {
		return stt.Transcript{}, nil
	}
	t := p.Transcripts[0]
	p.Transcripts = p.Transcripts[1:]
	return t, nil
}

// CallCount returns the number of Transcribe invocations.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Clips)
}
