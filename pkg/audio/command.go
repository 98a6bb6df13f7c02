package audio

import (
	"context"
	"fmt"
	"os/exec"
)

// CommandPlayer plays audio by piping encoded chunks into an external player
// process, e.g. mpv or ffplay reading from stdin. One process is spawned per
// utterance so a cancelled context kills playback immediately.
type CommandPlayer struct {
	argv []string
}

// Compile-time interface check.
var _ Player = (*CommandPlayer)(nil)

// NewCommandPlayer creates a player spawning argv for each utterance.
func NewCommandPlayer(argv []string) (*CommandPlayer, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("audio: player command is empty")
	}
	return &CommandPlayer{argv: argv}, nil
}

// Play implements Player. It spawns the player process, feeds it the stream,
// and waits for playback to finish.
func (p *CommandPlayer) Play(ctx context.Context, stream <-chan []byte) error {
	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		Drain(context.Background(), stream) //nolint:errcheck
		return fmt.Errorf("audio: player stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		Drain(context.Background(), stream) //nolint:errcheck
		return fmt.Errorf("audio: start %s: %w", p.argv[0], err)
	}

	var writeErr error
feed:
	for {
		select {
		case <-ctx.Done():
			writeErr = ctx.Err()
			break feed
		case chunk, ok := <-stream:
			if !ok {
				break feed
			}
			if _, err := stdin.Write(chunk); err != nil {
				writeErr = err
				break feed
			}
		}
	}
	stdin.Close() //nolint:errcheck

	if writeErr != nil {
		Drain(context.Background(), stream) //nolint:errcheck
	}
	if err := cmd.Wait(); err != nil && writeErr == nil {
		return fmt.Errorf("audio: %s: %w", p.argv[0], err)
	}
	if writeErr != nil {
		return fmt.Errorf("audio: feed %s: %w", p.argv[0], writeErr)
	}
	return nil
}

// Close implements Player. Per-utterance processes leave nothing to close.
func (p *CommandPlayer) Close() error {
	return nil
}
