package app

import (
	"context"
	"fmt"

	"github.com/strmhost/iris/internal/arbiter"
	"github.com/strmhost/iris/pkg/audio"
	"github.com/strmhost/iris/pkg/provider/tts"
)

// voiceSpeaker turns arbiter requests into audible speech: it synthesizes the
// text with the current mood's prosody and pipes the audio into the player.
type voiceSpeaker struct {
	tts    tts.Provider
	player audio.Player
	voice  string
	mood   func() tts.Emotion
}

// Compile-time interface check.
var _ arbiter.Speaker = (*voiceSpeaker)(nil)

// Speak implements [arbiter.Speaker]. It blocks until playback finishes so
// the arbiter never overlaps two utterances.
func (s *voiceSpeaker) Speak(ctx context.Context, text string) error {
	voice := tts.Voice{Name: s.voice}
	if s.mood != nil {
		voice.Prosody = s.mood().Prosody()
	}

	stream, err := s.tts.Synthesize(ctx, text, voice)
	if err != nil {
		return fmt.Errorf("app: synthesize: %w", err)
	}
	if err := s.player.Play(ctx, stream); err != nil {
		return fmt.Errorf("app: playback: %w", err)
	}
	return nil
}

// Close implements [arbiter.Speaker].
func (s *voiceSpeaker) Close() error {
	return s.player.Close()
}
