package tts_test

import (
	"testing"

	"github.com/strmhost/iris/pkg/provider/tts"
)

func TestEmotionProsody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		emotion tts.Emotion
		want    tts.Prosody
	}{
		{tts.EmotionNeutral, tts.Prosody{Rate: "+0%", Pitch: "+0Hz", Volume: "+0%"}},
		{tts.EmotionExcited, tts.Prosody{Rate: "+15%", Pitch: "+3Hz", Volume: "+10%"}},
		{tts.EmotionSad, tts.Prosody{Rate: "-10%", Pitch: "-2Hz", Volume: "-5%"}},
		{tts.EmotionGentle, tts.Prosody{Rate: "-15%", Pitch: "+2Hz", Volume: "-10%"}},
		{tts.Emotion("unheard-of"), tts.Prosody{Rate: "+0%", Pitch: "+0Hz", Volume: "+0%"}},
	}

	for _, tc := range tests {
		if got := tc.emotion.Prosody(); got != tc.want {
			t.Errorf("Prosody(%q) = %+v, want %+v", tc.emotion, got, tc.want)
		}
	}
}

func TestResolveVoice(t *testing.T) {
	t.Parallel()

	if got := tts.ResolveVoice("ru_female_soft"); got != "ru-RU-SvetlanaNeural" {
		t.Errorf("ResolveVoice(ru_female_soft) = %q", got)
	}
	if got := tts.ResolveVoice("en_male"); got != "en-US-GuyNeural" {
		t.Errorf("ResolveVoice(en_male) = %q", got)
	}
	// Concrete voice names pass through unchanged.
	if got := tts.ResolveVoice("de-DE-KatjaNeural"); got != "de-DE-KatjaNeural" {
		t.Errorf("ResolveVoice passthrough = %q", got)
	}
}
