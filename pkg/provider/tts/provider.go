// Package tts defines the Provider interface for Text-to-Speech backends.
//
// Synthesis is streaming: the provider returns a channel of encoded audio
// chunks so playback can start before the whole utterance is rendered. The
// emotional coloring of the voice is expressed as SSML prosody offsets; the
// [Emotion] table maps the narrator's moods onto them.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Prosody holds SSML prosody offsets as signed strings ("+15%", "-2Hz").
type Prosody struct {
	Rate   string
	Pitch  string
	Volume string
}

// Emotion names a coloring of the voice.
type Emotion string

const (
	EmotionNeutral    Emotion = "neutral"
	EmotionExcited    Emotion = "excited"
	EmotionHappy      Emotion = "happy"
	EmotionSad        Emotion = "sad"
	EmotionSupportive Emotion = "supportive"
	EmotionSarcastic  Emotion = "sarcastic"
	EmotionTense      Emotion = "tense"
	EmotionGentle     Emotion = "gentle"
)

// prosodies maps each emotion onto its prosody offsets.
var prosodies = map[Emotion]Prosody{
	EmotionNeutral:    {Rate: "+0%", Pitch: "+0Hz", Volume: "+0%"},
	EmotionExcited:    {Rate: "+15%", Pitch: "+3Hz", Volume: "+10%"},
	EmotionHappy:      {Rate: "+10%", Pitch: "+2Hz", Volume: "+5%"},
	EmotionSad:        {Rate: "-10%", Pitch: "-2Hz", Volume: "-5%"},
	EmotionSupportive: {Rate: "-5%", Pitch: "+1Hz", Volume: "+0%"},
	EmotionSarcastic:  {Rate: "-5%", Pitch: "-1Hz", Volume: "+0%"},
	EmotionTense:      {Rate: "+20%", Pitch: "+4Hz", Volume: "+15%"},
	EmotionGentle:     {Rate: "-15%", Pitch: "+2Hz", Volume: "-10%"},
}

// Prosody returns the prosody offsets for the emotion; unknown emotions get
// the neutral offsets.
func (e Emotion) Prosody() Prosody {
	if p, ok := prosodies[e]; ok {
		return p
	}
	return prosodies[EmotionNeutral]
}

// voiceNames maps short profile names onto concrete synthesis voices.
var voiceNames = map[string]string{
	"ru_female_soft": "ru-RU-SvetlanaNeural",
	"ru_female_warm": "ru-RU-DariyaNeural",
	"ru_male":        "ru-RU-DmitryNeural",
	"en_female_soft": "en-US-JennyNeural",
	"en_female_warm": "en-US-AriaNeural",
	"en_male":        "en-US-GuyNeural",
}

// ResolveVoice maps a short profile name to a concrete voice name. Unknown
// names pass through unchanged so direct voice names keep working.
func ResolveVoice(name string) string {
	if v, ok := voiceNames[name]; ok {
		return v
	}
	return name
}

// Voice is one synthesis request's voice configuration.
type Voice struct {
	// Name is a concrete voice name, e.g. "ru-RU-SvetlanaNeural". Use
	// [ResolveVoice] to accept short profile names.
	Name string

	// Prosody colors the delivery; zero value means neutral.
	Prosody Prosody
}

// Provider is the abstraction over any TTS backend.
//
// Synthesize returns a channel emitting encoded audio chunks; the channel is
// closed when synthesis finishes or ctx is cancelled. The caller must drain
// it. A non-nil error is returned only when the synthesis cannot start.
type Provider interface {
	Synthesize(ctx context.Context, text string, voice Voice) (<-chan []byte, error)
}
