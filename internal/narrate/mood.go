package narrate

import "github.com/strmhost/iris/pkg/provider/tts"

// Mood is the co-host's current emotional register. It colors both the
// prompts sent to the language model and the voice prosody of the spoken
// reply.
type Mood int

const (
	MoodNeutral Mood = iota
	MoodHappy
	MoodExcited
	MoodSupportive
	MoodSarcastic
	MoodTense
	MoodFunny
)

// String returns the mood name.
func (m Mood) String() string {
	switch m {
	case MoodNeutral:
		return "neutral"
	case MoodHappy:
		return "happy"
	case MoodExcited:
		return "excited"
	case MoodSupportive:
		return "supportive"
	case MoodSarcastic:
		return "sarcastic"
	case MoodTense:
		return "tense"
	case MoodFunny:
		return "funny"
	default:
		return "unknown"
	}
}

// Emotion maps the mood onto a voice emotion for synthesis.
func (m Mood) Emotion() tts.Emotion {
	switch m {
	case MoodHappy:
		return tts.EmotionHappy
	case MoodExcited:
		return tts.EmotionExcited
	case MoodSupportive:
		return tts.EmotionSupportive
	case MoodSarcastic:
		return tts.EmotionSarcastic
	case MoodTense:
		return tts.EmotionTense
	case MoodFunny:
		return tts.EmotionHappy
	default:
		return tts.EmotionNeutral
	}
}

// moodPrompts are extra system lines injected when the mood is not neutral.
var moodPrompts = map[Mood]string{
	MoodExcited:    "Ты сейчас в возбуждённом настроении! Реагируй эмоционально на события!",
	MoodSarcastic:  "Ты в саркастичном настроении. Можешь подкалывать, но дружелюбно.",
	MoodTense:      "Напряжённый момент в игре! Реагируй соответственно!",
	MoodFunny:      "Ты в весёлом настроении! Шути и разряжай обстановку!",
	MoodSupportive: "Игроку сейчас нужна поддержка. Подбодри его!",
}
