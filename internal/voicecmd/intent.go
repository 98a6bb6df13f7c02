package voicecmd

// Kind discriminates what an utterance asks for.
type Kind int

const (
	// KindConverse routes the utterance to the language model as free-form
	// conversation. Text carries the remainder after the wake phrase; it may
	// be empty for a bare wake word.
	KindConverse Kind = iota

	// KindSetVolume sets an application's volume to the absolute Level.
	KindSetVolume

	// KindAdjustVolume moves an application's volume by the signed Delta.
	KindAdjustVolume

	// KindMute and KindUnmute toggle an application's audio session.
	KindMute
	KindUnmute

	// KindStats asks for the spoken session statistics summary.
	KindStats

	// KindAchievements asks for the spoken achievement progress line.
	KindAchievements

	// KindFeedback carries a ready-to-speak clarification when the command
	// was recognized as an audio command but could not be completed, for
	// example an unknown target application. Text holds the line to speak.
	KindFeedback
)

// String returns the intent kind's name.
func (k Kind) String() string {
	switch k {
	case KindConverse:
		return "converse"
	case KindSetVolume:
		return "set_volume"
	case KindAdjustVolume:
		return "adjust_volume"
	case KindMute:
		return "mute"
	case KindUnmute:
		return "unmute"
	case KindStats:
		return "stats"
	case KindAchievements:
		return "achievements"
	case KindFeedback:
		return "feedback"
	default:
		return "unknown"
	}
}

// Intent is the structured meaning of one wake-phrase utterance.
type Intent struct {
	Kind   Kind
	Target string  // resolved application for volume intents
	Level  float64 // absolute level in [0,1] for KindSetVolume
	Delta  float64 // signed step for KindAdjustVolume
	Text   string  // remainder for KindConverse, line for KindFeedback
}
