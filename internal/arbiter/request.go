package arbiter

import "time"

// Priority orders narration requests. Higher values are spoken first;
// requests of equal priority are spoken in submission order.
type Priority int

const (
	PriorityAmbient Priority = iota
	PriorityChat
	PriorityCombat
	PriorityHighlight
	PriorityDonation
	PriorityAchievement
)

// String returns the human-readable name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityAmbient:
		return "ambient"
	case PriorityChat:
		return "chat"
	case PriorityCombat:
		return "combat"
	case PriorityHighlight:
		return "highlight"
	case PriorityDonation:
		return "donation"
	case PriorityAchievement:
		return "achievement"
	default:
		return "unknown"
	}
}

// Request is one utterance waiting for the voice. DedupKey, when set, lets a
// newer request replace a queued one that narrates the same situation (for
// example successive kills in the same round) instead of stacking up.
type Request struct {
	Priority  Priority
	Category  string // metrics/log label, e.g. "kill", "donation"
	Text      string
	DedupKey  string
	CreatedAt time.Time
}
