package state

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a discrete occurrence derived from a snapshot transition or
// delivered by the stream feed.
type EventType string

const (
	// Derived from snapshot diffs.
	EventMapChange    EventType = "map_change"
	EventRoundStart   EventType = "round_start"
	EventKill         EventType = "kill"
	EventDoubleKill   EventType = "double_kill"
	EventTripleKill   EventType = "triple_kill"
	EventQuadraKill   EventType = "quadra_kill"
	EventAce          EventType = "ace"
	EventDeath        EventType = "death"
	EventLowHealth    EventType = "low_health"
	EventHeavyDamage  EventType = "heavy_damage"
	EventBombPlanted  EventType = "bomb_planted"
	EventBombDefused  EventType = "bomb_defused"
	EventBombExploded EventType = "bomb_exploded"
	EventRoundEnd     EventType = "round_end"
	EventClutch       EventType = "clutch"
	EventMVP          EventType = "mvp"
	EventMatchEnd     EventType = "match_end"

	// Delivered by the stream feed.
	EventChatMessage  EventType = "chat_message"
	EventDonation     EventType = "donation"
	EventSubscription EventType = "subscription"
	EventRaid         EventType = "raid"
	EventFollow       EventType = "follow"
)

// Kill is the payload for kill-family events (kill through ace).
type Kill struct {
	Count      int // kills attributed in this diff, usually 1
	RoundKills int
	TotalKills int
	Streak     int
	Headshot   bool
	Weapon     string
	Clutch     bool // true when the kill happened inside an armed clutch window
	ClutchFoes int
}

// Death is the payload for a tracked-player death.
type Death struct {
	TotalDeaths int
	KDRatio     float64
}

// Damage is the payload for low_health and heavy_damage events.
type Damage struct {
	Amount int
	Health int
	Armor  int
}

// RoundStart is the payload for a round_start event.
type RoundStart struct {
	CTScore    int
	TScore     int
	Money      int
	EquipValue int
	Eco        bool
}

// RoundEnd is the payload for a round_end event.
type RoundEnd struct {
	Won          bool
	WinTeam      string
	RoundKills   int
	ClutchWin    bool
	Perfect      bool // won without the player taking any damage
	MVPCandidate bool
}

// Bomb is the payload for bomb events.
type Bomb struct {
	Team  string
	Ninja bool // defused with the player at critical health
}

// Clutch is the payload for a clutch event, emitted at the end of a won round
// whose live phase the player entered as the sole surviving teammate.
type Clutch struct {
	Opponents int
}

// MVP is the payload for an mvp event, emitted when the tracked player's
// match MVP counter advances.
type MVP struct {
	Total int // MVP stars accumulated this match
}

// Match is the payload for a match_end event.
type Match struct {
	Map     string
	CTScore int
	TScore  int
	Won     bool
	Kills   int
	Deaths  int
	Assists int
	MVPs    int
}

// Chat is the payload for chat_message events.
type Chat struct {
	Username string
	Message  string
}

// Donation is the payload for donation events.
type Donation struct {
	Username string
	Amount   float64
	Currency string
	Message  string
}

// Subscription is the payload for subscription events.
type Subscription struct {
	Username string
	Months   int
	Tier     string
	Gift     bool
	Gifter   string
}

// Raid is the payload for raid events.
type Raid struct {
	Username string
	Viewers  int
}

// Event is a discrete, named occurrence. Exactly one payload pointer is
// non-nil, matching Type; payload-less types (map_change, bomb_exploded,
// follow) may carry none.
//
// Events are immutable after creation. The ID is unique per occurrence and is
// what downstream consumers use to guarantee at-most-once application when a
// producer redelivers.
type Event struct {
	ID    string
	Type  EventType
	Time  time.Time
	Round int

	Kill         *Kill
	Death        *Death
	Damage       *Damage
	RoundStart   *RoundStart
	RoundEnd     *RoundEnd
	Bomb         *Bomb
	Clutch       *Clutch
	MVP          *MVP
	Match        *Match
	Chat         *Chat
	Donation     *Donation
	Subscription *Subscription
	Raid         *Raid
}

// NewEvent creates an Event of the given type with a fresh unique ID.
// Callers fill the matching payload field afterwards.
func NewEvent(t EventType, at time.Time, round int) Event {
	return Event{
		ID:    uuid.NewString(),
		Type:  t,
		Time:  at,
		Round: round,
	}
}

// IsKill reports whether the event belongs to the kill family
// (kill, double_kill, triple_kill, quadra_kill, ace).
func (e Event) IsKill() bool {
	switch e.Type {
	case EventKill, EventDoubleKill, EventTripleKill, EventQuadraKill, EventAce:
		return true
	}
	return false
}
