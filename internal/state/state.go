// Package state defines the normalized game-state model and the Differ that
// converts consecutive state snapshots into discrete game events.
//
// A [Snapshot] is one instantaneous report of the observable world: map and
// round identifiers, the tracked player's counters, bomb status. Snapshots
// arrive at an irregular cadence driven by the game client; the [Differ]
// compares each one against the previous snapshot and emits zero or more
// [Event] values describing what changed.
package state

import "time"

// Phase is a round lifecycle phase as reported by the game.
type Phase string

const (
	PhaseFreezetime Phase = "freezetime"
	PhaseLive       Phase = "live"
	PhaseOver       Phase = "over"
)

// BombState describes the bomb's discrete status within a round.
type BombState string

const (
	BombNone     BombState = ""
	BombPlanted  BombState = "planted"
	BombDefused  BombState = "defused"
	BombExploded BombState = "exploded"
)

// MapInfo is the match-level block of a snapshot.
type MapInfo struct {
	Name    string
	Mode    string
	Phase   string // "live", "gameover", ...
	Round   int
	CTScore int
	TScore  int
}

// RoundInfo is the round-level block of a snapshot.
type RoundInfo struct {
	Phase   Phase
	Bomb    BombState
	WinTeam string // "CT" or "T" once the round is decided, empty before
}

// PlayerInfo holds the tracked player's observable counters. Round-scoped
// counters (RoundKills, RoundKillHS) reset when the game starts a new round;
// match-scoped counters (Kills, Deaths, ...) only grow within a match.
type PlayerInfo struct {
	Name   string
	Team   string
	Health int
	Armor  int
	Helmet bool
	Money  int

	RoundKills  int
	RoundKillHS int
	EquipValue  int

	Kills   int
	Assists int
	Deaths  int
	MVPs    int
	Score   int

	Weapon string // active weapon name, without the "weapon_" prefix
}

// AliveInfo counts live players around the tracked player. Teammates excludes
// the player themselves. Present only when the snapshot source includes the
// allplayers block.
type AliveInfo struct {
	Teammates int
	Opponents int
}

// Snapshot is a normalized, immutable view of the game state at one instant.
// Construct it at the ingestion boundary and hand it to the [Differ]; only
// the Differ retains snapshots, and only the two most recent.
type Snapshot struct {
	Time   time.Time
	Map    MapInfo
	Round  RoundInfo
	Player PlayerInfo
	Alive  *AliveInfo // nil when the source omits allplayers data
}
