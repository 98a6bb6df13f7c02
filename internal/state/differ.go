package state

import (
	"log/slog"
	"strings"
)

const (
	// lowHealthThreshold marks the health level at or below which a damage
	// diff produces a low_health event instead of heavy_damage.
	lowHealthThreshold = 25

	// heavyDamageThreshold is the single-diff damage amount that produces a
	// heavy_damage event.
	heavyDamageThreshold = 50

	// ninjaHealthThreshold marks a bomb defusal as a "ninja" defuse when the
	// player survived it with this much health or less.
	ninjaHealthThreshold = 10

	// ecoMoneyThreshold flags a round start as an eco round when the player
	// holds less money than this.
	ecoMoneyThreshold = 2000

	// clutchMinOpponents is the minimum number of live opponents required to
	// arm a clutch window.
	clutchMinOpponents = 2

	// aceRoundKills is the per-round kill count at which the kill ladder
	// tops out into an ace event.
	aceRoundKills = 5
)

// Differ derives discrete events from consecutive snapshots. It retains only
// the previous snapshot plus per-round window state (round-open kill counter,
// clutch arming, kill streak).
//
// Differ is not safe for concurrent use; the orchestrator invokes it from a
// single consumer goroutine. Derivation is deterministic: the emitted
// sequence depends only on the snapshot pair and the accumulated round
// window, never on the wall clock.
type Differ struct {
	prev *Snapshot

	roundOpenKills int  // player's match kills when the current round opened
	clutchArmed    bool // player entered the live phase as last teammate standing
	clutchFoes     int  // opponent count captured at clutch arming time
	roundDamaged   bool // player lost health at some point this round
	streak         int  // kills since the player's last death
	matchEnded     bool // guards against repeated match_end emission
}

// NewDiffer creates a Differ with no baseline; the first Apply establishes
// one without emitting combat events.
func NewDiffer() *Differ {
	return &Differ{}
}

// Reset discards the baseline and all round-window state. The next Apply is
// treated like a first snapshot.
func (d *Differ) Reset() {
	d.prev = nil
	d.roundOpenKills = 0
	d.clutchArmed = false
	d.clutchFoes = 0
	d.streak = 0
	d.matchEnded = false
}

// Apply compares cur against the previous snapshot and returns the derived
// events, in derivation order: player counters first (kills, death, damage,
// MVP stars), then round phase transitions, then bomb transitions, then
// match end.
//
// Malformed input never produces an error. A map change or a round number
// running backwards resets the baseline: combat counters are not compared
// across unrelated rounds.
func (d *Differ) Apply(cur Snapshot) []Event {
	prev := d.prev
	d.prev = &cur

	if prev == nil {
		var evs []Event
		if cur.Map.Name != "" {
			evs = append(evs, mapChangeEvent(cur))
		}
		d.openRound(cur)
		return evs
	}

	if cur.Map.Name != prev.Map.Name {
		d.resetWindow(cur)
		if cur.Map.Name == "" {
			return nil
		}
		return []Event{mapChangeEvent(cur)}
	}

	if cur.Map.Round < prev.Map.Round {
		slog.Warn("state: round number decreased without map change, resetting baseline",
			"map", cur.Map.Name,
			"prev_round", prev.Map.Round,
			"round", cur.Map.Round,
		)
		d.resetWindow(cur)
		return nil
	}

	var evs []Event
	evs = append(evs, d.diffPlayer(prev, cur)...)
	evs = append(evs, d.diffRound(prev, cur)...)
	evs = append(evs, d.diffBomb(prev, cur)...)
	evs = append(evs, d.diffMatch(prev, cur)...)

	d.maybeArmClutch(cur)
	return evs
}

// diffPlayer derives kill, death, damage, and mvp events from player
// counters.
func (d *Differ) diffPlayer(prev *Snapshot, cur Snapshot) []Event {
	var evs []Event

	if dk := cur.Player.Kills - prev.Player.Kills; dk > 0 {
		d.streak += dk
		ev := NewEvent(killEventType(cur.Player.RoundKills), cur.Time, cur.Map.Round)
		ev.Kill = &Kill{
			Count:      dk,
			RoundKills: cur.Player.RoundKills,
			TotalKills: cur.Player.Kills,
			Streak:     d.streak,
			Headshot:   cur.Player.RoundKillHS > prev.Player.RoundKillHS,
			Weapon:     cur.Player.Weapon,
			Clutch:     d.clutchArmed,
			ClutchFoes: d.clutchFoes,
		}
		evs = append(evs, ev)
	}

	if cur.Player.Deaths > prev.Player.Deaths {
		d.streak = 0
		ev := NewEvent(EventDeath, cur.Time, cur.Map.Round)
		ev.Death = &Death{
			TotalDeaths: cur.Player.Deaths,
			KDRatio:     kdRatio(cur.Player.Kills, cur.Player.Deaths),
		}
		evs = append(evs, ev)
	}

	if cur.Player.Health < prev.Player.Health {
		d.roundDamaged = true
	}

	if dmg := prev.Player.Health - cur.Player.Health; dmg > 0 && cur.Player.Health > 0 {
		payload := &Damage{Amount: dmg, Health: cur.Player.Health, Armor: cur.Player.Armor}
		switch {
		case cur.Player.Health <= lowHealthThreshold:
			ev := NewEvent(EventLowHealth, cur.Time, cur.Map.Round)
			ev.Damage = payload
			evs = append(evs, ev)
		case dmg >= heavyDamageThreshold:
			ev := NewEvent(EventHeavyDamage, cur.Time, cur.Map.Round)
			ev.Damage = payload
			evs = append(evs, ev)
		}
	}

	if cur.Player.MVPs > prev.Player.MVPs {
		ev := NewEvent(EventMVP, cur.Time, cur.Map.Round)
		ev.MVP = &MVP{Total: cur.Player.MVPs}
		evs = append(evs, ev)
	}

	return evs
}

// diffRound derives round_start, round_end, and clutch events from round
// phase transitions.
func (d *Differ) diffRound(prev *Snapshot, cur Snapshot) []Event {
	if cur.Round.Phase == prev.Round.Phase {
		return nil
	}

	switch cur.Round.Phase {
	case PhaseFreezetime:
		d.openRound(cur)
		ev := NewEvent(EventRoundStart, cur.Time, cur.Map.Round)
		ev.RoundStart = &RoundStart{
			CTScore:    cur.Map.CTScore,
			TScore:     cur.Map.TScore,
			Money:      cur.Player.Money,
			EquipValue: cur.Player.EquipValue,
			Eco:        cur.Player.Money < ecoMoneyThreshold,
		}
		return []Event{ev}

	case PhaseOver:
		roundKills := cur.Player.Kills - d.roundOpenKills
		won := cur.Round.WinTeam != "" && strings.EqualFold(cur.Round.WinTeam, cur.Player.Team)

		ev := NewEvent(EventRoundEnd, cur.Time, cur.Map.Round)
		ev.RoundEnd = &RoundEnd{
			Won:          won,
			WinTeam:      cur.Round.WinTeam,
			RoundKills:   roundKills,
			ClutchWin:    won && d.clutchArmed,
			Perfect:      won && !d.roundDamaged,
			MVPCandidate: roundKills >= 3,
		}
		evs := []Event{ev}

		if won && d.clutchArmed {
			cl := NewEvent(EventClutch, cur.Time, cur.Map.Round)
			cl.Clutch = &Clutch{Opponents: d.clutchFoes}
			evs = append(evs, cl)
		}
		return evs
	}

	return nil
}

// diffBomb derives bomb events from bomb state transitions. Each state fires
// at most once per transition into it.
func (d *Differ) diffBomb(prev *Snapshot, cur Snapshot) []Event {
	if cur.Round.Bomb == prev.Round.Bomb {
		return nil
	}

	var t EventType
	switch cur.Round.Bomb {
	case BombPlanted:
		t = EventBombPlanted
	case BombDefused:
		t = EventBombDefused
	case BombExploded:
		t = EventBombExploded
	default:
		return nil
	}

	ev := NewEvent(t, cur.Time, cur.Map.Round)
	ev.Bomb = &Bomb{
		Team:  cur.Player.Team,
		Ninja: t == EventBombDefused && cur.Player.Health <= ninjaHealthThreshold,
	}
	return []Event{ev}
}

// diffMatch emits match_end once when the map phase transitions to gameover.
func (d *Differ) diffMatch(prev *Snapshot, cur Snapshot) []Event {
	if d.matchEnded || cur.Map.Phase != "gameover" {
		return nil
	}
	d.matchEnded = true

	won := (strings.EqualFold(cur.Player.Team, "CT") && cur.Map.CTScore > cur.Map.TScore) ||
		(strings.EqualFold(cur.Player.Team, "T") && cur.Map.TScore > cur.Map.CTScore)

	ev := NewEvent(EventMatchEnd, cur.Time, cur.Map.Round)
	ev.Match = &Match{
		Map:     cur.Map.Name,
		CTScore: cur.Map.CTScore,
		TScore:  cur.Map.TScore,
		Won:     won,
		Kills:   cur.Player.Kills,
		Deaths:  cur.Player.Deaths,
		Assists: cur.Player.Assists,
		MVPs:    cur.Player.MVPs,
	}
	return []Event{ev}
}

// maybeArmClutch arms the clutch window when the player is alive during the
// live phase as the sole surviving teammate against enough opponents. Arming
// is sticky until the round window resets.
func (d *Differ) maybeArmClutch(cur Snapshot) {
	if d.clutchArmed || cur.Alive == nil {
		return
	}
	if cur.Round.Phase != PhaseLive || cur.Player.Health <= 0 {
		return
	}
	if cur.Alive.Teammates == 0 && cur.Alive.Opponents >= clutchMinOpponents {
		d.clutchArmed = true
		d.clutchFoes = cur.Alive.Opponents
	}
}

// openRound resets the per-round window at the start of a round.
func (d *Differ) openRound(cur Snapshot) {
	d.roundOpenKills = cur.Player.Kills
	d.clutchArmed = false
	d.clutchFoes = 0
	d.roundDamaged = false
}

// resetWindow re-baselines all window state on a map change or out-of-order
// input.
func (d *Differ) resetWindow(cur Snapshot) {
	d.openRound(cur)
	d.streak = 0
	d.matchEnded = false
}

func mapChangeEvent(cur Snapshot) Event {
	return NewEvent(EventMapChange, cur.Time, cur.Map.Round)
}

// killEventType maps a per-round kill count onto the kill event ladder. An
// ace supersedes the plain kill event for the same counter transition.
func killEventType(roundKills int) EventType {
	switch {
	case roundKills >= aceRoundKills:
		return EventAce
	case roundKills >= 4:
		return EventQuadraKill
	case roundKills >= 3:
		return EventTripleKill
	case roundKills >= 2:
		return EventDoubleKill
	default:
		return EventKill
	}
}

func kdRatio(kills, deaths int) float64 {
	if deaths == 0 {
		return float64(kills)
	}
	return float64(kills) / float64(deaths)
}
