package state_test

import (
	"testing"
	"time"

	"github.com/strmhost/iris/internal/state"
)

var t0 = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

// snap builds a baseline snapshot on de_mirage round 3 with sane defaults.
// Mutate the result per test case.
func snap() state.Snapshot {
	return state.Snapshot{
		Time: t0,
		Map: state.MapInfo{
			Name: "de_mirage", Mode: "competitive", Phase: "live",
			Round: 3, CTScore: 1, TScore: 1,
		},
		Round: state.RoundInfo{Phase: state.PhaseLive},
		Player: state.PlayerInfo{
			Name: "streamer", Team: "CT", Health: 100, Money: 4000,
			Kills: 2, Deaths: 1, RoundKills: 0, Weapon: "ak47",
		},
	}
}

// types extracts the event type sequence for order assertions.
func types(evs []state.Event) []state.EventType {
	out := make([]state.EventType, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}

func TestFirstSnapshotEmitsNoCombatEvents(t *testing.T) {
	t.Parallel()

	d := state.NewDiffer()
	evs := d.Apply(snap())

	if len(evs) != 1 || evs[0].Type != state.EventMapChange {
		t.Fatalf("first snapshot events = %v, want only map_change", types(evs))
	}
}

func TestKillThenBombPlantedOrder(t *testing.T) {
	t.Parallel()

	d := state.NewDiffer()
	a := snap()
	a.Player.Kills = 2
	d.Apply(a)

	b := a
	b.Player.Kills = 3
	b.Player.RoundKills = 1
	b.Round.Bomb = state.BombPlanted
	evs := d.Apply(b)

	got := types(evs)
	if len(got) != 2 || got[0] != state.EventKill || got[1] != state.EventBombPlanted {
		t.Fatalf("events = %v, want [kill bomb_planted]", got)
	}
	if evs[0].Kill == nil || evs[0].Kill.TotalKills != 3 {
		t.Errorf("kill payload = %+v, want TotalKills=3", evs[0].Kill)
	}
}

func TestCorrelatedKillAndDeath(t *testing.T) {
	t.Parallel()

	d := state.NewDiffer()
	a := snap()
	d.Apply(a)

	b := a
	b.Player.Kills++
	b.Player.RoundKills = 1
	b.Player.Deaths++
	evs := d.Apply(b)

	var kills, deaths int
	for _, e := range evs {
		switch e.Type {
		case state.EventKill:
			kills++
		case state.EventDeath:
			deaths++
		}
	}
	if kills != 1 || deaths != 1 {
		t.Fatalf("got %d kill / %d death events, want exactly 1 / 1", kills, deaths)
	}

	// The same snapshot again carries no counter delta: nothing may repeat.
	if evs := d.Apply(b); len(evs) != 0 {
		t.Fatalf("re-applying identical snapshot produced %v, want none", types(evs))
	}
}

func TestDerivationIsDeterministic(t *testing.T) {
	t.Parallel()

	a := snap()
	b := a
	b.Player.Kills = 4
	b.Player.RoundKills = 2
	b.Round.Bomb = state.BombPlanted
	b.Player.Health = 20

	first := state.NewDiffer()
	first.Apply(a)
	second := state.NewDiffer()
	second.Apply(a)

	got1 := types(first.Apply(b))
	got2 := types(second.Apply(b))

	if len(got1) != len(got2) {
		t.Fatalf("runs diverge: %v vs %v", got1, got2)
	}
	for i := range got1 {
		if got1[i] != got2[i] {
			t.Fatalf("runs diverge at %d: %v vs %v", i, got1, got2)
		}
	}
}

func TestKillLadder(t *testing.T) {
	t.Parallel()

	cases := []struct {
		roundKills int
		want       state.EventType
	}{
		{1, state.EventKill},
		{2, state.EventDoubleKill},
		{3, state.EventTripleKill},
		{4, state.EventQuadraKill},
		{5, state.EventAce},
		{6, state.EventAce},
	}

	for _, tc := range cases {
		d := state.NewDiffer()
		a := snap()
		a.Player.Kills = 10
		a.Player.RoundKills = tc.roundKills - 1
		d.Apply(a)

		b := a
		b.Player.Kills++
		b.Player.RoundKills = tc.roundKills
		evs := d.Apply(b)

		if len(evs) != 1 || evs[0].Type != tc.want {
			t.Errorf("roundKills=%d: events = %v, want [%s]", tc.roundKills, types(evs), tc.want)
		}
	}
}

func TestAceSupersedesKill(t *testing.T) {
	t.Parallel()

	d := state.NewDiffer()
	a := snap()
	a.Player.RoundKills = 4
	a.Player.Kills = 6
	d.Apply(a)

	b := a
	b.Player.Kills = 7
	b.Player.RoundKills = 5
	evs := d.Apply(b)

	if len(evs) != 1 || evs[0].Type != state.EventAce {
		t.Fatalf("events = %v, want a single ace", types(evs))
	}
}

func TestRoundDecreaseResetsBaseline(t *testing.T) {
	t.Parallel()

	d := state.NewDiffer()
	a := snap()
	a.Map.Round = 12
	d.Apply(a)

	// Round running backwards on the same map: out-of-order input.
	b := a
	b.Map.Round = 4
	b.Player.Kills = 99
	if evs := d.Apply(b); len(evs) != 0 {
		t.Fatalf("out-of-order snapshot produced %v, want none", types(evs))
	}

	// Diffing resumes against the new baseline.
	c := b
	c.Player.Kills = 100
	c.Player.RoundKills = 1
	evs := d.Apply(c)
	if len(evs) != 1 || evs[0].Type != state.EventKill {
		t.Fatalf("post-reset events = %v, want [kill]", types(evs))
	}
}

func TestMapChangeResetsWithoutCombatEvents(t *testing.T) {
	t.Parallel()

	d := state.NewDiffer()
	a := snap()
	d.Apply(a)

	b := a
	b.Map.Name = "de_inferno"
	b.Map.Round = 1
	b.Player.Kills = 50 // unrelated counters must not be compared
	evs := d.Apply(b)

	if len(evs) != 1 || evs[0].Type != state.EventMapChange {
		t.Fatalf("map change events = %v, want only map_change", types(evs))
	}
}

func TestClutchDetection(t *testing.T) {
	t.Parallel()

	d := state.NewDiffer()
	a := snap()
	a.Round.Phase = state.PhaseFreezetime
	d.Apply(a)

	// Live phase: player alone against three opponents.
	b := a
	b.Round.Phase = state.PhaseLive
	b.Alive = &state.AliveInfo{Teammates: 0, Opponents: 3}
	d.Apply(b)

	// Round ends in a win: clutch fires with the armed opponent count.
	c := b
	c.Round.Phase = state.PhaseOver
	c.Round.WinTeam = "CT"
	evs := d.Apply(c)

	got := types(evs)
	if len(got) != 2 || got[0] != state.EventRoundEnd || got[1] != state.EventClutch {
		t.Fatalf("events = %v, want [round_end clutch]", got)
	}
	if !evs[0].RoundEnd.ClutchWin {
		t.Error("round_end.ClutchWin = false, want true")
	}
	if evs[1].Clutch.Opponents != 3 {
		t.Errorf("clutch.Opponents = %d, want 3", evs[1].Clutch.Opponents)
	}
}

func TestClutchNotArmedWithTeammatesAlive(t *testing.T) {
	t.Parallel()

	d := state.NewDiffer()
	a := snap()
	a.Round.Phase = state.PhaseFreezetime
	d.Apply(a)

	b := a
	b.Round.Phase = state.PhaseLive
	b.Alive = &state.AliveInfo{Teammates: 2, Opponents: 3}
	d.Apply(b)

	c := b
	c.Round.Phase = state.PhaseOver
	c.Round.WinTeam = "CT"
	evs := d.Apply(c)

	if len(evs) != 1 || evs[0].Type != state.EventRoundEnd {
		t.Fatalf("events = %v, want only round_end", types(evs))
	}
	if evs[0].RoundEnd.ClutchWin {
		t.Error("round_end.ClutchWin = true, want false")
	}
}

func TestRoundStartEcoFlag(t *testing.T) {
	t.Parallel()

	d := state.NewDiffer()
	a := snap()
	d.Apply(a)

	b := a
	b.Round.Phase = state.PhaseFreezetime
	b.Player.Money = 1200
	evs := d.Apply(b)

	if len(evs) != 1 || evs[0].Type != state.EventRoundStart {
		t.Fatalf("events = %v, want [round_start]", types(evs))
	}
	if !evs[0].RoundStart.Eco {
		t.Error("round_start.Eco = false, want true for money below threshold")
	}
}

func TestPerfectRoundFlag(t *testing.T) {
	t.Parallel()

	d := state.NewDiffer()
	a := snap()
	a.Round.Phase = state.PhaseFreezetime
	d.Apply(a)

	b := a
	b.Round.Phase = state.PhaseLive
	b.Player.Health = 60 // damage taken mid-round
	d.Apply(b)

	c := b
	c.Round.Phase = state.PhaseOver
	c.Round.WinTeam = "CT"
	var end *state.RoundEnd
	for _, e := range d.Apply(c) {
		if e.Type == state.EventRoundEnd {
			end = e.RoundEnd
		}
	}
	if end == nil {
		t.Fatal("no round_end event")
	}
	if end.Perfect {
		t.Error("round_end.Perfect = true after damage, want false")
	}

	// Next round untouched and won: perfect.
	e := c
	e.Round.Phase = state.PhaseFreezetime
	e.Round.WinTeam = ""
	e.Player.Health = 100
	e.Map.Round++
	d.Apply(e)

	f := e
	f.Round.Phase = state.PhaseOver
	f.Round.WinTeam = "CT"
	evs := d.Apply(f)
	if len(evs) != 1 || evs[0].Type != state.EventRoundEnd {
		t.Fatalf("events = %v, want [round_end]", types(evs))
	}
	if !evs[0].RoundEnd.Perfect {
		t.Error("round_end.Perfect = false for untouched won round, want true")
	}
}

func TestNinjaDefuse(t *testing.T) {
	t.Parallel()

	d := state.NewDiffer()
	a := snap()
	a.Round.Bomb = state.BombPlanted
	d.Apply(a)

	b := a
	b.Round.Bomb = state.BombDefused
	b.Player.Health = 7
	evs := d.Apply(b)

	if len(evs) != 1 || evs[0].Type != state.EventBombDefused {
		t.Fatalf("events = %v, want [bomb_defused]", types(evs))
	}
	if !evs[0].Bomb.Ninja {
		t.Error("bomb.Ninja = false, want true at critical health")
	}
}

func TestDamageEvents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		health int
		want   state.EventType
	}{
		{"low health", 20, state.EventLowHealth},
		{"heavy damage", 45, state.EventHeavyDamage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := state.NewDiffer()
			a := snap()
			a.Player.Health = 100
			d.Apply(a)

			b := a
			b.Player.Health = tc.health
			evs := d.Apply(b)

			if len(evs) != 1 || evs[0].Type != tc.want {
				t.Fatalf("events = %v, want [%s]", types(evs), tc.want)
			}
		})
	}
}

func TestMatchEndFiresOnce(t *testing.T) {
	t.Parallel()

	d := state.NewDiffer()
	a := snap()
	a.Map.CTScore = 13
	a.Map.TScore = 7
	d.Apply(a)

	b := a
	b.Map.Phase = "gameover"
	evs := d.Apply(b)
	if len(evs) != 1 || evs[0].Type != state.EventMatchEnd {
		t.Fatalf("events = %v, want [match_end]", types(evs))
	}
	if !evs[0].Match.Won {
		t.Error("match.Won = false, want true for CT player on 13:7")
	}

	if evs := d.Apply(b); len(evs) != 0 {
		t.Fatalf("second gameover snapshot produced %v, want none", types(evs))
	}
}

func TestEventIDsAreUnique(t *testing.T) {
	t.Parallel()

	d := state.NewDiffer()
	a := snap()
	d.Apply(a)

	b := a
	b.Player.Kills++
	b.Player.RoundKills = 1
	b.Player.Deaths++
	evs := d.Apply(b)

	seen := map[string]bool{}
	for _, e := range evs {
		if e.ID == "" {
			t.Fatal("event with empty ID")
		}
		if seen[e.ID] {
			t.Fatalf("duplicate event ID %q", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestMVPAwardEmitsOnce(t *testing.T) {
	t.Parallel()

	d := state.NewDiffer()
	a := snap()
	d.Apply(a)

	b := a
	b.Player.MVPs = 1
	evs := d.Apply(b)
	if len(evs) != 1 || evs[0].Type != state.EventMVP {
		t.Fatalf("events = %v, want only mvp", types(evs))
	}
	if evs[0].MVP == nil || evs[0].MVP.Total != 1 {
		t.Errorf("mvp payload = %+v, want Total=1", evs[0].MVP)
	}

	// The unchanged counter must not re-fire.
	if evs := d.Apply(b); len(evs) != 0 {
		t.Fatalf("repeat snapshot events = %v, want none", types(evs))
	}

	c := b
	c.Player.MVPs = 2
	evs = d.Apply(c)
	if len(evs) != 1 || evs[0].Type != state.EventMVP || evs[0].MVP.Total != 2 {
		t.Fatalf("second award events = %v, want one mvp with Total=2", types(evs))
	}
}
