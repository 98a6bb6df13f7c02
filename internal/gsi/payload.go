package gsi

import (
	"strings"
	"time"

	"github.com/strmhost/iris/internal/state"
)

// Payload is the JSON body the game client posts on every state change. Only
// the blocks requested by the integration config are present; absent blocks
// decode to zero values.
type Payload struct {
	Auth       authBlock              `json:"auth"`
	Provider   providerBlock          `json:"provider"`
	Map        mapBlock               `json:"map"`
	Round      roundBlock             `json:"round"`
	Player     playerBlock            `json:"player"`
	AllPlayers map[string]otherPlayer `json:"allplayers"`
}

type authBlock struct {
	Token string `json:"token"`
}

type providerBlock struct {
	SteamID string `json:"steamid"`
}

type teamBlock struct {
	Score int `json:"score"`
}

type mapBlock struct {
	Name   string    `json:"name"`
	Mode   string    `json:"mode"`
	Phase  string    `json:"phase"`
	Round  int       `json:"round"`
	TeamCT teamBlock `json:"team_ct"`
	TeamT  teamBlock `json:"team_t"`
}

type roundBlock struct {
	Phase   string `json:"phase"`
	Bomb    string `json:"bomb"`
	WinTeam string `json:"win_team"`
}

type playerState struct {
	Health      int  `json:"health"`
	Armor       int  `json:"armor"`
	Helmet      bool `json:"helmet"`
	Money       int  `json:"money"`
	RoundKills  int  `json:"round_kills"`
	RoundKillHS int  `json:"round_killhs"`
	EquipValue  int  `json:"equip_value"`
}

type matchStats struct {
	Kills   int `json:"kills"`
	Assists int `json:"assists"`
	Deaths  int `json:"deaths"`
	MVPs    int `json:"mvps"`
	Score   int `json:"score"`
}

type weaponBlock struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

type playerBlock struct {
	SteamID    string                 `json:"steamid"`
	Name       string                 `json:"name"`
	Team       string                 `json:"team"`
	State      playerState            `json:"state"`
	MatchStats matchStats             `json:"match_stats"`
	Weapons    map[string]weaponBlock `json:"weapons"`
	Activity   string                 `json:"activity"`
}

type otherPlayer struct {
	Team  string      `json:"team"`
	State playerState `json:"state"`
}

// Observing reports whether the payload describes the configured player
// rather than someone being spectated. When the player block carries a
// steamid differing from the provider's, the streamer is dead and watching a
// teammate; such payloads must not update the tracked player's counters.
func (p Payload) Observing() bool {
	return p.Player.SteamID != "" && p.Provider.SteamID != "" &&
		p.Player.SteamID != p.Provider.SteamID
}

// Snapshot normalizes the payload into the differ's model.
func (p Payload) Snapshot(at time.Time) state.Snapshot {
	snap := state.Snapshot{
		Time: at,
		Map: state.MapInfo{
			Name:    p.Map.Name,
			Mode:    p.Map.Mode,
			Phase:   p.Map.Phase,
			Round:   p.Map.Round,
			CTScore: p.Map.TeamCT.Score,
			TScore:  p.Map.TeamT.Score,
		},
		Round: state.RoundInfo{
			Phase:   state.Phase(p.Round.Phase),
			Bomb:    state.BombState(p.Round.Bomb),
			WinTeam: strings.ToUpper(p.Round.WinTeam),
		},
		Player: state.PlayerInfo{
			Name:        p.Player.Name,
			Team:        strings.ToUpper(p.Player.Team),
			Health:      p.Player.State.Health,
			Armor:       p.Player.State.Armor,
			Helmet:      p.Player.State.Helmet,
			Money:       p.Player.State.Money,
			RoundKills:  p.Player.State.RoundKills,
			RoundKillHS: p.Player.State.RoundKillHS,
			EquipValue:  p.Player.State.EquipValue,
			Kills:       p.Player.MatchStats.Kills,
			Assists:     p.Player.MatchStats.Assists,
			Deaths:      p.Player.MatchStats.Deaths,
			MVPs:        p.Player.MatchStats.MVPs,
			Score:       p.Player.MatchStats.Score,
			Weapon:      activeWeapon(p.Player.Weapons),
		},
	}

	if len(p.AllPlayers) > 0 {
		alive := &state.AliveInfo{}
		team := strings.ToUpper(p.Player.Team)
		for id, other := range p.AllPlayers {
			if id == p.Player.SteamID || other.State.Health <= 0 {
				continue
			}
			if strings.ToUpper(other.Team) == team {
				alive.Teammates++
			} else {
				alive.Opponents++
			}
		}
		snap.Alive = alive
	}
	return snap
}

// activeWeapon returns the name of the weapon currently held, without the
// "weapon_" prefix.
func activeWeapon(weapons map[string]weaponBlock) string {
	for _, w := range weapons {
		if w.State == "active" {
			return strings.TrimPrefix(w.Name, "weapon_")
		}
	}
	return ""
}
