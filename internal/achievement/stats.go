package achievement

import "fmt"

// Stats accumulates session-wide counters alongside achievement progress.
// Streak fields track the current run; the Max variants remember the best
// run of the session.
type Stats struct {
	TotalKills   int `json:"total_kills"`
	TotalDeaths  int `json:"total_deaths"`
	TotalAssists int `json:"total_assists"`

	RoundsWon   int `json:"rounds_won"`
	RoundsLost  int `json:"rounds_lost"`
	ClutchesWon int `json:"clutches_won"`
	Aces        int `json:"aces"`
	Headshots   int `json:"headshots"`
	MVPs        int `json:"mvps"`

	DonationsReceived int     `json:"donations_received"`
	DonationsTotal    float64 `json:"donations_total"`
	NewSubscribers    int     `json:"new_subscribers"`
	RaidsReceived     int     `json:"raids_received"`
	ChatMessages      int     `json:"chat_messages"`

	KillStreak     int `json:"kill_streak"`
	KillStreakMax  int `json:"kill_streak_max"`
	DeathStreak    int `json:"death_streak"`
	DeathStreakMax int `json:"death_streak_max"`

	MatchesPlayed int `json:"matches_played"`
	MatchesWon    int `json:"matches_won"`

	// StreamHours is refreshed on every Tick.
	StreamHours float64 `json:"stream_hours"`
}

// KD returns the kill/death ratio, counting zero deaths as one.
func (s Stats) KD() float64 {
	deaths := s.TotalDeaths
	if deaths == 0 {
		deaths = 1
	}
	return float64(s.TotalKills) / float64(deaths)
}

// Summary renders the session statistics as the spoken-facing multi-line
// Russian report.
func (s Stats) Summary() string {
	return fmt.Sprintf(`📊 Статистика стрима:
🎯 K/D/A: %d/%d/%d (KD: %.2f)
🏆 Раунды: %dW / %dL
🔥 Макс. серия убийств: %d
💀 Хедшоты: %d
👑 Clutch побед: %d
⭐ ACE: %d
🥇 MVP: %d
💰 Донаты: %d (%.0f руб.)
💜 Подписчики: %d
💬 Сообщений в чате: %d
⏱️ Время стрима: %.1f ч`,
		s.TotalKills, s.TotalDeaths, s.TotalAssists, s.KD(),
		s.RoundsWon, s.RoundsLost,
		s.KillStreakMax,
		s.Headshots,
		s.ClutchesWon,
		s.Aces,
		s.MVPs,
		s.DonationsReceived, s.DonationsTotal,
		s.NewSubscribers,
		s.ChatMessages,
		s.StreamHours,
	)
}
