package achievement

import "github.com/strmhost/iris/internal/state"

// Rule is one achievement definition. Achievements are data: the tracker
// iterates the catalogue and asks each rule how far the incoming event moves
// its progress counter.
type Rule struct {
	ID          string
	Title       string
	Description string
	Icon        string

	// Target is the progress value at which the achievement unlocks.
	Target int

	// Step reports the progress increment the event is worth, 0 when the
	// event is irrelevant. Threshold-style rules return Target to jump
	// straight to unlock. A nil Step marks a time-based rule applied by
	// [Tracker.Tick] instead of the event path.
	Step func(c *EvalContext) int
}

// EvalContext is what a rule sees when evaluating one event. The tracker
// updates Stats and the round/match window before rules run, so rules observe
// post-event values.
type EvalContext struct {
	Event state.Event
	Stats *Stats

	// RoundEco reports whether the round the event belongs to opened as an
	// eco round.
	RoundEco bool

	// MaxDeficit is the largest round-score deficit the player's team faced
	// during the current match. Only populated for match_end events.
	MaxDeficit int
}

const (
	comebackDeficit  = 5
	raidViewersMin   = 50
	whaleRubMin      = 1000
	whaleUsdMin      = 15
	survivorHealth   = 1
	teamPlayerTarget = 10
)

// Catalogue returns the full achievement table. Titles and descriptions are
// the spoken-facing Russian strings.
func Catalogue() []Rule {
	return []Rule{
		{
			ID: "first_blood", Title: "Первая кровь",
			Description: "Первое убийство на стриме", Icon: "🩸", Target: 1,
			Step: func(c *EvalContext) int {
				if c.Event.IsKill() && c.Stats.TotalKills == 1 {
					return 1
				}
				return 0
			},
		},
		{
			ID: "killing_spree", Title: "Серия убийств",
			Description: "5 убийств подряд без смерти", Icon: "🔥", Target: 5,
			Step: func(c *EvalContext) int {
				if c.Event.IsKill() && c.Stats.KillStreak >= 5 {
					return 5
				}
				return 0
			},
		},
		{
			ID: "unstoppable", Title: "Неостановимый",
			Description: "10 убийств подряд без смерти", Icon: "⚡", Target: 10,
			Step: func(c *EvalContext) int {
				if c.Event.IsKill() && c.Stats.KillStreak >= 10 {
					return 10
				}
				return 0
			},
		},
		{
			ID: "ace_master", Title: "Мастер ACE",
			Description: "Сделать ACE (5 убийств в раунде)", Icon: "🎯", Target: 1,
			Step: func(c *EvalContext) int {
				if c.Event.Type == state.EventAce {
					return 1
				}
				return 0
			},
		},
		{
			ID: "clutch_king", Title: "Король клатчей",
			Description: "Выиграть 3 clutch ситуации", Icon: "👑", Target: 3,
			Step: func(c *EvalContext) int {
				if c.Event.Type == state.EventClutch {
					return 1
				}
				return 0
			},
		},
		{
			ID: "headhunter", Title: "Охотник за головами",
			Description: "50 хедшотов за стрим", Icon: "💀", Target: 50,
			Step: func(c *EvalContext) int {
				if c.Event.IsKill() && c.Event.Kill != nil && c.Event.Kill.Headshot {
					return 1
				}
				return 0
			},
		},
		{
			ID: "survivor", Title: "Выживший",
			Description: "Выжить с 1 HP", Icon: "❤️", Target: 1,
			Step: func(c *EvalContext) int {
				if c.Event.Type == state.EventLowHealth && c.Event.Damage != nil &&
					c.Event.Damage.Health <= survivorHealth {
					return 1
				}
				return 0
			},
		},
		{
			ID: "comeback_kid", Title: "Камбэк",
			Description: "Выиграть матч проигрывая 5+ раундов", Icon: "🔄", Target: 1,
			Step: func(c *EvalContext) int {
				if c.Event.Type == state.EventMatchEnd && c.Event.Match != nil &&
					c.Event.Match.Won && c.MaxDeficit >= comebackDeficit {
					return 1
				}
				return 0
			},
		},
		{
			ID: "popular", Title: "Популярный",
			Description: "Получить 10 сообщений в чате", Icon: "💬", Target: 10,
			Step: func(c *EvalContext) int {
				if c.Event.Type == state.EventChatMessage {
					return 1
				}
				return 0
			},
		},
		{
			ID: "loved", Title: "Любимец",
			Description: "Получить 5 донатов", Icon: "💝", Target: 5,
			Step: func(c *EvalContext) int {
				if c.Event.Type == state.EventDonation {
					return 1
				}
				return 0
			},
		},
		{
			ID: "whale_friend", Title: "Друг китов",
			Description: "Получить донат 1000+ рублей", Icon: "🐋", Target: 1,
			Step: func(c *EvalContext) int {
				d := c.Event.Donation
				if c.Event.Type != state.EventDonation || d == nil {
					return 0
				}
				switch d.Currency {
				case "RUB":
					if d.Amount >= whaleRubMin {
						return 1
					}
				case "USD":
					if d.Amount >= whaleUsdMin {
						return 1
					}
				}
				return 0
			},
		},
		{
			ID: "raided", Title: "Под рейдом",
			Description: "Получить рейд 50+ зрителей", Icon: "🚀", Target: 1,
			Step: func(c *EvalContext) int {
				if c.Event.Type == state.EventRaid && c.Event.Raid != nil &&
					c.Event.Raid.Viewers >= raidViewersMin {
					return 1
				}
				return 0
			},
		},
		{
			ID: "marathon", Title: "Марафонец",
			Description: "Стримить 4+ часа", Icon: "⏱️", Target: 1,
			// Time-based: applied by Tracker.Tick.
		},
		{
			ID: "consistent", Title: "Стабильный",
			Description: "Положительный KD весь матч", Icon: "📈", Target: 1,
			Step: func(c *EvalContext) int {
				if c.Event.Type == state.EventMatchEnd && c.Event.Match != nil &&
					c.Event.Match.Won && c.Stats.TotalKills > c.Stats.TotalDeaths {
					return 1
				}
				return 0
			},
		},
		{
			ID: "team_player", Title: "Командный игрок",
			Description: "10 ассистов за матч", Icon: "🤝", Target: teamPlayerTarget,
			Step: func(c *EvalContext) int {
				if c.Event.Type == state.EventMatchEnd && c.Event.Match != nil &&
					c.Event.Match.Assists >= teamPlayerTarget {
					return teamPlayerTarget
				}
				return 0
			},
		},
		{
			ID: "economical", Title: "Экономный",
			Description: "Выиграть эко раунд", Icon: "💰", Target: 1,
			Step: func(c *EvalContext) int {
				if c.Event.Type == state.EventRoundEnd && c.Event.RoundEnd != nil &&
					c.Event.RoundEnd.Won && c.RoundEco {
					return 1
				}
				return 0
			},
		},
		{
			ID: "ninja", Title: "Ниндзя",
			Description: "Дефуз бомбы на последней секунде", Icon: "🥷", Target: 1,
			Step: func(c *EvalContext) int {
				if c.Event.Type == state.EventBombDefused && c.Event.Bomb != nil &&
					c.Event.Bomb.Ninja {
					return 1
				}
				return 0
			},
		},
		{
			ID: "dedication", Title: "Преданность",
			Description: "10 матчей за сессию", Icon: "🎮", Target: 10,
			Step: func(c *EvalContext) int {
				if c.Event.Type == state.EventMatchEnd {
					return 1
				}
				return 0
			},
		},
		{
			ID: "sub_love", Title: "Любовь подписчиков",
			Description: "10 новых подписчиков", Icon: "💜", Target: 10,
			Step: func(c *EvalContext) int {
				if c.Event.Type == state.EventSubscription {
					return 1
				}
				return 0
			},
		},
		{
			ID: "perfect_round", Title: "Идеальный раунд",
			Description: "Выиграть раунд без потери HP", Icon: "✨", Target: 1,
			Step: func(c *EvalContext) int {
				if c.Event.Type == state.EventRoundEnd && c.Event.RoundEnd != nil &&
					c.Event.RoundEnd.Won && c.Event.RoundEnd.Perfect {
					return 1
				}
				return 0
			},
		},
	}
}
