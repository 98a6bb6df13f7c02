// Package narrate turns game and stream events into spoken lines.
//
// The [Narrator] keeps the co-host's persona, mood, and a rolling
// conversation history, builds Russian prompts from event payloads, and asks
// an LLM for the actual wording. Per-event-type cooldowns stop it from
// talking over every frag; donations, subscriptions, and raids are always
// acknowledged. When the model is unavailable, a circuit breaker short
// circuits the call and canned template lines keep the voice alive.
package narrate

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/strmhost/iris/internal/resilience"
	"github.com/strmhost/iris/internal/state"
	"github.com/strmhost/iris/pkg/provider/llm"
)

const (
	// DefaultMaxTokens bounds the model reply; spoken lines must stay short.
	DefaultMaxTokens = 150

	// DefaultTemperature keeps the reactions varied.
	DefaultTemperature = 0.85

	// DefaultHistorySize is the number of conversation messages retained.
	DefaultHistorySize = 25

	// chatReplyChance is the probability of replying to an unaddressed
	// chat message that passed its cooldown.
	chatReplyChance = 0.15

	// ambientChance is the probability that an ambient tick produces a
	// comment once the ambient cooldown has elapsed.
	ambientChance = 0.25

	generalCooldown = 12 * time.Second
)

// cooldowns holds the minimum pause between reactions per event type.
var cooldowns = map[state.EventType]time.Duration{
	state.EventKill:         3 * time.Second,
	state.EventDoubleKill:   3 * time.Second,
	state.EventTripleKill:   3 * time.Second,
	state.EventQuadraKill:   3 * time.Second,
	state.EventAce:          3 * time.Second,
	state.EventDeath:        5 * time.Second,
	state.EventRoundEnd:     2 * time.Second,
	state.EventBombPlanted:  10 * time.Second,
	state.EventBombDefused:  10 * time.Second,
	state.EventBombExploded: 10 * time.Second,
	state.EventChatMessage:  8 * time.Second,
	state.EventFollow:       8 * time.Second,
}

// ambientCooldown is the minimum pause between unprompted comments.
const ambientCooldown = 25 * time.Second

// mentionWords mark a chat message as addressed to the co-host.
var mentionWords = []string{"ирис", "iris", "ириска", "иришечка"}

// Utterance is one line ready to be synthesized.
type Utterance struct {
	Text string
	Mood Mood
}

// Option is a functional option for configuring the Narrator.
type Option func(*Narrator)

// WithPersona replaces the default system prompt.
func WithPersona(persona string) Option {
	return func(n *Narrator) {
		if persona != "" {
			n.persona = persona
		}
	}
}

// WithMaxTokens sets the reply token budget.
func WithMaxTokens(limit int) Option {
	return func(n *Narrator) {
		if limit > 0 {
			n.maxTokens = limit
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) Option {
	return func(n *Narrator) {
		n.temperature = temp
	}
}

// WithHistorySize caps the rolling conversation history.
func WithHistorySize(size int) Option {
	return func(n *Narrator) {
		if size > 0 {
			n.historySize = size
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(n *Narrator) {
		if now != nil {
			n.now = now
		}
	}
}

// WithRand overrides the probability source, for tests. The function must
// return values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(n *Narrator) {
		if fn != nil {
			n.rand = fn
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(n *Narrator) {
		if log != nil {
			n.log = log
		}
	}
}

// WithBreakerConfig tunes the circuit breaker guarding the LLM.
func WithBreakerConfig(cfg resilience.CircuitBreakerConfig) Option {
	return func(n *Narrator) {
		cfg.Name = "narrator-llm"
		n.breaker = resilience.NewCircuitBreaker(cfg)
	}
}

// gameContext is the narrator's view of the ongoing match, rebuilt from the
// event stream and rendered into each prompt.
type gameContext struct {
	ctScore     int
	tScore      int
	round       int
	kills       int
	deaths      int
	assists     int
	bombPlanted bool
}

func (g gameContext) render() string {
	var sb strings.Builder
	if g.ctScore > 0 || g.tScore > 0 {
		fmt.Fprintf(&sb, "Счёт: CT %d - %d T\n", g.ctScore, g.tScore)
	}
	if g.round > 0 {
		fmt.Fprintf(&sb, "Раунд: %d\n", g.round)
	}
	if g.kills > 0 || g.deaths > 0 {
		kd := float64(g.kills)
		if g.deaths > 0 {
			kd = float64(g.kills) / float64(g.deaths)
		}
		fmt.Fprintf(&sb, "Статистика: K/D/A: %d/%d/%d (K/D: %.2f)\n", g.kills, g.deaths, g.assists, kd)
	}
	if g.bombPlanted {
		sb.WriteString("Бомба заложена!\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Narrator generates the co-host's spoken reactions. Safe for concurrent use.
type Narrator struct {
	provider llm.Provider
	breaker  *resilience.CircuitBreaker
	log      *slog.Logger

	persona     string
	maxTokens   int
	temperature float64
	historySize int

	now  func() time.Time
	rand func() float64

	mu          sync.Mutex
	mood        Mood
	history     []llm.Message
	lastSpoken  map[state.EventType]time.Time
	lastAmbient time.Time
	variety     map[state.EventType]int
	game        gameContext
	fallbackIdx map[state.EventType]int
}

// New creates a Narrator speaking through provider.
func New(provider llm.Provider, opts ...Option) *Narrator {
	n := &Narrator{
		provider:    provider,
		log:         slog.Default(),
		persona:     DefaultPersona,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
		historySize: DefaultHistorySize,
		now:         time.Now,
		rand:        rand.Float64,
		lastSpoken:  make(map[state.EventType]time.Time),
		variety:     make(map[state.EventType]int),
		fallbackIdx: make(map[state.EventType]int),
	}
	n.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "narrator-llm"})
	for _, o := range opts {
		o(n)
	}
	return n
}

// Mood returns the current mood.
func (n *Narrator) Mood() Mood {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mood
}

// ReactTo observes ev, updating the match context, and returns a spoken
// reaction when the event warrants one and its cooldown has elapsed.
// Donations, subscriptions, and raids are never skipped.
func (n *Narrator) ReactTo(ctx context.Context, ev state.Event) (Utterance, bool) {
	n.mu.Lock()
	n.observe(ev)

	prompt, mood, forced, ok := n.promptFor(ev)
	if !ok {
		n.mu.Unlock()
		return Utterance{}, false
	}
	if !forced && !n.offCooldown(ev.Type) {
		n.mu.Unlock()
		return Utterance{}, false
	}
	if mood != MoodNeutral {
		n.mood = mood
	}
	n.lastSpoken[ev.Type] = n.now()
	n.mu.Unlock()

	return n.generate(ctx, prompt, ev.Type), true
}

// Converse answers the streamer directly, bypassing all cooldowns. An empty
// message is treated as a greeting after the wake word.
func (n *Narrator) Converse(ctx context.Context, message string) Utterance {
	prompt := "Стример обратился к тебе. Поприветствуй его и спроси, чем можешь помочь."
	if strings.TrimSpace(message) != "" {
		prompt = fmt.Sprintf("Стример говорит тебе: %s", message)
	}
	return n.generate(ctx, prompt, state.EventChatMessage)
}

// Ambient occasionally produces an unprompted comment about the stream.
// Returns false when the ambient cooldown has not elapsed or the dice say
// stay quiet.
func (n *Narrator) Ambient(ctx context.Context) (Utterance, bool) {
	n.mu.Lock()
	if n.now().Sub(n.lastAmbient) < ambientCooldown {
		n.mu.Unlock()
		return Utterance{}, false
	}
	if n.rand() >= ambientChance {
		n.mu.Unlock()
		return Utterance{}, false
	}
	n.lastAmbient = n.now()
	prompt := ambientPrompts[int(n.rand()*float64(len(ambientPrompts)))%len(ambientPrompts)]
	n.mu.Unlock()

	return n.generate(ctx, prompt, ""), true
}

// UnlockAnnouncement renders the spoken line for an unlocked achievement.
// It is template-only so unlocks are announced even with the model down.
func (n *Narrator) UnlockAnnouncement(title, description string) Utterance {
	text := fmt.Sprintf("Новое достижение: %s! %s", title, description)
	return Utterance{Text: text, Mood: MoodExcited}
}

// observe folds ev into the match context. Caller holds n.mu.
func (n *Narrator) observe(ev state.Event) {
	switch {
	case ev.Type == state.EventMapChange:
		n.game = gameContext{}
	case ev.Type == state.EventRoundStart && ev.RoundStart != nil:
		n.game.ctScore = ev.RoundStart.CTScore
		n.game.tScore = ev.RoundStart.TScore
		n.game.round = ev.Round
		n.game.bombPlanted = false
	case ev.IsKill() && ev.Kill != nil:
		n.game.kills += ev.Kill.Count
	case ev.Type == state.EventDeath:
		n.game.deaths++
	case ev.Type == state.EventBombPlanted:
		n.game.bombPlanted = true
	case ev.Type == state.EventBombDefused, ev.Type == state.EventBombExploded,
		ev.Type == state.EventRoundEnd:
		n.game.bombPlanted = false
	case ev.Type == state.EventMatchEnd && ev.Match != nil:
		n.game.assists = ev.Match.Assists
	}
}

// promptFor builds the model prompt for ev. Caller holds n.mu. The forced
// flag marks events that must always be acknowledged.
func (n *Narrator) promptFor(ev state.Event) (prompt string, mood Mood, forced, ok bool) {
	switch {
	case ev.IsKill() && ev.Kill != nil:
		v := n.variety[state.EventKill]
		n.variety[state.EventKill]++
		p, m := killPrompt(*ev.Kill, v)
		return p, m, false, true

	case ev.Type == state.EventDeath && ev.Death != nil:
		v := n.variety[state.EventDeath]
		n.variety[state.EventDeath]++
		p, m := deathPrompt(*ev.Death, v)
		return p, m, false, true

	case ev.Type == state.EventRoundEnd && ev.RoundEnd != nil:
		p, m := roundEndPrompt(*ev.RoundEnd)
		return p, m, false, true

	case ev.Type == state.EventBombPlanted, ev.Type == state.EventBombDefused,
		ev.Type == state.EventBombExploded:
		var b state.Bomb
		if ev.Bomb != nil {
			b = *ev.Bomb
		}
		p, m := bombPrompt(ev.Type, b)
		return p, m, false, true

	case ev.Type == state.EventMVP:
		if ev.MVP != nil && ev.MVP.Total > 1 {
			return fmt.Sprintf("Игрок снова MVP раунда — уже %d звезды за матч! Отметь это.", ev.MVP.Total), MoodHappy, false, true
		}
		return "Игрок получил звание MVP раунда! Похвали его.", MoodHappy, false, true

	case ev.Type == state.EventMatchEnd && ev.Match != nil:
		m := *ev.Match
		if m.Won {
			return fmt.Sprintf("Матч на %s окончен победой! Счёт %d:%d, у игрока %d/%d/%d. Подведи итог и поздравь.",
				m.Map, m.CTScore, m.TScore, m.Kills, m.Deaths, m.Assists), MoodHappy, true, true
		}
		return fmt.Sprintf("Матч на %s проигран со счётом %d:%d. Подбодри игрока, впереди следующие игры.",
			m.Map, m.CTScore, m.TScore), MoodSupportive, true, true

	case ev.Type == state.EventDonation && ev.Donation != nil:
		return donationPrompt(*ev.Donation), MoodHappy, true, true

	case ev.Type == state.EventSubscription && ev.Subscription != nil:
		return subscriptionPrompt(*ev.Subscription), MoodHappy, true, true

	case ev.Type == state.EventRaid && ev.Raid != nil:
		return raidPrompt(*ev.Raid), MoodExcited, true, true

	case ev.Type == state.EventFollow:
		name := "Новый зритель"
		if ev.Chat != nil && ev.Chat.Username != "" {
			name = ev.Chat.Username
		}
		return fmt.Sprintf("Новый фолловер %s! Коротко поприветствуй его.", name), MoodHappy, false, true

	case ev.Type == state.EventChatMessage && ev.Chat != nil:
		c := *ev.Chat
		if len(strings.TrimSpace(c.Message)) < 2 || strings.HasPrefix(c.Message, "!") {
			return "", MoodNeutral, false, false
		}
		mentioned := mentionsCoHost(c.Message)
		if !mentioned && n.rand() >= chatReplyChance {
			return "", MoodNeutral, false, false
		}
		return chatPrompt(c, mentioned), MoodNeutral, false, true

	default:
		return "", MoodNeutral, false, false
	}
}

// offCooldown reports whether typ may be reacted to now. Caller holds n.mu.
func (n *Narrator) offCooldown(typ state.EventType) bool {
	cd, found := cooldowns[typ]
	if !found {
		cd = generalCooldown
	}
	return n.now().Sub(n.lastSpoken[typ]) >= cd
}

// generate asks the model for the wording, falling back to a canned template
// when the call fails or the breaker is open.
func (n *Narrator) generate(ctx context.Context, prompt string, typ state.EventType) Utterance {
	n.mu.Lock()
	mood := n.mood
	req := llm.CompletionRequest{
		SystemPrompt: n.persona,
		Temperature:  n.temperature,
		MaxTokens:    n.maxTokens,
	}
	if extra, ok := moodPrompts[mood]; ok {
		req.Messages = append(req.Messages, llm.Message{Role: llm.RoleSystem, Content: extra})
	}
	if gctx := n.game.render(); gctx != "" {
		req.Messages = append(req.Messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: "ТЕКУЩИЙ КОНТЕКСТ СТРИМА:\n" + gctx,
		})
	}
	req.Messages = append(req.Messages, n.history...)
	req.Messages = append(req.Messages, llm.Message{Role: llm.RoleUser, Content: prompt})
	n.mu.Unlock()

	var resp *llm.CompletionResponse
	err := n.breaker.Execute(func() error {
		var innerErr error
		resp, innerErr = n.provider.Complete(ctx, req)
		return innerErr
	})
	if err != nil || resp == nil || strings.TrimSpace(resp.Content) == "" {
		if err != nil {
			n.log.Warn("narrate: completion failed, using template", "error", err)
		}
		return Utterance{Text: n.fallbackLine(typ), Mood: mood}
	}

	text := strings.TrimSpace(resp.Content)
	n.mu.Lock()
	n.history = append(n.history,
		llm.Message{Role: llm.RoleUser, Content: prompt},
		llm.Message{Role: llm.RoleAssistant, Content: text},
	)
	if len(n.history) > n.historySize {
		n.history = n.history[len(n.history)-n.historySize:]
	}
	n.mu.Unlock()

	return Utterance{Text: text, Mood: mood}
}

// fallbackLine rotates through the canned templates for typ.
func (n *Narrator) fallbackLine(typ state.EventType) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch typ {
	case state.EventDoubleKill, state.EventTripleKill, state.EventQuadraKill, state.EventAce:
		typ = state.EventKill
	case state.EventSubscription, state.EventRaid, state.EventFollow:
		typ = state.EventDonation
	}
	lines, found := fallbackTemplates[typ]
	if !found {
		lines = genericFallbacks
	}
	i := n.fallbackIdx[typ] % len(lines)
	n.fallbackIdx[typ]++
	return lines[i]
}

// mentionsCoHost reports whether a chat message addresses the co-host by
// name.
func mentionsCoHost(message string) bool {
	lower := strings.ToLower(message)
	for _, w := range mentionWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
