// Package achievement folds the event stream into persistent achievement
// progress and session statistics.
//
// The [Tracker] is the single consumer-side aggregate: [Tracker.Apply] takes
// one [state.Event] at a time, advances the counters of every matching rule
// in the [Catalogue], and returns the unlocks the event caused. Unlocks fire
// at most once per progress lifetime, and a bounded ring of recently applied
// event IDs guards against redelivered events being counted twice.
package achievement

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/strmhost/iris/internal/state"
)

const (
	// seenRingSize bounds the redelivery window: events older than this many
	// applications can no longer be recognized as duplicates.
	seenRingSize = 512

	// marathonElapsed is the session length that unlocks the marathon
	// achievement.
	marathonElapsed = 4 * time.Hour
)

// Entry is the persisted progress of one achievement.
type Entry struct {
	Progress   int        `json:"progress"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// Progress is the persistent aggregate: per-achievement entries plus session
// statistics. It is what a progstore.Store loads and saves.
type Progress struct {
	Achievements map[string]Entry `json:"achievements"`
	Stats        Stats            `json:"stats"`
	SessionStart time.Time        `json:"session_start"`
}

// Unlock reports one achievement crossing its target.
type Unlock struct {
	Rule Rule
	At   time.Time
}

// Tracker applies events against the achievement catalogue. Safe for
// concurrent use; the event consumer mutates it while voice commands read
// summaries from another goroutine.
type Tracker struct {
	mu    sync.Mutex
	rules []Rule
	prog  Progress
	dirty bool

	seenSet map[string]struct{}
	seenIDs []string
	seenPos int

	// Per-round / per-match window.
	roundEco    bool
	roundScores [][2]int // CT/T score pairs captured at each round start
}

// NewTracker creates a Tracker over the full [Catalogue] with empty progress
// and the session clock started at now.
func NewTracker(now time.Time) *Tracker {
	t := &Tracker{
		rules:   Catalogue(),
		seenSet: make(map[string]struct{}, seenRingSize),
		seenIDs: make([]string, seenRingSize),
	}
	t.prog = Progress{
		Achievements: make(map[string]Entry, len(t.rules)),
		SessionStart: now,
	}
	return t
}

// Restore adopts previously persisted progress. Entries for unknown
// achievement IDs are dropped; a zero SessionStart keeps the current one.
func (t *Tracker) Restore(p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range t.rules {
		if e, ok := p.Achievements[r.ID]; ok {
			t.prog.Achievements[r.ID] = e
		}
	}
	t.prog.Stats = p.Stats
	if !p.SessionStart.IsZero() {
		t.prog.SessionStart = p.SessionStart
	}
}

// Export returns a deep copy of the current progress for persistence.
func (t *Tracker) Export() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := Progress{
		Achievements: make(map[string]Entry, len(t.prog.Achievements)),
		Stats:        t.prog.Stats,
		SessionStart: t.prog.SessionStart,
	}
	for id, e := range t.prog.Achievements {
		if e.UnlockedAt != nil {
			at := *e.UnlockedAt
			e.UnlockedAt = &at
		}
		out.Achievements[id] = e
	}
	return out
}

// Dirty reports whether progress has mutated since the last MarkSaved.
func (t *Tracker) Dirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

// MarkSaved clears the dirty flag after a successful checkpoint.
func (t *Tracker) MarkSaved() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = false
}

// Apply folds one event into statistics and achievement progress and returns
// any unlocks it caused. An event whose ID was already applied within the
// redelivery window is ignored.
func (t *Tracker) Apply(ev state.Event) []Unlock {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ev.ID != "" && t.markSeen(ev.ID) {
		return nil
	}

	if t.updateStats(ev) {
		t.dirty = true
	}

	c := &EvalContext{
		Event:    ev,
		Stats:    &t.prog.Stats,
		RoundEco: t.roundEco,
	}
	if ev.Type == state.EventMatchEnd && ev.Match != nil {
		c.MaxDeficit = t.maxDeficit(ev.Match)
	}

	var unlocks []Unlock
	for _, r := range t.rules {
		if r.Step == nil {
			continue
		}
		step := r.Step(c)
		if step <= 0 {
			continue
		}
		if u, ok := t.advance(r, step, ev.Time); ok {
			unlocks = append(unlocks, u)
		}
	}

	t.updateWindow(ev)
	return unlocks
}

// Tick applies time-based rules and refreshes the stream-duration statistic.
// Call it periodically from the orchestrator.
func (t *Tracker) Tick(now time.Time) []Unlock {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := now.Sub(t.prog.SessionStart)
	t.prog.Stats.StreamHours = elapsed.Hours()
	t.dirty = true

	if elapsed < marathonElapsed {
		return nil
	}
	for _, r := range t.rules {
		if r.ID != "marathon" {
			continue
		}
		if u, ok := t.advance(r, r.Target, now); ok {
			return []Unlock{u}
		}
	}
	return nil
}

// Stats returns a copy of the current session statistics.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prog.Stats
}

// Summary returns the spoken-facing session statistics report.
func (t *Tracker) Summary() string {
	return t.Stats().Summary()
}

// ProgressSummary returns the short unlocked-count line.
func (t *Tracker) ProgressSummary() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	unlocked := 0
	for _, e := range t.prog.Achievements {
		if e.Unlocked {
			unlocked++
		}
	}
	return fmt.Sprintf("Достижения: %d/%d", unlocked, len(t.rules))
}

// markSeen records the event ID in the redelivery ring and reports whether it
// was already present. Must be called with t.mu held.
func (t *Tracker) markSeen(id string) bool {
	if _, ok := t.seenSet[id]; ok {
		return true
	}
	if old := t.seenIDs[t.seenPos]; old != "" {
		delete(t.seenSet, old)
	}
	t.seenIDs[t.seenPos] = id
	t.seenSet[id] = struct{}{}
	t.seenPos = (t.seenPos + 1) % seenRingSize
	return false
}

// advance moves one rule's counter forward, capping at the target, and
// returns the unlock when the target is crossed. Unlocked rules never
// advance again. Must be called with t.mu held.
func (t *Tracker) advance(r Rule, step int, at time.Time) (Unlock, bool) {
	e := t.prog.Achievements[r.ID]
	if e.Unlocked {
		return Unlock{}, false
	}

	e.Progress += step
	if e.Progress > r.Target {
		e.Progress = r.Target
	}
	t.dirty = true

	if e.Progress < r.Target {
		t.prog.Achievements[r.ID] = e
		return Unlock{}, false
	}

	e.Unlocked = true
	ts := at
	e.UnlockedAt = &ts
	t.prog.Achievements[r.ID] = e
	slog.Info("achievement unlocked", "id", r.ID, "title", r.Title)
	return Unlock{Rule: r, At: at}, true
}

// updateStats folds the event into the session counters and reports whether
// anything changed. Must be called with t.mu held.
func (t *Tracker) updateStats(ev state.Event) bool {
	s := &t.prog.Stats
	switch {
	case ev.IsKill():
		count := 1
		if ev.Kill != nil && ev.Kill.Count > 0 {
			count = ev.Kill.Count
		}
		s.TotalKills += count
		s.KillStreak += count
		s.DeathStreak = 0
		if s.KillStreak > s.KillStreakMax {
			s.KillStreakMax = s.KillStreak
		}
		if ev.Kill != nil && ev.Kill.Headshot {
			s.Headshots++
		}
		if ev.Type == state.EventAce {
			s.Aces++
		}

	case ev.Type == state.EventDeath:
		s.TotalDeaths++
		s.DeathStreak++
		s.KillStreak = 0
		if s.DeathStreak > s.DeathStreakMax {
			s.DeathStreakMax = s.DeathStreak
		}

	case ev.Type == state.EventClutch:
		s.ClutchesWon++

	case ev.Type == state.EventMVP:
		s.MVPs++

	case ev.Type == state.EventRoundEnd:
		if ev.RoundEnd != nil && ev.RoundEnd.Won {
			s.RoundsWon++
		} else {
			s.RoundsLost++
		}

	case ev.Type == state.EventMatchEnd:
		s.MatchesPlayed++
		if ev.Match != nil {
			s.TotalAssists += ev.Match.Assists
			if ev.Match.Won {
				s.MatchesWon++
			}
		}

	case ev.Type == state.EventDonation:
		s.DonationsReceived++
		if ev.Donation != nil {
			s.DonationsTotal += ev.Donation.Amount
		}

	case ev.Type == state.EventSubscription:
		s.NewSubscribers++

	case ev.Type == state.EventRaid:
		s.RaidsReceived++

	case ev.Type == state.EventChatMessage:
		s.ChatMessages++

	default:
		return false
	}
	return true
}

// updateWindow maintains the per-round and per-match scratch after rules ran.
// Must be called with t.mu held.
func (t *Tracker) updateWindow(ev state.Event) {
	switch ev.Type {
	case state.EventMapChange, state.EventMatchEnd:
		t.roundScores = nil
		t.roundEco = false
	case state.EventRoundStart:
		if ev.RoundStart != nil {
			t.roundEco = ev.RoundStart.Eco
			t.roundScores = append(t.roundScores, [2]int{ev.RoundStart.CTScore, ev.RoundStart.TScore})
		}
	}
}

// maxDeficit computes the largest round-score deficit the player's team faced
// during the ending match. The team is inferred from the final score and the
// won flag. Must be called with t.mu held.
func (t *Tracker) maxDeficit(m *state.Match) int {
	playerIsCT := (m.CTScore > m.TScore) == m.Won
	worst := 0
	for _, sc := range t.roundScores {
		deficit := sc[0] - sc[1] // T-side deficit
		if playerIsCT {
			deficit = sc[1] - sc[0]
		}
		if deficit > worst {
			worst = deficit
		}
	}
	return worst
}
