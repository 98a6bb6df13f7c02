// Package voicecmd maps transcribed utterances to structured intents.
//
// An utterance is only considered when it carries the wake phrase ("ирис" by
// default), matched with one edit of tolerance so common transcription slips
// still wake the co-host. The remainder is parsed against a small Russian
// command grammar for volume control and session queries; anything the
// grammar does not claim becomes free-form conversation.
package voicecmd

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// DefaultWakeWords are the phrases that address the co-host.
var DefaultWakeWords = []string{"ирис", "iris", "ирисик"}

// DefaultTargets maps spoken application names to mixer session names.
var DefaultTargets = map[string]string{
	"музыка":   "yandex-music",
	"яндекс":   "yandex-music",
	"спотифай": "spotify",
	"spotify":  "spotify",
	"дискорд":  "discord",
	"discord":  "discord",
	"браузер":  "chrome",
	"хром":     "chrome",
	"chrome":   "chrome",
}

const (
	// DefaultVolumeStep is the relative change for "тише"/"громче".
	DefaultVolumeStep = 0.2

	// wakeMaxDistance is the Levenshtein tolerance for the wake word.
	wakeMaxDistance = 1

	// targetMaxDistance is the Levenshtein tolerance for target aliases,
	// absorbing Russian case endings ("музыку" for "музыка").
	targetMaxDistance = 1
)

// Option configures an [Interpreter] during construction.
type Option func(*Interpreter)

// WithWakeWords replaces the default wake phrases. Empty input is ignored.
func WithWakeWords(words []string) Option {
	return func(in *Interpreter) {
		if len(words) > 0 {
			in.wakeWords = normalizeAll(words)
		}
	}
}

// WithVolumeStep sets the relative volume step. Values outside (0,1] are
// ignored.
func WithVolumeStep(step float64) Option {
	return func(in *Interpreter) {
		if step > 0 && step <= 1 {
			in.step = step
		}
	}
}

// WithTargets replaces the default alias-to-application table.
func WithTargets(targets map[string]string) Option {
	return func(in *Interpreter) {
		if len(targets) > 0 {
			in.targets = make(map[string]string, len(targets))
			for alias, app := range targets {
				in.targets[normalize(alias)] = app
			}
		}
	}
}

// Interpreter parses utterances. Read-only after construction, safe for
// concurrent use.
type Interpreter struct {
	wakeWords []string
	step      float64
	targets   map[string]string
	aliases   []string // sorted target aliases for deterministic matching
}

// New creates an Interpreter with the default Russian grammar.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		wakeWords: append([]string(nil), DefaultWakeWords...),
		step:      DefaultVolumeStep,
		targets:   DefaultTargets,
	}
	for _, o := range opts {
		o(in)
	}
	in.aliases = make([]string, 0, len(in.targets))
	for alias := range in.targets {
		in.aliases = append(in.aliases, alias)
	}
	sort.Strings(in.aliases)
	return in
}

// Interpret parses text and reports whether the wake phrase was present.
// Without the wake phrase the utterance is ignored and ok is false. A bare
// wake word yields Converse with empty text.
func (in *Interpreter) Interpret(text string) (Intent, bool) {
	tokens := tokenize(text)

	rest, woken := in.stripWake(tokens)
	if !woken {
		return Intent{}, false
	}

	cmd := strings.Join(rest, " ")
	if cmd == "" {
		return Intent{Kind: KindConverse}, true
	}

	switch {
	case strings.Contains(cmd, "статистик") || hasToken(rest, "стата"):
		return Intent{Kind: KindStats}, true
	case strings.Contains(cmd, "достижени"):
		return Intent{Kind: KindAchievements}, true
	}

	if intent, ok := in.parseAudio(cmd, rest); ok {
		return intent, true
	}

	return Intent{Kind: KindConverse, Text: cmd}, true
}

// parseAudio recognizes the volume-control grammar. ok is false when the
// utterance is not an audio command at all.
func (in *Interpreter) parseAudio(cmd string, tokens []string) (Intent, bool) {
	intent, recognized := in.audioAction(cmd)
	if !recognized {
		// Mentions audio without a recognizable action: ask to rephrase
		// instead of sending it to the language model.
		if strings.Contains(cmd, "громкост") || strings.Contains(cmd, "звук") {
			return Intent{
				Kind: KindFeedback,
				Text: "Не поняла команду. Скажи например: сделай музыку тише, или: выключи дискорд",
			}, true
		}
		return Intent{}, false
	}

	target, found := in.resolveTarget(tokens)
	if !found {
		return Intent{
			Kind: KindFeedback,
			Text: "Не поняла, каким приложением управлять. Назови музыку, дискорд или браузер",
		}, true
	}
	intent.Target = target
	return intent, true
}

// audioAction maps action stems onto an intent skeleton without a target.
func (in *Interpreter) audioAction(cmd string) (Intent, bool) {
	has := func(stems ...string) bool {
		for _, s := range stems {
			if strings.Contains(cmd, s) {
				return true
			}
		}
		return false
	}

	switch {
	case has("тише", "убав", "понизь"):
		return Intent{Kind: KindAdjustVolume, Delta: -in.step}, true
	case has("громче", "прибав", "повысь"):
		return Intent{Kind: KindAdjustVolume, Delta: in.step}, true
	case has("выключ", "замут", "mute") && !has("unmute", "размут"):
		return Intent{Kind: KindMute}, true
	case has("включ", "размут", "unmute"):
		return Intent{Kind: KindUnmute}, true
	case has("50%", "полови", "средн"):
		return Intent{Kind: KindSetVolume, Level: 0.5}, true
	case has("100%", "максим", "полн"):
		return Intent{Kind: KindSetVolume, Level: 1.0}, true
	case has("25%", "четверть"):
		return Intent{Kind: KindSetVolume, Level: 0.25}, true
	}
	return Intent{}, false
}

// resolveTarget finds the first token naming a known application, tolerating
// one edit for case endings and transcription slips.
func (in *Interpreter) resolveTarget(tokens []string) (string, bool) {
	for _, tok := range tokens {
		best := ""
		bestDist := targetMaxDistance + 1
		for _, alias := range in.aliases {
			if strings.HasPrefix(tok, alias) {
				return in.targets[alias], true
			}
			if d := matchr.Levenshtein(tok, alias); d < bestDist {
				best = alias
				bestDist = d
			}
		}
		if best != "" {
			return in.targets[best], true
		}
	}
	return "", false
}

// stripWake removes the wake word (and a leading "эй"/"hey" greeting before
// it) from the token list. ok is false when no wake word is present.
func (in *Interpreter) stripWake(tokens []string) (rest []string, ok bool) {
	for i, tok := range tokens {
		if !in.isWakeWord(tok) {
			continue
		}
		rest = append(rest, tokens[:i]...)
		rest = append(rest, tokens[i+1:]...)
		if i > 0 && (tokens[i-1] == "эй" || tokens[i-1] == "hey") {
			rest = append(rest[:i-1], rest[i:]...)
		}
		return rest, true
	}
	return nil, false
}

func (in *Interpreter) isWakeWord(tok string) bool {
	for _, w := range in.wakeWords {
		if tok == w {
			return true
		}
		// Short tokens get no tolerance: "рис" must not wake the co-host.
		if len([]rune(tok)) >= len([]rune(w)) && matchr.Levenshtein(tok, w) <= wakeMaxDistance {
			return true
		}
	}
	return false
}

// tokenize lowercases text and splits it into words, keeping '%' so level
// phrases like "50%" survive.
func tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '%':
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, text)
	return strings.Fields(cleaned)
}

func hasToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if n := normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Describe renders an executed volume intent as a short confirmation line.
func Describe(i Intent) string {
	switch i.Kind {
	case KindSetVolume:
		return fmt.Sprintf("Громкость %s теперь %d процентов", i.Target, int(i.Level*100))
	case KindAdjustVolume:
		if i.Delta < 0 {
			return fmt.Sprintf("Сделала %s потише", i.Target)
		}
		return fmt.Sprintf("Сделала %s погромче", i.Target)
	case KindMute:
		return fmt.Sprintf("Выключила звук %s", i.Target)
	case KindUnmute:
		return fmt.Sprintf("Включила звук %s", i.Target)
	default:
		return ""
	}
}
