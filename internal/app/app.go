// Package app wires all Iris subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the main processing loop, and Shutdown tears
// everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithSpeaker, WithMixer, etc.). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/strmhost/iris/internal/achievement"
	"github.com/strmhost/iris/internal/achievement/progstore"
	"github.com/strmhost/iris/internal/arbiter"
	"github.com/strmhost/iris/internal/config"
	"github.com/strmhost/iris/internal/gsi"
	"github.com/strmhost/iris/internal/health"
	"github.com/strmhost/iris/internal/mixerctl"
	"github.com/strmhost/iris/internal/narrate"
	"github.com/strmhost/iris/internal/observe"
	"github.com/strmhost/iris/internal/state"
	"github.com/strmhost/iris/internal/stream"
	"github.com/strmhost/iris/internal/voicecmd"
	"github.com/strmhost/iris/pkg/audio"
	"github.com/strmhost/iris/pkg/provider/llm"
	"github.com/strmhost/iris/pkg/provider/stt"
	"github.com/strmhost/iris/pkg/provider/tts"
)

const (
	// defaultProgressFile is where achievement progress lands when no
	// backend is configured.
	defaultProgressFile = "iris_progress.json"

	defaultSaveInterval = 30 * time.Second

	// tickInterval drives time-window achievement checks.
	tickInterval = time.Second
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go.
type Providers struct {
	LLM llm.Provider
	STT stt.Provider
	TTS tts.Provider
}

// App owns all subsystem lifetimes and orchestrates the Iris pipeline.
type App struct {
	cfg       *config.Config
	providers *Providers
	metrics   *observe.Metrics

	// Subsystems — initialised in New, torn down in Shutdown.
	ingest   *gsi.Server
	differ   *state.Differ
	tracker  *achievement.Tracker
	progress progstore.Store
	narrator *narrate.Narrator
	speech   *arbiter.Arbiter
	speaker  arbiter.Speaker
	events   *stream.Client
	interp   *voicecmd.Interpreter
	mixer    mixerctl.Controller
	player   audio.Player
	voice    string

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSpeaker injects the voice sink instead of building one from the TTS
// provider and audio player.
func WithSpeaker(s arbiter.Speaker) Option {
	return func(a *App) { a.speaker = s }
}

// WithMixer injects a volume controller instead of creating one from config.
func WithMixer(m mixerctl.Controller) Option {
	return func(a *App) { a.mixer = m }
}

// WithPlayer injects an audio player instead of creating one from config.
func WithPlayer(p audio.Player) Option {
	return func(a *App) { a.player = p }
}

// WithProgressStore injects a progress store instead of creating one from
// config.
func WithProgressStore(s progstore.Store) Option {
	return func(a *App) { a.progress = s }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go. Use Option functions to inject test doubles for any
// subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.LLM == nil {
		return nil, fmt.Errorf("app: an LLM provider is required")
	}
	if providers.TTS == nil {
		return nil, fmt.Errorf("app: a TTS provider is required")
	}

	voice := cfg.Providers.TTS.Voice
	if voice == "" {
		voice = "ru_female_soft"
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
		differ:    state.NewDiffer(),
		voice:     tts.ResolveVoice(voice),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	a.meterProviders()

	if err := a.initProgress(ctx); err != nil {
		return nil, fmt.Errorf("app: init progress: %w", err)
	}
	a.initNarrator()
	a.initSpeech()
	a.initVoiceCommands()

	if err := a.initStream(); err != nil {
		return nil, fmt.Errorf("app: init stream: %w", err)
	}
	a.initIngest()

	return a, nil
}

// initProgress opens the progress store and restores saved achievement state.
func (a *App) initProgress(ctx context.Context) error {
	a.tracker = achievement.NewTracker(time.Now())

	if a.progress == nil {
		if dsn := a.cfg.Progress.PostgresDSN; dsn != "" {
			pool, err := pgxpool.New(ctx, dsn)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			store := progstore.NewPostgresStore(pool, "default")
			if err := store.Migrate(ctx); err != nil {
				pool.Close()
				return fmt.Errorf("migrate: %w", err)
			}
			a.progress = store
			a.closers = append(a.closers, func() error {
				pool.Close()
				return nil
			})
		} else {
			path := a.cfg.Progress.File
			if path == "" {
				path = defaultProgressFile
			}
			a.progress = progstore.NewFileStore(path)
		}
	}

	saved, err := a.progress.Load(ctx)
	switch {
	case errors.Is(err, progstore.ErrNotFound):
		slog.Info("no saved progress, starting fresh")
	case err != nil:
		// A broken store costs history, never the stream session.
		slog.Warn("progress store unreadable, starting fresh", "error", err)
	default:
		a.tracker.Restore(saved)
		unlocked := 0
		for _, e := range saved.Achievements {
			if e.Unlocked {
				unlocked++
			}
		}
		slog.Info("restored achievement progress", "unlocked", unlocked)
	}
	return nil
}

// initNarrator builds the commentary generator from config.
func (a *App) initNarrator() {
	var opts []narrate.Option
	if p := a.cfg.Narrator.Persona; p != "" {
		opts = append(opts, narrate.WithPersona(p))
	}
	if t := a.cfg.Narrator.Temperature; t > 0 {
		opts = append(opts, narrate.WithTemperature(t))
	}
	if n := a.cfg.Narrator.MaxTokens; n > 0 {
		opts = append(opts, narrate.WithMaxTokens(n))
	}
	if n := a.cfg.Narrator.HistorySize; n > 0 {
		opts = append(opts, narrate.WithHistorySize(n))
	}
	a.narrator = narrate.New(a.providers.LLM, opts...)
}

// initSpeech builds the audio player, the voice sink, and the arbiter that
// serializes access to it.
func (a *App) initSpeech() {
	if a.speaker == nil {
		if a.player == nil {
			if argv := a.cfg.Speech.PlayerCommand; len(argv) > 0 {
				p, err := audio.NewCommandPlayer(argv)
				if err == nil {
					a.player = p
				} else {
					slog.Warn("invalid player command, writing audio to stdout", "err", err)
				}
			}
			if a.player == nil {
				a.player = audio.NewWriterPlayer(os.Stdout)
			}
		}
		a.speaker = &voiceSpeaker{
			tts:    a.providers.TTS,
			player: a.player,
			voice:  a.voice,
			mood:   func() tts.Emotion { return a.narrator.Mood().Emotion() },
		}
	}

	var opts []arbiter.Option
	if n := a.cfg.Speech.QueueCapacity; n > 0 {
		opts = append(opts, arbiter.WithQueueCapacity(n))
	}
	if d := a.cfg.Speech.SpeakTimeout; d > 0 {
		opts = append(opts, arbiter.WithSpeakTimeout(d))
	}
	opts = append(opts,
		arbiter.WithDropHook(func(req arbiter.Request) {
			a.metrics.RecordUtterance(context.Background(), req.Category, "dropped")
			a.metrics.RecordSpeechDrop(context.Background(), req.Category)
		}),
		arbiter.WithDepthHook(func(delta int) {
			a.metrics.RecordQueueDepth(context.Background(), delta)
		}),
		arbiter.WithSpokenHook(func(req arbiter.Request, err error) {
			status := "ok"
			if err != nil {
				status = "error"
				slog.Warn("speech failed", "category", req.Category, "err", err)
			} else {
				a.metrics.RecordUtteranceLatency(context.Background(), req.Category,
					time.Since(req.CreatedAt).Seconds())
			}
			a.metrics.RecordUtterance(context.Background(), req.Category, status)
		}),
	)
	a.speech = arbiter.New(a.speaker, opts...)
	a.closers = append(a.closers, a.speech.Close)
}

// initVoiceCommands builds the wake-phrase interpreter and the mixer it
// drives.
func (a *App) initVoiceCommands() {
	a.interp = voicecmd.New()
	if a.mixer == nil {
		a.mixer = mixerctl.NewCommandController(a.cfg.Mixer.Commands,
			mixerctl.WithAppNames(a.cfg.Mixer.Apps),
			mixerctl.WithInitialLevel(initialLevel(a.cfg.Mixer.InitialLevel)),
		)
	}
}

// initStream connects the StreamElements listener when a token is present.
func (a *App) initStream() error {
	if a.cfg.Stream.JWTToken == "" {
		slog.Info("stream events disabled, no jwt token")
		return nil
	}
	opts := []stream.Option{stream.WithMetrics(a.metrics)}
	if u := a.cfg.Stream.URL; u != "" {
		opts = append(opts, stream.WithURL(u))
	}
	c, err := stream.New(a.cfg.Stream.JWTToken, opts...)
	if err != nil {
		return err
	}
	a.events = c
	return nil
}

// initIngest builds the GSI listener, mounting the voice-clip endpoint on the
// same mux.
func (a *App) initIngest() {
	a.ingest = gsi.New(
		gsi.WithAddr(a.cfg.GSI.ListenAddr),
		gsi.WithAuthToken(a.cfg.GSI.AuthToken),
		gsi.WithMetrics(a.metrics),
		gsi.WithHealth(health.New(health.Checker{Name: "progress", Check: a.checkProgress})),
		gsi.WithRoute("POST /voice", a.voiceHandler()),
	)
}

// checkProgress is the readiness probe for the progress backend. An empty
// store is healthy; only an unreachable one is not.
func (a *App) checkProgress(ctx context.Context) error {
	if _, err := a.progress.Load(ctx); err != nil && !errors.Is(err, progstore.ErrNotFound) {
		return err
	}
	return nil
}

// Run starts all subsystem loops and blocks until ctx is cancelled or a
// subsystem fails.
func (a *App) Run(ctx context.Context) error {
	if out := a.cfg.GSI.ConfigOut; out != "" {
		uri := "http://localhost" + a.cfg.GSI.ListenAddr + "/"
		if err := gsi.WriteConfig(out, uri, a.cfg.GSI.AuthToken); err != nil {
			slog.Warn("could not write game integration config", "path", out, "err", err)
		} else {
			slog.Info("wrote game integration config", "path", out)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.ingest.Run(ctx) })
	if a.events != nil {
		g.Go(func() error { return a.events.Run(ctx) })
	}
	g.Go(func() error { return a.eventLoop(ctx) })

	slog.Info("iris running", "gsi_addr", a.cfg.GSI.ListenAddr)
	return g.Wait()
}

// eventLoop is the single consumer of game snapshots and stream events. It
// also drives the ambient ticker, time-window achievement checks, and
// progress checkpoints.
func (a *App) eventLoop(ctx context.Context) error {
	var streamEvents <-chan state.Event
	if a.events != nil {
		streamEvents = a.events.Events()
	}

	tick := time.NewTicker(tickInterval)
	defer tick.Stop()

	saveInterval := a.cfg.Progress.SaveInterval
	if saveInterval <= 0 {
		saveInterval = defaultSaveInterval
	}
	save := time.NewTicker(saveInterval)
	defer save.Stop()

	var ambient <-chan time.Time
	if d := a.cfg.Speech.AmbientInterval; d > 0 {
		t := time.NewTicker(d)
		defer t.Stop()
		ambient = t.C
	}

	snapshots := a.ingest.Snapshots()
	for {
		select {
		case <-ctx.Done():
			a.checkpoint(context.Background())
			return ctx.Err()

		case snap, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			for _, ev := range a.differ.Apply(snap) {
				a.handleEvent(ctx, ev, "gsi")
			}

		case ev, ok := <-streamEvents:
			if !ok {
				streamEvents = nil
				continue
			}
			a.handleEvent(ctx, ev, "stream")

		case now := <-tick.C:
			for _, u := range a.tracker.Tick(now) {
				a.announceUnlock(ctx, u)
			}

		case <-save.C:
			a.checkpoint(ctx)

		case <-ambient:
			if utt, ok := a.narrator.Ambient(ctx); ok {
				a.speech.Submit(arbiter.Request{
					Priority:  arbiter.PriorityAmbient,
					Category:  "ambient",
					Text:      utt.Text,
					DedupKey:  "ambient",
					CreatedAt: time.Now(),
				})
			}
		}
	}
}

// handleEvent fans one event into the achievement tracker and the narrator.
func (a *App) handleEvent(ctx context.Context, ev state.Event, source string) {
	a.metrics.RecordGameEvent(ctx, string(ev.Type), source)

	for _, u := range a.tracker.Apply(ev) {
		a.announceUnlock(ctx, u)
	}

	if utt, ok := a.narrator.ReactTo(ctx, ev); ok {
		a.speech.Submit(arbiter.Request{
			Priority:  priorityFor(ev),
			Category:  string(ev.Type),
			Text:      utt.Text,
			DedupKey:  dedupKey(ev),
			CreatedAt: time.Now(),
		})
	}
}

// announceUnlock queues the unlock announcement at top priority.
func (a *App) announceUnlock(ctx context.Context, u achievement.Unlock) {
	a.metrics.RecordUnlock(ctx, u.Rule.ID)
	utt := a.narrator.UnlockAnnouncement(u.Rule.Title, u.Rule.Description)
	a.speech.Submit(arbiter.Request{
		Priority:  arbiter.PriorityAchievement,
		Category:  "achievement",
		Text:      utt.Text,
		CreatedAt: time.Now(),
	})
}

// checkpoint saves achievement progress when it changed since the last save.
func (a *App) checkpoint(ctx context.Context) {
	if !a.tracker.Dirty() {
		return
	}
	if err := a.progress.Save(ctx, a.tracker.Export()); err != nil {
		slog.Warn("progress save failed", "err", err)
		return
	}
	a.tracker.MarkSaved()
}

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		a.checkpoint(ctx)

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// priorityFor maps an event to its speech priority.
func priorityFor(ev state.Event) arbiter.Priority {
	switch ev.Type {
	case state.EventDonation, state.EventSubscription, state.EventRaid:
		return arbiter.PriorityDonation
	case state.EventAce, state.EventClutch, state.EventMVP, state.EventMatchEnd:
		return arbiter.PriorityHighlight
	case state.EventChatMessage, state.EventFollow:
		return arbiter.PriorityChat
	default:
		return arbiter.PriorityCombat
	}
}

// dedupKey collapses successive same-round kill commentary so a fast double
// kill does not queue two lines.
func dedupKey(ev state.Event) string {
	if ev.IsKill() {
		return fmt.Sprintf("kill-%d", ev.Round)
	}
	return ""
}

func initialLevel(l float64) float64 {
	if l <= 0 {
		return 0.5
	}
	return l
}
