package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/strmhost/iris/internal/achievement"
	"github.com/strmhost/iris/internal/achievement/progstore"
	"github.com/strmhost/iris/internal/config"
	mixmock "github.com/strmhost/iris/internal/mixerctl/mock"
	"github.com/strmhost/iris/internal/state"
	"github.com/strmhost/iris/internal/voicecmd"
	"github.com/strmhost/iris/pkg/provider/llm"
	llmmock "github.com/strmhost/iris/pkg/provider/llm/mock"
	"github.com/strmhost/iris/pkg/provider/stt"
	sttmock "github.com/strmhost/iris/pkg/provider/stt/mock"
	ttsmock "github.com/strmhost/iris/pkg/provider/tts/mock"
)

// captureSpeaker records spoken lines for assertions.
type captureSpeaker struct {
	spoken chan string
}

func (s *captureSpeaker) Speak(_ context.Context, text string) error {
	s.spoken <- text
	return nil
}

func (s *captureSpeaker) Close() error { return nil }

type fixture struct {
	app     *App
	llm     *llmmock.Provider
	stt     *sttmock.Provider
	mixer   *mixmock.Controller
	speaker *captureSpeaker
	cfg     *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		llm:     &llmmock.Provider{Response: &llm.CompletionResponse{Content: "Красиво сыграно!"}},
		stt:     &sttmock.Provider{},
		mixer:   mixmock.New(),
		speaker: &captureSpeaker{spoken: make(chan string, 16)},
		cfg: &config.Config{
			Progress: config.ProgressConfig{
				File: filepath.Join(t.TempDir(), "progress.json"),
			},
		},
	}

	a, err := New(context.Background(), f.cfg,
		&Providers{LLM: f.llm, STT: f.stt, TTS: &ttsmock.Provider{}},
		WithSpeaker(f.speaker),
		WithMixer(f.mixer),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.app = a
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		a.Shutdown(ctx) //nolint:errcheck
	})
	return f
}

func (f *fixture) waitSpoken(t *testing.T) string {
	t.Helper()
	select {
	case text := <-f.speaker.spoken:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("nothing was spoken")
		return ""
	}
}

func killEvent(round int) state.Event {
	ev := state.NewEvent(state.EventKill, time.Now(), round)
	ev.Kill = &state.Kill{Count: 1, RoundKills: 1, TotalKills: 1, Streak: 1, Weapon: "ak47"}
	return ev
}

func TestHandleEventSpeaksCommentary(t *testing.T) {
	f := newFixture(t)

	f.app.handleEvent(context.Background(), killEvent(1), "gsi")

	if got := f.waitSpoken(t); got != "Красиво сыграно!" {
		t.Errorf("spoken = %q, want model line", got)
	}
	if f.llm.CallCount() == 0 {
		t.Error("commentary should come from the model")
	}
}

func TestDonationOutranksQueuedCommentary(t *testing.T) {
	_ = newFixture(t)

	ev := state.NewEvent(state.EventDonation, time.Now(), 0)
	ev.Donation = &state.Donation{Username: "viewer", Amount: 5, Currency: "USD"}
	if got := priorityFor(ev); got <= priorityFor(killEvent(1)) {
		t.Errorf("donation priority %v should outrank kill priority %v", got, priorityFor(killEvent(1)))
	}
}

func TestCheckpointPersistsProgress(t *testing.T) {
	f := newFixture(t)

	f.app.tracker.Apply(killEvent(1))
	f.app.checkpoint(context.Background())

	if _, err := os.Stat(f.cfg.Progress.File); err != nil {
		t.Fatalf("progress file not written: %v", err)
	}
	if f.app.tracker.Dirty() {
		t.Error("checkpoint should clear the dirty flag")
	}
}

func TestHandleVoiceVolumeCommand(t *testing.T) {
	f := newFixture(t)
	f.stt.Transcripts = []stt.Transcript{{Text: "ирис сделай музыку потише"}}

	if err := f.app.HandleVoice(context.Background(), []byte("clip")); err != nil {
		t.Fatalf("HandleVoice: %v", err)
	}

	calls := f.mixer.Calls()
	if len(calls) != 1 || calls[0].Op != "adjust" {
		t.Fatalf("mixer calls = %+v, want one adjust", calls)
	}
	if got := f.waitSpoken(t); !strings.Contains(got, "потише") {
		t.Errorf("confirmation = %q", got)
	}
}

func TestHandleVoiceConversation(t *testing.T) {
	f := newFixture(t)
	f.stt.Transcripts = []stt.Transcript{{Text: "ирис как настроение"}}

	if err := f.app.HandleVoice(context.Background(), []byte("clip")); err != nil {
		t.Fatalf("HandleVoice: %v", err)
	}

	if got := f.waitSpoken(t); got != "Красиво сыграно!" {
		t.Errorf("reply = %q, want model line", got)
	}
}

func TestHandleVoiceIgnoresChatter(t *testing.T) {
	f := newFixture(t)
	f.stt.Transcripts = []stt.Transcript{{Text: "ну и раунд конечно"}}

	if err := f.app.HandleVoice(context.Background(), []byte("clip")); err != nil {
		t.Fatalf("HandleVoice: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	select {
	case text := <-f.speaker.spoken:
		t.Errorf("unexpected speech %q for a clip without the wake phrase", text)
	default:
	}
}

func TestDispatchIntentStats(t *testing.T) {
	f := newFixture(t)

	f.app.dispatchIntent(context.Background(), voicecmd.Intent{Kind: voicecmd.KindStats})

	if got := f.waitSpoken(t); got == "" {
		t.Error("stats summary should not be empty")
	}
}

func TestNewRestoresSavedProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	at := time.Now()
	saved := achievement.Progress{
		Achievements: map[string]achievement.Entry{
			"first_blood": {Progress: 1, Unlocked: true, UnlockedAt: &at},
		},
	}
	if err := progstore.NewFileStore(path).Save(context.Background(), saved); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	cfg := &config.Config{Progress: config.ProgressConfig{File: path}}
	a, err := New(context.Background(), cfg,
		&Providers{LLM: &llmmock.Provider{Response: &llm.CompletionResponse{Content: "ок"}}, TTS: &ttsmock.Provider{}},
		WithSpeaker(&captureSpeaker{spoken: make(chan string, 4)}),
		WithMixer(mixmock.New()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background()) //nolint:errcheck

	if got := a.tracker.ProgressSummary(); !strings.Contains(got, " 1/") {
		t.Errorf("progress summary = %q, want one restored unlock", got)
	}
}

func TestNewToleratesCorruptProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	cfg := &config.Config{Progress: config.ProgressConfig{File: path}}
	a, err := New(context.Background(), cfg,
		&Providers{LLM: &llmmock.Provider{Response: &llm.CompletionResponse{Content: "ок"}}, TTS: &ttsmock.Provider{}},
		WithSpeaker(&captureSpeaker{spoken: make(chan string, 4)}),
		WithMixer(mixmock.New()),
	)
	if err != nil {
		t.Fatalf("New must start fresh on an unreadable store, got: %v", err)
	}
	defer a.Shutdown(context.Background()) //nolint:errcheck

	if got := a.tracker.ProgressSummary(); !strings.Contains(got, " 0/") {
		t.Errorf("progress summary = %q, want a fresh session", got)
	}
}

func TestVoiceEndpointAcceptsClip(t *testing.T) {
	f := newFixture(t)
	f.stt.Transcripts = []stt.Transcript{{Text: "ирис статистика"}}

	req := httptest.NewRequest(http.MethodPost, "/voice", strings.NewReader("clip"))
	rec := httptest.NewRecorder()
	f.app.voiceHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
}
