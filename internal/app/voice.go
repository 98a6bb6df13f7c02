package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/strmhost/iris/internal/arbiter"
	"github.com/strmhost/iris/internal/voicecmd"
)

// maxClipSize bounds an uploaded voice clip. 10 seconds of 16-bit 48 kHz
// mono is under 1 MiB; anything bigger is not a command.
const maxClipSize = 4 << 20

// voiceHandler accepts recorded voice clips from the capture client and runs
// them through the command pipeline.
func (a *App) voiceHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clip, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxClipSize))
		if err != nil {
			http.Error(w, `{"status":"error"}`, http.StatusBadRequest)
			return
		}
		if err := a.HandleVoice(r.Context(), clip); err != nil {
			slog.Warn("voice command failed", "err", err)
			http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"status":"accepted"}`)) //nolint:errcheck
	})
}

// HandleVoice transcribes one voice clip and executes the command it
// carries. Clips without the wake phrase are ignored.
func (a *App) HandleVoice(ctx context.Context, wav []byte) error {
	if a.providers.STT == nil {
		return fmt.Errorf("app: no stt provider configured")
	}

	t, err := a.providers.STT.Transcribe(ctx, wav)
	if err != nil {
		return fmt.Errorf("app: transcribe: %w", err)
	}
	if t.Text == "" {
		return nil
	}
	slog.Debug("voice transcript", "text", t.Text)

	intent, ok := a.interp.Interpret(t.Text)
	if !ok {
		return nil
	}
	a.dispatchIntent(ctx, intent)
	return nil
}

// dispatchIntent executes one recognized voice command.
func (a *App) dispatchIntent(ctx context.Context, in voicecmd.Intent) {
	switch in.Kind {
	case voicecmd.KindConverse:
		utt := a.narrator.Converse(ctx, in.Text)
		a.say(utt.Text)

	case voicecmd.KindSetVolume:
		if err := a.mixer.SetVolume(ctx, in.Target, in.Level); err != nil {
			slog.Warn("set volume failed", "app", in.Target, "err", err)
			a.say("Не получилось поменять громкость, что-то с миксером.")
			return
		}
		a.say(fmt.Sprintf("Готово, громкость %d процентов.", int(in.Level*100+0.5)))

	case voicecmd.KindAdjustVolume:
		if _, err := a.mixer.AdjustVolume(ctx, in.Target, in.Delta); err != nil {
			slog.Warn("adjust volume failed", "app", in.Target, "err", err)
			a.say("Не получилось поменять громкость, что-то с миксером.")
			return
		}
		if in.Delta < 0 {
			a.say("Сделала потише.")
		} else {
			a.say("Сделала погромче.")
		}

	case voicecmd.KindMute:
		if err := a.mixer.Mute(ctx, in.Target); err != nil {
			slog.Warn("mute failed", "app", in.Target, "err", err)
			a.say("Не получилось выключить звук.")
			return
		}
		a.say("Выключила звук.")

	case voicecmd.KindUnmute:
		if err := a.mixer.Unmute(ctx, in.Target); err != nil {
			slog.Warn("unmute failed", "app", in.Target, "err", err)
			a.say("Не получилось включить звук.")
			return
		}
		a.say("Включила звук обратно.")

	case voicecmd.KindStats:
		a.say(a.tracker.Summary())

	case voicecmd.KindAchievements:
		a.say(a.tracker.ProgressSummary())

	case voicecmd.KindFeedback:
		a.say(in.Text)
	}
}

// say queues a direct reply to the streamer. Voice replies outrank game
// commentary: being ignored by the co-host feels worse than a missed frag
// line.
func (a *App) say(text string) {
	if text == "" {
		return
	}
	a.speech.Submit(arbiter.Request{
		Priority:  arbiter.PriorityHighlight,
		Category:  "voice",
		Text:      text,
		CreatedAt: time.Now(),
	})
}
