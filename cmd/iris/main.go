// Command iris is the main entry point for the Iris stream companion.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/strmhost/iris/internal/app"
	"github.com/strmhost/iris/internal/config"
	"github.com/strmhost/iris/internal/gsi"
	"github.com/strmhost/iris/internal/observe"
	"github.com/strmhost/iris/internal/resilience"
	"github.com/strmhost/iris/pkg/provider/llm/anyllm"
	sttopenai "github.com/strmhost/iris/pkg/provider/stt/openai"
	"github.com/strmhost/iris/pkg/provider/tts/edge"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "iris.yaml", "path to the YAML configuration file")
	writeGSIConfig := flag.String("write-gsi-config", "", "write the gamestate_integration cfg to the given path and exit")
	flag.Parse()

	// Optional .env next to the binary; real environment wins.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "iris: load .env: %v\n", err)
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "iris: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "iris: %v\n", err)
		}
		return 1
	}

	if *writeGSIConfig != "" {
		addr := cfg.GSI.ListenAddr
		if addr == "" {
			addr = gsi.DefaultAddr
		}
		uri := "http://localhost" + addr + "/"
		if err := gsi.WriteConfig(*writeGSIConfig, uri, cfg.GSI.AuthToken); err != nil {
			fmt.Fprintf(os.Stderr, "iris: %v\n", err)
			return 1
		}
		fmt.Printf("wrote %s — place it in the game's csgo/cfg directory\n", *writeGSIConfig)
		return 0
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("iris starting",
		"version", version,
		"config", *configPath,
		"gsi_addr", cfg.GSI.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Server.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	providers, err := buildProviders(cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildProviders instantiates the configured LLM, STT, and TTS providers.
// Every provider is wrapped in its fallback group so secondaries can be
// registered and failures trip a circuit breaker instead of cascading.
func buildProviders(cfg *config.Config) (*app.Providers, error) {
	p := &app.Providers{}

	// LLM — groq by default, any any-llm-go backend by name.
	name := cfg.Providers.LLM.Name
	if name == "" {
		name = "groq"
	}
	model := cfg.Providers.LLM.Model
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	var llmOpts []anyllmlib.Option
	if k := cfg.Providers.LLM.APIKey; k != "" {
		llmOpts = append(llmOpts, anyllmlib.WithAPIKey(k))
	}
	if u := cfg.Providers.LLM.BaseURL; u != "" {
		llmOpts = append(llmOpts, anyllmlib.WithBaseURL(u))
	}
	primary, err := anyllm.New(name, model, llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("llm provider %q: %w", name, err)
	}
	p.LLM = resilience.NewLLMFallback(primary, name, resilience.FallbackConfig{})

	// STT — optional; without it voice commands are unavailable.
	if k := cfg.Providers.STT.APIKey; k != "" {
		var sttOpts []sttopenai.Option
		if m := cfg.Providers.STT.Model; m != "" {
			sttOpts = append(sttOpts, sttopenai.WithModel(m))
		}
		if u := cfg.Providers.STT.BaseURL; u != "" {
			sttOpts = append(sttOpts, sttopenai.WithBaseURL(u))
		}
		stt, err := sttopenai.New(k, sttOpts...)
		if err != nil {
			return nil, fmt.Errorf("stt provider: %w", err)
		}
		p.STT = resilience.NewSTTFallback(stt, orDefault(cfg.Providers.STT.Name, "openai"), resilience.FallbackConfig{})
	}

	// TTS — edge needs no API key.
	var ttsOpts []edge.Option
	if f := cfg.Providers.TTS.OutputFormat; f != "" {
		ttsOpts = append(ttsOpts, edge.WithOutputFormat(f))
	}
	p.TTS = resilience.NewTTSFallback(edge.New(ttsOpts...), "edge", resilience.FallbackConfig{})

	return p, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// newLogger builds the default text logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// printStartupSummary logs what is enabled so a missing token is obvious at
// a glance.
func printStartupSummary(cfg *config.Config) {
	slog.Info("configuration",
		"llm", orDefault(cfg.Providers.LLM.Name, "groq"),
		"stt_enabled", cfg.Providers.STT.APIKey != "",
		"tts_voice", orDefault(cfg.Providers.TTS.Voice, "ru_female_soft"),
		"stream_events", cfg.Stream.JWTToken != "",
		"gsi_auth", cfg.GSI.AuthToken != "",
		"progress_backend", progressBackend(cfg),
	)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func progressBackend(cfg *config.Config) string {
	if cfg.Progress.PostgresDSN != "" {
		return "postgres"
	}
	return "file"
}
