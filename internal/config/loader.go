package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"groq", "openai", "anthropic", "ollama", "mistral", "gemini", "deepseek"},
	"stt": {"openai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Values of the form ${VAR} are expanded from the environment
// before parsing, so API keys can live in the process environment instead of
// the file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg, err := LoadFromReader(bytes.NewReader([]byte(expandEnv(string(raw)))))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)

	// Provider availability warnings
	if cfg.Providers.LLM.Name != "" && cfg.Providers.LLM.APIKey == "" {
		slog.Warn("providers.llm.api_key is empty; commentary will fall back to canned lines")
	}
	if cfg.Providers.STT.APIKey == "" {
		slog.Warn("providers.stt.api_key is empty; voice commands will be unavailable")
	}
	if cfg.Stream.JWTToken == "" {
		slog.Warn("stream.jwt_token is empty; donation and chat events will not be received")
	}

	// Narrator
	if t := cfg.Narrator.Temperature; t < 0 || t > 2 {
		errs = append(errs, fmt.Errorf("narrator.temperature %.2f is out of range [0, 2]", t))
	}
	if cfg.Narrator.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("narrator.max_tokens must not be negative"))
	}
	if cfg.Narrator.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("narrator.history_size must not be negative"))
	}

	// Speech
	if cfg.Speech.QueueCapacity < 0 {
		errs = append(errs, fmt.Errorf("speech.queue_capacity must not be negative"))
	}
	if cfg.Speech.SpeakTimeout < 0 {
		errs = append(errs, fmt.Errorf("speech.speak_timeout must not be negative"))
	}

	// Mixer
	if l := cfg.Mixer.InitialLevel; l < 0 || l > 1 {
		errs = append(errs, fmt.Errorf("mixer.initial_level %.2f is out of range [0, 1]", l))
	}

	// Progress backends are mutually exclusive.
	if cfg.Progress.File != "" && cfg.Progress.PostgresDSN != "" {
		errs = append(errs, fmt.Errorf("progress.file and progress.postgres_dsn are mutually exclusive"))
	}
	if cfg.Progress.SaveInterval < 0 {
		errs = append(errs, fmt.Errorf("progress.save_interval must not be negative"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

// expandEnv substitutes ${VAR} references with environment values. Unlike
// [os.ExpandEnv] it leaves bare $VAR and unknown ${VAR} untouched, so YAML
// containing literal dollar signs survives the pass.
func expandEnv(s string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.Index(s[start:], "}")
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		name := s[start+2 : start+end]
		b.WriteString(s[:start])
		if val, ok := os.LookupEnv(name); ok {
			b.WriteString(val)
		} else {
			b.WriteString(s[start : start+end+1])
		}
		s = s[start+end+1:]
	}
}
