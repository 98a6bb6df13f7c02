// Package openai provides an STT provider backed by the OpenAI Whisper API.
// It implements the stt.Provider interface.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/strmhost/iris/pkg/provider/stt"
)

const (
	// DefaultModel is the default transcription model.
	DefaultModel = oai.AudioModelWhisper1

	// DefaultLanguage biases recognition; the co-host listens in Russian.
	DefaultLanguage = "ru"

	defaultTimeout = 30 * time.Second
)

// Compile-time interface check.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the transcription model (e.g. "whisper-1").
func WithModel(model string) Option {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithLanguage sets the ISO-639-1 language hint. An empty value lets the
// model auto-detect.
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithBaseURL overrides the default API base URL, for OpenAI-compatible
// transcription endpoints.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithTimeout sets a per-request timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// Provider implements stt.Provider using the OpenAI audio transcription API.
type Provider struct {
	client   oai.Client
	model    string
	language string
	baseURL  string
	timeout  time.Duration
}

// New creates a Whisper-backed Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai stt: apiKey must not be empty")
	}

	p := &Provider{
		model:    DefaultModel,
		language: DefaultLanguage,
		timeout:  defaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(p.timeout),
	}
	if p.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(p.baseURL))
	}
	p.client = oai.NewClient(reqOpts...)
	return p, nil
}

// Transcribe implements stt.Provider. Empty or header-only clips return an
// empty transcript without calling the API.
func (p *Provider) Transcribe(ctx context.Context, wav []byte) (stt.Transcript, error) {
	// 44 bytes is a bare RIFF header with no samples.
	if len(wav) <= 44 {
		return stt.Transcript{}, nil
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
		Model: p.model,
	}
	if p.language != "" {
		params.Language = oai.String(p.language)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("openai stt: transcribe: %w", err)
	}

	return stt.Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Language: p.language,
	}, nil
}
