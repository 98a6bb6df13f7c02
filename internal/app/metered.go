package app

import (
	"context"
	"time"

	"github.com/strmhost/iris/internal/observe"
	"github.com/strmhost/iris/pkg/provider/llm"
	"github.com/strmhost/iris/pkg/provider/stt"
	"github.com/strmhost/iris/pkg/provider/tts"
)

// recordProviderCall counts one provider round trip and its error, if any.
func recordProviderCall(ctx context.Context, m *observe.Metrics, provider, kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		m.RecordProviderError(ctx, provider, kind)
	}
	m.RecordProviderRequest(ctx, provider, kind, status)
}

// meteredLLM wraps an LLM provider with latency and request metrics.
type meteredLLM struct {
	next    llm.Provider
	name    string
	metrics *observe.Metrics
}

func (p *meteredLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := p.next.Complete(ctx, req)
	p.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	recordProviderCall(ctx, p.metrics, p.name, "llm", err)
	return resp, err
}

// meteredSTT wraps an STT provider with latency and request metrics.
type meteredSTT struct {
	next    stt.Provider
	name    string
	metrics *observe.Metrics
}

func (p *meteredSTT) Transcribe(ctx context.Context, wav []byte) (stt.Transcript, error) {
	start := time.Now()
	tr, err := p.next.Transcribe(ctx, wav)
	p.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	recordProviderCall(ctx, p.metrics, p.name, "stt", err)
	return tr, err
}

// meteredTTS wraps a TTS provider with latency and request metrics. Synthesis
// duration covers the whole stream, from the call until the chunk channel
// closes.
type meteredTTS struct {
	next    tts.Provider
	name    string
	metrics *observe.Metrics
}

func (p *meteredTTS) Synthesize(ctx context.Context, text string, voice tts.Voice) (<-chan []byte, error) {
	start := time.Now()
	ch, err := p.next.Synthesize(ctx, text, voice)
	if err != nil {
		p.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
		recordProviderCall(ctx, p.metrics, p.name, "tts", err)
		return nil, err
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for chunk := range ch {
			select {
			case out <- chunk:
			case <-ctx.Done():
				for range ch {
				}
			}
		}
		p.metrics.TTSDuration.Record(context.Background(), time.Since(start).Seconds())
		recordProviderCall(context.Background(), p.metrics, p.name, "tts", nil)
	}()
	return out, nil
}

// meterProviders wraps every configured provider so each round trip lands in
// the duration histograms and the per-provider request counters.
func (a *App) meterProviders() {
	llmName := a.cfg.Providers.LLM.Name
	if llmName == "" {
		llmName = "groq"
	}
	a.providers.LLM = &meteredLLM{next: a.providers.LLM, name: llmName, metrics: a.metrics}

	if a.providers.STT != nil {
		sttName := a.cfg.Providers.STT.Name
		if sttName == "" {
			sttName = "openai"
		}
		a.providers.STT = &meteredSTT{next: a.providers.STT, name: sttName, metrics: a.metrics}
	}

	a.providers.TTS = &meteredTTS{next: a.providers.TTS, name: "edge", metrics: a.metrics}
}
