package app

import (
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/strmhost/iris/internal/observe"
	"github.com/strmhost/iris/pkg/provider/llm"
	llmmock "github.com/strmhost/iris/pkg/provider/llm/mock"
	"github.com/strmhost/iris/pkg/provider/stt"
	sttmock "github.com/strmhost/iris/pkg/provider/stt/mock"
	"github.com/strmhost/iris/pkg/provider/tts"
	ttsmock "github.com/strmhost/iris/pkg/provider/tts/mock"
)

// newMeterHarness returns a Metrics instance backed by a ManualReader so the
// wrapper recordings can be inspected.
func newMeterHarness(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func histogramCount(t *testing.T, met *metricdata.Metrics) uint64 {
	t.Helper()
	if met == nil {
		t.Fatal("histogram metric not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("metric %q is not a histogram", met.Name)
	}
	var n uint64
	for _, dp := range hist.DataPoints {
		n += dp.Count
	}
	return n
}

func counterTotal(t *testing.T, met *metricdata.Metrics) int64 {
	t.Helper()
	if met == nil {
		return 0
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not a counter", met.Name)
	}
	var n int64
	for _, dp := range sum.DataPoints {
		n += dp.Value
	}
	return n
}

func TestMeteredLLMRecordsLatencyAndErrors(t *testing.T) {
	t.Parallel()

	m, reader := newMeterHarness(t)
	mock := &llmmock.Provider{Response: &llm.CompletionResponse{Content: "Отличный фраг!"}}
	p := &meteredLLM{next: mock, name: "groq", metrics: m}

	req := llm.CompletionRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "react"}}}
	if _, err := p.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	mock.Err = errors.New("rate limited")
	if _, err := p.Complete(context.Background(), req); err == nil {
		t.Fatal("Complete did not propagate the backend error")
	}

	if n := histogramCount(t, collectMetric(t, reader, "iris.llm.duration")); n != 2 {
		t.Errorf("llm duration observations = %d, want 2", n)
	}
	if n := counterTotal(t, collectMetric(t, reader, "iris.provider.requests")); n != 2 {
		t.Errorf("provider requests = %d, want 2", n)
	}
	if n := counterTotal(t, collectMetric(t, reader, "iris.provider.errors")); n != 1 {
		t.Errorf("provider errors = %d, want 1", n)
	}
}

func TestMeteredSTTRecordsLatency(t *testing.T) {
	t.Parallel()

	m, reader := newMeterHarness(t)
	mock := &sttmock.Provider{Transcripts: []stt.Transcript{{Text: "ирис привет"}}}
	p := &meteredSTT{next: mock, name: "openai", metrics: m}

	tr, err := p.Transcribe(context.Background(), []byte("RIFFwav"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "ирис привет" {
		t.Fatalf("transcript = %q, want the mock text", tr.Text)
	}

	if n := histogramCount(t, collectMetric(t, reader, "iris.stt.duration")); n != 1 {
		t.Errorf("stt duration observations = %d, want 1", n)
	}
	if n := counterTotal(t, collectMetric(t, reader, "iris.provider.requests")); n != 1 {
		t.Errorf("provider requests = %d, want 1", n)
	}
}

func TestMeteredTTSRecordsFullStreamDuration(t *testing.T) {
	t.Parallel()

	m, reader := newMeterHarness(t)
	mock := &ttsmock.Provider{Chunks: [][]byte{[]byte("aa"), []byte("bb")}}
	p := &meteredTTS{next: mock, name: "edge", metrics: m}

	ch, err := p.Synthesize(context.Background(), "Привет, чат!", tts.Voice{Name: "ru-RU-SvetlanaNeural"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	var got int
	for chunk := range ch {
		got += len(chunk)
	}
	if got != 4 {
		t.Fatalf("streamed %d bytes, want 4", got)
	}

	// The channel closes only after the duration is recorded.
	if n := histogramCount(t, collectMetric(t, reader, "iris.tts.duration")); n != 1 {
		t.Errorf("tts duration observations = %d, want 1", n)
	}
	if n := counterTotal(t, collectMetric(t, reader, "iris.provider.requests")); n != 1 {
		t.Errorf("provider requests = %d, want 1", n)
	}
}

func TestMeteredTTSRecordsStartupFailure(t *testing.T) {
	t.Parallel()

	m, reader := newMeterHarness(t)
	mock := &ttsmock.Provider{Err: errors.New("synthesis unavailable")}
	p := &meteredTTS{next: mock, name: "edge", metrics: m}

	if _, err := p.Synthesize(context.Background(), "x", tts.Voice{}); err == nil {
		t.Fatal("Synthesize did not propagate the backend error")
	}
	if n := counterTotal(t, collectMetric(t, reader, "iris.provider.errors")); n != 1 {
		t.Errorf("provider errors = %d, want 1", n)
	}
}
