// Package observe provides application-wide observability primitives for
// Iris: OpenTelemetry metrics, distributed tracing, structured logging, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Iris metrics.
const meterName = "github.com/strmhost/iris"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks LLM inference latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// UtteranceDuration tracks end-to-end latency from event arrival to
	// playback completion.
	UtteranceDuration metric.Float64Histogram

	// --- Counters ---

	// SnapshotsIngested counts game-state snapshots accepted at the GSI
	// endpoint. Use with attribute: attribute.String("status", ...)
	SnapshotsIngested metric.Int64Counter

	// GameEvents counts derived and feed events. Use with attributes:
	//   attribute.String("type", ...), attribute.String("source", ...)
	GameEvents metric.Int64Counter

	// Utterances counts spoken lines. Use with attributes:
	//   attribute.String("category", ...), attribute.String("status", ...)
	Utterances metric.Int64Counter

	// SpeechDropped counts requests shed from the speech queue. Use with
	// attribute: attribute.String("category", ...)
	SpeechDropped metric.Int64Counter

	// AchievementUnlocks counts unlocked achievements. Use with attribute:
	//   attribute.String("achievement", ...)
	AchievementUnlocks metric.Int64Counter

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// SpeechQueueDepth tracks the number of requests waiting to be spoken.
	SpeechQueueDepth metric.Int64UpDownCounter

	// StreamConnected tracks whether the realtime feed session is up (0/1).
	StreamConnected metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("iris.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("iris.llm.duration",
		metric.WithDescription("Latency of LLM inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("iris.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UtteranceDuration, err = m.Float64Histogram("iris.utterance.duration",
		metric.WithDescription("End-to-end latency from event to spoken audio."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SnapshotsIngested, err = m.Int64Counter("iris.gsi.snapshots",
		metric.WithDescription("Total game-state snapshots received by status."),
	); err != nil {
		return nil, err
	}
	if met.GameEvents, err = m.Int64Counter("iris.events",
		metric.WithDescription("Total derived and feed events by type and source."),
	); err != nil {
		return nil, err
	}
	if met.Utterances, err = m.Int64Counter("iris.utterances",
		metric.WithDescription("Total spoken lines by category and status."),
	); err != nil {
		return nil, err
	}
	if met.SpeechDropped, err = m.Int64Counter("iris.speech.dropped",
		metric.WithDescription("Total speech requests shed from the queue by category."),
	); err != nil {
		return nil, err
	}
	if met.AchievementUnlocks, err = m.Int64Counter("iris.achievements.unlocked",
		metric.WithDescription("Total achievements unlocked by ID."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("iris.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("iris.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.SpeechQueueDepth, err = m.Int64UpDownCounter("iris.speech.queue_depth",
		metric.WithDescription("Number of requests waiting in the speech queue."),
	); err != nil {
		return nil, err
	}
	if met.StreamConnected, err = m.Int64UpDownCounter("iris.stream.connected",
		metric.WithDescription("Whether the realtime feed session is established."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("iris.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordGameEvent records one derived or feed event.
func (m *Metrics) RecordGameEvent(ctx context.Context, eventType, source string) {
	m.GameEvents.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("type", eventType),
			attribute.String("source", source),
		),
	)
}

// RecordUtterance records one spoken (or failed) line.
func (m *Metrics) RecordUtterance(ctx context.Context, category, status string) {
	m.Utterances.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("category", category),
			attribute.String("status", status),
		),
	)
}

// RecordUnlock records an achievement unlock.
func (m *Metrics) RecordUnlock(ctx context.Context, id string) {
	m.AchievementUnlocks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("achievement", id)),
	)
}

// RecordSpeechDrop counts one request shed from the speech queue.
func (m *Metrics) RecordSpeechDrop(ctx context.Context, category string) {
	m.SpeechDropped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("category", category)),
	)
}

// RecordQueueDepth moves the speech queue depth gauge by delta.
func (m *Metrics) RecordQueueDepth(ctx context.Context, delta int) {
	m.SpeechQueueDepth.Add(ctx, int64(delta))
}

// RecordUtteranceLatency records the event-arrival-to-playback-completion
// latency of one spoken line.
func (m *Metrics) RecordUtteranceLatency(ctx context.Context, category string, seconds float64) {
	m.UtteranceDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("category", category)),
	)
}

// SetStreamConnected toggles the realtime-feed session gauge.
func (m *Metrics) SetStreamConnected(ctx context.Context, up bool) {
	v := int64(1)
	if !up {
		v = -1
	}
	m.StreamConnected.Add(ctx, v)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
