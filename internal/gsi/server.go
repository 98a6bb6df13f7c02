// Package gsi receives Counter-Strike Game State Integration reports.
//
// The game client POSTs a JSON payload to the root path on every state
// change. The [Server] authenticates the payload token, normalizes the body
// into a [state.Snapshot], and hands it to the snapshot channel consumed by
// the differ. The same listener also serves health probes and the Prometheus
// metrics endpoint.
package gsi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/strmhost/iris/internal/health"
	"github.com/strmhost/iris/internal/observe"
	"github.com/strmhost/iris/internal/state"
)

const (
	// DefaultAddr is the listen address the game config points at.
	DefaultAddr = ":3000"

	// maxBodySize bounds a report body; real payloads are a few KiB.
	maxBodySize = 1 << 20

	shutdownTimeout = 5 * time.Second

	// snapshotBuffer is the capacity of the snapshot channel. The game
	// throttles reports to ~10/s; overflow drops the report rather than
	// blocking the game client's request.
	snapshotBuffer = 32
)

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithAddr sets the listen address. Default: ":3000".
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithAuthToken requires payloads to carry the token. An empty token
// disables authentication.
func WithAuthToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithHealth registers extra readiness checkers on the listener.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.health = h
		}
	}
}

// WithRoute mounts an extra handler on the listener, e.g. a voice-clip
// upload endpoint. The pattern uses [http.ServeMux] syntax.
func WithRoute(pattern string, h http.Handler) Option {
	return func(s *Server) {
		s.routes[pattern] = h
	}
}

// Server is the GSI ingest listener.
type Server struct {
	addr    string
	token   string
	log     *slog.Logger
	metrics *observe.Metrics
	health  *health.Handler

	routes    map[string]http.Handler
	snapshots chan state.Snapshot
	httpSrv   *http.Server
}

// New creates a Server. Start it with [Server.Run] and consume
// [Server.Snapshots].
func New(opts ...Option) *Server {
	s := &Server{
		addr:      DefaultAddr,
		log:       slog.Default(),
		routes:    make(map[string]http.Handler),
		snapshots: make(chan state.Snapshot, snapshotBuffer),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.health == nil {
		s.health = health.New()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /{$}", s.handleReport)
	mux.Handle("GET /metrics", promhttp.Handler())
	s.health.Register(mux)
	for pattern, h := range s.routes {
		mux.Handle(pattern, h)
	}

	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           observe.Middleware(s.metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the full HTTP handler, for serving through an external
// listener or in tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Snapshots returns the channel of normalized snapshots. It is closed when
// [Server.Run] returns.
func (s *Server) Snapshots() <-chan state.Snapshot {
	return s.snapshots
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer close(s.snapshots)

	errc := make(chan error, 1)
	go func() {
		s.log.Info("gsi: listening", "addr", s.addr)
		errc <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gsi: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("gsi: shutdown: %w", err)
	}
	return ctx.Err()
}

// handleReport accepts one game-state report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var p Payload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(&p); err != nil {
		s.countSnapshot(ctx, "malformed")
		http.Error(w, `{"status":"error"}`, http.StatusBadRequest)
		return
	}

	if s.token != "" && p.Auth.Token != s.token {
		s.countSnapshot(ctx, "unauthorized")
		http.Error(w, `{"status":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	// Spectator payloads describe whoever the death cam is pointed at;
	// folding them into the differ would corrupt the player's counters.
	if p.Observing() {
		s.countSnapshot(ctx, "spectating")
		writeOK(w)
		return
	}

	select {
	case s.snapshots <- p.Snapshot(time.Now()):
		s.countSnapshot(ctx, "ok")
	default:
		s.countSnapshot(ctx, "dropped")
		s.log.Warn("gsi: snapshot dropped, consumer lagging")
	}
	writeOK(w)
}

func (s *Server) countSnapshot(ctx context.Context, status string) {
	s.metrics.SnapshotsIngested.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)))
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck // best effort ack
}
