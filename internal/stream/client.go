// Package stream connects to the StreamElements realtime feed and turns tips,
// subscriptions, follows, raids, and chat messages into [state.Event]s.
//
// The feed speaks socket.io over a websocket: an engine.io open frame, a JWT
// authenticate emission, then "42"-prefixed event frames. The client keeps
// the session alive with pings and reconnects with exponential backoff when
// the connection drops.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"

	"github.com/strmhost/iris/internal/observe"
	"github.com/strmhost/iris/internal/state"
)

const (
	// DefaultURL is the StreamElements realtime endpoint.
	DefaultURL = "wss://realtime.streamelements.com/socket.io/?EIO=4&transport=websocket"

	// DefaultHeartbeat is how often a keepalive ping is sent.
	DefaultHeartbeat = 25 * time.Second

	defaultDialTimeout = 10 * time.Second

	// eventBuffer is the capacity of the outbound event channel. The
	// consumer is expected to keep up; overflow drops the oldest pace of
	// feed events rather than stalling the read loop.
	eventBuffer = 64
)

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithURL overrides the realtime endpoint, for tests or proxies.
func WithURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.url = url
		}
	}
}

// WithHeartbeat sets the keepalive ping interval.
func WithHeartbeat(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.heartbeat = d
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics attaches the metrics sink. The client keeps the feed-connected
// gauge current across sessions and reconnects.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// Client maintains the realtime session. Create with [New], start with
// [Client.Run], and consume [Client.Events].
type Client struct {
	url       string
	token     string
	heartbeat time.Duration
	log       *slog.Logger
	metrics   *observe.Metrics

	events chan state.Event
}

// New creates a Client authenticating with the channel's JWT token.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("stream: jwt token must not be empty")
	}
	c := &Client{
		url:       DefaultURL,
		token:     token,
		heartbeat: DefaultHeartbeat,
		log:       slog.Default(),
		events:    make(chan state.Event, eventBuffer),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Events returns the channel of translated feed events. It is closed when
// [Client.Run] returns.
func (c *Client) Events() <-chan state.Event {
	return c.events
}

// Run connects and serves the session until ctx is cancelled, reconnecting
// with exponential backoff on failure.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Second
	bo.MaxInterval = 60 * time.Second
	bo.MaxElapsedTime = 0 // retry forever

	for {
		started := time.Now()
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A session that held for a while earns a fresh backoff.
		if time.Since(started) > time.Minute {
			bo.Reset()
		}
		wait := bo.NextBackOff()
		c.log.Warn("stream: session ended, reconnecting",
			"error", err, "retry_in", wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// session runs one connection: dial, authenticate, pump frames.
func (c *Client) session(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	conn, _, err := websocket.Dial(dialCtx, c.url, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("stream: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(1 << 20)

	if c.metrics != nil {
		c.metrics.SetStreamConnected(context.Background(), true)
		defer c.metrics.SetStreamConnected(context.Background(), false)
	}

	readCtx, stop := context.WithCancel(ctx)
	defer stop()

	frames := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.Read(readCtx)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- string(data):
			case <-readCtx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return fmt.Errorf("stream: read: %w", err)
		case <-ticker.C:
			if err := conn.Write(ctx, websocket.MessageText, []byte(framePing)); err != nil {
				return fmt.Errorf("stream: ping: %w", err)
			}
		case msg := <-frames:
			if err := c.handleFrame(ctx, conn, msg); err != nil {
				return err
			}
		}
	}
}

// handleFrame dispatches one inbound frame.
func (c *Client) handleFrame(ctx context.Context, conn *websocket.Conn, msg string) error {
	switch {
	case msg == framePing:
		// Server-initiated ping, answer with pong.
		if err := conn.Write(ctx, websocket.MessageText, []byte(framePong)); err != nil {
			return fmt.Errorf("stream: pong: %w", err)
		}

	case msg == framePong:
		// Reply to our keepalive.

	case strings.HasPrefix(msg, frameEvent):
		c.handleEvent(msg[len(frameEvent):])

	case strings.HasPrefix(msg, frameConnect):
		c.log.Info("stream: namespace connected")

	case strings.HasPrefix(msg, frameOpen):
		var hs handshake
		if err := json.Unmarshal([]byte(msg[len(frameOpen):]), &hs); err == nil {
			c.log.Info("stream: session open", "sid", hs.SID)
		}
		return c.authenticate(ctx, conn)
	}
	return nil
}

// authenticate emits the JWT handshake.
func (c *Client) authenticate(ctx context.Context, conn *websocket.Conn) error {
	auth, err := json.Marshal([]any{frameAuthName, map[string]string{
		"method": "jwt",
		"token":  c.token,
	}})
	if err != nil {
		return fmt.Errorf("stream: marshal auth: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, append([]byte(frameEvent), auth...)); err != nil {
		return fmt.Errorf("stream: authenticate: %w", err)
	}
	return nil
}

// handleEvent decodes one "42" frame and forwards the translated event.
func (c *Client) handleEvent(payload string) {
	name, arg, err := decodeEventFrame(payload)
	if err != nil {
		c.log.Debug("stream: undecodable frame", "error", err)
		return
	}
	if name == "authenticated" {
		c.log.Info("stream: authenticated")
		return
	}
	ev, ok := translate(name, arg, time.Now())
	if !ok {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.log.Warn("stream: event dropped, consumer lagging", "type", ev.Type)
	}
}
