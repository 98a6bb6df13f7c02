// Package arbiter serializes all narration onto the single voice output.
//
// Producers submit [Request] values concurrently; a background worker speaks
// them one at a time through a [Speaker] in priority order. Priority affects
// ordering only — an utterance that already started is never cut off by a
// higher-priority submission. The queue is bounded: on overflow the newest
// lowest-priority queued request is shed, and a queued request carrying the
// same dedup key as a new submission is replaced in place instead of piling
// up behind it.
package arbiter

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"
)

// Speaker turns one line of text into played-back speech. Speak blocks until
// playback finishes or ctx expires.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Close() error
}

const (
	// DefaultQueueCap bounds the number of queued (not yet speaking)
	// requests.
	DefaultQueueCap = 8

	// DefaultSpeakTimeout bounds one synthesize-and-play cycle.
	DefaultSpeakTimeout = 30 * time.Second
)

// Option configures an [Arbiter] during construction.
type Option func(*Arbiter)

// WithQueueCapacity sets the bound on queued requests. Values below 1 are
// ignored.
func WithQueueCapacity(n int) Option {
	return func(a *Arbiter) {
		if n > 0 {
			a.cap = n
		}
	}
}

// WithSpeakTimeout bounds a single Speak call.
func WithSpeakTimeout(d time.Duration) Option {
	return func(a *Arbiter) {
		if d > 0 {
			a.speakTimeout = d
		}
	}
}

// WithDropHook registers fn to be called for every request shed on overflow
// or discarded at shutdown. Used to count drops in metrics.
func WithDropHook(fn func(Request)) Option {
	return func(a *Arbiter) {
		a.onDrop = fn
	}
}

// WithSpokenHook registers fn to be called after every finished utterance
// with the Speak error, nil on success.
func WithSpokenHook(fn func(Request, error)) Option {
	return func(a *Arbiter) {
		a.onSpoken = fn
	}
}

// WithDepthHook registers fn to be called with the signed queue-size change
// on every enqueue, dequeue, and drop. Used to keep a depth gauge current.
func WithDepthHook(fn func(delta int)) Option {
	return func(a *Arbiter) {
		a.onDepth = fn
	}
}

// Arbiter owns the playback resource. All exported methods are safe for
// concurrent use.
type Arbiter struct {
	speaker      Speaker
	cap          int
	speakTimeout time.Duration
	onDrop       func(Request)
	onSpoken     func(Request, error)
	onDepth      func(delta int)

	mu     sync.Mutex
	queue  requestHeap
	seq    uint64
	closed bool

	notify chan struct{} // signalled when a request is enqueued
	done   chan struct{} // closed by Close to stop the worker
	exited chan struct{} // closed by the worker on exit
}

// New creates an Arbiter speaking through speaker and starts the worker
// goroutine. Call [Arbiter.Close] to stop it and release the speaker.
func New(speaker Speaker, opts ...Option) *Arbiter {
	a := &Arbiter{
		speaker:      speaker,
		cap:          DefaultQueueCap,
		speakTimeout: DefaultSpeakTimeout,
		notify:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		exited:       make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	a.queue = make(requestHeap, 0, a.cap)
	heap.Init(&a.queue)
	go a.dispatch()
	return a
}

// Submit enqueues req without blocking and reports whether it was accepted.
// A queued request with the same dedup key is replaced in place. When the
// queue is full the newest lowest-priority queued request is shed — which may
// be req itself, in which case Submit returns false.
func (a *Arbiter) Submit(req Request) bool {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false
	}

	if req.DedupKey != "" {
		if i := a.queue.find(req.DedupKey); i >= 0 {
			a.queue[i].req = req
			heap.Fix(&a.queue, i)
			a.mu.Unlock()
			a.wake()
			return true
		}
	}

	a.seq++
	seq := a.seq
	heap.Push(&a.queue, entry{req: req, seq: seq})

	var dropped *entry
	if a.queue.Len() > a.cap {
		e := heap.Remove(&a.queue, a.queue.victim()).(entry)
		dropped = &e
	}
	a.mu.Unlock()

	if a.onDepth != nil {
		a.onDepth(1)
	}
	if dropped != nil {
		slog.Debug("arbiter: queue full, dropping request",
			"category", dropped.req.Category,
			"priority", dropped.req.Priority.String())
		if a.onDrop != nil {
			a.onDrop(dropped.req)
		}
		if a.onDepth != nil {
			a.onDepth(-1)
		}
		if dropped.seq == seq {
			return false
		}
	}

	a.wake()
	return true
}

// Len returns the number of queued requests, excluding one being spoken.
func (a *Arbiter) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queue.Len()
}

// Close stops accepting requests, discards the queue, waits for the current
// utterance to finish, and closes the speaker. Close is idempotent.
func (a *Arbiter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true

	discarded := make([]Request, 0, a.queue.Len())
	for a.queue.Len() > 0 {
		discarded = append(discarded, heap.Pop(&a.queue).(entry).req)
	}
	a.mu.Unlock()

	close(a.done)
	<-a.exited

	if len(discarded) > 0 {
		slog.Info("arbiter: discarded queued requests at shutdown", "count", len(discarded))
		if a.onDepth != nil {
			a.onDepth(-len(discarded))
		}
	}
	if a.onDrop != nil {
		for _, req := range discarded {
			a.onDrop(req)
		}
	}
	return a.speaker.Close()
}

// wake nudges the worker without blocking.
func (a *Arbiter) wake() {
	select {
	case a.notify <- struct{}{}:
	default:
	}
}

// dispatch is the worker goroutine. It pulls the highest-priority request and
// speaks it to completion; a Speak already in flight always runs to its end.
func (a *Arbiter) dispatch() {
	defer close(a.exited)

	for {
		select {
		case <-a.done:
			return
		case <-a.notify:
		}

		for {
			req, ok := a.dequeue()
			if !ok {
				break
			}

			ctx, cancel := context.WithTimeout(context.Background(), a.speakTimeout)
			err := a.speaker.Speak(ctx, req.Text)
			cancel()

			if err != nil {
				slog.Warn("arbiter: speak failed",
					"category", req.Category,
					"priority", req.Priority.String(),
					"error", err)
			}
			if a.onSpoken != nil {
				a.onSpoken(req, err)
			}
		}
	}
}

// dequeue pops the next request. Returns ok=false when the queue is empty or
// the arbiter is closed.
func (a *Arbiter) dequeue() (Request, bool) {
	a.mu.Lock()
	if a.closed || a.queue.Len() == 0 {
		a.mu.Unlock()
		return Request{}, false
	}
	req := heap.Pop(&a.queue).(entry).req
	a.mu.Unlock()

	if a.onDepth != nil {
		a.onDepth(-1)
	}
	return req, true
}
