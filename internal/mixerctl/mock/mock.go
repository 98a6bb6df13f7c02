// Package mock provides a mock mixer controller for testing.
package mock

import (
	"context"
	"sync"

	"github.com/strmhost/iris/internal/mixerctl"
)

// Call records one controller invocation.
type Call struct {
	Op    string
	App   string
	Level float64
	Delta float64
}

// Controller is a mock implementation of [mixerctl.Controller]. It records
// calls and tracks levels in memory.
type Controller struct {
	// Err, if set, is returned by every operation.
	Err error

	mu     sync.Mutex
	calls  []Call
	levels map[string]float64
	muted  map[string]bool
}

// Compile-time interface check.
var _ mixerctl.Controller = (*Controller)(nil)

// New creates a mock controller.
func New() *Controller {
	return &Controller{
		levels: make(map[string]float64),
		muted:  make(map[string]bool),
	}
}

// SetVolume implements mixerctl.Controller.
func (c *Controller) SetVolume(_ context.Context, app string, level float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Op: "set", App: app, Level: level})
	if c.Err != nil {
		return c.Err
	}
	c.levels[app] = level
	return nil
}

// AdjustVolume implements mixerctl.Controller.
func (c *Controller) AdjustVolume(_ context.Context, app string, delta float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Op: "adjust", App: app, Delta: delta})
	if c.Err != nil {
		return 0, c.Err
	}
	level := c.levels[app] + delta
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	c.levels[app] = level
	return level, nil
}

// Mute implements mixerctl.Controller.
func (c *Controller) Mute(_ context.Context, app string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Op: "mute", App: app})
	if c.Err != nil {
		return c.Err
	}
	c.muted[app] = true
	return nil
}

// Unmute implements mixerctl.Controller.
func (c *Controller) Unmute(_ context.Context, app string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Op: "unmute", App: app})
	if c.Err != nil {
		return c.Err
	}
	c.muted[app] = false
	return nil
}

// Calls returns a copy of the recorded calls.
func (c *Controller) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Level returns the current level for app.
func (c *Controller) Level(app string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.levels[app]
}

// Muted reports whether app is muted.
func (c *Controller) Muted(app string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted[app]
}
