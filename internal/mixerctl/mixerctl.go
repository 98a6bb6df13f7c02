// Package mixerctl adjusts per-application playback volume on the streamer's
// machine, the actuator behind voice commands like "сделай музыку тише".
//
// The [Controller] interface abstracts the OS mixer; [CommandController]
// drives an external mixer utility (pactl, nircmd, SoundVolumeView) through
// configurable command templates so the binary stays portable.
package mixerctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// ErrNoCommand is returned when the controller has no command template for
// the requested operation.
var ErrNoCommand = errors.New("mixerctl: no command configured")

// Controller manipulates one application's playback volume. Levels are in
// [0, 1]; implementations clamp out-of-range values.
type Controller interface {
	// SetVolume sets the app's volume to an absolute level.
	SetVolume(ctx context.Context, app string, level float64) error

	// AdjustVolume changes the app's volume by delta (may be negative)
	// and returns the resulting level.
	AdjustVolume(ctx context.Context, app string, delta float64) (float64, error)

	// Mute silences the app.
	Mute(ctx context.Context, app string) error

	// Unmute restores the app's audio.
	Unmute(ctx context.Context, app string) error
}

// Commands holds the command templates. Each template is an argv slice;
// the placeholders {app} and {percent} are substituted before execution.
type Commands struct {
	SetVolume []string `yaml:"set_volume"`
	Mute      []string `yaml:"mute"`
	Unmute    []string `yaml:"unmute"`
}

// Option is a functional option for configuring the CommandController.
type Option func(*CommandController)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *CommandController) {
		if log != nil {
			c.log = log
		}
	}
}

// WithInitialLevel sets the level assumed for an app before its first
// absolute set. Default: 0.5.
func WithInitialLevel(level float64) Option {
	return func(c *CommandController) {
		c.initial = clamp(level)
	}
}

// WithAppNames maps logical app keys ("yandex-music") to the process or
// sink names the mixer utility expects.
func WithAppNames(names map[string]string) Option {
	return func(c *CommandController) {
		c.appNames = names
	}
}

// runFunc executes one substituted command. Swappable in tests.
type runFunc func(ctx context.Context, argv []string) error

// CommandController implements Controller by invoking an external mixer
// utility. It tracks the last level set per app so relative adjustments
// work against tools that only accept absolute values.
type CommandController struct {
	cmds     Commands
	appNames map[string]string
	initial  float64
	log      *slog.Logger
	run      runFunc

	mu     sync.Mutex
	levels map[string]float64
}

// Compile-time interface check.
var _ Controller = (*CommandController)(nil)

// NewCommandController creates a controller using the given templates.
func NewCommandController(cmds Commands, opts ...Option) *CommandController {
	c := &CommandController{
		cmds:    cmds,
		initial: 0.5,
		log:     slog.Default(),
		levels:  make(map[string]float64),
	}
	c.run = c.execRun
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetVolume implements Controller.
func (c *CommandController) SetVolume(ctx context.Context, app string, level float64) error {
	level = clamp(level)
	if len(c.cmds.SetVolume) == 0 {
		return fmt.Errorf("%w: set_volume", ErrNoCommand)
	}
	if err := c.run(ctx, c.render(c.cmds.SetVolume, app, level)); err != nil {
		return fmt.Errorf("mixerctl: set volume: %w", err)
	}
	c.mu.Lock()
	c.levels[app] = level
	c.mu.Unlock()
	c.log.Info("mixer volume set", "app", app, "level", level)
	return nil
}

// AdjustVolume implements Controller.
func (c *CommandController) AdjustVolume(ctx context.Context, app string, delta float64) (float64, error) {
	c.mu.Lock()
	cur, known := c.levels[app]
	if !known {
		cur = c.initial
	}
	c.mu.Unlock()

	target := clamp(cur + delta)
	if err := c.SetVolume(ctx, app, target); err != nil {
		return cur, err
	}
	return target, nil
}

// Mute implements Controller.
func (c *CommandController) Mute(ctx context.Context, app string) error {
	if len(c.cmds.Mute) == 0 {
		return fmt.Errorf("%w: mute", ErrNoCommand)
	}
	if err := c.run(ctx, c.render(c.cmds.Mute, app, 0)); err != nil {
		return fmt.Errorf("mixerctl: mute: %w", err)
	}
	c.log.Info("mixer muted", "app", app)
	return nil
}

// Unmute implements Controller.
func (c *CommandController) Unmute(ctx context.Context, app string) error {
	if len(c.cmds.Unmute) == 0 {
		return fmt.Errorf("%w: unmute", ErrNoCommand)
	}
	if err := c.run(ctx, c.render(c.cmds.Unmute, app, 0)); err != nil {
		return fmt.Errorf("mixerctl: unmute: %w", err)
	}
	c.log.Info("mixer unmuted", "app", app)
	return nil
}

// render substitutes the placeholders into a command template.
func (c *CommandController) render(tmpl []string, app string, level float64) []string {
	name := app
	if mapped, ok := c.appNames[app]; ok {
		name = mapped
	}
	percent := strconv.Itoa(int(level*100 + 0.5))

	argv := make([]string, len(tmpl))
	for i, a := range tmpl {
		a = strings.ReplaceAll(a, "{app}", name)
		a = strings.ReplaceAll(a, "{percent}", percent)
		argv[i] = a
	}
	return argv
}

func (c *CommandController) execRun(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return ErrNoCommand
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", argv[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

func clamp(level float64) float64 {
	switch {
	case level < 0:
		return 0
	case level > 1:
		return 1
	default:
		return level
	}
}
