package activity

import (
	"context"
	"slices"
	"strings"
	"time"
)

const defaultChannel = "props"

// Config controls how an Emitter stamps and filters events.
type Config struct {
	Enabled bool
	// Channel fills events that carry none. Defaults to "props".
	Channel string
	// Verbs restricts emission to the listed verbs when non-empty.
	Verbs []string
	// Now stamps OccurredAt. Defaults to time.Now.
	Now func() time.Time
}

// Emitter is the kernel-side entry point into a set of hooks.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
	verbs   []string
	now     func() time.Time
}

// NewEmitter builds an emitter. It is disabled when cfg.Enabled is false or
// no hook is registered.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	hooks = hooks.compact()

	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = defaultChannel
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Emitter{
		hooks:   hooks,
		enabled: cfg.Enabled && len(hooks) > 0,
		channel: channel,
		verbs:   slices.Clone(cfg.Verbs),
		now:     now,
	}
}

// Enabled reports whether Emit can reach any hook.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Channel returns the default channel.
func (e *Emitter) Channel() string {
	if e == nil {
		return defaultChannel
	}
	return e.channel
}

// Accepts reports whether verb passes the configured filter.
func (e *Emitter) Accepts(verb string) bool {
	if !e.Enabled() {
		return false
	}
	return len(e.verbs) == 0 || slices.Contains(e.verbs, strings.TrimSpace(verb))
}

// Emit fills the default channel and timestamp, then notifies every hook.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Accepts(event.Verb) {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now()
	}
	return e.hooks.Notify(ctx, event)
}
