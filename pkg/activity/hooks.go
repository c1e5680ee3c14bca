package activity

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"time"
)

// Event is one kernel occurrence. Verb, ObjectType and ObjectID are required;
// hooks never see events missing any of them.
type Event struct {
	Verb           string
	ActorID        string
	UserID         string
	TenantID       string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// Normalize returns a trimmed copy that owns its metadata and recipients.
// A zero OccurredAt is stamped with the current time.
func (e Event) Normalize() Event {
	out := Event{
		Verb:           strings.TrimSpace(e.Verb),
		ActorID:        strings.TrimSpace(e.ActorID),
		UserID:         strings.TrimSpace(e.UserID),
		TenantID:       strings.TrimSpace(e.TenantID),
		ObjectType:     strings.TrimSpace(e.ObjectType),
		ObjectID:       strings.TrimSpace(e.ObjectID),
		Channel:        strings.TrimSpace(e.Channel),
		DefinitionCode: strings.TrimSpace(e.DefinitionCode),
		OccurredAt:     e.OccurredAt,
	}
	if len(e.Recipients) > 0 {
		out.Recipients = slices.Clone(e.Recipients)
	}
	if len(e.Metadata) > 0 {
		out.Metadata = maps.Clone(e.Metadata)
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	return out
}

// Valid reports whether the required identity fields are set.
func (e Event) Valid() bool {
	return strings.TrimSpace(e.Verb) != "" &&
		strings.TrimSpace(e.ObjectType) != "" &&
		strings.TrimSpace(e.ObjectID) != ""
}

// ActivityHook receives normalized events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans one event out to every hook.
type Hooks []ActivityHook

// Enabled reports whether any non-nil hook is registered.
func (h Hooks) Enabled() bool {
	return slices.ContainsFunc(h, func(hook ActivityHook) bool { return hook != nil })
}

// Notify normalizes the event once and hands it to each hook in order.
// Invalid events are dropped silently. Every hook runs even when an earlier
// one fails; failures come back joined.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if !h.Enabled() || !event.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	normalized := event.Normalize()
	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h Hooks) compact() Hooks {
	out := make(Hooks, 0, len(h))
	for _, hook := range h {
		if hook != nil {
			out = append(out, hook)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
