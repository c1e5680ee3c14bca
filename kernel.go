package props

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/goliatone/go-props/pkg/activity"
	"github.com/rs/zerolog"
)

// Kernel owns the schema, defaults layers, last-valid cache, current
// snapshots and observers for one component instance. It is not safe for
// concurrent use; Apply runs to completion, observers included, before the
// next Apply may start.
type Kernel[R any] struct {
	cfg     kernelConfig
	logger  zerolog.Logger
	emitter *activity.Emitter

	schema   SchemaMap
	state    *resolutionState
	raw      Snapshot
	resolved Snapshot
	watchers watchers[R]
	diags    []Diagnostic

	hydrated bool
	applying bool
}

// New constructs an empty kernel.
func New[R any](opts ...Option) *Kernel[R] {
	cfg := applyOptions(opts)
	return &Kernel[R]{
		cfg: cfg,
		logger: cfg.logger.With().
			Str("component", cfg.name).
			Str("instance", cfg.instanceID).
			Logger(),
		emitter: activity.NewEmitter(cfg.activityHooks, activity.Config{
			Enabled: true,
			Channel: cfg.activityChannel,
			Verbs:   cfg.activityVerbs,
		}),
		state: newResolutionState(),
	}
}

// Name returns the configured component name.
func (k *Kernel[R]) Name() string { return k.cfg.name }

// InstanceID returns the kernel's instance identifier.
func (k *Kernel[R]) InstanceID() string { return k.cfg.instanceID }

// Define merges the given fields into the schema. See DefineSchema.
func (k *Kernel[R]) Define(entries ...Entry) error {
	return k.DefineSchema(NewSchemaMap(entries...))
}

// DefineSchema merges partial into the schema. The merge is all or nothing: on
// a *SchemaConflictError the schema is unchanged. Warnings are appended to
// the diagnostics log.
func (k *Kernel[R]) DefineSchema(partial SchemaMap) error {
	merged, warnings, err := Merge(k.schema, partial)
	if err != nil {
		k.cfg.metrics.ObserveDefine(k.cfg.name, "rejected")
		k.logger.Warn().Err(err).Strs("keys", conflictKeys(err)).Msg("define rejected")
		return err
	}
	k.schema = merged
	k.diags = append(k.diags, warnings...)
	for _, w := range warnings {
		k.logger.Warn().Str("key", w.Key).Str("code", w.Code).Msg(w.Message)
	}
	k.cfg.metrics.ObserveDefine(k.cfg.name, "accepted")
	k.logger.Info().Strs("keys", partial.Keys()).Msg("schema defined")
	k.emit(activity.BuildSchemaDefinedEvent(k.eventInput(partial.Keys(), nil)))
	return nil
}

// SetDefaults pushes a defaults layer. The newest layer is consulted first
// during fallback.
func (k *Kernel[R]) SetDefaults(partial map[string]any, opts ...LayerOption) {
	k.PushDefaults(NewDefaultsLayer(partial, opts...))
}

// PushDefaults pushes a prepared layer.
func (k *Kernel[R]) PushDefaults(layer DefaultsLayer) {
	layer = layer.clone()
	k.state.pushDefaults(layer)
	k.logger.Debug().
		Stringer("scope", layer.Scope).
		Str("snapshot_id", layer.SnapshotID).
		Strs("keys", layer.keys).
		Msg("defaults pushed")

	input := k.eventInput(layer.keys, nil)
	input.ObjectID = ""
	input.Scope = activity.ScopeContext{
		Name:       layer.Scope.Name,
		Label:      layer.Scope.Label,
		Priority:   layer.Scope.Priority,
		Metadata:   layer.Scope.Metadata,
		SnapshotID: layer.SnapshotID,
	}
	k.emit(activity.BuildDefaultsPushedEvent(input))
}

// Defaults returns the pushed layers, oldest first.
func (k *Kernel[R]) Defaults() []DefaultsLayer {
	out := make([]DefaultsLayer, len(k.state.defaults))
	for i, layer := range k.state.defaults {
		out[i] = layer.clone()
	}
	return out
}

// Watch observes resolved changes to any of keys. Every key must be declared.
func (k *Kernel[R]) Watch(keys []string, fn WatchFunc[R]) error {
	if err := k.checkRegistration("watch", keys, fn, true); err != nil {
		return err
	}
	k.watchers.add(registryResolvedKeyed, keys, fn)
	return nil
}

// WatchAll observes every resolved change.
func (k *Kernel[R]) WatchAll(fn WatchFunc[R]) error {
	if err := k.checkRegistration("watch_all", nil, fn, false); err != nil {
		return err
	}
	k.watchers.add(registryResolvedAll, nil, fn)
	return nil
}

// WatchRaw observes raw changes to any of keys. Undeclared keys are allowed.
func (k *Kernel[R]) WatchRaw(keys []string, fn WatchFunc[R]) error {
	if err := k.checkRegistration("watch_raw", keys, fn, true); err != nil {
		return err
	}
	k.watchers.add(registryRawKeyed, keys, fn)
	return nil
}

// WatchRawAll observes every raw change.
func (k *Kernel[R]) WatchRawAll(fn WatchFunc[R]) error {
	if err := k.checkRegistration("watch_raw_all", nil, fn, false); err != nil {
		return err
	}
	k.watchers.add(registryRawAll, nil, fn)
	return nil
}

func (k *Kernel[R]) checkRegistration(op string, keys []string, fn WatchFunc[R], keyed bool) error {
	if fn == nil {
		return &RegistrationError{Op: op, Reason: "callback is nil"}
	}
	if !keyed {
		return nil
	}
	if len(keys) == 0 {
		return &RegistrationError{Op: op, Reason: "keys must not be empty"}
	}
	if op != "watch" {
		return nil
	}
	for _, key := range keys {
		if !k.schema.Has(key) {
			return &RegistrationError{Op: op, Key: key, Reason: "key is not declared"}
		}
	}
	return nil
}

// Get returns the current resolved snapshot.
func (k *Kernel[R]) Get() Snapshot { return k.resolved }

// GetRaw returns the current raw snapshot.
func (k *Kernel[R]) GetRaw() Snapshot { return k.raw }

// IsProvided reports whether key is present in the current raw snapshot, even
// when its value is Empty.
func (k *Kernel[R]) IsProvided(key string) bool { return k.raw.Has(key) }

// Hydrated reports whether a successful Apply has happened since construction
// or the last Dispose.
func (k *Kernel[R]) Hydrated() bool { return k.hydrated }

// Schema returns the merged schema.
func (k *Kernel[R]) Schema() SchemaMap { return k.schema.clone() }

// Diagnostics returns a copy of the warning log.
func (k *Kernel[R]) Diagnostics() []Diagnostic { return slices.Clone(k.diags) }

// Preview resolves raw against the current state without committing anything
// or notifying observers.
func (k *Kernel[R]) Preview(raw map[string]any) (Snapshot, ResolveMeta, error) {
	result, err := k.resolver().pass(k.schema, NewRawSnapshot(raw))
	if err != nil {
		return EmptySnapshot, ResolveMeta{}, err
	}
	return result.resolved, result.meta, nil
}

// Apply resolves raw, stores the new snapshots and notifies observers. The
// first successful Apply hydrates and notifies nobody. On error nothing is
// stored. Calling Apply from an observer returns ErrReentrantApply.
func (k *Kernel[R]) Apply(raw map[string]any, run R) (ResolveMeta, error) {
	return k.ApplySnapshot(NewRawSnapshot(raw), run)
}

// ApplySnapshot is Apply for a prepared raw snapshot.
func (k *Kernel[R]) ApplySnapshot(raw Snapshot, run R) (ResolveMeta, error) {
	if k.applying {
		return ResolveMeta{}, ErrReentrantApply
	}
	k.applying = true
	defer func() { k.applying = false }()

	started := time.Now()
	result, err := k.resolver().pass(k.schema, raw)
	if err != nil {
		k.cfg.metrics.ObserveApply(k.cfg.name, "failed", time.Since(started))
		k.logger.Warn().Err(err).Msg("apply failed")
		var missing *MissingNonEmptyFallbackError
		var keys []string
		if errors.As(err, &missing) {
			keys = []string{missing.Key}
		}
		k.emit(activity.BuildApplyFailedEvent(k.eventInput(keys, err)))
		return ResolveMeta{}, err
	}
	k.cfg.metrics.ObserveFallbacks(k.cfg.name, len(result.meta.UsedFallbackKeys))

	// Snapshots and cache are committed together before any observer runs, so
	// a panicking observer cannot leave them out of step.
	prevRaw, prevResolved := k.raw, k.resolved
	k.raw, k.resolved = raw, result.resolved
	k.state.commit(result.updates)

	if !k.hydrated {
		k.hydrated = true
		k.cfg.metrics.ObserveApply(k.cfg.name, "hydrated", time.Since(started))
		k.logger.Debug().Int("fields", result.resolved.Len()).Msg("hydrated")
		return result.meta, nil
	}

	k.dispatch(run, prevRaw, raw, prevResolved, result.resolved)
	k.cfg.metrics.ObserveApply(k.cfg.name, "applied", time.Since(started))
	return result.meta, nil
}

func (k *Kernel[R]) dispatch(run R, prevRaw, nextRaw, prevResolved, nextResolved Snapshot) {
	fired := 0
	onFire := func(kind registryKind) {
		fired++
		k.cfg.metrics.ObserveDispatch(k.cfg.name, kind.String())
		if (kind == registryRawAll || kind == registryRawKeyed) && k.cfg.rawWatchWarnings {
			k.diags = append(k.diags, warning(CodeRawWatchFired, "",
				fmt.Sprintf("%s observer fired; raw watches are a discouraged escape hatch", kind)))
		}
	}

	w := k.watchers
	changedRaw := diffKeys(prevRaw, nextRaw, unionKeys(prevRaw, nextRaw))
	fire(w.rawAll, w.rawKeyed, changedRaw, run, nextRaw, prevRaw, onFire, registryRawAll, registryRawKeyed)

	changedResolved := diffKeys(prevResolved, nextResolved, k.schema.Keys())
	fire(w.resolvedAll, w.resolvedKeyed, changedResolved, run, nextResolved, prevResolved, onFire, registryResolvedAll, registryResolvedKeyed)

	k.logger.Debug().
		Strs("raw_changed", changedRaw).
		Strs("resolved_changed", changedResolved).
		Int("observers_fired", fired).
		Msg("dispatched")
	if len(changedResolved) > 0 {
		k.emit(activity.BuildResolvedChangedEvent(k.eventInput(changedResolved, nil)))
	}
}

// Dispose returns the kernel to its initial empty state, keeping the schema
// and the diagnostics log. It is idempotent.
func (k *Kernel[R]) Dispose() {
	k.hydrated = false
	k.watchers.reset()
	k.state.reset()
	k.raw = EmptySnapshot
	k.resolved = EmptySnapshot
	k.logger.Debug().Msg("disposed")
}

func (k *Kernel[R]) resolver() resolver {
	return resolver{state: k.state, logger: k.logger}
}

func (k *Kernel[R]) eventInput(keys []string, err error) activity.PropsEventInput {
	return activity.PropsEventInput{
		ObjectID:  k.cfg.instanceID,
		Component: k.cfg.name,
		Keys:      keys,
		Err:       err,
	}
}

func (k *Kernel[R]) emit(event activity.Event) {
	if !k.emitter.Accepts(event.Verb) {
		return
	}
	if err := k.emitter.Emit(context.Background(), event); err != nil {
		k.logger.Warn().Err(err).Str("verb", event.Verb).Msg("activity hook failed")
	}
}

func conflictKeys(err error) []string {
	var conflictErr *SchemaConflictError
	if errors.As(err, &conflictErr) {
		return conflictErr.Keys()
	}
	return nil
}
