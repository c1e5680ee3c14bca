// Package host binds a props kernel to the runtime that owns it: a phase
// guard around the setup-only API and a raw source that marks the binding
// dirty when its data changes.
package host

import (
	"fmt"
	"sync/atomic"

	props "github.com/goliatone/go-props"
	"github.com/rs/zerolog"
)

// Phase is the lifecycle stage of a binding.
type Phase uint8

const (
	PhaseSetup Phase = iota
	PhaseRuntime
	PhaseUnmounted
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseRuntime:
		return "runtime"
	case PhaseUnmounted:
		return "unmounted"
	default:
		return "unknown"
	}
}

// RawSource supplies the current raw attribute bag. Subscribe callbacks may
// run on any goroutine.
type RawSource interface {
	Get() (map[string]any, error)
	Subscribe(fn func()) (unsubscribe func())
}

// Option configures a Binding.
type Option func(*bindingConfig)

type bindingConfig struct {
	logger zerolog.Logger
}

// WithLogger sets the binding logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *bindingConfig) {
		cfg.logger = logger
	}
}

// Binding owns a kernel on behalf of a host. It is used from a single
// goroutine; only the dirty flag is touched by source notifications.
type Binding[R any] struct {
	kernel      *props.Kernel[R]
	source      RawSource
	logger      zerolog.Logger
	phase       Phase
	dirty       atomic.Bool
	unsubscribe func()
}

// New wraps kernel. source may be nil for hosts that only Push.
func New[R any](kernel *props.Kernel[R], source RawSource, opts ...Option) *Binding[R] {
	cfg := bindingConfig{logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Binding[R]{
		kernel: kernel,
		source: source,
		logger: cfg.logger.With().Str("component", kernel.Name()).Logger(),
	}
}

// Kernel exposes the wrapped kernel for the read API.
func (b *Binding[R]) Kernel() *props.Kernel[R] { return b.kernel }

func (b *Binding[R]) Phase() Phase { return b.phase }

// Dirty reports whether the source changed since the last pull.
func (b *Binding[R]) Dirty() bool { return b.dirty.Load() }

func (b *Binding[R]) require(op string, want Phase) error {
	if b.phase != want {
		return &IllegalPhaseError{Op: op, Phase: b.phase, Want: want}
	}
	return nil
}

func (b *Binding[R]) Define(entries ...props.Entry) error {
	if err := b.require("define", PhaseSetup); err != nil {
		return err
	}
	return b.kernel.Define(entries...)
}

func (b *Binding[R]) DefineSchema(schema props.SchemaMap) error {
	if err := b.require("define", PhaseSetup); err != nil {
		return err
	}
	return b.kernel.DefineSchema(schema)
}

// SetDefaults is allowed until unmount.
func (b *Binding[R]) SetDefaults(partial map[string]any, opts ...props.LayerOption) error {
	if b.phase == PhaseUnmounted {
		return &IllegalPhaseError{Op: "set defaults", Phase: b.phase, Want: PhaseRuntime}
	}
	b.kernel.SetDefaults(partial, opts...)
	return nil
}

func (b *Binding[R]) Watch(keys []string, fn props.WatchFunc[R]) error {
	if err := b.require("watch", PhaseSetup); err != nil {
		return err
	}
	return b.kernel.Watch(keys, fn)
}

func (b *Binding[R]) WatchAll(fn props.WatchFunc[R]) error {
	if err := b.require("watch all", PhaseSetup); err != nil {
		return err
	}
	return b.kernel.WatchAll(fn)
}

func (b *Binding[R]) WatchRaw(keys []string, fn props.WatchFunc[R]) error {
	if err := b.require("watch raw", PhaseSetup); err != nil {
		return err
	}
	return b.kernel.WatchRaw(keys, fn)
}

func (b *Binding[R]) WatchRawAll(fn props.WatchFunc[R]) error {
	if err := b.require("watch raw all", PhaseSetup); err != nil {
		return err
	}
	return b.kernel.WatchRawAll(fn)
}

// Mount subscribes to the source and hydrates the kernel from it. On failure
// the binding stays in setup.
func (b *Binding[R]) Mount(run R) (props.ResolveMeta, error) {
	if err := b.require("mount", PhaseSetup); err != nil {
		return props.ResolveMeta{}, err
	}
	if b.source == nil {
		b.phase = PhaseRuntime
		return props.ResolveMeta{}, nil
	}

	b.unsubscribe = b.source.Subscribe(func() { b.dirty.Store(true) })
	raw, err := b.source.Get()
	if err != nil {
		b.detach()
		return props.ResolveMeta{}, fmt.Errorf("host: read source: %w", err)
	}
	meta, err := b.kernel.Apply(raw, run)
	if err != nil {
		b.detach()
		return props.ResolveMeta{}, err
	}
	b.phase = PhaseRuntime
	b.logger.Debug().Msg("mounted")
	return meta, nil
}

// Sync pulls from the source and applies only when it changed since the last
// pull. A failed read leaves the binding dirty so the next Sync retries.
func (b *Binding[R]) Sync(run R) (props.ResolveMeta, bool, error) {
	if err := b.require("sync", PhaseRuntime); err != nil {
		return props.ResolveMeta{}, false, err
	}
	if b.source == nil || !b.dirty.CompareAndSwap(true, false) {
		return props.ResolveMeta{}, false, nil
	}

	raw, err := b.source.Get()
	if err != nil {
		b.dirty.Store(true)
		return props.ResolveMeta{}, false, fmt.Errorf("host: read source: %w", err)
	}
	meta, err := b.kernel.Apply(raw, run)
	if err != nil {
		b.logger.Warn().Err(err).Msg("sync rejected")
		return props.ResolveMeta{}, false, err
	}
	return meta, true, nil
}

// Push applies raw directly, bypassing the source.
func (b *Binding[R]) Push(raw map[string]any, run R) (props.ResolveMeta, error) {
	if err := b.require("push", PhaseRuntime); err != nil {
		return props.ResolveMeta{}, err
	}
	return b.kernel.Apply(raw, run)
}

// Unmount detaches from the source and disposes the kernel. It is
// idempotent.
func (b *Binding[R]) Unmount() {
	if b.phase == PhaseUnmounted {
		return
	}
	b.detach()
	b.kernel.Dispose()
	b.phase = PhaseUnmounted
	b.logger.Debug().Msg("unmounted")
}

func (b *Binding[R]) detach() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	b.dirty.Store(false)
}
