package host_test

import (
	"errors"
	"sync"
	"testing"

	props "github.com/goliatone/go-props"
	"github.com/goliatone/go-props/pkg/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu     sync.Mutex
	raw    map[string]any
	err    error
	gets   int
	subs   map[int]func()
	nextID int
}

func newFakeSource(raw map[string]any) *fakeSource {
	return &fakeSource{raw: raw, subs: map[int]func(){}}
}

func (s *fakeSource) Get() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]any, len(s.raw))
	for k, v := range s.raw {
		out[k] = v
	}
	return out, nil
}

func (s *fakeSource) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *fakeSource) set(raw map[string]any) {
	s.mu.Lock()
	s.raw = raw
	subs := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func (s *fakeSource) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

type render struct{ id int }

func newBinding(t *testing.T, source host.RawSource) *host.Binding[render] {
	t.Helper()
	b := host.New(props.New[render](props.WithName("card")), source)
	require.NoError(t, b.Define(
		props.Field("tone", props.KindString, props.WithDefault("info")),
		props.Field("size", props.KindNumber),
	))
	return b
}

func TestBindingLifecycle(t *testing.T) {
	source := newFakeSource(map[string]any{"tone": "warn"})
	b := newBinding(t, source)

	var fired []int
	require.NoError(t, b.WatchAll(func(run render, _, _ props.Snapshot, _ props.WatchInfo) {
		fired = append(fired, run.id)
	}))
	assert.Equal(t, host.PhaseSetup, b.Phase())

	_, err := b.Mount(render{id: 1})
	require.NoError(t, err)
	assert.Equal(t, host.PhaseRuntime, b.Phase())
	assert.Equal(t, props.String("warn"), b.Kernel().Get().Get("tone"))
	assert.Equal(t, 1, source.subscribers())
	assert.Empty(t, fired, "hydration never dispatches")

	_, applied, err := b.Sync(render{id: 2})
	require.NoError(t, err)
	assert.False(t, applied, "clean binding does not pull")
	assert.Equal(t, 1, source.gets)

	source.set(map[string]any{"tone": "danger"})
	assert.True(t, b.Dirty())

	_, applied, err = b.Sync(render{id: 3})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.False(t, b.Dirty())
	assert.Equal(t, []int{3}, fired)

	_, err = b.Push(map[string]any{"tone": "danger", "size": 2}, render{id: 4})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, fired)

	b.Unmount()
	assert.Equal(t, host.PhaseUnmounted, b.Phase())
	assert.Zero(t, source.subscribers())
	assert.False(t, b.Kernel().Hydrated())
	b.Unmount()
}

func TestSetupOnlyOperationsAfterMount(t *testing.T) {
	b := newBinding(t, newFakeSource(map[string]any{}))
	_, err := b.Mount(render{})
	require.NoError(t, err)

	noop := func(render, props.Snapshot, props.Snapshot, props.WatchInfo) {}
	errs := []error{
		b.Define(props.Field("extra", props.KindString)),
		b.DefineSchema(props.NewSchemaMap()),
		b.Watch([]string{"tone"}, noop),
		b.WatchAll(noop),
		b.WatchRaw([]string{"x"}, noop),
		b.WatchRawAll(noop),
	}
	for _, err := range errs {
		require.ErrorIs(t, err, host.ErrIllegalPhase)
	}

	var phaseErr *host.IllegalPhaseError
	require.ErrorAs(t, errs[0], &phaseErr)
	assert.Equal(t, "define", phaseErr.Op)
	assert.Equal(t, host.PhaseRuntime, phaseErr.Phase)
	assert.Equal(t, host.PhaseSetup, phaseErr.Want)

	require.NoError(t, b.SetDefaults(map[string]any{"size": 3}))
	b.Unmount()
	require.ErrorIs(t, b.SetDefaults(map[string]any{"size": 4}), host.ErrIllegalPhase)
}

func TestRuntimeOnlyOperationsBeforeMount(t *testing.T) {
	b := newBinding(t, newFakeSource(map[string]any{}))

	_, _, err := b.Sync(render{})
	require.ErrorIs(t, err, host.ErrIllegalPhase)
	_, err = b.Push(map[string]any{}, render{})
	require.ErrorIs(t, err, host.ErrIllegalPhase)
}

func TestMountFailureStaysInSetup(t *testing.T) {
	source := newFakeSource(nil)
	source.err = errors.New("unreadable")
	b := newBinding(t, source)

	_, err := b.Mount(render{})
	require.Error(t, err)
	assert.Equal(t, host.PhaseSetup, b.Phase())
	assert.Zero(t, source.subscribers())

	source.err = nil
	_, err = b.Mount(render{})
	require.NoError(t, err)
	assert.Equal(t, host.PhaseRuntime, b.Phase())
}

func TestSyncReadFailureRetries(t *testing.T) {
	source := newFakeSource(map[string]any{"size": 1})
	b := newBinding(t, source)
	_, err := b.Mount(render{})
	require.NoError(t, err)

	source.mu.Lock()
	source.err = errors.New("locked")
	source.mu.Unlock()
	source.set(map[string]any{"size": 2})

	_, _, err = b.Sync(render{})
	require.Error(t, err)
	assert.True(t, b.Dirty())

	source.mu.Lock()
	source.err = nil
	source.mu.Unlock()

	_, applied, err := b.Sync(render{})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, props.Number(2), b.Kernel().Get().Get("size"))
}

func TestPushOnlyBinding(t *testing.T) {
	b := newBinding(t, nil)
	_, err := b.Mount(render{})
	require.NoError(t, err)
	assert.False(t, b.Kernel().Hydrated())

	_, applied, err := b.Sync(render{})
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = b.Push(map[string]any{"size": 5}, render{})
	require.NoError(t, err)
	assert.True(t, b.Kernel().Hydrated())
}
