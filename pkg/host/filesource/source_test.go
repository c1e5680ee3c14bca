package filesource

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	props "github.com/goliatone/go-props"
	"github.com/goliatone/go-props/pkg/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ host.RawSource = (*Source)(nil)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestGetDecodesByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "card.yaml")
	writeFile(t, yamlPath, "tone: warn\nsize: 2\n")
	src, err := New(yamlPath)
	require.NoError(t, err)
	got, err := src.Get()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"tone": "warn", "size": 2}, got)

	jsonPath := filepath.Join(dir, "card.json")
	writeFile(t, jsonPath, `{"open": true}`)
	src, err = New(jsonPath)
	require.NoError(t, err)
	got, err = src.Get()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"open": true}, got)
}

func TestGetErrors(t *testing.T) {
	dir := t.TempDir()

	src, err := New(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	_, err = src.Get()
	require.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(dir, "card.yaml")
	writeFile(t, path, "tone: warn\ncolor: red\n")
	src, err = New(path, WithComponent("card"), WithKnownKeys("tone"))
	require.NoError(t, err)
	_, err = src.Get()
	require.ErrorContains(t, err, "unknown keys color")
}

func TestWatchNotifiesSubscribers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card.yaml")
	writeFile(t, path, "tone: info\n")

	src, err := New(path)
	require.NoError(t, err)
	require.NoError(t, src.Watch())
	t.Cleanup(func() { _ = src.Close() })

	var calls atomic.Int32
	unsubscribe := src.Subscribe(func() { calls.Add(1) })

	writeFile(t, filepath.Join(dir, "other.yaml"), "ignored: true\n")
	writeFile(t, path, "tone: warn\n")

	require.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	unsubscribe()
	seen := calls.Load()
	writeFile(t, path, "tone: danger\n")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, seen, calls.Load())
}

func TestBindingSyncsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card.yaml")
	writeFile(t, path, "tone: info\n")

	src, err := New(path)
	require.NoError(t, err)
	require.NoError(t, src.Watch())
	t.Cleanup(func() { _ = src.Close() })

	b := host.New(props.New[struct{}](props.WithName("card")), src)
	require.NoError(t, b.Define(props.Field("tone", props.KindString)))
	_, err = b.Mount(struct{}{})
	require.NoError(t, err)

	writeFile(t, path, "tone: warn\n")
	require.Eventually(t, func() bool {
		_, _, _ = b.Sync(struct{}{})
		return props.SameValue(props.String("warn"), b.Kernel().Get().Get("tone"))
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseIsIdempotent(t *testing.T) {
	src, err := New(filepath.Join(t.TempDir(), "card.yaml"))
	require.NoError(t, err)
	require.NoError(t, src.Watch())
	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
}

func TestWatchTwiceKeepsSingleWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card.yaml")
	writeFile(t, path, "tone: info\n")

	src, err := New(path)
	require.NoError(t, err)
	assert.False(t, src.Watching())

	require.NoError(t, src.Watch())
	first := src.watcher
	require.NoError(t, src.Watch())
	assert.Same(t, first, src.watcher)
	assert.True(t, src.Watching())

	var calls atomic.Int32
	src.Subscribe(func() { calls.Add(1) })
	writeFile(t, path, "tone: warn\n")
	require.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, src.Close())
	assert.False(t, src.Watching())
	assert.ErrorIs(t, src.Watch(), ErrClosed)
}
