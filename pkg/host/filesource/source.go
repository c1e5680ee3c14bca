// Package filesource implements host.RawSource over a JSON or YAML file that
// is watched for changes.
package filesource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/goliatone/go-props/internal/hydrate"
	"github.com/rs/zerolog"
)

// ErrClosed is returned by Watch once the source has been closed.
var ErrClosed = errors.New("filesource: source closed")

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the source logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// WithComponent labels decode errors with the owning component.
func WithComponent(name string) Option {
	return func(s *Source) {
		s.component = name
	}
}

// WithKnownKeys makes Get reject files carrying undeclared keys.
func WithKnownKeys(keys ...string) Option {
	return func(s *Source) {
		s.decoderOpts = append(s.decoderOpts, hydrate.WithKnownKeys(keys...))
	}
}

// Source reads raw props from a file and notifies subscribers when the file
// is written or recreated.
type Source struct {
	path        string
	component   string
	logger      zerolog.Logger
	decoderOpts []hydrate.DecoderOption
	decoder     *hydrate.Decoder

	mu     sync.Mutex
	subs   map[int]func()
	nextID int

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	stopped sync.Once
}

// New creates a source for path. Call Watch to start receiving change
// notifications.
func New(path string, opts ...Option) (*Source, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("filesource: absolute path: %w", err)
	}
	s := &Source{
		path:   absPath,
		logger: zerolog.Nop(),
		subs:   map[int]func(){},
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.decoder = hydrate.NewDecoder(s.decoderOpts...)
	return s, nil
}

// Path returns the absolute path being read.
func (s *Source) Path() string { return s.path }

// Get reads and decodes the file.
func (s *Source) Get() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("filesource: read: %w", err)
	}
	return s.decoder.Decode(hydrate.Context{Source: s.path, Component: s.component}, data)
}

// Subscribe registers fn for change notifications. fn runs on the watcher
// goroutine.
func (s *Source) Subscribe(fn func()) func() {
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

// Watch starts watching the file's directory; editors that save atomically
// replace the file rather than writing it. Calling Watch on a source that is
// already watching is a no-op. Watch after Close returns ErrClosed.
func (s *Source) Watch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopCh:
		return ErrClosed
	default:
	}
	if s.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("filesource: create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("filesource: watch directory: %w", err)
	}
	s.watcher = watcher

	go s.watchLoop(watcher)

	s.logger.Info().Str("path", s.path).Msg("watching props file")
	return nil
}

// Watching reports whether a watcher is running.
func (s *Source) Watching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.stopCh:
		return false
	default:
		return s.watcher != nil
	}
}

// Close stops watching. It is safe to call more than once.
func (s *Source) Close() error {
	var err error
	s.stopped.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		close(s.stopCh)
		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}

func (s *Source) watchLoop(watcher *fsnotify.Watcher) {
	filename := filepath.Base(s.path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("props file changed")
			s.notify()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error().Err(err).Msg("file watcher error")

		case <-s.stopCh:
			return
		}
	}
}

func (s *Source) notify() {
	s.mu.Lock()
	subs := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
