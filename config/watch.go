package config

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store hands out immutable config snapshots and swaps them atomically on
// reload. In-flight requests keep whatever snapshot they fetched; they never
// observe a half-updated table.
type Store struct {
	path    string
	current atomic.Pointer[Config]
	logger  zerolog.Logger
}

// NewStore loads the initial snapshot from path. Load errors here are the
// caller's to treat as fatal.
func NewStore(path string) (*Store, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{
		path:   path,
		logger: log.With().Str("component", "config_store").Logger(),
	}
	s.current.Store(cfg)
	return s, nil
}

// NewStaticStore wraps a fixed configuration that never reloads.
func NewStaticStore(cfg *Config) *Store {
	s := &Store{logger: log.With().Str("component", "config_store").Logger()}
	s.current.Store(cfg)
	return s
}

// Snapshot returns the current immutable configuration.
func (s *Store) Snapshot() *Config {
	return s.current.Load()
}

// Watch reloads the file on change until the stop channel closes. A reload
// that fails to parse or validate keeps the previous snapshot; hot-reload
// errors are never fatal.
func (s *Store) Watch(stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory: editors replace the file on save, which drops
	// a watch registered on the file itself.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-stop:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				s.reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()
	return nil
}

func (s *Store) reload() {
	cfg, err := Load(s.path)
	if err != nil {
		s.logger.Warn().Err(err).Msg("config reload failed, keeping previous snapshot")
		return
	}
	s.current.Store(cfg)
	s.logger.Info().Str("path", s.path).Msg("configuration reloaded")
}
