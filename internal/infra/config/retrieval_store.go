package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"retrieval-engine/internal/usecase/retrieval"
)

// LoadRetrievalConfig reads the YAML preset file at path over the
// built-in defaults and validates the result. An empty path yields the
// defaults.
func LoadRetrievalConfig(path string) (*retrieval.Snapshot, error) {
	cfg := retrieval.DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read retrieval config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse retrieval config: %w", err)
		}
	}
	return retrieval.NewSnapshot(cfg)
}

// RetrievalStore holds the active retrieval configuration and swaps in
// a new snapshot when the preset file changes on disk. A change that
// fails validation is rejected; the previous snapshot stays active.
type RetrievalStore struct {
	path    string
	current atomic.Pointer[retrieval.Snapshot]
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
}

// NewRetrievalStore loads the initial snapshot. The initial load is
// fatal when invalid; later reloads are not.
func NewRetrievalStore(path string, logger *slog.Logger) (*RetrievalStore, error) {
	snap, err := LoadRetrievalConfig(path)
	if err != nil {
		return nil, err
	}
	s := &RetrievalStore{
		path:   path,
		logger: logger,
		done:   make(chan struct{}),
	}
	s.current.Store(snap)
	return s, nil
}

// Current returns the active snapshot. Safe for concurrent use.
func (s *RetrievalStore) Current() *retrieval.Snapshot {
	return s.current.Load()
}

// Watch starts watching the preset file for changes. A no-op when the
// store was built without a file path.
func (s *RetrievalStore) Watch() error {
	if s.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory: editors and configmap mounts replace the
	// file instead of writing in place.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch config dir: %w", err)
	}
	s.watcher = watcher

	go s.loop()
	return nil
}

func (s *RetrievalStore) loop() {
	base := filepath.Base(s.path)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.reload()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("config_watch_error", slog.String("error", err.Error()))
		case <-s.done:
			return
		}
	}
}

func (s *RetrievalStore) reload() {
	snap, err := LoadRetrievalConfig(s.path)
	if err != nil {
		s.logger.Warn("config_reload_rejected",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return
	}
	s.current.Store(snap)
	s.logger.Info("config_reloaded", slog.String("path", s.path))
}

// Close stops the watcher goroutine.
func (s *RetrievalStore) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
