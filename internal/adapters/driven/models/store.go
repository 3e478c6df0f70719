// Package models resolves model identifiers to files in a local model
// directory. A watcher keeps the availability set current as model files
// are downloaded or removed out of band.
package models

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
	"github.com/caldera-labs/assistant-cli/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.ModelStore = (*Store)(nil)

// Store is a directory-backed implementation of driven.ModelStore.
// Model identifiers may be bare filenames or download URLs; either way
// the base filename is the on-disk name inside the model directory.
type Store struct {
	dir     string
	mu      sync.RWMutex
	present map[string]struct{}
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore creates a model store rooted at dir. If dir is empty,
// defaults to ~/.assistant/models.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".assistant", "models")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	s := &Store{
		dir:     dir,
		present: make(map[string]struct{}),
		done:    make(chan struct{}),
	}

	if err := s.scan(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	s.watcher = watcher

	go s.watch()

	return s, nil
}

// Dir returns the model directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the local file path for a model identifier.
func (s *Store) Path(id string) (string, error) {
	name := FileName(id)
	if name == "" {
		return "", domain.ErrModelUnavailable
	}

	s.mu.RLock()
	_, ok := s.present[name]
	s.mu.RUnlock()

	full := filepath.Join(s.dir, name)
	if !ok {
		// The watcher can miss files placed before it started; fall
		// back to a direct check before giving up.
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			return "", domain.ErrModelUnavailable
		}
		s.mu.Lock()
		s.present[name] = struct{}{}
		s.mu.Unlock()
	}

	return full, nil
}

// Available reports whether the model file is present locally.
func (s *Store) Available(id string) bool {
	_, err := s.Path(id)
	return err == nil
}

// List returns the filenames currently present in the model directory.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.present))
	for name := range s.present {
		names = append(names, name)
	}
	return names
}

// Close stops the directory watcher.
func (s *Store) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// scan seeds the availability set from the directory contents.
func (s *Store) scan() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		s.present[entry.Name()] = struct{}{}
	}
	return nil
}

// watch applies filesystem events to the availability set.
func (s *Store) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("model directory watch error: %v", err)
		}
	}
}

// handleEvent updates the availability set for a single event.
func (s *Store) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)

	switch {
	case event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return
		}
		s.mu.Lock()
		s.present[name] = struct{}{}
		s.mu.Unlock()
		logger.Debug("model file available: %s", name)
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		s.mu.Lock()
		delete(s.present, name)
		s.mu.Unlock()
		logger.Debug("model file removed: %s", name)
	}
}

// FileName maps a model identifier to its on-disk filename. URLs map to
// the base of their path; plain identifiers map to their own base name.
func FileName(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}

	if strings.Contains(id, "://") {
		u, err := url.Parse(id)
		if err == nil && u.Path != "" {
			return path.Base(u.Path)
		}
	}

	return filepath.Base(id)
}
