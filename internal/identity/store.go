package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kingrea/newsroom/internal/domain"
)

// Store persists the signed-in session between runs.
type Store interface {
	Load() (*domain.Session, error)
	Save(*domain.Session) error
	Clear() error
}

// FileStore keeps the session as JSON in a single 0600 file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file need not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the session file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored session, or nil when none is stored.
func (s *FileStore) Load() (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("identity: read session: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("identity: parse session: %w", err)
	}
	if session.AccessToken == "" {
		return nil, nil
	}
	return &session, nil
}

// Save replaces the stored session atomically.
func (s *FileStore) Save(session *domain.Session) error {
	if session == nil {
		return s.Clear()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("identity: encode session: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("identity: ensure session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("identity: write session: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("identity: write session: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("identity: write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("identity: write session: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("identity: write session: %w", err)
	}
	return nil
}

// Clear removes the stored session.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("identity: clear session: %w", err)
	}
	return nil
}

// watchFile calls onChange whenever the file at path is created, written,
// renamed over or removed. It watches the parent directory so atomic
// replacements are seen. The returned stop func blocks until the watch
// goroutine has exited.
func watchFile(path string, logger *zap.Logger, onChange func()) (func(), error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("identity: ensure session dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("identity: new watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("identity: watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target {
					continue
				}
				if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
					continue
				}
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("session watch error", zap.Error(err))
			}
		}
	}()
	return func() {
		_ = watcher.Close()
		<-done
	}, nil
}
