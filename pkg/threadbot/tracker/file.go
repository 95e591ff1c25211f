package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	// DefaultFilePath matches the file name older deployments already use.
	DefaultFilePath = "thread_config.json"

	configFileMode  = 0o600
	tempFilePattern = ".thread_config-*.tmp"
)

// FileBackend stores the record as an indented JSON document. Writes go to
// a temp file in the same directory and are renamed over the target, so a
// crash mid-write leaves the previous document intact.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFileBackend returns a backend for path.
func NewFileBackend(path string) *FileBackend {
	if path == "" {
		path = DefaultFilePath
	}
	return &FileBackend{path: path}
}

// Path returns the backing file path.
func (b *FileBackend) Path() string { return b.path }

// Load reads the JSON document. A missing file yields an empty record.
// Malformed content yields an empty record plus ErrCorruptConfig; the bad
// file is copied to <path>.corrupt first so it can be inspected.
func (b *FileBackend) Load() (*Configuration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewConfiguration(), nil
	}
	if err != nil {
		return NewConfiguration(), fmt.Errorf("reading %s: %w", b.path, err)
	}

	cfg := NewConfiguration()
	if err := json.Unmarshal(data, cfg); err != nil {
		_ = os.WriteFile(b.path+".corrupt", data, configFileMode)
		return NewConfiguration(), fmt.Errorf("%w: %s: %v", ErrCorruptConfig, b.path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// Save atomically replaces the JSON document.
func (b *FileBackend) Save(cfg *Configuration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tracker config: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp config file: %w", err)
	}
	if err := tmp.Chmod(configFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	cleanup = false
	return nil
}

// Close is a no-op.
func (b *FileBackend) Close() error { return nil }
