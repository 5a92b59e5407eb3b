package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileBackend stores all entries as one flat YAML mapping on disk. Every
// write rewrites the document into a temporary file and renames it over the
// original, so a crash leaves either the old or the new document.
type FileBackend struct {
	path   string
	mu     sync.Mutex
	data   map[string]string
	closed bool
}

// NewFileBackend opens (or prepares to create) the document at path. The
// parent directory is created if needed; the file itself is only written on
// the first Set.
//
// Parameters:
//   - path: Location of the YAML document
//
// Returns:
//   - The backend, or an error if an existing document cannot be read or parsed
func NewFileBackend(path string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	b := &FileBackend{
		path: path,
		data: make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return b, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &b.data); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}

	if b.data == nil {
		b.data = make(map[string]string)
	}

	return b, nil
}

// Path returns the location of the YAML document.
func (b *FileBackend) Path() string {
	return b.path
}

// Get implements Backend.
func (b *FileBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkContext(ctx); err != nil {
		return "", false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", false, ErrBackendClosed
	}

	v, ok := b.data[key]
	return v, ok, nil
}

// Set implements Backend.
func (b *FileBackend) Set(ctx context.Context, key, value string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBackendClosed
	}

	return b.writeLocked(key, value)
}

// SetIfAbsent implements Backend.
func (b *FileBackend) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false, ErrBackendClosed
	}

	if _, ok := b.data[key]; ok {
		return false, nil
	}

	if err := b.writeLocked(key, value); err != nil {
		return false, err
	}

	return true, nil
}

// Close implements Backend.
func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// writeLocked applies key=value and persists the document; caller holds b.mu.
// The in-memory map is only updated once the file is in place.
func (b *FileBackend) writeLocked(key, value string) error {
	next := make(map[string]string, len(b.data)+1)
	for k, v := range b.data {
		next[k] = v
	}
	next[key] = value

	raw, err := yaml.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}

	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	b.data = next
	return nil
}
