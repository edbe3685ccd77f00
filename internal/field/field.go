// Package field implements the persisted form field that mirrors editor
// content for the host page's submission action.
package field

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrEmptyName is returned when a field is created without a name.
var ErrEmptyName = errors.New("field name is required")

// Field is a single named external value.
type Field interface {
	// Name returns the field name the submission action reads.
	Name() string

	// Value returns the last written value.
	Value() string

	// Write replaces the stored value.
	Write(value string) error
}

// Memory is an in-process Field.
type Memory struct {
	mu     sync.RWMutex
	name   string
	value  string
	writes int
}

// NewMemory creates an in-memory field.
func NewMemory(name string) (*Memory, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	return &Memory{name: name}, nil
}

// Name implements Field.
func (m *Memory) Name() string { return m.name }

// Value implements Field.
func (m *Memory) Value() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value
}

// Write implements Field.
func (m *Memory) Write(value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
	m.writes++
	return nil
}

// Writes returns how many times Write was called.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// File is a Field persisted to disk. Writes go to a temporary file in the
// same directory and are renamed into place.
type File struct {
	mu    sync.RWMutex
	name  string
	path  string
	value string
}

// OpenFile creates a file-backed field, loading any existing value.
func OpenFile(name, path string) (*File, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	f := &File{name: name, path: path}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		f.value = string(data)
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read field %s: %w", name, err)
	}
	return f, nil
}

// Name implements Field.
func (f *File) Name() string { return f.name }

// Value implements Field.
func (f *File) Value() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// Write implements Field.
func (f *File) Write(value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.value == value {
		if _, err := os.Stat(f.path); err == nil {
			return nil
		}
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("write field %s: %w", f.name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write field %s: %w", f.name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write field %s: %w", f.name, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write field %s: %w", f.name, err)
	}

	f.value = value
	return nil
}
