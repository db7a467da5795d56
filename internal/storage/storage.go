package storage

import (
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by operations on a closed storage.
var ErrClosed = errors.New("storage is closed")

// Storage is a small string key/value store for client-side state, the
// equivalent of a browser's local storage.
type Storage interface {
	// GetItem returns the value stored under key. ok is false when the key
	// has never been written.
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open builds the Storage backend by name. path is ignored for memory.
func Open(backend, path string) (Storage, error) {
	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		return NewFile(path), nil
	case BackendSQLite:
		s, err := NewSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// Memory is a concurrency-safe in-memory Storage. Nothing survives the process.
type Memory struct {
	mu     sync.RWMutex
	items  map[string]string
	closed bool
}

// NewMemory creates an empty Memory storage.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

func (m *Memory) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.items[key] = value
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ Storage = (*Memory)(nil)
