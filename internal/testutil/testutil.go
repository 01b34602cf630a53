// Package testutil provides shared test helpers for stores and loggers.
package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/starford/lifematrix/internal/apperr"
	"github.com/starford/lifematrix/internal/storage"
)

// TestStore creates a file store in a temporary directory.
func TestStore(t *testing.T) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// MemStore is an in-memory storage.Provider with failure injection.
type MemStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	puts   int
	GetErr error
	PutErr error
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

// Get returns the stored value or apperr.ErrNotFound.
func (m *MemStore) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("memstore: %s: %w", key, apperr.ErrNotFound)
	}
	return append([]byte(nil), v...), nil
}

// Put stores a copy of value.
func (m *MemStore) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.puts++
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Close does nothing.
func (m *MemStore) Close() error { return nil }

// Puts returns the number of successful writes.
func (m *MemStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

var _ storage.Provider = (*MemStore)(nil)
