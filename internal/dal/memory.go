package dal

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore implements DocumentStore using in-memory storage
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string][]byte),
	}
}

func (m *MemoryStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	// Copy to avoid callers mutating stored bytes
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (m *MemoryStore) Save(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := make([]byte, len(value))
	copy(doc, value)

	m.mu.Lock()
	m.docs[key] = doc
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) Backend() string {
	return "memory"
}
