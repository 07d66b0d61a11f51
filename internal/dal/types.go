package dal

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no document exists under the key
var ErrNotFound = errors.New("document not found")

// DocumentStore is a key-value store of JSON documents. Implementations only
// need single-key atomicity; per-match serialization is the coordinator's job.
type DocumentStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Backend names the store implementation for status reporting
type Backend interface {
	Backend() string
}

// BackendName reports the store implementation, or "unknown"
func BackendName(s DocumentStore) string {
	if b, ok := s.(Backend); ok {
		return b.Backend()
	}
	return "unknown"
}
