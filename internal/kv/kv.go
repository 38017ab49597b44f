// Package kv is the persisted key-value layer the facade reads and writes.
// Every key holds one JSON document; backends differ only in where the bytes
// live.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a key that was never written or has been
// deleted.
var ErrNotFound = errors.New("kv: key not found")

// Op is a single staged write. Delete removes Key and ignores Value.
type Op struct {
	Key    string
	Value  []byte
	Delete bool
}

// Put stages a write of value under key.
func Put(key string, value []byte) Op { return Op{Key: key, Value: value} }

// Del stages a removal of key.
func Del(key string) Op { return Op{Key: key, Delete: true} }

// Store is the storage contract used by the facade.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Apply commits ops in order. Backends that support it apply the batch
	// atomically; see each implementation.
	Apply(ctx context.Context, ops ...Op) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Watcher is implemented by backends that can observe writes made by other
// processes sharing the same storage.
type Watcher interface {
	// Watch blocks until ctx ends, calling fn with the keys changed outside
	// this process.
	Watch(ctx context.Context, fn func(keys []string)) error
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
