// Package store is the data access facade of the dashboard. Every collection
// lives under one kv key as a JSON document; each operation reads the
// collections it needs, stages its writes and commits them in a single
// kv.Apply, then publishes one events.Change naming the partitions written.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"optigov.org/internal/domain"
	"optigov.org/internal/events"
	"optigov.org/internal/ids"
	"optigov.org/internal/kv"
	"optigov.org/internal/obs"
)

// Store is safe for concurrent use. Mutations are serialised by an internal
// mutex; reads go straight to the backend.
type Store struct {
	kv   kv.Store
	bus  *events.Bus
	log  *zap.Logger
	now  func() time.Time
	cost int

	mu sync.Mutex
}

// Option configures Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and identifiers.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBcryptCost sets the password hashing cost (zero selects the bcrypt default).
func WithBcryptCost(cost int) Option {
	return func(s *Store) { s.cost = cost }
}

// WithBus publishes change events on bus instead of a private one.
func WithBus(bus *events.Bus) Option {
	return func(s *Store) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New wraps backend. The caller owns backend and closes it.
func New(backend kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:  backend,
		bus: events.NewBus(0),
		log: obs.Named("store"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bus returns the bus change events are published on.
func (s *Store) Bus() *events.Bus { return s.bus }

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error { return s.kv.Ping(ctx) }

func (s *Store) clock() time.Time { return s.now().UTC() }

func (s *Store) newID() string { return ids.NewAt(s.now()) }

// reader is satisfied by Store (committed state) and tx (committed state
// overlaid with staged writes).
type reader interface {
	raw(ctx context.Context, p domain.Partition) ([]byte, error)
	logger() *zap.Logger
}

func (s *Store) raw(ctx context.Context, p domain.Partition) ([]byte, error) {
	return s.kv.Get(ctx, p.Key())
}

func (s *Store) logger() *zap.Logger { return s.log }

// get decodes partition p. A missing key yields the zero value; so does a
// value that fails to parse, after a warning. Backend errors are returned.
func get[T any](ctx context.Context, r reader, p domain.Partition) (T, error) {
	var out T
	data, err := r.raw(ctx, p)
	if errors.Is(err, kv.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		obs.ObserveStoreError("read")
		return out, fmt.Errorf("store: read %s: %w", p, err)
	}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		r.logger().Warn("discarding unparseable partition",
			zap.String("key", p.Key()), zap.Error(err))
		var zero T
		return zero, nil
	}
	return out, nil
}

// tx stages partition writes for one operation.
type tx struct {
	s      *Store
	staged map[domain.Partition][]byte
	order  []domain.Partition
}

func (t *tx) raw(ctx context.Context, p domain.Partition) ([]byte, error) {
	if data, ok := t.staged[p]; ok {
		return data, nil
	}
	return t.s.raw(ctx, p)
}

func (t *tx) logger() *zap.Logger { return t.s.log }

// put stages v as the new content of p.
func (t *tx) put(p domain.Partition, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", p, err)
	}
	if _, ok := t.staged[p]; !ok {
		t.order = append(t.order, p)
	}
	t.staged[p] = data
	return nil
}

// del stages removal of p.
func (t *tx) del(p domain.Partition) {
	if _, ok := t.staged[p]; !ok {
		t.order = append(t.order, p)
	}
	t.staged[p] = nil
}

// update runs fn under the store mutex and commits whatever it staged. When fn
// fails nothing is written and no event is published.
func (s *Store) update(ctx context.Context, op string, fn func(t *tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{s: s, staged: make(map[domain.Partition][]byte)}
	if err := fn(t); err != nil {
		return err
	}
	if len(t.order) == 0 {
		return nil
	}

	ops := make([]kv.Op, 0, len(t.order))
	for _, p := range t.order {
		if data := t.staged[p]; data != nil {
			ops = append(ops, kv.Put(p.Key(), data))
		} else {
			ops = append(ops, kv.Del(p.Key()))
		}
	}
	if err := s.kv.Apply(ctx, ops...); err != nil {
		obs.ObserveStoreError(op)
		s.log.Error("commit failed",
			zap.String("op", op), zap.Any("partitions", t.order), zap.Error(err))
		return fmt.Errorf("store: %s: %w", op, err)
	}
	for _, p := range t.order {
		obs.ObservePartitionWrite(string(p))
	}
	s.log.Debug("committed", zap.String("op", op), zap.Any("partitions", t.order))
	s.bus.Publish(events.Change{Partitions: t.order, At: s.clock(), Source: events.SourceLocal})
	return nil
}

// WatchExternal republishes changes written to shared storage by other
// processes. It returns immediately with nil when the backend cannot observe
// such writes.
func (s *Store) WatchExternal(ctx context.Context) error {
	w, ok := s.kv.(kv.Watcher)
	if !ok {
		return nil
	}
	return w.Watch(ctx, func(keys []string) {
		var parts []domain.Partition
		for _, k := range keys {
			if p, ok := domain.PartitionForKey(k); ok {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			return
		}
		s.log.Info("external change", zap.Any("partitions", parts))
		s.bus.Publish(events.Change{Partitions: parts, At: s.clock(), Source: events.SourceExternal})
	})
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := []T{}
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, it := range items {
		if match(it) {
			return i
		}
	}
	return -1
}

// newestFirst returns a reversed copy; collections are stored in append order.
func newestFirst[T any](items []T) []T {
	out := make([]T, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}
	return out
}
