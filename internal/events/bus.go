// Package events fans out partition change notifications to subscribers such
// as SSE clients and the CLI.
package events

import (
	"context"
	"slices"
	"sync"
	"time"

	"optigov.org/internal/domain"
	"optigov.org/internal/obs"
)

// Source says where a change originated.
type Source string

const (
	// SourceLocal marks commits made through this process's store.
	SourceLocal Source = "local"
	// SourceExternal marks changes observed in shared storage, e.g. another
	// process writing the same file directory.
	SourceExternal Source = "external"
)

// Change lists the partitions touched by one committed write.
type Change struct {
	Partitions []domain.Partition `json:"partitions"`
	At         time.Time          `json:"at"`
	Source     Source             `json:"source"`
}

// Touches reports whether c includes any of ps. An empty ps matches all.
func (c Change) Touches(ps ...domain.Partition) bool {
	if len(ps) == 0 {
		return true
	}
	for _, p := range c.Partitions {
		if slices.Contains(ps, p) {
			return true
		}
	}
	return false
}

type subscriber struct {
	ch     chan Change
	filter []domain.Partition
}

// Bus delivers each published Change to every matching subscriber. Publish
// never blocks; a subscriber whose buffer is full misses the change.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	next   int
	buffer int
}

// NewBus creates a bus whose subscriber channels hold buffer pending changes.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{subs: make(map[int]*subscriber), buffer: buffer}
}

// Subscribe registers for changes touching any of partitions (all when none
// are given). The channel is closed when ctx ends.
func (b *Bus) Subscribe(ctx context.Context, partitions ...domain.Partition) <-chan Change {
	ch := make(chan Change, b.buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscriber{ch: ch, filter: slices.Clone(partitions)}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Publish fans c out to matching subscribers.
func (b *Bus) Publish(c Change) {
	if len(c.Partitions) == 0 {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !c.Touches(sub.filter...) {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			obs.ObserveEventDropped()
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
