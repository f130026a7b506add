// Package events is the in-process application event bus.
package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

type Type string

const (
	// Refresh asks every view to reload its state.
	Refresh Type = "app:refresh"
)

type Event struct {
	Type Type
}

type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[int]chan Event),
	}
}

// Subscribe returns a channel receiving emitted events and a function that
// closes it. A full channel drops events.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Emit delivers e to every subscriber without blocking.
func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	b.logger.Debug("event emitted", "type", e.Type, "subscribers", len(b.subs))
	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.Warn("event dropped", "type", e.Type, "subscriber", id)
		}
	}
}

// Counter counts emitted events of one type.
type Counter struct {
	n atomic.Int64
}

// Count subscribes to the bus and counts events of type t until ctx is done.
func (b *Bus) Count(ctx context.Context, t Type) *Counter {
	c := &Counter{}
	ch, cancel := b.Subscribe(16)

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-ch:
				if e.Type == t {
					c.n.Add(1)
				}
			}
		}
	}()
	return c
}

func (c *Counter) Value() int64 {
	return c.n.Load()
}
