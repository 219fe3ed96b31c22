package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is one outcome signal. Data holds one of the payload types in
// outcomes.go.
type Event struct {
	Type string
	Time time.Time
	Data any
}

// Bus fans events out to subscribers. Publish never waits on a reader: a
// subscriber whose buffer is full misses the event, and Dropped counts it.
type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
	Dropped() uint64
}

const defaultBuffer = 8

// New returns an in-memory bus. It starts no goroutines.
func New() Bus {
	return &memBus{subs: make(map[uint64]chan Event)}
}

type memBus struct {
	mu      sync.RWMutex
	next    uint64
	subs    map[uint64]chan Event
	dropped atomic.Uint64
}

// Publish keeps the read lock across the sends. Sends never block, and
// channels are only closed under the write lock.
func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe registers a buffered channel. unsubscribe closes it and may be
// called more than once.
func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.next++
	id := b.next
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}

func (b *memBus) Dropped() uint64 { return b.dropped.Load() }

// Publish sends on b when it is set; components treat the bus as optional.
func Publish(b Bus, typ string, data any) {
	if b == nil {
		return
	}
	b.Publish(Event{Type: typ, Data: data})
}
