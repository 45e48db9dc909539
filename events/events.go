package events

import (
	"sync"

	"github.com/meghashyamc/buzee/logger"
)

const (
	SyncStatus = "sync-status"
	FilesAdded = "files-added"

	KeyFilesAdded         = "files_added"
	KeyFilesAddedComplete = "files_added_complete"
)

type Event struct {
	Name    string `json:"name"`
	Key     string `json:"key,omitempty"`
	Payload any    `json:"payload"`
}

// Emitter is what producers need from the bus.
type Emitter interface {
	Emit(event Event)
}

// Bus fans events out to subscribers. Delivery never blocks the producer: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	logger logger.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

func NewBus(logger logger.Logger) *Bus {
	return &Bus{logger: logger, subs: map[int]chan Event{}}
}

// Subscribe registers a listener with the given buffer. The returned cancel function
// unregisters it and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *Bus) Emit(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropping event for slow subscriber", "event", event.Name, "subscriber", id)
		}
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Recorder keeps every emitted event. Commands and tests use it where nothing streams events.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Multi emits to every emitter in order.
type Multi []Emitter

func (m Multi) Emit(event Event) {
	for _, e := range m {
		e.Emit(event)
	}
}
