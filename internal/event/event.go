package event

import (
	"sync"

	"github.com/hupe1980/scmemory/model"
)

// Kind identifies a mutation.
type Kind uint8

// Event kinds.
const (
	ElementCreated Kind = iota + 1
	ElementErased
	ArcAdded
	ArcRemoved
	ContentChanged
	IdentifierSet
)

func (k Kind) String() string {
	switch k {
	case ElementCreated:
		return "element_created"
	case ElementErased:
		return "element_erased"
	case ArcAdded:
		return "arc_added"
	case ArcRemoved:
		return "arc_removed"
	case ContentChanged:
		return "content_changed"
	case IdentifierSet:
		return "identifier_set"
	default:
		return "unknown"
	}
}

// Event is one mutation. Begin and End are set for arc events, Name and
// Scope for identifier events.
type Event struct {
	Kind  Kind
	Addr  model.Addr
	Type  model.Type
	Begin model.Addr
	End   model.Addr
	Name  string
	Scope string
}

// Filter selects the events a subscriber receives. A nil filter accepts all.
type Filter func(Event) bool

// Handler consumes events. It runs on the publishing goroutine and must not
// call back into a write path of the store that published the event.
type Handler func(Event)

type subscriber struct {
	filter  Filter
	handler Handler
}

// Bus is a synchronous fan-out of events. The zero value is ready to use.
type Bus struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]subscriber
}

// Subscribe registers handler and returns a function that removes it.
func (b *Bus) Subscribe(filter Filter, handler Handler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs == nil {
		b.subs = make(map[uint64]subscriber)
	}

	b.next++
	id := b.next
	b.subs[id] = subscriber{filter: filter, handler: handler}

	var once sync.Once

	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs)
}

// Publish delivers events in order to every matching subscriber.
func (b *Bus) Publish(events ...Event) {
	if len(events) == 0 {
		return
	}

	b.mu.RLock()
	subs := make([]subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	for _, ev := range events {
		for _, s := range subs {
			if s.filter == nil || s.filter(ev) {
				s.handler(ev)
			}
		}
	}
}
